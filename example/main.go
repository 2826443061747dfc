// cmd/main.go
package main

import (
	"fmt"
	"time"

	"log/slog"

	"github.com/user0608/photosheet"
	"github.com/user0608/photosheet/crop"
	"github.com/user0608/photosheet/detect"
)

func main() {

	faces, err := detect.NewCascadeFaces("./models")
	if err != nil {
		slog.Error("init rostros", "err", err)
		return
	}
	persons, err := detect.NewHOGPersons()
	if err != nil {
		faces.Close()
		slog.Error("init personas", "err", err)
		return
	}
	detector := detect.NewProcessor(faces, persons, detect.DefaultConfig())
	defer detector.Close()

	start := time.Now()
	detection, err := detector.ProcessFile(photosheet.DetectionRequest{
		ImagePath:           "input.jpg",
		DetectionTypes:      []photosheet.DetectionKind{photosheet.KindFace, photosheet.KindPerson},
		ConfidenceThreshold: 0.5,
	})
	if err != nil {
		slog.Error("detectar", "err", err)
		return
	}
	fmt.Println("detections:", len(detection.Detections))
	fmt.Println("duration (s):", time.Since(start).Seconds())

	cropper := crop.NewProcessor(50 * 1024 * 1024)
	result, err := cropper.ProcessRequest(photosheet.CropRequest{
		ImagePath:         "input.jpg",
		TargetAspectRatio: photosheet.AspectRatio{Width: 3, Height: 4},
		DetectionResults:  detection.Detections,
		CropStrategy:      photosheet.StrategyCenterFaces,
		OutputPath:        "output_crop.jpg",
	})
	if err != nil {
		slog.Error("recortar", "err", err)
		return
	}
	fmt.Println("output:", result.ProcessedPath)
}
