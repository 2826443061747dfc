package detect

import (
	"errors"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/user0608/photosheet"
)

// YuNetFaces is the DNN face backend, selected by configuration instead
// of the cascade ensemble. The model file must exist at startup; there
// is no runtime fallback between backends.
type YuNetFaces struct {
	mu       sync.Mutex
	detector gocv.FaceDetectorYN
}

func NewYuNetFaces(modelPath string) (*YuNetFaces, error) {
	if modelPath == "" {
		return nil, errors.New("modelo yunet requerido")
	}
	if _, err := os.Stat(modelPath); err != nil {
		slog.Error("modelo yunet no encontrado", "path", modelPath)
		return nil, errors.New("modelo yunet no encontrado: " + modelPath)
	}
	detector := gocv.NewFaceDetectorYNWithParams(
		modelPath,
		"",
		image.Pt(320, 320),
		0.5,  // score threshold
		0.3,  // backend nms threshold
		5000, // top k
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)
	return &YuNetFaces{detector: detector}, nil
}

func (d *YuNetFaces) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

func (d *YuNetFaces) Detect(img gocv.Mat) ([]Candidate, error) {
	if img.Empty() {
		return nil, photosheet.ErrDecodeFailed
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	// Row format: x, y, w, h, ten landmark coordinates, score.
	var out []Candidate
	for r := 0; r < faces.Rows(); r++ {
		out = append(out, Candidate{
			Box: photosheet.Box{
				X:      int(faces.GetFloatAt(r, 0)),
				Y:      int(faces.GetFloatAt(r, 1)),
				Width:  int(faces.GetFloatAt(r, 2)),
				Height: int(faces.GetFloatAt(r, 3)),
			},
			Weight: float64(faces.GetFloatAt(r, 14)),
		})
	}
	return out, nil
}
