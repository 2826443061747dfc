package detect

import (
	"log/slog"
	"os"
	"slices"
	"time"

	"gocv.io/x/gocv"

	"github.com/user0608/photosheet"
)

// PersonDetector extends Detector with the targeted region search the
// consistency stage needs.
type PersonDetector interface {
	Detector
	SearchRegion(img gocv.Mat, region photosheet.Box) (photosheet.Box, bool)
}

type Config struct {
	FaceConfidence     float64
	PersonConfidence   float64
	EnforceConsistency bool
}

func DefaultConfig() Config {
	return Config{
		FaceConfidence:     0.4,
		PersonConfidence:   0.35,
		EnforceConsistency: false,
	}
}

// Processor coordinates face and person detection over one image:
// backend adapters, candidate consolidation, body recovery when faces
// outnumber persons, global suppression and the optional strict
// consistency pass.
type Processor struct {
	faces   Detector
	persons PersonDetector
	cfg     Config
}

func NewProcessor(faces Detector, persons PersonDetector, cfg Config) *Processor {
	return &Processor{faces: faces, persons: persons, cfg: cfg}
}

func (p *Processor) Close() {
	if p.faces != nil {
		p.faces.Close()
	}
	if p.persons != nil {
		p.persons.Close()
	}
}

// ProcessFile runs the detection pipeline over the image at the request
// path. Empty result sets are valid responses, not errors.
func (p *Processor) ProcessFile(req photosheet.DetectionRequest) (photosheet.DetectionResponse, error) {
	start := time.Now()

	if _, err := os.Stat(req.ImagePath); err != nil {
		return photosheet.DetectionResponse{}, photosheet.ErrNotFound
	}
	img := gocv.IMRead(req.ImagePath, gocv.IMReadColor)
	if img.Empty() {
		return photosheet.DetectionResponse{}, photosheet.ErrDecodeFailed
	}
	defer img.Close()

	detections := p.Detect(img, req.DetectionTypes, req.ConfidenceThreshold)

	return photosheet.DetectionResponse{
		ImagePath:       req.ImagePath,
		Detections:      detections,
		ProcessingTime:  time.Since(start).Seconds(),
		ImageDimensions: photosheet.Dimensions{Width: img.Cols(), Height: img.Rows()},
	}, nil
}

// Detect runs the pipeline over an already decoded image.
func (p *Processor) Detect(img gocv.Mat, kinds []photosheet.DetectionKind, threshold float64) []photosheet.Detection {
	width, height := img.Cols(), img.Rows()

	var faces, persons []photosheet.Detection

	if slices.Contains(kinds, photosheet.KindFace) && p.faces != nil {
		cands, err := p.faces.Detect(img)
		if err != nil {
			slog.Warn("detección de rostros falló", "err", err)
		}
		faces = filterByThreshold(
			ScoreFaces(MergeCandidates(cands), width, height, p.cfg.FaceConfidence), threshold)
		slog.Info("rostros encontrados", "total", len(faces))
	}

	if slices.Contains(kinds, photosheet.KindPerson) && p.persons != nil {
		cands, err := p.persons.Detect(img)
		if err != nil {
			slog.Warn("detección de personas falló", "err", err)
		}
		persons = filterByThreshold(
			ScorePersons(MergeCandidates(cands), width, height, p.cfg.PersonConfidence), threshold)
		slog.Info("personas encontradas", "total", len(persons))

		if len(faces) > len(persons) {
			slog.Warn("más rostros que personas, buscando cuerpos faltantes",
				"rostros", len(faces), "personas", len(persons))
			recovered := RecoverBodies(faces, persons, width, height,
				func(region photosheet.Box) (photosheet.Box, bool) {
					return p.persons.SearchRegion(img, region)
				})
			persons = append(persons, recovered...)
		}
	}

	filtered := Suppress(append(faces, persons...))

	if p.cfg.EnforceConsistency {
		f := photosheet.ByKind(filtered, photosheet.KindFace)
		pe := photosheet.ByKind(filtered, photosheet.KindPerson)
		f, pe = EnforceConsistency(f, pe)
		filtered = append(f, pe...)
	}
	return filtered
}

func filterByThreshold(dets []photosheet.Detection, threshold float64) []photosheet.Detection {
	var out []photosheet.Detection
	for _, d := range dets {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}
