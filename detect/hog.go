package detect

import (
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/user0608/photosheet"
)

type hogPass struct {
	winStride    image.Point
	padding      image.Point
	scale        float64
	hitThreshold float64
}

// Three passes with increasing sensitivity. gocv does not expose the
// per-box SVM weights, so each pass's hit threshold stands in as the raw
// weight: candidates from a more permissive pass carry a lower base
// confidence through the scorer.
var hogPasses = []hogPass{
	{winStride: image.Pt(8, 8), padding: image.Pt(16, 16), scale: 1.05, hitThreshold: -0.2},
	{winStride: image.Pt(6, 6), padding: image.Pt(12, 12), scale: 1.1, hitThreshold: 0.1},
	{winStride: image.Pt(4, 4), padding: image.Pt(8, 8), scale: 1.03, hitThreshold: 0.0},
}

// HOGPersons detects people with the default HOG+SVM people detector.
type HOGPersons struct {
	mu  sync.Mutex
	hog gocv.HOGDescriptor
}

func NewHOGPersons() (*HOGPersons, error) {
	hog := gocv.NewHOGDescriptor()
	if err := hog.SetSVMDetector(gocv.HOGDefaultPeopleDetector()); err != nil {
		hog.Close()
		return nil, err
	}
	return &HOGPersons{hog: hog}, nil
}

func (d *HOGPersons) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hog.Close()
}

func (d *HOGPersons) Detect(img gocv.Mat) ([]Candidate, error) {
	if img.Empty() {
		return nil, photosheet.ErrDecodeFailed
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Candidate
	for _, p := range hogPasses {
		rects := d.hog.DetectMultiScaleWithParams(
			img, p.hitThreshold, p.winStride, p.padding, p.scale, 2.0, false)
		for _, r := range rects {
			out = append(out, Candidate{
				Box:    photosheet.Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()},
				Weight: p.hitThreshold,
			})
		}
	}
	return out, nil
}

// SearchRegion runs a deliberately permissive pass over a sub-region of
// the image, used by the consistency engine to look for a body under an
// isolated face. Errors and empty results both mean "nothing found";
// this path must never abort a request.
func (d *HOGPersons) SearchRegion(img gocv.Mat, region photosheet.Box) (photosheet.Box, bool) {
	if img.Empty() {
		return photosheet.Box{}, false
	}
	rect := image.Rect(region.X, region.Y, region.Right(), region.Bottom()).
		Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return photosheet.Box{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	roi := img.Region(rect)
	defer roi.Close()

	var rects []image.Rectangle
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Debug("búsqueda secundaria de cuerpo falló", "err", r)
				rects = nil
			}
		}()
		rects = d.hog.DetectMultiScaleWithParams(
			roi, -0.5, image.Pt(4, 4), image.Pt(8, 8), 1.02, 2.0, false)
	}()
	if len(rects) == 0 {
		return photosheet.Box{}, false
	}

	best := rects[0]
	for _, r := range rects[1:] {
		if r.Dx()*r.Dy() > best.Dx()*best.Dy() {
			best = r
		}
	}
	return photosheet.Box{
		X:      rect.Min.X + best.Min.X,
		Y:      rect.Min.Y + best.Min.Y,
		Width:  best.Dx(),
		Height: best.Dy(),
	}, true
}
