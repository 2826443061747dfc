package detect

import (
	"errors"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/user0608/photosheet"
)

// Haar cascade files tried at startup. The frontal default is required,
// the rest are optional and widen the ensemble when present.
const (
	cascadeFrontal     = "haarcascade_frontalface_default.xml"
	cascadeFrontalAlt  = "haarcascade_frontalface_alt.xml"
	cascadeFrontalAlt2 = "haarcascade_frontalface_alt2.xml"
	cascadeProfile     = "haarcascade_profileface.xml"
)

type scalePass struct {
	scale        float64
	minNeighbors int
	minSize      int
}

// Passes over the equalized gray image with different granularity, so
// small and large faces are both proposed.
var multiScalePasses = []scalePass{
	{scale: 1.03, minNeighbors: 3, minSize: 15},
	{scale: 1.05, minNeighbors: 3, minSize: 20},
	{scale: 1.1, minNeighbors: 4, minSize: 30},
	{scale: 1.2, minNeighbors: 5, minSize: 40},
}

type namedCascade struct {
	name    string
	profile bool
	cls     gocv.CascadeClassifier
}

// CascadeFaces is the Haar cascade face ensemble. Each Detect call runs
// every loaded cascade, several preprocessing variants and the
// multi-scale passes over the same image, producing many near-duplicate
// candidates the consolidator will collapse.
type CascadeFaces struct {
	mu       sync.Mutex
	cascades []namedCascade
}

// NewCascadeFaces loads the cascade files from modelsDir. The frontal
// default cascade is mandatory, optional cascades are skipped silently.
func NewCascadeFaces(modelsDir string) (*CascadeFaces, error) {
	d := &CascadeFaces{}
	load := func(file string, profile, required bool) error {
		path := filepath.Join(modelsDir, file)
		if _, err := os.Stat(path); err != nil {
			if required {
				slog.Error("cascada frontal no encontrada", "path", path)
				return errors.New("cascada haar requerida: " + path)
			}
			return nil
		}
		cls := gocv.NewCascadeClassifier()
		if !cls.Load(path) {
			cls.Close()
			if required {
				slog.Error("no se pudo cargar haarcascade", "path", path)
				return errors.New("carga de haarcascade falló")
			}
			slog.Warn("cascada opcional descartada", "path", path)
			return nil
		}
		d.cascades = append(d.cascades, namedCascade{name: file, profile: profile, cls: cls})
		return nil
	}
	if err := load(cascadeFrontal, false, true); err != nil {
		return nil, err
	}
	load(cascadeFrontalAlt, false, false)
	load(cascadeFrontalAlt2, false, false)
	load(cascadeProfile, true, false)
	slog.Info("detector de rostros inicializado", "cascadas", len(d.cascades))
	return d, nil
}

func (d *CascadeFaces) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.cascades {
		d.cascades[i].cls.Close()
	}
	d.cascades = nil
	return nil
}

func (d *CascadeFaces) Detect(img gocv.Mat) ([]Candidate, error) {
	if img.Empty() {
		return nil, photosheet.ErrDecodeFailed
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(gray, &equalized)

	var out []Candidate
	out = append(out, d.detectAllCascades(equalized)...)
	out = append(out, d.detectPreprocessed(gray)...)
	out = append(out, d.detectMultiScale(equalized)...)
	return out, nil
}

// detectAllCascades runs every loaded cascade once with its baseline
// parameters. Profile cascades need slightly larger windows.
func (d *CascadeFaces) detectAllCascades(gray gocv.Mat) []Candidate {
	var out []Candidate
	for i := range d.cascades {
		c := &d.cascades[i]
		var rects []image.Rectangle
		if c.profile {
			rects = c.cls.DetectMultiScaleWithParams(gray, 1.1, 4, 0, image.Pt(30, 30), image.Pt(0, 0))
		} else {
			rects = c.cls.DetectMultiScaleWithParams(gray, 1.08, 4, 0, image.Pt(25, 25), image.Pt(0, 0))
		}
		out = append(out, toCandidates(rects)...)
	}
	return out
}

// detectPreprocessed reruns the frontal cascade over contrast, sharpness
// and gamma variants of the gray image to recover faces the baseline
// pass misses under uneven lighting.
func (d *CascadeFaces) detectPreprocessed(gray gocv.Mat) []Candidate {
	frontal := &d.cascades[0].cls
	var out []Candidate

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	out = append(out, toCandidates(frontal.DetectMultiScaleWithParams(
		enhanced, 1.05, 3, 0, image.Pt(20, 20), image.Pt(0, 0)))...)
	enhanced.Close()
	clahe.Close()

	// Unsharp mask: equivalent of the classic 3x3 sharpening kernel.
	blurred := gocv.NewMat()
	sharp := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Pt(0, 0), 3, 3, gocv.BorderDefault)
	gocv.AddWeighted(gray, 1.5, blurred, -0.5, 0, &sharp)
	out = append(out, toCandidates(frontal.DetectMultiScaleWithParams(
		sharp, 1.08, 4, 0, image.Pt(25, 25), image.Pt(0, 0)))...)
	sharp.Close()
	blurred.Close()

	for _, gamma := range []float64{0.7, 1.3} {
		corrected, err := applyGamma(gray, gamma)
		if err != nil {
			slog.Debug("corrección gamma falló", "gamma", gamma, "err", err)
			continue
		}
		out = append(out, toCandidates(frontal.DetectMultiScaleWithParams(
			corrected, 1.1, 4, 0, image.Pt(30, 30), image.Pt(0, 0)))...)
		corrected.Close()
	}
	return out
}

func (d *CascadeFaces) detectMultiScale(gray gocv.Mat) []Candidate {
	frontal := &d.cascades[0].cls
	var out []Candidate
	for _, p := range multiScalePasses {
		rects := frontal.DetectMultiScaleWithParams(
			gray, p.scale, p.minNeighbors, 0, image.Pt(p.minSize, p.minSize), image.Pt(0, 0))
		out = append(out, toCandidates(rects)...)
	}
	return out
}

func applyGamma(gray gocv.Mat, gamma float64) (gocv.Mat, error) {
	table := make([]byte, 256)
	for i := 0; i < 256; i++ {
		table[i] = byte(clampF(math.Pow(float64(i)/255.0, gamma)*255.0, 0, 255))
	}
	lut, err := gocv.NewMatFromBytes(1, 256, gocv.MatTypeCV8U, table)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer lut.Close()
	dst := gocv.NewMat()
	gocv.LUT(gray, lut, &dst)
	return dst, nil
}

func toCandidates(rects []image.Rectangle) []Candidate {
	out := make([]Candidate, 0, len(rects))
	for _, r := range rects {
		out = append(out, Candidate{Box: photosheet.Box{
			X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy(),
		}})
	}
	return out
}
