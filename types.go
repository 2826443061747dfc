package photosheet

import "errors"

// DetectionKind identifies what kind of object a detection represents.
type DetectionKind string

const (
	KindFace   DetectionKind = "face"
	KindPerson DetectionKind = "person"
)

// CropStrategy selects how the crop window is positioned.
type CropStrategy string

const (
	StrategyCenter      CropStrategy = "center"
	StrategyCenterFaces CropStrategy = "center_faces"
	StrategyPreserveAll CropStrategy = "preserve_all"
)

// Orientation is the sheet orientation for composition.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// OutputFormat is the sheet output format.
type OutputFormat string

const (
	FormatImage OutputFormat = "image"
	FormatPDF   OutputFormat = "pdf"
)

// Sentinel errors shared across the pipeline. Handlers and the batch
// loop classify failures with errors.Is against these.
var (
	ErrNotFound         = errors.New("archivo de imagen no encontrado")
	ErrDecodeFailed     = errors.New("no se pudo decodificar la imagen")
	ErrInvalidParameter = errors.New("parámetro inválido")
)

// Box is an axis-aligned rectangle in pixel coordinates, origin top-left.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (b Box) Right() int  { return b.X + b.Width }
func (b Box) Bottom() int { return b.Y + b.Height }
func (b Box) Area() int   { return b.Width * b.Height }

// Center returns the midpoint of the box.
func (b Box) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// IoU computes intersection over union between two boxes.
func (b Box) IoU(o Box) float64 {
	x1 := max(b.X, o.X)
	y1 := max(b.Y, o.Y)
	x2 := min(b.Right(), o.Right())
	y2 := min(b.Bottom(), o.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Enclosing returns the smallest box containing every box in the list.
func Enclosing(boxes []Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	minX, minY := boxes[0].X, boxes[0].Y
	maxX, maxY := boxes[0].Right(), boxes[0].Bottom()
	for _, b := range boxes[1:] {
		minX = min(minX, b.X)
		minY = min(minY, b.Y)
		maxX = max(maxX, b.Right())
		maxY = max(maxY, b.Bottom())
	}
	return Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Detection is a classified region with a calibrated confidence in [0,1].
type Detection struct {
	Kind       DetectionKind `json:"type"`
	Confidence float64       `json:"confidence"`
	Box        Box           `json:"bounding_box"`
}

// ByKind splits a detection set into the subset of the given kind.
func ByKind(dets []Detection, kind DetectionKind) []Detection {
	var out []Detection
	for _, d := range dets {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// AspectRatio expresses a width:height ratio, not absolute pixels.
type AspectRatio struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r AspectRatio) Value() float64 {
	return float64(r.Width) / float64(r.Height)
}

func (r AspectRatio) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return errors.New("las dimensiones de la relación de aspecto deben ser positivas")
	}
	return nil
}

// GridLayout is a rows×columns arrangement for sheet composition.
type GridLayout struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

func (g GridLayout) Cells() int { return g.Rows * g.Columns }

func (g GridLayout) Validate() error {
	if g.Rows < 1 || g.Columns < 1 {
		return errors.New("la cuadrícula debe tener al menos 1 fila y 1 columna")
	}
	if g.Rows > 10 || g.Columns > 10 {
		return errors.New("la cuadrícula no puede exceder 10 filas o 10 columnas")
	}
	return nil
}

// Dimensions carries absolute pixel dimensions.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
