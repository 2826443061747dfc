package sheet

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"

	"github.com/user0608/photosheet"
)

const jpegQuality = 95

// Composer renders sheet composition requests into JPEG or PDF files.
type Composer struct {
	tempDir string
}

func NewComposer(tempDir string) *Composer {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		slog.Warn("no se pudo crear el directorio temporal", "dir", tempDir, "err", err)
	}
	return &Composer{tempDir: tempDir}
}

// ProcessRequest composes the images into one sheet. The request must
// already fit the grid; oversupply is truncated at the request boundary.
func (c *Composer) ProcessRequest(req photosheet.SheetCompositionRequest) (photosheet.ComposedSheet, error) {
	start := time.Now()

	if len(req.ProcessedImages) > req.GridLayout.Cells() {
		return photosheet.ComposedSheet{}, fmt.Errorf(
			"%w: demasiadas imágenes para la cuadrícula (máximo %d)",
			photosheet.ErrInvalidParameter, req.GridLayout.Cells())
	}

	images, sizes, err := c.loadImages(req.ProcessedImages)
	if err != nil {
		return photosheet.ComposedSheet{}, err
	}

	sheetW, sheetH := SheetDimensions(req.SheetOrientation)

	outputPath := req.OutputPath
	if outputPath == "" {
		ext := "jpg"
		if req.OutputFormat == photosheet.FormatPDF {
			ext = "pdf"
		}
		outputPath = filepath.Join(c.tempDir,
			fmt.Sprintf("composed_sheet_%d.%s", time.Now().Unix(), ext))
	}

	if req.OutputFormat == photosheet.FormatPDF {
		err = c.renderPDF(images, sizes, req.GridLayout, req.SheetOrientation, outputPath)
	} else {
		err = c.renderImage(images, sizes, req.GridLayout, sheetW, sheetH, outputPath)
	}
	if err != nil {
		return photosheet.ComposedSheet{}, err
	}

	slog.Info("hoja compuesta", "salida", outputPath, "imágenes", len(images))
	return photosheet.ComposedSheet{
		OutputPath:      outputPath,
		GridLayout:      req.GridLayout,
		ImagesUsed:      req.ProcessedImages,
		SheetDimensions: photosheet.Dimensions{Width: sheetW, Height: sheetH},
		ProcessingTime:  time.Since(start).Seconds(),
	}, nil
}

func (c *Composer) loadImages(paths []string) ([]image.Image, []photosheet.Dimensions, error) {
	images := make([]image.Image, 0, len(paths))
	sizes := make([]photosheet.Dimensions, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", photosheet.ErrNotFound, path)
		}
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", photosheet.ErrDecodeFailed, path, err)
		}
		images = append(images, img)
		b := img.Bounds()
		sizes = append(sizes, photosheet.Dimensions{Width: b.Dx(), Height: b.Dy()})
	}
	return images, sizes, nil
}

func (c *Composer) renderImage(images []image.Image, sizes []photosheet.Dimensions,
	grid photosheet.GridLayout, sheetW, sheetH int, outputPath string) error {

	canvas := imaging.New(sheetW, sheetH, color.White)
	for _, p := range PlanPixelLayout(sizes, grid, sheetW, sheetH) {
		resized := imaging.Resize(images[p.Index], p.Width, p.Height, imaging.Lanczos)
		canvas = imaging.Paste(canvas, resized, image.Pt(p.X, p.Y))
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return imaging.Save(canvas, outputPath, imaging.JPEGQuality(jpegQuality))
}

func (c *Composer) renderPDF(images []image.Image, sizes []photosheet.Dimensions,
	grid photosheet.GridLayout, orientation photosheet.Orientation, outputPath string) error {

	orient := "P"
	if orientation == photosheet.Landscape {
		orient = "L"
	}
	pdf := gofpdf.New(orient, "pt", "A4", "")
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	for _, p := range PlanPageLayout(sizes, grid, pageW, pageH) {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, images[p.Index], imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return fmt.Errorf("no se pudo codificar la imagen %d: %w", p.Index, err)
		}
		name := fmt.Sprintf("sheet-img-%d", p.Index)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		// the layout uses a bottom-left origin, gofpdf a top-left one
		top := pageH - p.Y - p.Height
		pdf.ImageOptions(name, p.X, top, p.Width, p.Height, false, opts, 0, "")
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return pdf.OutputFileAndClose(outputPath)
}
