package crop

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/user0608/photosheet"
)

var supportedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tiff": true,
}

var acceptedMimeTypes = []string{"image/jpeg", "image/png", "image/bmp", "image/tiff"}

const jpegQuality = 95

// Processor loads, crops and saves images according to a crop plan.
type Processor struct {
	maxImageSize int64
}

func NewProcessor(maxImageSize int64) *Processor {
	return &Processor{maxImageSize: maxImageSize}
}

// Load opens and validates an image file: existence, size limit,
// extension and actual content type.
func (p *Processor) Load(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", photosheet.ErrNotFound, path)
	}
	if p.maxImageSize > 0 && info.Size() > p.maxImageSize {
		return nil, fmt.Errorf("%w: la imagen excede el tamaño máximo (%d bytes)",
			photosheet.ErrInvalidParameter, p.maxImageSize)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("%w: formato de imagen no soportado: %s",
			photosheet.ErrInvalidParameter, ext)
	}
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", photosheet.ErrDecodeFailed, err)
	}
	accepted := false
	for _, m := range acceptedMimeTypes {
		if mime.Is(m) {
			accepted = true
			break
		}
	}
	if !accepted {
		return nil, fmt.Errorf("%w: el contenido no es una imagen soportada (%s)",
			photosheet.ErrInvalidParameter, mime.String())
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", photosheet.ErrDecodeFailed, err)
	}
	return img, nil
}

// Save writes the image next to its target path, creating directories as
// needed. Unknown extensions are rewritten to .jpg.
func (p *Processor) Save(img image.Image, path string) (string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return path, imaging.Save(img, path, imaging.JPEGQuality(jpegQuality))
	case ".png":
		return path, imaging.Save(img, path)
	default:
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
		return path, imaging.Save(img, path, imaging.JPEGQuality(jpegQuality))
	}
}

// ProcessRequest executes a complete crop: load, plan, crop, save.
func (p *Processor) ProcessRequest(req photosheet.CropRequest) (photosheet.ProcessedImage, error) {
	start := time.Now()

	img, err := p.Load(req.ImagePath)
	if err != nil {
		return photosheet.ProcessedImage{}, err
	}
	size := img.Bounds().Size()

	plan := PlanCrop(size.X, size.Y, req.TargetAspectRatio, req.DetectionResults, req.CropStrategy)
	cropped := imaging.Crop(img, image.Rect(plan.X, plan.Y, plan.Right(), plan.Bottom()))

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = defaultOutputPath(req.ImagePath)
	}
	savedPath, err := p.Save(cropped, outputPath)
	if err != nil {
		return photosheet.ProcessedImage{}, fmt.Errorf("no se pudo guardar la imagen procesada: %w", err)
	}

	bounds := cropped.Bounds()
	return photosheet.ProcessedImage{
		OriginalPath:    req.ImagePath,
		ProcessedPath:   savedPath,
		CropCoordinates: plan,
		FinalDimensions: photosheet.AspectRatio{Width: bounds.Dx(), Height: bounds.Dy()},
		ProcessingTime:  time.Since(start).Seconds(),
	}, nil
}

// defaultOutputPath places the result under a processed/ directory next
// to the input; the caller renames it afterwards.
func defaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), ext)
	name := fmt.Sprintf("temp_%s_%d%s", stem, time.Now().Unix(), ext)
	return filepath.Join(filepath.Dir(inputPath), "processed", name)
}
