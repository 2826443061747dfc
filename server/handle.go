package main

import (
	"errors"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/user0608/goones/answer"
	"github.com/user0608/goones/errs"
	"github.com/user0608/photosheet"
	"github.com/user0608/photosheet/config"
	"github.com/user0608/photosheet/health"
)

const serviceName = "photosheet"
const serviceVersion = "1.0.0"

type DetectService interface {
	ProcessFile(req photosheet.DetectionRequest) (photosheet.DetectionResponse, error)
}

type CropService interface {
	Load(path string) (image.Image, error)
	ProcessRequest(req photosheet.CropRequest) (photosheet.ProcessedImage, error)
}

type SheetService interface {
	ProcessRequest(req photosheet.SheetCompositionRequest) (photosheet.ComposedSheet, error)
}

type handlers struct {
	cfg     *config.Config
	detect  DetectService
	crop    CropService
	sheet   SheetService
	monitor *health.Monitor
}

var supportedFormats = []string{"jpg", "jpeg", "png", "bmp", "tiff"}

// respondErr maps the pipeline sentinels to client errors and anything
// else to a 500, always through the goones envelope.
func respondErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, photosheet.ErrNotFound),
		errors.Is(err, photosheet.ErrDecodeFailed),
		errors.Is(err, photosheet.ErrInvalidParameter):
		return answer.Err(c, errs.BadRequestDirect(err.Error()))
	}
	c.Logger().Errorf("error interno: %v", err)
	return answer.Err(c, errs.InternalErrorDirect("el procesamiento de la imagen falló"))
}

func failureCode(err error) string {
	switch {
	case errors.Is(err, photosheet.ErrNotFound):
		return photosheet.CodeImageNotFound
	case errors.Is(err, photosheet.ErrDecodeFailed), errors.Is(err, photosheet.ErrInvalidParameter):
		return photosheet.CodeInvalidInput
	}
	return photosheet.CodeProcessingFailed
}

func (h *handlers) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Image Processing Service",
		"service": serviceName,
		"version": serviceVersion,
		"health":  "/health",
	})
}

func (h *handlers) Health(c echo.Context) error {
	status := h.monitor.GetStatus()
	return c.JSON(http.StatusOK, map[string]any{
		"status":             status.Status,
		"service":            serviceName,
		"version":            serviceVersion,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
		"checks":             status.Checks,
		"uptime_seconds":     status.UptimeSeconds,
		"memory_usage_mb":    status.MemoryUsageMB,
		"disk_usage_percent": status.DiskUsagePercent,
	})
}

func (h *handlers) HealthDetailed(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"health":  h.monitor.GetStatus(),
		"metrics": h.monitor.Metrics(),
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (h *handlers) Detect(c echo.Context) error {
	var req photosheet.DetectionRequest
	if err := c.Bind(&req); err != nil {
		return answer.Err(c, errs.BadRequestDirect("el cuerpo de la solicitud no es válido"))
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return answer.Err(c, errs.BadRequestDirect(err.Error()))
	}
	resp, err := h.detect.ProcessFile(req)
	if err != nil {
		return respondErr(c, err)
	}
	c.Logger().Infof("detección completada: %d objetos en %.3fs", len(resp.Detections), resp.ProcessingTime)
	return c.JSON(http.StatusOK, resp)
}

func (h *handlers) Crop(c echo.Context) error {
	var req photosheet.CropRequest
	if err := c.Bind(&req); err != nil {
		return answer.Err(c, errs.BadRequestDirect("el cuerpo de la solicitud no es válido"))
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return answer.Err(c, errs.BadRequestDirect(err.Error()))
	}
	result, err := h.crop.ProcessRequest(req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handlers) ProcessBatch(c echo.Context) error {
	var req photosheet.BatchProcessRequest
	if err := c.Bind(&req); err != nil {
		return answer.Err(c, errs.BadRequestDirect("el cuerpo de la solicitud no es válido"))
	}
	req.ApplyDefaults()
	if err := req.Validate(h.cfg.MaxBatchSize); err != nil {
		return answer.Err(c, errs.BadRequestDirect(err.Error()))
	}

	start := time.Now()
	result := photosheet.BatchProcessResult{
		ProcessedImages: []photosheet.ProcessedImage{},
		FailedImages:    []photosheet.FailedImage{},
	}
	for _, imagePath := range req.Images {
		processed, err := h.processOne(imagePath, req)
		if err != nil {
			c.Logger().Warnf("imagen fallida en el lote: %s: %v", imagePath, err)
			result.FailedImages = append(result.FailedImages, photosheet.FailedImage{
				Path:      imagePath,
				Error:     err.Error(),
				ErrorCode: failureCode(err),
			})
			continue
		}
		result.ProcessedImages = append(result.ProcessedImages, processed)
	}
	result.TotalProcessingTime = time.Since(start).Seconds()

	c.Logger().Infof("lote completado: %d procesadas, %d fallidas en %.3fs",
		len(result.ProcessedImages), len(result.FailedImages), result.TotalProcessingTime)

	if len(result.ProcessedImages) == 0 {
		return answer.Err(c, errs.BadRequestDirect("ninguna imagen del lote pudo procesarse"))
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handlers) processOne(imagePath string, req photosheet.BatchProcessRequest) (photosheet.ProcessedImage, error) {
	detection, err := h.detect.ProcessFile(photosheet.DetectionRequest{
		ImagePath:           imagePath,
		DetectionTypes:      req.DetectionTypes,
		ConfidenceThreshold: req.ConfidenceThreshold,
	})
	if err != nil {
		return photosheet.ProcessedImage{}, err
	}
	return h.crop.ProcessRequest(photosheet.CropRequest{
		ImagePath:         imagePath,
		TargetAspectRatio: req.TargetAspectRatio,
		DetectionResults:  detection.Detections,
		CropStrategy:      req.CropStrategy,
	})
}

func (h *handlers) ComposeSheet(c echo.Context) error {
	var req photosheet.SheetCompositionRequest
	if err := c.Bind(&req); err != nil {
		return answer.Err(c, errs.BadRequestDirect("el cuerpo de la solicitud no es válido"))
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return answer.Err(c, errs.BadRequestDirect(err.Error()))
	}
	if cells := req.GridLayout.Cells(); len(req.ProcessedImages) > cells {
		c.Logger().Warnf("demasiadas imágenes (%d) para la grilla, se usarán las primeras %d",
			len(req.ProcessedImages), cells)
		req.ProcessedImages = req.ProcessedImages[:cells]
	}
	for _, path := range req.ProcessedImages {
		if _, err := os.Stat(path); err != nil {
			return answer.Err(c, errs.BadRequestDirect("no se encontró la imagen: "+path))
		}
	}
	result, err := h.sheet.ProcessRequest(req)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type validateRequest struct {
	ImagePath string `json:"image_path"`
}

func (h *handlers) Validate(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return answer.Err(c, errs.BadRequestDirect("el cuerpo de la solicitud no es válido"))
	}
	if req.ImagePath == "" {
		return answer.Err(c, errs.BadRequestDirect("se requiere la ruta de la imagen"))
	}
	info, err := os.Stat(req.ImagePath)
	if err != nil {
		return answer.Err(c, errs.BadRequestDirect("no se encontró la imagen: "+req.ImagePath))
	}
	if info.Size() > h.cfg.MaxImageSize {
		return answer.Err(c, errs.BadRequestDirect("la imagen excede el tamaño máximo permitido"))
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.ImagePath)), ".")
	img, err := h.crop.Load(req.ImagePath)
	if err != nil {
		return respondErr(c, err)
	}
	bounds := img.Bounds()
	ratio := float64(bounds.Dx()) / float64(bounds.Dy())
	return c.JSON(http.StatusOK, map[string]any{
		"valid":      true,
		"image_path": req.ImagePath,
		"file_size":  info.Size(),
		"format":     ext,
		"dimensions": photosheet.Dimensions{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		},
		"aspect_ratio": ratio,
		"message":      "Image is valid for processing",
	})
}

func (h *handlers) DetectStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "Computer Vision Detection",
		"capabilities": map[string]any{
			"face_detection":    true,
			"person_detection":  true,
			"supported_formats": supportedFormats,
			"max_image_size":    h.cfg.MaxImageSize,
		},
		"models": map[string]any{
			"face_detector":   h.cfg.FaceBackend,
			"person_detector": "hog",
		},
		"confidence_thresholds": map[string]any{
			"face_detection":   h.cfg.FaceConfidence,
			"person_detection": h.cfg.PersonConfidence,
		},
	})
}

func (h *handlers) ProcessStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "Image Processing",
		"capabilities": map[string]any{
			"intelligent_cropping":    true,
			"aspect_ratio_conversion": true,
			"format_conversion":       true,
			"quality_preservation":    true,
			"batch_processing":        true,
			"image_validation":        true,
		},
		"supported_formats": supportedFormats,
		"max_image_size":    h.cfg.MaxImageSize,
		"max_batch_size":    h.cfg.MaxBatchSize,
		"crop_strategies": []photosheet.CropStrategy{
			photosheet.StrategyCenter,
			photosheet.StrategyCenterFaces,
			photosheet.StrategyPreserveAll,
		},
	})
}

func (h *handlers) SheetCapabilities(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "Sheet Composition",
		"capabilities": map[string]any{
			"a4_layout_generation": true,
			"configurable_grids":   true,
			"pdf_generation":       true,
			"image_generation":     true,
			"portrait_landscape":   true,
		},
		"supported_grid_layouts": []photosheet.GridLayout{
			{Rows: 1, Columns: 2},
			{Rows: 1, Columns: 3},
			{Rows: 2, Columns: 2},
			{Rows: 2, Columns: 3},
			{Rows: 3, Columns: 2},
			{Rows: 3, Columns: 3},
		},
		"supported_orientations": []photosheet.Orientation{photosheet.Portrait, photosheet.Landscape},
		"supported_formats":      []photosheet.OutputFormat{photosheet.FormatImage, photosheet.FormatPDF},
		"sheet_dimensions": map[string]any{
			"a4_portrait":  photosheet.Dimensions{Width: 2480, Height: 3508},
			"a4_landscape": photosheet.Dimensions{Width: 3508, Height: 2480},
		},
	})
}
