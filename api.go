package photosheet

import "errors"

// Request and response schemas for the HTTP boundary. Field names mirror
// the wire contract consumed by the Node.js backend.

type DetectionRequest struct {
	ImagePath           string          `json:"image_path"`
	DetectionTypes      []DetectionKind `json:"detection_types"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
}

// ApplyDefaults fills the zero values the wire format allows to omit.
func (r *DetectionRequest) ApplyDefaults() {
	if len(r.DetectionTypes) == 0 {
		r.DetectionTypes = []DetectionKind{KindFace, KindPerson}
	}
	if r.ConfidenceThreshold == 0 {
		r.ConfidenceThreshold = 0.5
	}
}

func (r *DetectionRequest) Validate() error {
	if r.ImagePath == "" {
		return errors.New("se requiere la ruta de la imagen")
	}
	if len(r.DetectionTypes) == 0 {
		return errors.New("debe indicarse al menos un tipo de detección")
	}
	for _, t := range r.DetectionTypes {
		if t != KindFace && t != KindPerson {
			return errors.New("tipo de detección no soportado: " + string(t))
		}
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return errors.New("el umbral de confianza debe estar entre 0 y 1")
	}
	return nil
}

type DetectionResponse struct {
	ImagePath       string      `json:"image_path"`
	Detections      []Detection `json:"detections"`
	ProcessingTime  float64     `json:"processing_time"`
	ImageDimensions Dimensions  `json:"image_dimensions"`
}

type CropRequest struct {
	ImagePath         string       `json:"image_path"`
	TargetAspectRatio AspectRatio  `json:"target_aspect_ratio"`
	DetectionResults  []Detection  `json:"detection_results,omitempty"`
	CropStrategy      CropStrategy `json:"crop_strategy"`
	OutputPath        string       `json:"output_path,omitempty"`
}

func (r *CropRequest) ApplyDefaults() {
	if r.CropStrategy == "" {
		r.CropStrategy = StrategyCenter
	}
}

func (r *CropRequest) Validate() error {
	if r.ImagePath == "" {
		return errors.New("se requiere la ruta de la imagen")
	}
	if err := r.TargetAspectRatio.Validate(); err != nil {
		return err
	}
	switch r.CropStrategy {
	case StrategyCenter, StrategyCenterFaces, StrategyPreserveAll:
		return nil
	}
	return errors.New("estrategia de recorte no soportada: " + string(r.CropStrategy))
}

type ProcessedImage struct {
	OriginalPath    string      `json:"original_path"`
	ProcessedPath   string      `json:"processed_path"`
	CropCoordinates Box         `json:"crop_coordinates"`
	FinalDimensions AspectRatio `json:"final_dimensions"`
	ProcessingTime  float64     `json:"processing_time"`
}

type BatchProcessRequest struct {
	Images              []string        `json:"images"`
	TargetAspectRatio   AspectRatio     `json:"target_aspect_ratio"`
	CropStrategy        CropStrategy    `json:"crop_strategy"`
	DetectionTypes      []DetectionKind `json:"detection_types"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
}

func (r *BatchProcessRequest) ApplyDefaults() {
	if r.CropStrategy == "" {
		r.CropStrategy = StrategyCenter
	}
	if len(r.DetectionTypes) == 0 {
		r.DetectionTypes = []DetectionKind{KindFace, KindPerson}
	}
	if r.ConfidenceThreshold == 0 {
		r.ConfidenceThreshold = 0.5
	}
}

func (r *BatchProcessRequest) Validate(maxBatch int) error {
	if len(r.Images) == 0 {
		return errors.New("el lote debe contener al menos una imagen")
	}
	if maxBatch > 0 && len(r.Images) > maxBatch {
		return errors.New("el tamaño del lote excede el máximo permitido")
	}
	if err := r.TargetAspectRatio.Validate(); err != nil {
		return err
	}
	if len(r.DetectionTypes) == 0 {
		return errors.New("debe indicarse al menos un tipo de detección")
	}
	return nil
}

// FailedImage records one per-item failure inside a batch.
type FailedImage struct {
	Path      string `json:"path"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// Batch failure codes.
const (
	CodeImageNotFound    = "IMAGE_NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeProcessingFailed = "PROCESSING_FAILED"
)

type BatchProcessResult struct {
	ProcessedImages     []ProcessedImage `json:"processed_images"`
	FailedImages        []FailedImage    `json:"failed_images"`
	TotalProcessingTime float64          `json:"total_processing_time"`
}

type SheetCompositionRequest struct {
	ProcessedImages  []string     `json:"processed_images"`
	GridLayout       GridLayout   `json:"grid_layout"`
	SheetOrientation Orientation  `json:"sheet_orientation"`
	OutputFormat     OutputFormat `json:"output_format"`
	OutputPath       string       `json:"output_path,omitempty"`
}

func (r *SheetCompositionRequest) ApplyDefaults() {
	if r.SheetOrientation == "" {
		r.SheetOrientation = Portrait
	}
	if r.OutputFormat == "" {
		r.OutputFormat = FormatImage
	}
}

func (r *SheetCompositionRequest) Validate() error {
	if len(r.ProcessedImages) == 0 {
		return errors.New("debe proporcionarse al menos una imagen")
	}
	if err := r.GridLayout.Validate(); err != nil {
		return err
	}
	if r.SheetOrientation != Portrait && r.SheetOrientation != Landscape {
		return errors.New("orientación de hoja no soportada: " + string(r.SheetOrientation))
	}
	if r.OutputFormat != FormatImage && r.OutputFormat != FormatPDF {
		return errors.New("formato de salida no soportado: " + string(r.OutputFormat))
	}
	return nil
}

type ComposedSheet struct {
	OutputPath      string     `json:"output_path"`
	GridLayout      GridLayout `json:"grid_layout"`
	ImagesUsed      []string   `json:"images_used"`
	SheetDimensions Dimensions `json:"sheet_dimensions"`
	ProcessingTime  float64    `json:"processing_time"`
}
