package main

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user0608/photosheet"
	"github.com/user0608/photosheet/config"
	"github.com/user0608/photosheet/health"
)

type stubDetect struct {
	resp   photosheet.DetectionResponse
	err    error
	failOn map[string]error
}

func (s *stubDetect) ProcessFile(req photosheet.DetectionRequest) (photosheet.DetectionResponse, error) {
	if err, ok := s.failOn[req.ImagePath]; ok {
		return photosheet.DetectionResponse{}, err
	}
	if s.err != nil {
		return photosheet.DetectionResponse{}, s.err
	}
	resp := s.resp
	resp.ImagePath = req.ImagePath
	return resp, nil
}

type stubCrop struct {
	result photosheet.ProcessedImage
	err    error
}

func (s *stubCrop) Load(path string) (image.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	return image.NewRGBA(image.Rect(0, 0, 800, 600)), nil
}

func (s *stubCrop) ProcessRequest(req photosheet.CropRequest) (photosheet.ProcessedImage, error) {
	if s.err != nil {
		return photosheet.ProcessedImage{}, s.err
	}
	result := s.result
	result.OriginalPath = req.ImagePath
	return result, nil
}

type stubSheet struct {
	received photosheet.SheetCompositionRequest
	result   photosheet.ComposedSheet
	err      error
}

func (s *stubSheet) ProcessRequest(req photosheet.SheetCompositionRequest) (photosheet.ComposedSheet, error) {
	s.received = req
	if s.err != nil {
		return photosheet.ComposedSheet{}, s.err
	}
	return s.result, nil
}

func testHandlers(detect *stubDetect, crop *stubCrop, sheet *stubSheet) *handlers {
	cfg := config.Load()
	return &handlers{
		cfg:     cfg,
		detect:  detect,
		crop:    crop,
		sheet:   sheet,
		monitor: health.NewMonitor(os.TempDir(), 90),
	}
}

func newJSONContext(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestDetectHandler_OK(t *testing.T) {
	detector := &stubDetect{resp: photosheet.DetectionResponse{
		Detections: []photosheet.Detection{
			{Kind: photosheet.KindFace, Confidence: 0.9, Box: photosheet.Box{X: 10, Y: 10, Width: 50, Height: 50}},
		},
		ImageDimensions: photosheet.Dimensions{Width: 800, Height: 600},
	}}
	h := testHandlers(detector, &stubCrop{}, &stubSheet{})

	e := echo.New()
	c, rec := newJSONContext(e, `{"image_path":"photo.jpg"}`)
	require.NoError(t, h.Detect(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp photosheet.DetectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "photo.jpg", resp.ImagePath)
	assert.Len(t, resp.Detections, 1)
}

func TestDetectHandler_MissingPath(t *testing.T) {
	h := testHandlers(&stubDetect{}, &stubCrop{}, &stubSheet{})
	e := echo.New()
	c, rec := newJSONContext(e, `{}`)
	require.NoError(t, h.Detect(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectHandler_NotFound(t *testing.T) {
	h := testHandlers(&stubDetect{err: photosheet.ErrNotFound}, &stubCrop{}, &stubSheet{})
	e := echo.New()
	c, rec := newJSONContext(e, `{"image_path":"missing.jpg"}`)
	require.NoError(t, h.Detect(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCropHandler_InvalidAspectRatio(t *testing.T) {
	h := testHandlers(&stubDetect{}, &stubCrop{}, &stubSheet{})
	e := echo.New()
	c, rec := newJSONContext(e, `{"image_path":"photo.jpg","target_aspect_ratio":{"width":0,"height":9}}`)
	require.NoError(t, h.Crop(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessBatchHandler_PartialFailure(t *testing.T) {
	detector := &stubDetect{failOn: map[string]error{"missing.jpg": photosheet.ErrNotFound}}
	h := testHandlers(detector, &stubCrop{}, &stubSheet{})

	e := echo.New()
	c, rec := newJSONContext(e, `{
		"images": ["ok.jpg", "missing.jpg"],
		"target_aspect_ratio": {"width": 3, "height": 4}
	}`)
	require.NoError(t, h.ProcessBatch(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var result photosheet.BatchProcessResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.ProcessedImages, 1)
	require.Len(t, result.FailedImages, 1)
	assert.Equal(t, "missing.jpg", result.FailedImages[0].Path)
	assert.Equal(t, photosheet.CodeImageNotFound, result.FailedImages[0].ErrorCode)
}

func TestProcessBatchHandler_AllFailed(t *testing.T) {
	detector := &stubDetect{err: photosheet.ErrDecodeFailed}
	h := testHandlers(detector, &stubCrop{}, &stubSheet{})

	e := echo.New()
	c, rec := newJSONContext(e, `{
		"images": ["a.jpg", "b.jpg"],
		"target_aspect_ratio": {"width": 1, "height": 1}
	}`)
	require.NoError(t, h.ProcessBatch(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComposeSheetHandler_TruncatesToGridCapacity(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, "img"+string(rune('a'+i))+".jpg")
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		paths = append(paths, p)
	}
	sheetSvc := &stubSheet{result: photosheet.ComposedSheet{OutputPath: "sheet.jpg"}}
	h := testHandlers(&stubDetect{}, &stubCrop{}, sheetSvc)

	body, err := json.Marshal(map[string]any{
		"processed_images": paths,
		"grid_layout":      map[string]int{"rows": 2, "columns": 2},
	})
	require.NoError(t, err)

	e := echo.New()
	c, rec := newJSONContext(e, string(body))
	require.NoError(t, h.ComposeSheet(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, sheetSvc.received.ProcessedImages, 4, "only the images that fit the grid should be composed")
}

func TestComposeSheetHandler_MissingFile(t *testing.T) {
	h := testHandlers(&stubDetect{}, &stubCrop{}, &stubSheet{})
	e := echo.New()
	c, rec := newJSONContext(e, `{
		"processed_images": ["/no/such/file.jpg"],
		"grid_layout": {"rows": 1, "columns": 2}
	}`)
	require.NoError(t, h.ComposeSheet(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateHandler_OK(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a jpeg"), 0o644))

	h := testHandlers(&stubDetect{}, &stubCrop{}, &stubSheet{})

	body, err := json.Marshal(map[string]string{"image_path": path})
	require.NoError(t, err)

	e := echo.New()
	c, rec := newJSONContext(e, string(body))
	require.NoError(t, h.Validate(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["valid"])
	assert.Equal(t, "jpg", resp["format"])
}

func TestValidateHandler_NotFound(t *testing.T) {
	h := testHandlers(&stubDetect{}, &stubCrop{}, &stubSheet{})
	e := echo.New()
	c, rec := newJSONContext(e, `{"image_path":"/no/such/photo.jpg"}`)
	require.NoError(t, h.Validate(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h := testHandlers(&stubDetect{}, &stubCrop{}, &stubSheet{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Health(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, serviceName, resp["service"])
	assert.Contains(t, resp, "checks")
	assert.Contains(t, resp, "uptime_seconds")
}

func TestCorrelationIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(CorrelationID())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	// inbound id is echoed back
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(correlationHeader, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(correlationHeader))

	// absent id gets minted
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get(correlationHeader))
}

func TestRecordRequestsMiddleware(t *testing.T) {
	monitor := health.NewMonitor(t.TempDir(), 90)
	e := echo.New()
	e.Use(RecordRequests(monitor))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/bad", func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) })

	for _, path := range []string{"/ok", "/ok", "/bad"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	metrics := monitor.Metrics()
	assert.Equal(t, int64(3), metrics["request_count"])
	assert.Equal(t, int64(2), metrics["successful_requests"])
	assert.Equal(t, int64(1), metrics["error_count"])
}
