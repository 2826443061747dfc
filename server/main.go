package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/user0608/photosheet/config"
	"github.com/user0608/photosheet/crop"
	"github.com/user0608/photosheet/detect"
	"github.com/user0608/photosheet/health"
	"github.com/user0608/photosheet/sheet"
)

func logLevel(name string) log.Lvl {
	switch name {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	}
	return log.INFO
}

// newFaceDetector resolves the backend once at startup. There is no
// fallback between backends at request time.
func newFaceDetector(cfg *config.Config) (detect.Detector, error) {
	switch cfg.FaceBackend {
	case "yunet":
		return detect.NewYuNetFaces(cfg.YuNetModel)
	case "cascade":
		return detect.NewCascadeFaces(cfg.ModelsDir)
	}
	return nil, fmt.Errorf("backend de detección de rostros no soportado: %s", cfg.FaceBackend)
}

func main() {
	cfg := config.Load()

	e := echo.New()
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.HideBanner = true

	faces, err := newFaceDetector(cfg)
	if err != nil {
		e.Logger.Fatal(err)
	}
	persons, err := detect.NewHOGPersons()
	if err != nil {
		faces.Close()
		e.Logger.Fatal(err)
	}
	detector := detect.NewProcessor(faces, persons, detect.Config{
		FaceConfidence:     cfg.FaceConfidence,
		PersonConfidence:   cfg.PersonConfidence,
		EnforceConsistency: cfg.EnforceConsistency,
	})
	defer detector.Close()

	monitor := health.NewMonitor(cfg.TempDir, cfg.MaxDiskUsagePercent)

	h := &handlers{
		cfg:     cfg,
		detect:  detector,
		crop:    crop.NewProcessor(cfg.MaxImageSize),
		sheet:   sheet.NewComposer(cfg.TempDir),
		monitor: monitor,
	}

	e.Use(middleware.CORS())
	e.Use(CorrelationID())
	e.Use(RecordRequests(monitor))

	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.GET("/health/detailed", h.HealthDetailed)

	api := e.Group("/api/v1")
	api.POST("/detect", h.Detect)
	api.GET("/detect/stats", h.DetectStats)
	api.POST("/crop", h.Crop)
	api.POST("/process-batch", h.ProcessBatch)
	api.GET("/process/stats", h.ProcessStats)
	api.POST("/compose-sheet", h.ComposeSheet)
	api.GET("/compose-sheet/capabilities", h.SheetCapabilities)
	api.POST("/validate", h.Validate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go monitor.RunPeriodicCleanup(ctx)

	go func() {
		addr := cfg.Host + ":" + cfg.Port
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}
