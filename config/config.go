// Package config carga la configuración del servicio desde variables
// de entorno con prefijo PHOTOSHEET_.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Host string
	Port string

	TempDir      string
	ModelsDir    string
	MaxImageSize int64
	MaxBatchSize int

	FaceConfidence     float64
	PersonConfidence   float64
	EnforceConsistency bool

	// FaceBackend selects the face detector at startup: "cascade" or
	// "yunet". There is no runtime fallback between backends.
	FaceBackend string
	YuNetModel  string

	LogLevel            string
	MaxDiskUsagePercent float64
}

func Load() *Config {
	tempDir := getEnv("PHOTOSHEET_TEMP_DIR", filepath.Join(os.TempDir(), "photosheet"))
	return &Config{
		Host:                getEnv("PHOTOSHEET_HOST", "0.0.0.0"),
		Port:                getEnv("PHOTOSHEET_PORT", "8000"),
		TempDir:             tempDir,
		ModelsDir:           getEnv("PHOTOSHEET_MODELS_DIR", "./models"),
		MaxImageSize:        getEnvInt64("PHOTOSHEET_MAX_IMAGE_SIZE", 50*1024*1024),
		MaxBatchSize:        getEnvInt("PHOTOSHEET_MAX_BATCH_SIZE", 50),
		FaceConfidence:      getEnvFloat("PHOTOSHEET_FACE_CONFIDENCE", 0.4),
		PersonConfidence:    getEnvFloat("PHOTOSHEET_PERSON_CONFIDENCE", 0.35),
		EnforceConsistency:  getEnvBool("PHOTOSHEET_ENFORCE_CONSISTENCY", false),
		FaceBackend:         getEnv("PHOTOSHEET_FACE_BACKEND", "cascade"),
		YuNetModel:          getEnv("PHOTOSHEET_YUNET_MODEL", "./models/face_detection_yunet_2023mar.onnx"),
		LogLevel:            getEnv("PHOTOSHEET_LOG_LEVEL", "info"),
		MaxDiskUsagePercent: getEnvFloat("PHOTOSHEET_MAX_DISK_USAGE", 90),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
