// Package health tracks process health: request counters, memory and
// disk checks, and temp-file cleanup.
package health

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	memoryLimitMB   = 1024
	errorRateLimit  = 0.5
	cleanupMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
)

// Status is the aggregate health report.
type Status struct {
	Status           string          `json:"status"`
	Checks           map[string]bool `json:"checks"`
	UptimeSeconds    float64         `json:"uptime_seconds"`
	MemoryUsageMB    float64         `json:"memory_usage_mb"`
	DiskUsagePercent float64         `json:"disk_usage_percent"`
	LastError        string          `json:"last_error,omitempty"`
}

// Monitor keeps process-wide counters. Counters are updated from
// concurrent requests, so every access goes through the mutex.
type Monitor struct {
	startTime           time.Time
	tempDir             string
	maxDiskUsagePercent float64

	mu           sync.Mutex
	requestCount int64
	successCount int64
	errorCount   int64
	lastError    string
}

func NewMonitor(tempDir string, maxDiskUsagePercent float64) *Monitor {
	return &Monitor{
		startTime:           time.Now(),
		tempDir:             tempDir,
		maxDiskUsagePercent: maxDiskUsagePercent,
	}
}

// RecordRequest registers one finished request.
func (m *Monitor) RecordRequest(success bool, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount++
	if success {
		m.successCount++
		return
	}
	m.errorCount++
	if errMsg != "" {
		m.lastError = errMsg
	}
}

func (m *Monitor) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}

func (m *Monitor) MemoryUsageMB() float64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0
	}
	return float64(info.RSS) / 1024 / 1024
}

func (m *Monitor) DiskUsagePercent() float64 {
	if err := os.MkdirAll(m.tempDir, 0o755); err != nil {
		return 0
	}
	usage, err := disk.Usage(m.tempDir)
	if err != nil {
		return 0
	}
	return usage.UsedPercent
}

func (m *Monitor) checkTempDir() bool {
	if err := os.MkdirAll(m.tempDir, 0o755); err != nil {
		return false
	}
	probe := filepath.Join(m.tempDir, "health_check_test.tmp")
	if err := os.WriteFile(probe, []byte("health check"), 0o644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}

func (m *Monitor) checkErrorRate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requestCount == 0 {
		return true
	}
	return float64(m.errorCount)/float64(m.requestCount) < errorRateLimit
}

// GetStatus runs every check and aggregates: all pass = healthy, some
// pass = degraded, none = unhealthy.
func (m *Monitor) GetStatus() Status {
	memory := m.MemoryUsageMB()
	diskPct := m.DiskUsagePercent()

	checks := map[string]bool{
		"temp_directory": m.checkTempDir(),
		"memory_usage":   memory < memoryLimitMB,
		"disk_usage":     diskPct < m.maxDiskUsagePercent,
		"error_rate":     m.checkErrorRate(),
	}
	status := "unhealthy"
	allOK, anyOK := true, false
	for _, ok := range checks {
		allOK = allOK && ok
		anyOK = anyOK || ok
	}
	if allOK {
		status = "healthy"
	} else if anyOK {
		status = "degraded"
	}

	m.mu.Lock()
	lastError := m.lastError
	m.mu.Unlock()

	return Status{
		Status:           status,
		Checks:           checks,
		UptimeSeconds:    m.UptimeSeconds(),
		MemoryUsageMB:    memory,
		DiskUsagePercent: diskPct,
		LastError:        lastError,
	}
}

// Metrics returns detailed counters for the detailed health endpoint.
func (m *Monitor) Metrics() map[string]any {
	m.mu.Lock()
	requests := m.requestCount
	successes := m.successCount
	errors := m.errorCount
	lastError := m.lastError
	m.mu.Unlock()

	total := max(requests, 1)
	return map[string]any{
		"uptime_seconds":      m.UptimeSeconds(),
		"memory_usage_mb":     m.MemoryUsageMB(),
		"disk_usage_percent":  m.DiskUsagePercent(),
		"request_count":       requests,
		"successful_requests": successes,
		"error_count":         errors,
		"success_rate":        float64(successes) / float64(total),
		"error_rate":          float64(errors) / float64(total),
		"last_error":          lastError,
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	}
}

// CleanupTempFiles deletes temp files older than the retention window.
func (m *Monitor) CleanupTempFiles() {
	entries, err := os.ReadDir(m.tempDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-cleanupMaxAge)
	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(m.tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("no se pudo eliminar archivo temporal", "path", path, "err", err)
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		slog.Info("archivos temporales eliminados", "total", cleaned)
	}
}

// RunPeriodicCleanup loops until the context is cancelled.
func (m *Monitor) RunPeriodicCleanup(ctx context.Context) {
	for {
		m.CleanupTempFiles()
		select {
		case <-ctx.Done():
			return
		case <-time.After(cleanupInterval):
		}
	}
}
