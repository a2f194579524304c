package service

import (
	"sync"
	"time"
)

// Metrics tracks runtime processing counters. Counts must stay exact under
// concurrent completion, so every update goes through the mutex.
type Metrics struct {
	mu             sync.Mutex
	totalFiles     int
	successCount   int
	failedCount    int
	avgTimePerFile float64
	lastBatchSec   float64
	totalRuntime   float64
	startedAt      time.Time
}

// MetricsSnapshot is the read-only view handed to the metrics endpoint.
type MetricsSnapshot struct {
	TotalFilesProcessed int     `json:"total_files_processed"`
	SuccessCount        int     `json:"success_count"`
	FailedCount         int     `json:"failed_count"`
	AvgTimePerFileSec   float64 `json:"avg_time_per_file_sec"`
	LastBatchTimeSec    float64 `json:"last_batch_time_sec"`
	TotalRuntimeSec     float64 `json:"total_runtime_sec"`
	UptimeHours         float64 `json:"uptime_hours"`
}

func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

// RecordSingle accounts for one single-item pipeline run.
func (m *Metrics) RecordSingle(elapsed time.Duration, succeeded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalFiles++
	if succeeded {
		m.successCount++
	} else {
		m.failedCount++
	}
	sec := elapsed.Seconds()
	m.avgTimePerFile = (m.avgTimePerFile*float64(m.totalFiles-1) + sec) / float64(m.totalFiles)
	m.totalRuntime += sec
}

// RecordBatch accounts for one completed batch run.
func (m *Metrics) RecordBatch(submitted, succeeded, failed int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.totalFiles
	m.totalFiles += submitted
	m.successCount += succeeded
	m.failedCount += failed

	sec := elapsed.Seconds()
	m.lastBatchSec = sec
	if m.totalFiles > 0 {
		m.avgTimePerFile = (m.avgTimePerFile*float64(prev) + sec) / float64(m.totalFiles)
	}
	m.totalRuntime += sec
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MetricsSnapshot{
		TotalFilesProcessed: m.totalFiles,
		SuccessCount:        m.successCount,
		FailedCount:         m.failedCount,
		AvgTimePerFileSec:   m.avgTimePerFile,
		LastBatchTimeSec:    m.lastBatchSec,
		TotalRuntimeSec:     m.totalRuntime,
		UptimeHours:         time.Since(m.startedAt).Hours(),
	}
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalFiles = 0
	m.successCount = 0
	m.failedCount = 0
	m.avgTimePerFile = 0
	m.lastBatchSec = 0
	m.totalRuntime = 0
}
