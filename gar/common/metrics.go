package common

import (
	"sync"
	"time"
)

// BaseMetrics provides common fields used across different metrics types
type BaseMetrics struct {
	TotalOperations int64
	SuccessfulOps   int64
	FailedOps       int64
	LastOperation   time.Time
	Mu              sync.RWMutex
}

// UpdateBaseMetrics updates common metrics fields
func (bm *BaseMetrics) UpdateBaseMetrics(start time.Time, success bool) {
	bm.Mu.Lock()
	defer bm.Mu.Unlock()

	bm.TotalOperations++
	if success {
		bm.SuccessfulOps++
	} else {
		bm.FailedOps++
	}
	bm.LastOperation = time.Now()
}

// GetBaseMetrics returns the common metrics as a map
func (bm *BaseMetrics) GetBaseMetrics() map[string]interface{} {
	bm.Mu.RLock()
	defer bm.Mu.RUnlock()

	return map[string]interface{}{
		"total_operations": bm.TotalOperations,
		"successful_ops":   bm.SuccessfulOps,
		"failed_ops":       bm.FailedOps,
		"last_operation":   bm.LastOperation,
	}
}

// IngestMetrics tracks per-run counters for the ingestion pipeline
type IngestMetrics struct {
	BaseMetrics
	FilesDiscovered     int64
	RecordsScanned      int64
	RecordsKept         int64
	RecordsSkipped      int64
	UnknownLevelRecords int64
}

// UpdateMetrics updates ingestion metrics after a run
func (im *IngestMetrics) UpdateMetrics(start time.Time, success bool, files, scanned, kept, skipped, unknown int64) {
	im.UpdateBaseMetrics(start, success)

	im.Mu.Lock()
	defer im.Mu.Unlock()

	im.FilesDiscovered += files
	im.RecordsScanned += scanned
	im.RecordsKept += kept
	im.RecordsSkipped += skipped
	im.UnknownLevelRecords += unknown
}

// GetMetrics returns ingestion metrics as a map
func (im *IngestMetrics) GetMetrics() map[string]interface{} {
	metrics := im.GetBaseMetrics()

	im.Mu.RLock()
	defer im.Mu.RUnlock()

	metrics["files_discovered"] = im.FilesDiscovered
	metrics["records_scanned"] = im.RecordsScanned
	metrics["records_kept"] = im.RecordsKept
	metrics["records_skipped"] = im.RecordsSkipped
	metrics["unknown_level_records"] = im.UnknownLevelRecords

	return metrics
}
