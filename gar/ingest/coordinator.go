// Package ingest discovers record files in an extracted snapshot, streams
// them concurrently through the record decoder, and groups surviving
// records by reference level.
package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dkoroteev/gar-sync/gar/common"
	"github.com/dkoroteev/gar-sync/gar/config"
	"github.com/dkoroteev/gar-sync/gar/garxml"
	"github.com/dkoroteev/gar-sync/gar/levels"

	"github.com/sourcegraph/conc/pool"
)

// GroupedResult maps each reference level to its records, sorted by display
// name. Built once per ingestion run and read-only thereafter.
type GroupedResult map[levels.ReferenceLevel][]garxml.Record

// TotalRecords returns the record count across all groups.
func (g GroupedResult) TotalRecords() int {
	total := 0
	for _, records := range g {
		total += len(records)
	}
	return total
}

// Coordinator runs the filter/merge/group stage over an extracted snapshot.
type Coordinator struct {
	maxWorkers    int
	excludedNames map[string]struct{}
	metrics       *common.IngestMetrics
	vu            *common.ValidationUtils

	// per-run counters, flushed into metrics when a run finishes
	filesDiscovered int64
	recordsScanned  int64
	recordsKept     int64
	unknownLevels   int64
}

// NewCoordinator creates a coordinator from ingest settings. MaxWorkers 0
// picks a CPU-derived bound suited to an I/O-heavy workload.
func NewCoordinator(cfg config.IngestConfig) *Coordinator {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = min(max(runtime.NumCPU()*2, 4), 32)
	}

	names := cfg.ExcludedLevelNames
	if names == nil {
		names = config.DefaultExcludedLevelNames
	}
	excluded := make(map[string]struct{}, len(names))
	for _, name := range names {
		excluded[name] = struct{}{}
	}

	return &Coordinator{
		maxWorkers:    maxWorkers,
		excludedNames: excluded,
		metrics:       &common.IngestMetrics{},
		vu:            common.NewValidationUtils(),
	}
}

// Metrics exposes the per-run counters accumulated by this coordinator.
func (c *Coordinator) Metrics() map[string]interface{} {
	return c.metrics.GetMetrics()
}

// Ingest streams every candidate record file under extractedDir, filters
// inline during decoding, and returns records grouped per reference level
// and sorted by name. A file-level decode failure aborts the whole run;
// partial results are never returned.
func (c *Coordinator) Ingest(ctx context.Context, extractedDir string, table levels.Table) (GroupedResult, error) {
	start := time.Now()

	result, err := c.ingest(ctx, extractedDir, table)
	c.metricsDone(start, err == nil)

	return result, err
}

// metricsDone flushes the per-run counters into the accumulated metrics.
func (c *Coordinator) metricsDone(start time.Time, success bool) {
	files := atomic.SwapInt64(&c.filesDiscovered, 0)
	scanned := atomic.SwapInt64(&c.recordsScanned, 0)
	kept := atomic.SwapInt64(&c.recordsKept, 0)
	unknown := atomic.SwapInt64(&c.unknownLevels, 0)

	c.metrics.UpdateMetrics(start, success, files, scanned, kept, scanned-kept, unknown)
}

func (c *Coordinator) ingest(ctx context.Context, extractedDir string, table levels.Table) (GroupedResult, error) {
	if err := c.vu.ValidatePath(extractedDir); err != nil {
		return nil, err
	}
	if err := c.vu.ValidateDirectoryExists(extractedDir); err != nil {
		return nil, err
	}

	files, err := discoverRecordFiles(extractedDir)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&c.filesDiscovered, int64(len(files)))

	excludedLevels := c.excludedLevelSet(table)

	slog.Info("Starting record ingestion",
		"dir", extractedDir,
		"files", len(files),
		"excludedLevels", len(excludedLevels),
		"maxWorkers", c.maxWorkers)

	// Each file task filters inline into its own buffer; the unfiltered
	// superset is never materialized. Buffers are joined only after Wait.
	buffers := make([][]garxml.Record, len(files))

	filePool := pool.New().
		WithMaxGoroutines(c.maxWorkers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for i, file := range files {
		filePool.Go(func(ctx context.Context) error {
			kept, err := c.processFile(ctx, file, excludedLevels)
			if err != nil {
				return err
			}
			buffers[i] = kept
			return nil
		})
	}

	if err := filePool.Wait(); err != nil {
		return nil, err
	}

	grouped := c.group(buffers, table)

	slog.Info("Record ingestion completed",
		"files", len(files),
		"groups", len(grouped),
		"records", grouped.TotalRecords(),
		"scanned", atomic.LoadInt64(&c.recordsScanned))

	return grouped, nil
}

// processFile streams one record file, keeping only active records whose
// level is not excluded.
func (c *Coordinator) processFile(ctx context.Context, path string, excludedLevels map[int]struct{}) ([]garxml.Record, error) {
	if err := c.vu.ValidateContextCancellation(ctx); err != nil {
		return nil, err
	}

	scanner, err := garxml.NewScanner(ctx, path)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	var kept []garxml.Record
	scanned := int64(0)

	for scanner.Scan() {
		scanned++
		record := scanner.Record()
		if !record.IsActive {
			continue
		}
		if _, excluded := excludedLevels[record.Level]; excluded {
			continue
		}
		kept = append(kept, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	atomic.AddInt64(&c.recordsScanned, scanned)
	atomic.AddInt64(&c.recordsKept, int64(len(kept)))

	slog.Debug("Record file processed", "path", path, "scanned", scanned, "kept", len(kept))

	return kept, nil
}

// group joins the per-file buffers into the level-keyed result and sorts
// every group by display name. Records with a level code absent from the
// table are dropped, but counted so data-quality drift stays visible.
func (c *Coordinator) group(buffers [][]garxml.Record, table levels.Table) GroupedResult {
	grouped := make(GroupedResult)
	unknown := int64(0)

	for _, buffer := range buffers {
		for _, record := range buffer {
			level, ok := table[record.Level]
			if !ok {
				unknown++
				continue
			}
			grouped[level] = append(grouped[level], record)
		}
	}

	if unknown > 0 {
		atomic.AddInt64(&c.unknownLevels, unknown)
		slog.Warn("Dropped records with unknown level codes", "count", unknown)
	}

	for level, records := range grouped {
		sort.Slice(records, func(i, j int) bool {
			return records[i].Less(records[j])
		})
		grouped[level] = records
	}

	return grouped
}

// excludedLevelSet resolves the configured exclusion names to level codes.
func (c *Coordinator) excludedLevelSet(table levels.Table) map[int]struct{} {
	excluded := make(map[int]struct{})
	for code, level := range table {
		if _, ok := c.excludedNames[level.Name]; ok {
			excluded[code] = struct{}{}
		}
	}
	return excluded
}
