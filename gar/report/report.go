// Package report renders a grouped ingestion result into TXT and CSV files.
package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dkoroteev/gar-sync/gar/common"
	"github.com/dkoroteev/gar-sync/gar/ingest"
	"github.com/dkoroteev/gar-sync/gar/levels"
)

// Emitter writes one report file from a grouped result.
type Emitter interface {
	Emit(result ingest.GroupedResult, heading, outDir string) (string, error)
}

// sortedLevels returns the result's levels ordered by level code so report
// output is deterministic.
func sortedLevels(result ingest.GroupedResult) []levels.ReferenceLevel {
	keys := make([]levels.ReferenceLevel, 0, len(result))
	for level := range result {
		keys = append(keys, level)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Level < keys[j].Level
	})
	return keys
}

func reportFileName(ext string) string {
	return fmt.Sprintf("gar_report_%s.%s", time.Now().Format("20060102_150405"), ext)
}

// TXTEmitter renders a plain-text report grouped by level.
type TXTEmitter struct{}

// NewTXTEmitter creates a TXT emitter.
func NewTXTEmitter() *TXTEmitter {
	return &TXTEmitter{}
}

// Emit writes the TXT report into outDir and returns its path.
func (e *TXTEmitter) Emit(result ingest.GroupedResult, heading, outDir string) (string, error) {
	if err := common.NewValidationUtils().ValidateDirectoryExists(outDir); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(heading + "\n\n")

	for _, level := range sortedLevels(result) {
		b.WriteString(fmt.Sprintf("%s (%d записей)\n", level.Name, len(result[level])))
		for _, record := range result[level] {
			b.WriteString(fmt.Sprintf("  %s %s\n", record.TypeName, record.Name))
		}
		b.WriteString("\n")
	}

	path := filepath.Join(outDir, reportFileName("txt"))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	slog.Info("TXT report written", "path", path, "records", result.TotalRecords())
	return path, nil
}

// CSVEmitter renders a CSV report with one row per record.
type CSVEmitter struct{}

// NewCSVEmitter creates a CSV emitter.
func NewCSVEmitter() *CSVEmitter {
	return &CSVEmitter{}
}

// Emit writes the CSV report into outDir and returns its path.
func (e *CSVEmitter) Emit(result ingest.GroupedResult, heading, outDir string) (string, error) {
	if err := common.NewValidationUtils().ValidateDirectoryExists(outDir); err != nil {
		return "", err
	}

	path := filepath.Join(outDir, reportFileName("csv"))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"level", "level_name", "type", "name", "objectguid"}); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	for _, level := range sortedLevels(result) {
		for _, record := range result[level] {
			row := []string{
				fmt.Sprintf("%d", level.Level),
				level.Name,
				record.TypeName,
				record.Name,
				record.ObjectGUID.String(),
			}
			if err := writer.Write(row); err != nil {
				return "", fmt.Errorf("failed to write report %s: %w", path, err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report %s: %w", path, err)
	}

	slog.Info("CSV report written", "path", path, "records", result.TotalRecords())
	return path, nil
}
