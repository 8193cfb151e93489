// Package archive unpacks downloaded snapshot archives into the extracted
// data directory.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkoroteev/gar-sync/gar/common"
)

// Extractor unpacks zip archives, overwriting existing files.
type Extractor struct {
	vu *common.ValidationUtils
}

// NewExtractor creates an archive extractor.
func NewExtractor() *Extractor {
	return &Extractor{vu: common.NewValidationUtils()}
}

// Extract unpacks archivePath into destDir. Existing files are overwritten.
// Cancellation is checked before each entry.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := e.vu.ValidatePath(archivePath); err != nil {
		return err
	}
	if err := e.vu.ValidateFileExists(archivePath); err != nil {
		return err
	}
	if err := e.vu.ValidateDestinationDir(destDir); err != nil {
		return err
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: cannot open archive %s: %v", common.ErrParse, archivePath, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	extracted := 0
	for _, entry := range reader.File {
		if err := e.vu.ValidateContextCancellation(ctx); err != nil {
			return err
		}
		if err := e.extractEntry(entry, destDir); err != nil {
			return err
		}
		if !entry.FileInfo().IsDir() {
			extracted++
		}
	}

	slog.Info("Archive extracted", "archive", archivePath, "dest", destDir, "files", extracted)
	return nil
}

func (e *Extractor) extractEntry(entry *zip.File, destDir string) error {
	// Entry paths must stay inside destDir.
	target := filepath.Join(destDir, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("%w: archive entry %q escapes destination", common.ErrPathInvalid, entry.Name)
	}

	if entry.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: cannot read archive entry %s: %v", common.ErrParse, entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
