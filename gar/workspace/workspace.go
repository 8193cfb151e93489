// Package workspace manages the on-disk data layout of the sync pipeline
// and the version marker of the extracted snapshot.
package workspace

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/dkoroteev/gar-sync/gar"
	"github.com/dkoroteev/gar-sync/gar/common"
)

// markerDateLayout is the date format of the version marker's first line.
const markerDateLayout = "2006.01.02"

// Manager owns the {root}/Data/{downloads,extracted,reports} layout.
type Manager struct {
	root string
}

// NewManager creates a workspace manager rooted at rootDir.
func NewManager(rootDir string) (*Manager, error) {
	vu := common.NewValidationUtils()
	if err := vu.ValidatePath(rootDir); err != nil {
		return nil, err
	}
	return &Manager{root: rootDir}, nil
}

// DownloadsDir returns the archive download directory.
func (m *Manager) DownloadsDir() string {
	return filepath.Join(m.root, internal.DefaultDataDirName, internal.DefaultDownloadsDirName)
}

// ExtractedDir returns the directory holding the unpacked snapshot.
func (m *Manager) ExtractedDir() string {
	return filepath.Join(m.root, internal.DefaultDataDirName, internal.DefaultExtractedDirName)
}

// ReportsDir returns the report output directory.
func (m *Manager) ReportsDir() string {
	return filepath.Join(m.root, internal.DefaultDataDirName, internal.DefaultReportsDirName)
}

// EnsureLayout creates the data directories if they do not exist yet.
func (m *Manager) EnsureLayout() error {
	for _, dir := range []string{m.DownloadsDir(), m.ExtractedDir(), m.ReportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	slog.Debug("Workspace layout ready", "root", m.root)
	return nil
}

// ExtractedVersion reads the snapshot date from the version marker inside
// the extracted directory. A missing marker is NotFound; an unparsable first
// line is a parse failure.
func (m *Manager) ExtractedVersion() (time.Time, error) {
	path := filepath.Join(m.ExtractedDir(), internal.DefaultVersionMarkerName)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, fmt.Errorf("%w: version marker %s", common.ErrNotFound, path)
		}
		return time.Time{}, fmt.Errorf("failed to open version marker %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return time.Time{}, fmt.Errorf("%w: version marker %s is empty", common.ErrParse, path)
	}

	raw := strings.TrimSpace(scanner.Text())
	parsed, err := time.Parse(markerDateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: version marker date %q is not yyyy.MM.dd", common.ErrParse, raw)
	}
	return parsed, nil
}

// WriteExtractedVersion records the snapshot date into the version marker.
func (m *Manager) WriteExtractedVersion(date time.Time) error {
	path := filepath.Join(m.ExtractedDir(), internal.DefaultVersionMarkerName)

	content := date.Format(markerDateLayout) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write version marker %s: %w", path, err)
	}

	slog.Debug("Version marker written", "path", path, "date", date.Format(markerDateLayout))
	return nil
}

// IsNewer reports whether manifestDate is newer than the extracted snapshot.
// A missing marker means any manifest is newer.
func (m *Manager) IsNewer(manifestDate time.Time) (bool, error) {
	current, err := m.ExtractedVersion()
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return manifestDate.After(current), nil
}
