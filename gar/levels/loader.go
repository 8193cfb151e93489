package levels

import (
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dkoroteev/gar-sync/gar/common"
)

const (
	// levelFilePrefix is the naming convention of the reference-level table
	// file inside an extracted snapshot.
	levelFilePrefix = "AS_OBJECT_LEVELS"

	// attrDateLayout is the date format used by registry XML attributes.
	attrDateLayout = "2006-01-02"
)

// LoadTable locates the reference-level file inside dir (recursively) and
// parses every level element. Pure function: no caching, no retained state.
func LoadTable(dir string) (Table, error) {
	vu := common.NewValidationUtils()
	if err := vu.ValidatePath(dir); err != nil {
		return nil, err
	}
	if err := vu.ValidateDirectoryExists(dir); err != nil {
		return nil, err
	}

	path, err := findLevelFile(dir)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loading reference-level table", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open level table %s: %w", path, err)
	}
	defer f.Close()

	table := make(Table)

	decoder := xml.NewDecoder(f)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed level table %s: %v", common.ErrParse, path, err)
		}

		start, ok := token.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "OBJECTLEVEL") {
			continue
		}

		level, err := parseLevelElement(start)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrParse, path, err)
		}

		// Duplicate level codes overwrite earlier entries.
		table[level.Level] = level
	}

	return table, nil
}

// findLevelFile walks dir recursively for a file matching the level-table
// naming convention.
func findLevelFile(dir string) (string, error) {
	var found string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || found != "" {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, levelFilePrefix) && strings.EqualFold(filepath.Ext(name), ".xml") {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan %s for level table: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: no %s file under %s", common.ErrNotFound, levelFilePrefix, dir)
	}
	return found, nil
}

// parseLevelElement builds a ReferenceLevel from one element's attributes.
// LEVEL, NAME, STARTDATE and UPDATEDATE are required; SHORTNAME falls back
// to NAME, ENDDATE is optional, ISACTIVE defaults to false.
func parseLevelElement(start xml.StartElement) (ReferenceLevel, error) {
	attrs := attrMap(start)

	code, ok := attrs["LEVEL"]
	if !ok {
		return ReferenceLevel{}, fmt.Errorf("missing LEVEL attribute")
	}
	level, err := strconv.Atoi(code)
	if err != nil {
		return ReferenceLevel{}, fmt.Errorf("unparsable LEVEL %q", code)
	}

	name, ok := attrs["NAME"]
	if !ok || name == "" {
		return ReferenceLevel{}, fmt.Errorf("missing NAME attribute for level %d", level)
	}

	startDate, err := requiredDate(attrs, "STARTDATE")
	if err != nil {
		return ReferenceLevel{}, fmt.Errorf("level %d: %w", level, err)
	}
	updateDate, err := requiredDate(attrs, "UPDATEDATE")
	if err != nil {
		return ReferenceLevel{}, fmt.Errorf("level %d: %w", level, err)
	}

	shortName := attrs["SHORTNAME"]
	if shortName == "" {
		shortName = name
	}

	var endDate time.Time
	if raw, ok := attrs["ENDDATE"]; ok && raw != "" {
		if endDate, err = time.Parse(attrDateLayout, raw); err != nil {
			return ReferenceLevel{}, fmt.Errorf("level %d: unparsable ENDDATE %q", level, raw)
		}
	}

	active := false
	if raw, ok := attrs["ISACTIVE"]; ok {
		active = raw == "true" || raw == "1"
	}

	return ReferenceLevel{
		Level:      level,
		Name:       name,
		ShortName:  shortName,
		StartDate:  startDate,
		EndDate:    endDate,
		UpdateDate: updateDate,
		IsActive:   active,
	}, nil
}

func requiredDate(attrs map[string]string, key string) (time.Time, error) {
	raw, ok := attrs[key]
	if !ok || raw == "" {
		return time.Time{}, fmt.Errorf("missing %s attribute", key)
	}
	parsed, err := time.Parse(attrDateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable %s %q", key, raw)
	}
	return parsed, nil
}

func attrMap(start xml.StartElement) map[string]string {
	attrs := make(map[string]string, len(start.Attr))
	for _, a := range start.Attr {
		attrs[strings.ToUpper(a.Name.Local)] = a.Value
	}
	return attrs
}
