package garxml

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dkoroteev/gar-sync/gar/common"
	"github.com/google/uuid"
)

const (
	// recordElement is the top-level element carrying one address object.
	recordElement = "OBJECT"

	attrDateLayout = "2006-01-02"
)

// Scanner walks one record file forward-only, yielding records one at a
// time. Re-invoking NewScanner on the same path re-streams from the start;
// the scanner itself holds no state beyond its file position.
//
// Usage mirrors bufio.Scanner: call Scan until it returns false, read the
// current value with Record, then check Err.
type Scanner struct {
	ctx    context.Context
	path   string
	file   *os.File
	dec    *xml.Decoder
	record Record
	err    error
}

// NewScanner validates path and opens the record file for streaming.
// An empty path is a validation error and a missing file is NotFound; both
// are raised before any streaming begins.
func NewScanner(ctx context.Context, path string) (*Scanner, error) {
	vu := common.NewValidationUtils()
	if err := vu.ValidatePath(path); err != nil {
		return nil, err
	}
	if err := vu.ValidateFileExists(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file %s: %w", path, err)
	}

	return &Scanner{
		ctx:  ctx,
		path: path,
		file: f,
		dec:  xml.NewDecoder(f),
	}, nil
}

// Scan advances to the next decodable record. It returns false at end of
// stream, on a structural decode error, or on cancellation; Err tells the
// cases apart. Elements missing a required attribute are skipped with a
// warning and never terminate the stream.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}

	for {
		// Cancellation is checked at every element boundary.
		select {
		case <-s.ctx.Done():
			s.err = s.ctx.Err()
			return false
		default:
		}

		token, err := s.dec.Token()
		if err == io.EOF {
			return false
		}
		if err != nil {
			s.err = fmt.Errorf("%w: malformed record file %s: %v", common.ErrParse, s.path, err)
			return false
		}

		start, ok := token.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, recordElement) {
			continue
		}

		record, ok := parseRecordElement(s.path, start)

		// Consume the element subtree so nested content is never mistaken
		// for a top-level record.
		if err := s.dec.Skip(); err != nil && err != io.EOF {
			s.err = fmt.Errorf("%w: malformed record file %s: %v", common.ErrParse, s.path, err)
			return false
		}

		if !ok {
			continue
		}

		s.record = record
		return true
	}
}

// Record returns the record produced by the last successful Scan.
func (s *Scanner) Record() Record {
	return s.record
}

// Err returns the error that terminated the stream, nil on clean end.
func (s *Scanner) Err() error {
	return s.err
}

// Close releases the underlying file.
func (s *Scanner) Close() error {
	return s.file.Close()
}

// parseRecordElement builds a Record from one element's attributes. The
// second return is false when a required attribute (ID, OBJECTGUID, LEVEL,
// NAME) is missing or unparsable; such elements are skipped, not fatal.
func parseRecordElement(path string, start xml.StartElement) (Record, bool) {
	attrs := make(map[string]string, len(start.Attr))
	for _, a := range start.Attr {
		attrs[strings.ToUpper(a.Name.Local)] = a.Value
	}

	id, err := strconv.ParseInt(attrs["ID"], 10, 64)
	if err != nil {
		slog.Warn("Skipping record with bad ID", "file", path, "id", attrs["ID"])
		return Record{}, false
	}

	guid, err := uuid.Parse(attrs["OBJECTGUID"])
	if err != nil {
		slog.Warn("Skipping record with bad OBJECTGUID",
			"file", path,
			"id", id,
			"objectguid", attrs["OBJECTGUID"])
		return Record{}, false
	}

	level, err := strconv.Atoi(attrs["LEVEL"])
	if err != nil {
		slog.Warn("Skipping record with bad LEVEL", "file", path, "id", id, "level", attrs["LEVEL"])
		return Record{}, false
	}

	name := attrs["NAME"]
	if name == "" {
		slog.Warn("Skipping record without NAME", "file", path, "id", id)
		return Record{}, false
	}

	record := Record{
		ID:         id,
		ObjectGUID: guid,
		Level:      level,
		TypeName:   attrs["TYPENAME"],
		Name:       name,
		IsActive:   attrs["ISACTIVE"] == "1",
	}

	// Optional attributes are lenient: a malformed parent means no parent,
	// unparsable dates fall back to the zero time.
	if raw := attrs["OPERTYPEID"]; raw != "" {
		if oper, err := strconv.Atoi(raw); err == nil {
			record.OperTypeID = oper
		}
	}
	if raw := attrs["PARENTOBJID"]; raw != "" {
		if parent, err := uuid.Parse(raw); err == nil {
			record.ParentObjID = uuid.NullUUID{UUID: parent, Valid: true}
		}
	}
	record.StartDate = lenientDate(attrs["STARTDATE"])
	record.EndDate = lenientDate(attrs["ENDDATE"])
	record.UpdateDate = lenientDate(attrs["UPDATEDATE"])

	return record, true
}

func lenientDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(attrDateLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
