package remote

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dkoroteev/gar-sync/gar/common"
)

// manifestDateLayout is the textual date format of the manifest endpoint.
const manifestDateLayout = "02.01.2006"

// Manifest describes the latest available registry snapshot. It is built
// from one manifest response, validated once, and discarded after the sync
// cycle.
type Manifest struct {
	VersionID   string
	TextVersion string
	Date        time.Time
	DeltaURL    string
	FullURL     string
}

type manifestPayload struct {
	VersionID      string `json:"VersionId"`
	TextVersion    string `json:"TextVersion"`
	Date           string `json:"Date"`
	GarXMLDeltaURL string `json:"GarXMLDeltaURL"`
	GarXMLFullURL  string `json:"GarXMLFullURL"`
}

// parseManifest decodes and validates a manifest response body.
func parseManifest(body []byte) (*Manifest, error) {
	var payload manifestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed manifest body: %v", common.ErrParse, err)
	}

	if payload.VersionID == "" {
		return nil, fmt.Errorf("%w: manifest missing VersionId", common.ErrParse)
	}
	if payload.Date == "" {
		return nil, fmt.Errorf("%w: manifest missing Date", common.ErrParse)
	}
	if payload.GarXMLDeltaURL == "" || payload.GarXMLFullURL == "" {
		return nil, fmt.Errorf("%w: manifest missing snapshot URLs", common.ErrParse)
	}

	date, err := time.Parse(manifestDateLayout, payload.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest date %q is not dd.MM.yyyy", common.ErrParse, payload.Date)
	}

	manifest := &Manifest{
		VersionID:   payload.VersionID,
		TextVersion: payload.TextVersion,
		Date:        date,
		DeltaURL:    payload.GarXMLDeltaURL,
		FullURL:     payload.GarXMLFullURL,
	}
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// validate enforces the cross-field rules: both URLs absolute, HTTPS,
// pointing at an archive, and distinct from each other.
func (m *Manifest) validate() error {
	if err := validateSnapshotURL("GarXMLDeltaURL", m.DeltaURL); err != nil {
		return err
	}
	if err := validateSnapshotURL("GarXMLFullURL", m.FullURL); err != nil {
		return err
	}
	if m.DeltaURL == m.FullURL {
		return fmt.Errorf("%w: delta and full snapshot URLs are identical", common.ErrParse)
	}
	return nil
}

func validateSnapshotURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() {
		return fmt.Errorf("%w: %s %q is not an absolute URL", common.ErrParse, field, raw)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("%w: %s %q is not HTTPS", common.ErrParse, field, raw)
	}
	if !strings.HasSuffix(strings.ToLower(parsed.Path), ".zip") {
		return fmt.Errorf("%w: %s %q does not point to an archive", common.ErrParse, field, raw)
	}
	return nil
}
