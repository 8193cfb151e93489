// Package remote fetches the registry version manifest and downloads
// snapshot archives, consulting a rate limiter before every call.
package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dkoroteev/gar-sync/gar/common"
	"github.com/dkoroteev/gar-sync/gar/config"
)

// rateLimitKey is the logical key under which all remote calls are counted.
const rateLimitKey = "remote-api"

// Limiter is the admission-control dependency of the client.
type Limiter interface {
	Allow(key string) bool
	WaitSeconds(key string) int
}

// Client talks to the registry's manifest and download endpoints.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	manifestPath string
	limiter      Limiter

	vu *common.ValidationUtils
	eu *common.ErrorUtils
}

// NewClient creates a sync client from remote settings.
func NewClient(cfg config.RemoteConfig, limiter Limiter) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL:      cfg.BaseURL,
		manifestPath: cfg.ManifestPath,
		limiter:      limiter,
		vu:           common.NewValidationUtils(),
		eu:           common.NewErrorUtils(),
	}
}

// LatestManifest fetches and validates the current version manifest.
// A rate-limit denial fails immediately with the wait time and performs no
// network I/O.
func (c *Client) LatestManifest(ctx context.Context) (*Manifest, error) {
	if !c.limiter.Allow(rateLimitKey) {
		return nil, &common.RateLimitError{
			Key:         rateLimitKey,
			WaitSeconds: c.limiter.WaitSeconds(rateLimitKey),
		}
	}

	endpoint := c.baseURL + c.manifestPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest request to %s: %v", common.ErrTransient, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: manifest endpoint returned %s", common.ErrTransient, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest body: %v", common.ErrTransient, err)
	}

	manifest, err := parseManifest(body)
	if err != nil {
		return nil, err
	}

	slog.Info("Fetched version manifest",
		"version", manifest.VersionID,
		"date", manifest.Date.Format("2006-01-02"))

	return manifest, nil
}

// Download streams the resource at rawURL into destDir and returns the
// written file path. The response body goes straight to disk; it is never
// buffered whole.
func (c *Client) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%w: url %q", common.ErrPathInvalid, rawURL)
	}
	if err := c.vu.ValidateDestinationDir(destDir); err != nil {
		return "", c.eu.WrapError(err, "destination dir %q", destDir)
	}

	if !c.limiter.Allow(rateLimitKey) {
		return "", &common.RateLimitError{
			Key:         rateLimitKey,
			WaitSeconds: c.limiter.WaitSeconds(rateLimitKey),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: download from %s: %v", common.ErrTransient, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: download endpoint returned %s", common.ErrTransient, resp.Status)
	}

	destPath := filepath.Join(destDir, fileNameFromURL(parsed))

	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("%w: streaming %s to disk: %v", common.ErrTransient, rawURL, err)
	}

	slog.Info("Downloaded snapshot archive",
		"url", rawURL,
		"path", destPath,
		"bytes", written)

	return destPath, nil
}

// fileNameFromURL derives a file name from the URL path, falling back to a
// timestamped default when the URL has no usable path segment.
func fileNameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("gar_snapshot_%s.zip", time.Now().Format("20060102_150405"))
	}
	return name
}
