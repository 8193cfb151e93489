// Package pipeline wires the sync and ingestion components into a full
// registry run: manifest fetch, archive download and extraction, level-table
// load, concurrent ingestion, report emission.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkoroteev/gar-sync/gar/archive"
	"github.com/dkoroteev/gar-sync/gar/config"
	"github.com/dkoroteev/gar-sync/gar/ingest"
	"github.com/dkoroteev/gar-sync/gar/levels"
	"github.com/dkoroteev/gar-sync/gar/ratelimit"
	"github.com/dkoroteev/gar-sync/gar/remote"
	"github.com/dkoroteev/gar-sync/gar/report"
	"github.com/dkoroteev/gar-sync/gar/workspace"
)

// Pipeline owns the process-wide singletons (rate limiter, level cache) and
// the per-run collaborators.
type Pipeline struct {
	cfg         config.GarSyncConfig
	workspace   *workspace.Manager
	client      *remote.Client
	extractor   *archive.Extractor
	levelCache  *levels.Cache
	coordinator *ingest.Coordinator
	emitters    []report.Emitter
}

// New builds a pipeline from configuration.
func New(cfg config.GarSyncConfig) (*Pipeline, error) {
	manager, err := workspace.NewManager(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to set up workspace: %w", err)
	}

	limiter := ratelimit.New(
		cfg.RateLimit.Capacity,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	return &Pipeline{
		cfg:         cfg,
		workspace:   manager,
		client:      remote.NewClient(cfg.Remote, limiter),
		extractor:   archive.NewExtractor(),
		levelCache:  levels.NewCache(time.Duration(cfg.Levels.CacheTTLMinutes) * time.Minute),
		coordinator: ingest.NewCoordinator(cfg.Ingest),
		emitters:    []report.Emitter{report.NewTXTEmitter(), report.NewCSVEmitter()},
	}, nil
}

// Sync fetches the manifest and, when it is newer than the extracted
// snapshot, downloads and unpacks the full archive and updates the version
// marker. It returns the manifest regardless of whether a download ran.
func (p *Pipeline) Sync(ctx context.Context) (*remote.Manifest, error) {
	if err := p.workspace.EnsureLayout(); err != nil {
		return nil, err
	}

	manifest, err := p.client.LatestManifest(ctx)
	if err != nil {
		return nil, err
	}

	newer, err := p.workspace.IsNewer(manifest.Date)
	if err != nil {
		return nil, err
	}
	if !newer {
		slog.Info("Extracted snapshot is current, skipping download",
			"version", manifest.VersionID,
			"date", manifest.Date.Format("2006-01-02"))
		return manifest, nil
	}

	archivePath, err := p.client.Download(ctx, manifest.FullURL, p.workspace.DownloadsDir())
	if err != nil {
		return nil, err
	}

	if err := p.extractor.Extract(ctx, archivePath, p.workspace.ExtractedDir()); err != nil {
		return nil, err
	}

	if err := p.workspace.WriteExtractedVersion(manifest.Date); err != nil {
		return nil, err
	}

	// A fresh snapshot supersedes any cached level table.
	p.levelCache.Invalidate()

	return manifest, nil
}

// Report ingests the extracted snapshot and emits every configured report,
// returning the written file paths.
func (p *Pipeline) Report(ctx context.Context, heading string) ([]string, error) {
	extractedDir := p.workspace.ExtractedDir()

	table, err := p.levelCache.Get(extractedDir)
	if err != nil {
		return nil, err
	}

	grouped, err := p.coordinator.Ingest(ctx, extractedDir, table)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, emitter := range p.emitters {
		path, err := emitter.Emit(grouped, heading, p.workspace.ReportsDir())
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Run executes a full cycle: sync, ingest, emit. On any unrecovered failure
// the error is returned without partially emitted reports left behind.
func (p *Pipeline) Run(ctx context.Context) ([]string, error) {
	manifest, err := p.Sync(ctx)
	if err != nil {
		return nil, err
	}

	heading := fmt.Sprintf("Реестр адресов ГАР, версия %s от %s",
		manifest.VersionID, manifest.Date.Format("02.01.2006"))

	paths, err := p.Report(ctx, heading)
	if err != nil {
		return nil, err
	}

	slog.Info("Run completed",
		"version", manifest.VersionID,
		"reports", len(paths))

	return paths, nil
}
