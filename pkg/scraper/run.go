package scraper

import (
	"context"
	"fmt"

	"vkdl/internal/downloader"
	"vkdl/pkg/checkpoint"
	"vkdl/pkg/config"
	"vkdl/pkg/logger"
	"vkdl/pkg/storage"
	"vkdl/pkg/vk"
)

// Runner sequences the scrape phase then the download phase for one
// album
type Runner struct {
	albumURL string
	destDir  string
	cfg      *config.Config
	logger   logger.Logger
}

// NewRunner creates a runner for a normalized album URL and destination
// directory
func NewRunner(albumURL, destDir string, cfg *config.Config, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Runner{
		albumURL: albumURL,
		destDir:  destDir,
		cfg:      cfg,
		logger:   log,
	}
}

// Run scrapes the full URL set and downloads it. Scrape-phase failures
// abort the run; download-phase failures are recorded per resource and
// reported in the summary.
func (r *Runner) Run(ctx context.Context) error {
	store, err := storage.NewManager(r.destDir)
	if err != nil {
		return fmt.Errorf("preparing destination: %w", err)
	}

	client := vk.NewClient(&r.cfg.HTTP, r.logger)
	client.SetReferer(r.albumURL)

	cp := checkpoint.NewManager(r.destDir, r.logger)
	engine := NewEngine(r.albumURL, client, cp, r.cfg, r.logger)

	urls, err := engine.ScrapeAll(ctx)
	if err != nil {
		return fmt.Errorf("scrape phase failed: %w", err)
	}

	if len(urls) == 0 {
		r.logger.Info("no URLs scraped, nothing to download")
		return nil
	}

	dl := downloader.NewEngine(client, store, r.cfg, r.logger)
	summary := dl.DownloadAll(ctx, urls)

	r.logger.InfoWithFields("all done", map[string]interface{}{
		"destination": r.destDir,
		"downloaded":  summary.Downloaded,
		"skipped":     summary.Skipped,
		"failed":      summary.Failed,
	})

	return nil
}
