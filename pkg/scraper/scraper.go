package scraper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"vkdl/pkg/checkpoint"
	"vkdl/pkg/config"
	"vkdl/pkg/logger"
	"vkdl/pkg/ratelimit"
	"vkdl/pkg/retry"
	"vkdl/pkg/vk"
)

// PageFetcher fetches one pagination chunk from the album
type PageFetcher interface {
	FetchAlbumChunk(ctx context.Context, albumURL string, offset int, timeout time.Duration) (string, error)
}

// Engine drives pagination over the album, deduplicates discovered
// resource URLs against the checkpoint and decides when the album is
// exhausted. Pagination is strictly sequential; each page fetch
// completes before the offset advances.
type Engine struct {
	albumURL   string
	client     PageFetcher
	checkpoint *checkpoint.Manager
	pacer      ratelimit.Limiter
	cfg        *config.Config
	retrier    *retry.Retrier
	logger     logger.Logger
}

// NewEngine creates a scrape engine. Page fetches use the longer
// backoff ceiling from the retry configuration.
func NewEngine(albumURL string, client PageFetcher, cp *checkpoint.Manager, cfg *config.Config, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}

	retrier := retry.NewRetrier(&retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: retry.NewExponentialBackoff(
			cfg.Retry.BaseDelay,
			cfg.Retry.PageMaxDelay,
			cfg.Retry.JitterFactor,
		),
		RetryIf: retry.DefaultRetryIf,
		Context: context.Background(),
		Logger:  log,
	})

	return &Engine{
		albumURL:   albumURL,
		client:     client,
		checkpoint: cp,
		pacer:      ratelimit.NewRandomDelay(cfg.Scrape.MinDelay, cfg.Scrape.MaxDelay),
		cfg:        cfg,
		retrier:    retrier,
		logger:     log,
	}
}

// ScrapeAll walks the album page by page and returns every discovered
// resource URL, deduplicated and sorted lexicographically. The
// checkpoint is loaded once at the start and appended to after every
// page that yields new URLs, so an interrupted run resumes without
// re-recording known URLs.
func (e *Engine) ScrapeAll(ctx context.Context) ([]string, error) {
	seeded, err := e.checkpoint.Load()
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	seen := make(map[string]struct{}, len(seeded))
	accumulated := make([]string, 0, len(seeded))
	for _, u := range seeded {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			accumulated = append(accumulated, u)
		}
	}

	for offset := 0; ; offset += e.cfg.Scrape.OffsetStep {
		batch, err := e.fetchPage(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("fetching page at offset %d: %w", offset, err)
		}

		var newURLs []string
		for _, u := range batch {
			if u == "" {
				continue
			}
			if _, ok := seen[u]; !ok {
				seen[u] = struct{}{}
				newURLs = append(newURLs, u)
			}
		}

		// A page with nothing new past the first offset means the end
		// of the album has been reached
		if len(newURLs) == 0 && offset > 0 {
			e.logger.InfoWithFields("no more new URLs, scraping done", map[string]interface{}{
				"offset": offset,
			})
			break
		}

		if len(newURLs) > 0 {
			accumulated = append(accumulated, newURLs...)
			if err := e.checkpoint.Append(newURLs); err != nil {
				return nil, fmt.Errorf("appending checkpoint at offset %d: %w", offset, err)
			}
			e.logger.InfoWithFields("page scraped", map[string]interface{}{
				"offset":       offset,
				"new_urls":     len(newURLs),
				"total_unique": len(accumulated),
			})
		}

		// An entirely empty first page means the album is empty or
		// unreachable, not normal pagination
		if len(batch) == 0 && offset == 0 {
			e.logger.Warn("no URLs found on the first page, aborting scrape")
			break
		}

		if err := e.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("scrape interrupted: %w", err)
		}
	}

	final := make([]string, len(accumulated))
	copy(final, accumulated)
	sort.Strings(final)

	e.logger.InfoWithFields("scraping finished", map[string]interface{}{
		"unique_urls": len(final),
	})

	return final, nil
}

// fetchPage fetches one pagination chunk under the retry policy and
// extracts normalized resource URLs from it. A payload that does not
// parse is treated as an empty page, not a failure.
func (e *Engine) fetchPage(ctx context.Context, offset int) ([]string, error) {
	var body string
	err := e.retrier.WithContext(ctx).Do(func() error {
		var fetchErr error
		body, fetchErr = e.client.FetchAlbumChunk(ctx, e.albumURL, offset, e.cfg.Scrape.PageTimeout)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	raw, err := vk.ExtractChunkURLs(body)
	if err != nil {
		e.logger.WarnWithFields("payload not parseable, treating page as empty", map[string]interface{}{
			"offset": offset,
			"error":  err.Error(),
		})
		return nil, nil
	}

	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		urls = append(urls, vk.NormalizeResourceURL(u, e.cfg.Scrape.URLSuffixToRemove))
	}
	return urls, nil
}
