package downloader

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"vkdl/pkg/config"
	"vkdl/pkg/logger"
	"vkdl/pkg/retry"
	"vkdl/pkg/storage"
)

// ResourceFetcher fetches a single resource
type ResourceFetcher interface {
	FetchResource(ctx context.Context, resourceURL string, timeout time.Duration) ([]byte, error)
}

// Summary reports what happened to every URL handed to the engine
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Engine fetches the final URL set under a concurrency cap. Each
// resource is retried independently; a failure is appended to the
// failure log and never aborts sibling downloads.
type Engine struct {
	client  ResourceFetcher
	store   *storage.Manager
	cfg     *config.Config
	retrier *retry.Retrier
	logger  logger.Logger

	downloaded int32
	skipped    int32
	failed     int32
}

// NewEngine creates a download engine. Resource fetches use the shorter
// backoff ceiling from the retry configuration.
func NewEngine(client ResourceFetcher, store *storage.Manager, cfg *config.Config, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}

	retrier := retry.NewRetrier(&retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: retry.NewExponentialBackoff(
			cfg.Retry.BaseDelay,
			cfg.Retry.ResourceMaxDelay,
			cfg.Retry.JitterFactor,
		),
		RetryIf: retry.DefaultRetryIf,
		Context: context.Background(),
		Logger:  log,
	})

	return &Engine{
		client:  client,
		store:   store,
		cfg:     cfg,
		retrier: retrier,
		logger:  log,
	}
}

// DownloadAll fetches every resource, indexing 1-based over the given
// order. Files already on disk are skipped without a network call. The
// call returns only after every task has finished.
func (e *Engine) DownloadAll(ctx context.Context, urls []string) Summary {
	e.logger.InfoWithFields("starting downloads", map[string]interface{}{
		"urls":       len(urls),
		"concurrent": e.cfg.Download.ConcurrentDownloads,
	})

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Download.ConcurrentDownloads)

	for i, u := range urls {
		index := i + 1
		name := storage.FileName(u, index, e.cfg.Download.DefaultExtension)

		if e.store.Exists(name) {
			atomic.AddInt32(&e.skipped, 1)
			e.logger.DebugWithFields("skipping existing file", map[string]interface{}{
				"file": name,
			})
			continue
		}

		u := u
		g.Go(func() error {
			e.downloadOne(ctx, u, name)
			return nil
		})
	}

	g.Wait()

	summary := Summary{
		Downloaded: int(atomic.LoadInt32(&e.downloaded)),
		Skipped:    int(atomic.LoadInt32(&e.skipped)),
		Failed:     int(atomic.LoadInt32(&e.failed)),
	}

	e.logger.InfoWithFields("downloads finished", map[string]interface{}{
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
	})

	return summary
}

// downloadOne fetches a single resource and writes it to disk. Any
// failure, after retries, lands in the failure log.
func (e *Engine) downloadOne(ctx context.Context, resourceURL, name string) {
	var data []byte
	err := e.retrier.WithContext(ctx).Do(func() error {
		var fetchErr error
		data, fetchErr = e.client.FetchResource(ctx, resourceURL, e.cfg.Download.DownloadTimeout)
		return fetchErr
	})
	if err == nil {
		err = e.store.Save(bytes.NewReader(data), name)
	}

	if err != nil {
		atomic.AddInt32(&e.failed, 1)
		e.logger.WarnWithFields("download failed", map[string]interface{}{
			"file":  name,
			"url":   resourceURL,
			"error": err.Error(),
		})
		if logErr := e.store.RecordFailure(resourceURL); logErr != nil {
			e.logger.WithError(logErr).Error("failed to record download failure")
		}
		return
	}

	atomic.AddInt32(&e.downloaded, 1)
	e.logger.InfoWithFields("downloaded", map[string]interface{}{
		"file": name,
		"size": len(data),
	})
}
