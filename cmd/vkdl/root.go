package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vkdl/pkg/config"
	"vkdl/pkg/logger"
	"vkdl/pkg/scraper"
	"vkdl/pkg/vk"
)

var (
	version = "1.0.0"

	configFile      string
	outputDir       string
	concurrent      int
	maxRetries      int
	downloadTimeout time.Duration
	minDelay        time.Duration
	maxDelay        time.Duration
	logLevel        string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vkdl <album-url>",
	Short: "Download all photos from a vk.com album",
	Long: `vkdl scrapes a VK photo album page by page, records every discovered
image URL in a resumable checkpoint, then downloads the full set
concurrently.

Both desktop and mobile album URLs are accepted. Interrupted runs can
simply be started again: already-recorded URLs are not re-scraped and
already-downloaded files are not re-fetched. URLs that failed to
download are listed in failed_downloads.txt inside the destination
directory.`,
	Example: `  # Download an album into ./vk_album_-123_456/
  vkdl https://vk.com/album-123_456

  # Custom destination and concurrency
  vkdl https://vk.com/album-123_456 --output ./photos --concurrent 4`,
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScrape,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .vkdl.yaml)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "destination directory (default: ./vk_album_<id>/)")
	rootCmd.Flags().IntVar(&concurrent, "concurrent", 8, "number of concurrent downloads")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "maximum number of attempts per request")
	rootCmd.Flags().DurationVar(&downloadTimeout, "download-timeout", 30*time.Second, "timeout per resource download")
	rootCmd.Flags().DurationVar(&minDelay, "min-delay", 0, "minimum delay between page fetches")
	rootCmd.Flags().DurationVar(&maxDelay, "max-delay", time.Second, "maximum delay between page fetches")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	rawURL := strings.TrimSpace(args[0])
	albumURL := vk.NormalizeAlbumURL(rawURL)

	// Fatal before any network activity
	albumID, err := vk.ParseAlbumID(albumURL)
	if err != nil {
		return fmt.Errorf("could not parse album id from provided URL %q", rawURL)
	}

	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent != 8 {
		flags["concurrent"] = concurrent
	}
	if maxRetries != 3 {
		flags["max-retries"] = maxRetries
	}
	if downloadTimeout != 30*time.Second {
		flags["download-timeout"] = downloadTimeout
	}
	if minDelay != 0 {
		flags["min-delay"] = minDelay
	}
	if maxDelay != time.Second {
		flags["max-delay"] = maxDelay
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	destDir := cfg.Output.Directory
	if destDir == "" {
		destDir = vk.DefaultDestDir(albumID)
	}

	// The run log lives inside the destination directory, so the
	// directory has to exist before logging is set up
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(destDir, "download.log")
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	log.InfoWithFields("starting", map[string]interface{}{
		"version":     version,
		"album_url":   albumURL,
		"destination": destDir,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := scraper.NewRunner(albumURL, destDir, cfg, log)
	if err := runner.Run(ctx); err != nil {
		log.WithError(err).Error("run failed")
		return err
	}

	return nil
}
