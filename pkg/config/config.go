package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the album downloader
type Config struct {
	// Scrape loop settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry behaviour for page and resource fetches
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// HTTP headers sent to the remote host
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScrapeConfig holds settings for the pagination loop
type ScrapeConfig struct {
	OffsetStep  int           `yaml:"offset_step" json:"offset_step"`
	MinDelay    time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	PageTimeout time.Duration `yaml:"page_timeout" json:"page_timeout"`
	// URLSuffixToRemove is a tracking/size suffix the host appends to
	// thumbnail URLs; it is stripped during normalization
	URLSuffixToRemove string `yaml:"url_suffix_to_remove" json:"url_suffix_to_remove"`
}

// DownloadConfig holds download-phase settings
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	DefaultExtension    string        `yaml:"default_extension" json:"default_extension"`
}

// RetryConfig holds retry and backoff settings
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	// PageMaxDelay caps backoff waits between page-fetch attempts;
	// ResourceMaxDelay caps waits between resource-fetch attempts
	PageMaxDelay     time.Duration `yaml:"page_max_delay" json:"page_max_delay"`
	ResourceMaxDelay time.Duration `yaml:"resource_max_delay" json:"resource_max_delay"`
	JitterFactor     float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// HTTPConfig holds the header sets used for API and resource requests
type HTTPConfig struct {
	UserAgent       string            `yaml:"user_agent" json:"user_agent"`
	APIHeaders      map[string]string `yaml:"api_headers" json:"api_headers"`
	DownloadHeaders map[string]string `yaml:"download_headers" json:"download_headers"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	// Directory overrides the default vk_album_<id> destination
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			OffsetStep:        40,
			MinDelay:          0,
			MaxDelay:          time.Second,
			PageTimeout:       30 * time.Second,
			URLSuffixToRemove: "&from=bu&cs=240x0",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 8,
			DownloadTimeout:     30 * time.Second,
			DefaultExtension:    ".jpg",
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			BaseDelay:        time.Second,
			PageMaxDelay:     20 * time.Second,
			ResourceMaxDelay: 10 * time.Second,
			JitterFactor:     0.2,
		},
		HTTP: HTTPConfig{
			UserAgent: defaultUserAgent,
			APIHeaders: map[string]string{
				"X-Requested-With": "XMLHttpRequest",
				"Content-Type":     "application/x-www-form-urlencoded",
			},
			DownloadHeaders: map[string]string{
				"Accept":          "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8",
				"Accept-Language": "en-US,en;q=0.5",
			},
		},
		Output: OutputConfig{
			Directory: "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if outputDir := os.Getenv("VKDL_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if userAgent := os.Getenv("VKDL_USER_AGENT"); userAgent != "" {
		c.HTTP.UserAgent = userAgent
	}
	if concurrent := os.Getenv("VKDL_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if retries := os.Getenv("VKDL_MAX_RETRIES"); retries != "" {
		var val int
		fmt.Sscanf(retries, "%d", &val)
		if val > 0 {
			c.Retry.MaxAttempts = val
		}
	}
	if logLevel := os.Getenv("VKDL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".vkdl.yaml",
		".vkdl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "vkdl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".vkdl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Scrape.OffsetStep <= 0 {
		errs = append(errs, errors.New("offset step must be positive"))
	}
	if c.Scrape.MinDelay < 0 {
		errs = append(errs, errors.New("min delay cannot be negative"))
	}
	if c.Scrape.MaxDelay < c.Scrape.MinDelay {
		errs = append(errs, errors.New("max delay cannot be less than min delay"))
	}
	if c.Scrape.PageTimeout <= 0 {
		errs = append(errs, errors.New("page timeout must be positive"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max retry attempts must be positive"))
	}
	if c.Retry.PageMaxDelay <= 0 || c.Retry.ResourceMaxDelay <= 0 {
		errs = append(errs, errors.New("retry delay ceilings must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries > 0 {
		c.Retry.MaxAttempts = maxRetries
	}
	if timeout, ok := flags["download-timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.DownloadTimeout = timeout
	}
	if minDelay, ok := flags["min-delay"].(time.Duration); ok && minDelay >= 0 {
		c.Scrape.MinDelay = minDelay
	}
	if maxDelay, ok := flags["max-delay"].(time.Duration); ok && maxDelay > 0 {
		c.Scrape.MaxDelay = maxDelay
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".vkdl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
