package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vkdl/pkg/logger"
)

// FileName is the checkpoint log kept inside the destination directory
const FileName = "scraped_urls.txt"

// Manager persists discovered resource URLs, one per line, append-only.
// It is written by a single goroutine during scraping; loading happens
// once, before the first page is fetched.
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a checkpoint manager rooted at the destination directory
func NewManager(destDir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		path:   filepath.Join(destDir, FileName),
		logger: log,
	}
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.path
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Load reads all previously discovered URLs in checkpoint order. A
// missing file is not an error; it means a fresh run.
func (m *Manager) Load() ([]string, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	m.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"path": m.path,
		"urls": len(urls),
	})

	return urls, nil
}

// Append writes newly discovered URLs in discovery order and syncs the
// file before returning, so the checkpoint is durable before the next
// page is fetched.
func (m *Manager) Append(urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	file, err := os.OpenFile(m.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	for _, u := range urls {
		sb.WriteString(u)
		sb.WriteByte('\n')
	}
	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to append to checkpoint file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("checkpoint appended", map[string]interface{}{
		"urls": len(urls),
	})

	return nil
}
