package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// FailureLogName is the per-URL failure log kept next to the downloads
const FailureLogName = "failed_downloads.txt"

// Manager handles the destination directory: derived file names,
// existence checks, atomic writes and the failure log
type Manager struct {
	destDir string
	failMu  sync.Mutex
}

// NewManager creates the destination directory if needed
func NewManager(destDir string) (*Manager, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}
	return &Manager{destDir: destDir}, nil
}

// Dir returns the destination directory path
func (m *Manager) Dir() string {
	return m.destDir
}

// FileName derives the output name for a resource: the 1-based index
// zero-padded to 4 digits plus the extension from the URL path, or the
// default extension when the path has none
func FileName(resourceURL string, index int, defaultExt string) string {
	trimmed := resourceURL
	if i := strings.Index(trimmed, "?"); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := path.Ext(trimmed)
	if ext == "" {
		ext = defaultExt
	}
	return fmt.Sprintf("%04d%s", index, ext)
}

// Path returns the absolute path for a derived file name
func (m *Manager) Path(name string) string {
	return filepath.Join(m.destDir, name)
}

// Exists reports whether an output file is already on disk
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// Save writes a resource to disk. The data goes to a temporary file
// first and is renamed into place, so a file is only ever observed
// complete.
func (m *Manager) Save(r io.Reader, name string) error {
	target := m.Path(name)
	tempFile := target + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write resource data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// FailureLogPath returns the failure log path
func (m *Manager) FailureLogPath() string {
	return filepath.Join(m.destDir, FailureLogName)
}

// RecordFailure appends a URL to the failure log. Appends from
// concurrent download tasks are serialized so lines never interleave.
func (m *Manager) RecordFailure(resourceURL string) error {
	m.failMu.Lock()
	defer m.failMu.Unlock()

	file, err := os.OpenFile(m.FailureLogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open failure log: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(resourceURL + "\n"); err != nil {
		return fmt.Errorf("failed to append to failure log: %w", err)
	}
	return nil
}
