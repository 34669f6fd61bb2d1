package files

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Manager handles destination bookkeeping for conversions
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a new destination manager instance
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Exists checks if a file exists at the given path
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	exists := err == nil

	m.logger.Debug("destination existence check",
		slog.String("path", path),
		slog.Bool("exists", exists))

	return exists
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	m.logger.Debug("ensuring directory exists",
		slog.String("path", path))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return nil
}

// Destination derives the container path for a recording. An empty
// destDir places the container alongside the source file.
func (m *Manager) Destination(rec RecordingInfo, destDir string) string {
	if destDir == "" {
		destDir = filepath.Dir(rec.Path)
	}
	return filepath.Join(destDir, rec.Tag.OutputFileName())
}

// Partition splits recordings into those needing conversion and those
// whose destination already exists. With force set everything is
// pending regardless of existing destinations.
func (m *Manager) Partition(recordings []RecordingInfo, destDir string, force bool) (pending, existing []RecordingInfo) {
	for _, rec := range recordings {
		if !force && m.Exists(m.Destination(rec, destDir)) {
			existing = append(existing, rec)
			continue
		}
		pending = append(pending, rec)
	}
	return pending, existing
}
