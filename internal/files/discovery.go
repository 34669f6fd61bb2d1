package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"nwbconv/pkg/contracts/domain"
)

// RecordingInfo represents one discovered recording file
type RecordingInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	Tag     domain.RecordingTag
}

// Discovery provides recording file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new discovery instance. Relative directories
// passed to its methods resolve against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindRecordingFiles finds recording files in dir whose names match
// the glob pattern and parse under the filename tag convention. Files
// matching the pattern but outside the convention are returned by name
// in the second result so callers can report them. Results are sorted
// by name for deterministic batch order.
func (d *Discovery) FindRecordingFiles(dir, pattern string) ([]RecordingInfo, []string, error) {
	fullPath := d.resolve(dir)

	if info, err := os.Stat(fullPath); err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	} else if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", fullPath)
	}

	matches, err := filepath.Glob(filepath.Join(fullPath, pattern))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var recordings []RecordingInfo
	var unrecognized []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}

		tag, err := domain.ParseRecordingTag(match)
		if err != nil {
			unrecognized = append(unrecognized, filepath.Base(match))
			continue
		}

		recordings = append(recordings, RecordingInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Tag:     tag,
		})
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].Name < recordings[j].Name
	})
	sort.Strings(unrecognized)

	return recordings, unrecognized, nil
}

// resolve joins dir onto the base path unless it is already absolute
func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
