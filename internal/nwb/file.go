package nwb

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	converrors "nwbconv/internal/errors"
	"nwbconv/pkg/contracts/domain"
)

// FormatVersion identifies the exchange document layout.
const FormatVersion = "nwb-exchange/1"

// File is the output container for one conversion run. It owns the
// emitted acquisition entries until export completes.
type File struct {
	Session domain.SessionMetadata

	acquisition []*TimeSeries
	index       map[string]int
	logger      *slog.Logger
}

// NewFile creates an empty container. A nil logger falls back to
// slog.Default().
func NewFile(session domain.SessionMetadata, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{
		Session: session,
		index:   make(map[string]int),
		logger:  logger,
	}
}

// AddAcquisition registers an entry under the acquisition namespace
// keyed by its name. A name collision keeps the last write and is
// surfaced as a warning because the earlier entry is lost.
func (f *File) AddAcquisition(ts *TimeSeries) {
	if i, ok := f.index[ts.Name]; ok {
		f.logger.Warn("acquisition name collision, previous entry overwritten",
			slog.String("name", ts.Name),
			slog.String("replaced_description", f.acquisition[i].Description))
		f.acquisition[i] = ts
		return
	}
	f.index[ts.Name] = len(f.acquisition)
	f.acquisition = append(f.acquisition, ts)
}

// Acquisition returns the emitted entries in registration order.
func (f *File) Acquisition() []*TimeSeries {
	return f.acquisition
}

// Len returns the number of registered entries.
func (f *File) Len() int {
	return len(f.acquisition)
}

// exportDoc is the serialized shape of a container.
type exportDoc struct {
	FormatVersion string                 `json:"format_version"`
	Session       domain.SessionMetadata `json:"session"`
	Acquisition   []*TimeSeries          `json:"acquisition"`
}

// Export writes the container to path. The document lands in a
// temporary file that is renamed into place only after a complete
// write, so a failed export never leaves a partial destination behind.
func (f *File) Export(path string) error {
	doc := exportDoc{
		FormatVersion: FormatVersion,
		Session:       f.Session,
		Acquisition:   f.acquisition,
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return converrors.Export(path, err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return converrors.Export(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return converrors.Export(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return converrors.Export(path, err)
	}

	f.logger.Info("container exported",
		slog.String("path", path),
		slog.Int("acquisition_entries", len(f.acquisition)))
	return nil
}
