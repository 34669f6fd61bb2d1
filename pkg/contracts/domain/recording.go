package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// RecordingTag represents the metadata components encoded in a source
// filename. The convention is animal_[signal_]session_tag.ext with
// exactly three or four underscore-delimited components.
type RecordingTag struct {
	SubjectID string `json:"subject_id" validate:"required"`
	Signal    string `json:"signal,omitempty"`
	SessionID string `json:"session_id" validate:"required"`
	Tag       string `json:"tag" validate:"required"`
}

// ParseRecordingTag splits the stem of a source filename into its tag
// components. Filenames outside the three or four component convention
// are rejected.
func ParseRecordingTag(path string) (RecordingTag, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.Split(stem, "_")
	switch len(parts) {
	case 3:
		return RecordingTag{SubjectID: parts[0], SessionID: parts[1], Tag: parts[2]}, nil
	case 4:
		return RecordingTag{SubjectID: parts[0], Signal: parts[1], SessionID: parts[2], Tag: parts[3]}, nil
	}
	return RecordingTag{}, fmt.Errorf("filename %q must have 3 or 4 underscore components, got %d", base, len(parts))
}

// Stem returns the underscore-joined components.
func (t RecordingTag) Stem() string {
	if t.Signal == "" {
		return strings.Join([]string{t.SubjectID, t.SessionID, t.Tag}, "_")
	}
	return strings.Join([]string{t.SubjectID, t.Signal, t.SessionID, t.Tag}, "_")
}

// OutputFileName returns the destination filename derived from the tag
// components.
func (t RecordingTag) OutputFileName() string {
	return t.Stem() + ".nwb.json"
}

// SessionMetadata represents the session-level attributes written to
// the output container.
type SessionMetadata struct {
	Identifier       string    `json:"identifier" validate:"required"`
	Description      string    `json:"session_description"`
	Experimenter     string    `json:"experimenter,omitempty"`
	SubjectID        string    `json:"subject_id,omitempty"`
	SessionID        string    `json:"session_id,omitempty"`
	SessionStartTime float64   `json:"session_start_time"`
	ReferenceTime    time.Time `json:"timestamps_reference_time" validate:"required"`
	Institution      string    `json:"institution,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}
