package domain

import (
	"time"
)

// Channel result statuses.
const (
	StatusConverted = "converted"
	StatusSkipped   = "skipped"
)

// Sampling modes of an emitted channel.
const (
	ModeRegular   = "regular"
	ModeIrregular = "irregular"
)

// ChannelResult represents the outcome of classifying one source
// channel. Skipped channels carry a detail string summarizing why no
// usable numeric field was found.
type ChannelResult struct {
	Channel    string  `json:"channel" validate:"required"`
	OutputName string  `json:"output_name,omitempty"`
	Status     string  `json:"status" validate:"required,oneof=converted skipped"`
	Mode       string  `json:"mode,omitempty" validate:"omitempty,oneof=regular irregular"`
	Rate       float64 `json:"rate,omitempty"`
	Samples    int     `json:"samples,omitempty"`
	Shape      string  `json:"shape,omitempty"`
	Range      string  `json:"range,omitempty"`
	Detail     string  `json:"detail,omitempty"`
}

// ConversionReport represents the outcome of converting one source
// file. It is rendered by the CLI and feeds the optional summary
// exporters.
type ConversionReport struct {
	Source         string          `json:"source" validate:"required"`
	Destination    string          `json:"destination,omitempty"`
	Prefix         string          `json:"prefix,omitempty"`
	Channels       []ChannelResult `json:"channels"`
	Converted      int             `json:"converted" validate:"min=0"`
	Skipped        int             `json:"skipped" validate:"min=0"`
	Exported       bool            `json:"exported"`
	StartedAt      time.Time       `json:"started_at"`
	ProcessingTime int64           `json:"processing_time_ms"` // milliseconds
}
