package classify

import (
	"fmt"

	converrors "nwbconv/internal/errors"
	"nwbconv/internal/ndarray"
	"nwbconv/internal/source"
)

// Candidate field names, probed in priority order. The tables are fixed
// by the source convention and deliberately not configurable.
var (
	timeCandidates  = []string{"times", "time", "t", "timestamps"}
	valueCandidates = []string{"values", "value", "data", "signal", "amplitude", "position", "X", "Y"}
)

// Series is one classified channel, ready for container assembly. It is
// created once per channel and not mutated afterwards except for the
// output name, which the converter assigns after prefix derivation.
type Series struct {
	Channel    string
	TimeField  string
	ValueField string
	OutputName string

	// Data is the value array with samples running down the leading axis.
	Data *ndarray.Array

	// Timestamps holds explicit per-sample times and is populated only
	// for irregular channels.
	Timestamps []float64

	// TimeCount is the number of timestamps the channel supplied,
	// retained even when regular classification collapses them into a
	// rate so callers can report count mismatches against the data.
	TimeCount int

	IsRegular bool
	Rate      float64
	StartTime float64

	// Synthetic marks fallback classification with invented index
	// timestamps.
	Synthetic bool
}

// SampleCount returns the number of samples along the time axis.
func (s *Series) SampleCount() int {
	return s.Data.Rows()
}

// FullName returns the pre-stripped name recorded in the emitted entry
// description so operators can trace an output back to its source
// fields.
func (s *Series) FullName() string {
	if s.TimeField == "" {
		return fmt.Sprintf("%s.%s", s.Channel, s.ValueField)
	}
	return fmt.Sprintf("%s (%s/%s)", s.Channel, s.TimeField, s.ValueField)
}

// FieldDiagnostic describes one direct field of a channel that could
// not be classified. Rendering is left to the caller.
type FieldDiagnostic struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
	Shape string `json:"shape,omitempty"`
	Range string `json:"range,omitempty"`
}

// Classify derives a Series from one channel of a loaded session. A
// channel that is not a record, or that offers no usable numeric field,
// is rejected with a skip error carrying per-field diagnostics.
func Classify(channel source.Field) (*Series, error) {
	if channel.Kind != source.KindRecord {
		return nil, converrors.Skipped(channel.Name, []FieldDiagnostic{describeField(channel)})
	}
	rec := channel.Record

	timeField, timeOK := probe(rec, timeCandidates)
	valueField, valueOK := probe(rec, valueCandidates)
	if timeOK && valueOK {
		if s, ok := classifyPair(channel.Name, timeField, valueField); ok {
			return s, nil
		}
	}

	if s, ok := classifyFallback(channel.Name, rec); ok {
		return s, nil
	}
	return nil, converrors.Skipped(channel.Name, Diagnose(rec))
}

// probe returns the first candidate name present in the record.
// Comparison is case-sensitive and no further candidates are checked
// after a match.
func probe(rec *source.Record, candidates []string) (source.Field, bool) {
	for _, name := range candidates {
		if f, ok := rec.Lookup(name); ok {
			return f, true
		}
	}
	return source.Field{}, false
}

// classifyPair builds a Series from a matched canonical time/value
// field pair. Pairs that are not numeric, have a non-vector or empty
// time field, or carry no value samples are rejected so the caller can
// try the fallback path.
func classifyPair(channel string, timeField, valueField source.Field) (*Series, bool) {
	if timeField.Kind != source.KindNumeric || valueField.Kind != source.KindNumeric {
		return nil, false
	}
	if !timeField.Array.IsVector() || timeField.Array.IsEmpty() {
		return nil, false
	}

	data, err := ndarray.EnsureTimeAxis(valueField.Array, ndarray.AxisRows)
	if err != nil || data.IsEmpty() {
		return nil, false
	}
	times, err := ndarray.EnsureTimeAxis(timeField.Array, ndarray.AxisCols)
	if err != nil {
		return nil, false
	}

	s := &Series{
		Channel:    channel,
		TimeField:  timeField.Name,
		ValueField: valueField.Name,
		Data:       data,
	}
	s.applySampling(times.Data)
	return s, true
}

// classifyFallback scans the record's direct fields in declaration
// order for the first non-empty numeric array with more than one sample
// after orientation correction. The match becomes the value source with
// synthetic index timestamps 0..N-1.
func classifyFallback(channel string, rec *source.Record) (*Series, bool) {
	for _, f := range rec.Fields() {
		if f.Kind != source.KindNumeric || f.Array.IsEmpty() {
			continue
		}
		data, err := ndarray.EnsureTimeAxis(f.Array, ndarray.AxisRows)
		if err != nil || data.Rows() <= 1 {
			continue
		}

		ts := make([]float64, data.Rows())
		for i := range ts {
			ts[i] = float64(i)
		}
		s := &Series{
			Channel:    channel,
			ValueField: f.Name,
			Data:       data,
			Synthetic:  true,
		}
		s.applySampling(ts)
		return s, true
	}
	return nil, false
}

// Diagnose summarizes every direct field of a record for skip reports.
func Diagnose(rec *source.Record) []FieldDiagnostic {
	out := make([]FieldDiagnostic, 0, rec.Len())
	for _, f := range rec.Fields() {
		out = append(out, describeField(f))
	}
	return out
}

func describeField(f source.Field) FieldDiagnostic {
	d := FieldDiagnostic{Field: f.Name, Kind: f.Kind.String()}
	if f.Kind == source.KindNumeric {
		d.Shape = f.Array.ShapeString()
		if !f.Array.IsEmpty() {
			min, max := f.Array.Range()
			d.Range = fmt.Sprintf("%g..%g", min, max)
		}
	}
	return d
}
