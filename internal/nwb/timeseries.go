// Package nwb models the destination container: session metadata plus
// an acquisition namespace of named time series. Export serializes the
// container as a hierarchical NWB exchange document; the binary on-disk
// layout of the format is out of scope.
package nwb

import (
	"encoding/json"
	"math"

	"nwbconv/internal/ndarray"
)

// DefaultUnit is attached to emitted series when the source carries no
// unit information, which the supported record shapes never do.
const DefaultUnit = "unknown"

// jsonFloat marshals non-finite values as null so containers carrying
// NaN samples or degenerate rates stay serializable. MATLAB encodes NaN
// the same way on its side of the exchange.
type jsonFloat float64

// MarshalJSON implements json.Marshaler.
func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// floatList marshals a sample slice element by element under the same
// non-finite rule as jsonFloat.
type floatList []float64

// MarshalJSON implements json.Marshaler.
func (l floatList) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(l)*8)
	buf = append(buf, '[')
	for i, v := range l {
		if i > 0 {
			buf = append(buf, ',')
		}
		b, err := jsonFloat(v).MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return append(buf, ']'), nil
}

// TimeSeries is one entry of the acquisition namespace. Exactly one of
// the two sampling representations is populated: explicit Timestamps
// for irregular channels, StartingTime plus Rate for regular ones.
type TimeSeries struct {
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Unit         string     `json:"unit"`
	Shape        []int      `json:"shape"`
	Data         floatList  `json:"data"`
	StartingTime *jsonFloat `json:"starting_time,omitempty"`
	Rate         *jsonFloat `json:"rate,omitempty"`
	Timestamps   floatList  `json:"timestamps,omitempty"`
}

// NewRegularSeries creates an entry stored as start time plus rate.
func NewRegularSeries(name string, data *ndarray.Array, start, rate float64) *TimeSeries {
	st := jsonFloat(start)
	r := jsonFloat(rate)
	return &TimeSeries{
		Name:         name,
		Unit:         DefaultUnit,
		Shape:        data.Shape,
		Data:         floatList(data.Data),
		StartingTime: &st,
		Rate:         &r,
	}
}

// NewIrregularSeries creates an entry with explicit per-sample
// timestamps.
func NewIrregularSeries(name string, data *ndarray.Array, timestamps []float64) *TimeSeries {
	return &TimeSeries{
		Name:       name,
		Unit:       DefaultUnit,
		Shape:      data.Shape,
		Data:       floatList(data.Data),
		Timestamps: floatList(timestamps),
	}
}

// IsRegular reports whether the entry uses the start time plus rate
// representation.
func (ts *TimeSeries) IsRegular() bool {
	return ts.Rate != nil
}

// SampleCount returns the number of samples along the leading axis.
func (ts *TimeSeries) SampleCount() int {
	if len(ts.Shape) == 0 {
		return 0
	}
	return ts.Shape[0]
}
