package classify

import "math"

// RegularTolerance is the spread of consecutive timestamp deltas below
// which a channel is stored as start time plus rate instead of explicit
// timestamps. The value is in the same time unit as the source data.
const RegularTolerance = 1e-10

// applySampling classifies the sampling mode of s from its timestamps.
// A single timestamp always classifies as regular with a default rate
// of 1.0. Otherwise the sample standard deviation of the consecutive
// deltas decides: below tolerance the channel keeps only start time and
// rate, else the timestamps are retained verbatim.
func (s *Series) applySampling(ts []float64) {
	s.StartTime = ts[0]
	s.TimeCount = len(ts)
	if len(ts) == 1 {
		s.IsRegular = true
		s.Rate = 1.0
		return
	}

	diffs := make([]float64, len(ts)-1)
	for i := range diffs {
		diffs[i] = ts[i+1] - ts[i]
	}
	if sampleStd(diffs) < RegularTolerance {
		s.IsRegular = true
		s.Rate = 1.0 / diffs[0]
		return
	}
	s.Timestamps = ts
}

// sampleStd returns the sample standard deviation of xs. Fewer than two
// values have no spread and yield 0.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
