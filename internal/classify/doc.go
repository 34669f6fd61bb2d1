// Package classify maps loosely structured channel records onto a
// canonical time-series representation. It is the decision core of the
// converter: everything downstream (naming, container assembly, export)
// consumes its output unchanged.
//
// # Architecture
//
// Classification of one channel runs three stages:
//
// 1. Field probing: candidate time and value field names are tried in a
// fixed priority order with case-sensitive, first-match-wins lookup.
// 2. Orientation correction: matched arrays are aligned so samples run
// down the leading axis for value data and along a row for timestamps.
// 3. Sampling classification: consecutive timestamp deltas decide
// between a regular representation (start time plus rate) and explicit
// per-sample timestamps.
//
// When no canonical pair is usable the classifier falls back to the
// first non-empty numeric field with more than one sample and invents
// integer index timestamps for it.
//
// # Usage
//
// Classify one channel of a loaded session:
//
//	series, err := classify.Classify(channelField)
//	if err != nil {
//	    // carries per-field diagnostics, channel is skipped
//	}
//
// # Error Handling
//
// A channel without any usable numeric field yields a skip error that
// carries a structural description of every direct field (name, kind,
// shape, value range). Skips are per channel and never abort a run; the
// caller logs them and continues.
//
// # Testing
//
// The classification rules are pure functions over loaded records. Use
// table-driven tests when adding new functionality.
package classify
