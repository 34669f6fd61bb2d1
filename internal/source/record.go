// Package source loads MATLAB session exports into an ordered record
// model. The top level of an export maps channel names to records; each
// record maps field names to numeric arrays, text, string lists, or
// nested records. Field order is preserved exactly as encountered in the
// source because downstream classification probes fields in declaration
// order and prefix derivation folds names in discovery order.
package source

import (
	"fmt"

	"nwbconv/internal/ndarray"
)

// Kind identifies what a field holds.
type Kind int

const (
	KindNumeric Kind = iota
	KindText
	KindStrings
	KindRecord
)

// String returns the kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindStrings:
		return "strings"
	case KindRecord:
		return "record"
	}
	return "unknown"
}

// Field is one named value inside a Record. Exactly one of Array, Text,
// Strings, or Record is populated according to Kind.
type Field struct {
	Name    string
	Kind    Kind
	Array   *ndarray.Array
	Text    string
	Strings []string
	Record  *Record
}

// Summary renders the field's kind and size for diagnostics, e.g.
// "numeric 3x100" or "record (4 fields)".
func (f Field) Summary() string {
	switch f.Kind {
	case KindNumeric:
		return fmt.Sprintf("numeric %s", f.Array.ShapeString())
	case KindText:
		return fmt.Sprintf("text (%d chars)", len(f.Text))
	case KindStrings:
		return fmt.Sprintf("strings (%d)", len(f.Strings))
	case KindRecord:
		return fmt.Sprintf("record (%d fields)", f.Record.Len())
	}
	return "unknown"
}

// Record is an ordered collection of named fields.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// Add appends a field, or replaces it in place if the name already
// exists. Replacement keeps the original position so traversal order
// stays stable.
func (r *Record) Add(f Field) {
	if i, ok := r.index[f.Name]; ok {
		r.fields[i] = f
		return
	}
	r.index[f.Name] = len(r.fields)
	r.fields = append(r.fields, f)
}

// Lookup returns the field with the given name. Comparison is
// case-sensitive.
func (r *Record) Lookup(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// Fields returns the fields in insertion order.
func (r *Record) Fields() []Field {
	return r.fields
}

// Names returns the field names in insertion order.
func (r *Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}
