package source

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	converrors "nwbconv/internal/errors"
	"nwbconv/internal/ndarray"
)

// Load reads a session export from path. A missing path is reported as
// SourceNotFound, an unreadable file as a load error, and a structurally
// malformed document as a malformed-load error.
func Load(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, converrors.SourceNotFound(path)
		}
		return nil, converrors.Load(path, err)
	}
	defer f.Close()

	rec, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, converrors.LoadMalformed(path, err.Error())
	}
	return rec, nil
}

// Decode parses a session export from r. The document must be a single
// JSON object; its member order is preserved in the returned record.
// MATLAB encodes NaN as null and logicals as booleans, so nulls inside
// numeric data become NaN and booleans become 0 or 1.
func Decode(r io.Reader) (*Record, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read document start: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("top level must be an object mapping channel names to records, got %v", tok)
	}

	rec, err := decodeObject(dec)
	if err != nil {
		return nil, err
	}

	switch _, err := dec.Token(); {
	case err == io.EOF:
	case err != nil:
		return nil, fmt.Errorf("read document end: %w", err)
	default:
		return nil, fmt.Errorf("trailing data after top-level object")
	}
	return rec, nil
}

// decodeObject consumes object members after the opening brace and
// returns them as an ordered record.
func decodeObject(dec *json.Decoder) (*Record, error) {
	rec := NewRecord()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read object key: %w", err)
		}
		if d, ok := tok.(json.Delim); ok {
			if d == '}' {
				return rec, nil
			}
			return nil, fmt.Errorf("unexpected delimiter %v inside object", d)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %T", tok)
		}

		field, err := decodeValue(dec, key)
		if err != nil {
			return nil, err
		}
		rec.Add(field)
	}
}

// decodeValue consumes one JSON value and maps it into a Field.
func decodeValue(dec *json.Decoder, name string) (Field, error) {
	tok, err := dec.Token()
	if err != nil {
		return Field{}, fmt.Errorf("read value of %q: %w", name, err)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			sub, err := decodeObject(dec)
			if err != nil {
				return Field{}, fmt.Errorf("field %q: %w", name, err)
			}
			return Field{Name: name, Kind: KindRecord, Record: sub}, nil
		case '[':
			elems, err := parseArray(dec)
			if err != nil {
				return Field{}, fmt.Errorf("field %q: %w", name, err)
			}
			return arrayField(name, elems)
		}
		return Field{}, fmt.Errorf("unexpected delimiter %v for field %q", v, name)
	case string:
		return Field{Name: name, Kind: KindText, Text: v}, nil
	case float64:
		return Field{Name: name, Kind: KindNumeric, Array: ndarray.Scalar(v)}, nil
	case bool:
		return Field{Name: name, Kind: KindNumeric, Array: ndarray.Scalar(boolValue(v))}, nil
	case nil:
		return Field{Name: name, Kind: KindNumeric, Array: ndarray.Scalar(math.NaN())}, nil
	}
	return Field{}, fmt.Errorf("unsupported value for field %q", name)
}

// node is one parsed array element before shape validation. A scalar
// node holds a number or a string; a non-scalar node holds the elements
// of a nested array.
type node struct {
	scalar bool
	text   bool
	value  float64
	str    string
	elems  []node
}

// parseArray consumes array elements after the opening bracket.
func parseArray(dec *json.Decoder) ([]node, error) {
	var elems []node
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read array element: %w", err)
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case ']':
				return elems, nil
			case '[':
				kids, err := parseArray(dec)
				if err != nil {
					return nil, err
				}
				elems = append(elems, node{elems: kids})
			case '{':
				return nil, fmt.Errorf("arrays of records are not supported")
			}
		case float64:
			elems = append(elems, node{scalar: true, value: v})
		case bool:
			elems = append(elems, node{scalar: true, value: boolValue(v)})
		case string:
			elems = append(elems, node{scalar: true, text: true, str: v})
		case nil:
			elems = append(elems, node{scalar: true, value: math.NaN()})
		}
	}
}

// arrayField validates parsed array elements and produces either a
// numeric array field or a string-list field.
func arrayField(name string, elems []node) (Field, error) {
	if len(elems) == 0 {
		return Field{Name: name, Kind: KindNumeric, Array: ndarray.FromVector(nil)}, nil
	}

	if elems[0].scalar && elems[0].text {
		strs := make([]string, len(elems))
		for i, e := range elems {
			if !e.scalar || !e.text {
				return Field{}, fmt.Errorf("field %q mixes text and numeric elements", name)
			}
			strs[i] = e.str
		}
		return Field{Name: name, Kind: KindStrings, Strings: strs}, nil
	}

	shape, data, err := flatten(elems)
	if err != nil {
		return Field{}, fmt.Errorf("field %q: %w", name, err)
	}
	arr, err := ndarray.New(shape, data)
	if err != nil {
		return Field{}, fmt.Errorf("field %q: %w", name, err)
	}
	return Field{Name: name, Kind: KindNumeric, Array: arr}, nil
}

// flatten converts a nesting of array elements into a shape vector and
// flat row-major data, rejecting ragged and mixed-type nestings.
func flatten(elems []node) ([]int, []float64, error) {
	if len(elems) == 0 {
		return []int{0}, nil, nil
	}

	if elems[0].scalar {
		data := make([]float64, len(elems))
		for i, e := range elems {
			if !e.scalar {
				return nil, nil, fmt.Errorf("ragged array: element %d is nested", i)
			}
			if e.text {
				return nil, nil, fmt.Errorf("mixed text and numeric elements")
			}
			data[i] = e.value
		}
		return []int{len(elems)}, data, nil
	}

	subShape, data, err := flatten(elems[0].elems)
	if err != nil {
		return nil, nil, err
	}
	for i, e := range elems[1:] {
		if e.scalar {
			return nil, nil, fmt.Errorf("ragged array: element %d is a scalar among nested rows", i+1)
		}
		shape, sub, err := flatten(e.elems)
		if err != nil {
			return nil, nil, err
		}
		if !shapeEqual(shape, subShape) {
			return nil, nil, fmt.Errorf("ragged array: element %d has shape %v, want %v", i+1, shape, subShape)
		}
		data = append(data, sub...)
	}
	return append([]int{len(elems)}, subShape...), data, nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
