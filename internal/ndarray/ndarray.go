// Package ndarray provides the numeric array model shared by the record
// loader, the field classifier, and the container assembler.
//
// An Array couples a shape vector with a flat row-major data slice. The
// package also implements the orientation normalizer: layout transforms
// that align the "varies with time" axis of an array with the axis
// convention a caller requires, without ever changing element values or
// element count.
package ndarray

import (
	"fmt"
	"math"
)

// Array is an n-dimensional numeric array. Data is stored flat in
// row-major order; Shape always has at least one dimension.
type Array struct {
	Shape []int
	Data  []float64
}

// New creates an array from a shape and flat row-major data. The product
// of the shape dimensions must match the data length.
func New(shape []int, data []float64) (*Array, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("array shape must have at least one dimension")
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension %d in shape %v", d, shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, got %d", shape, n, len(data))
	}
	return &Array{Shape: append([]int(nil), shape...), Data: data}, nil
}

// FromVector wraps a flat slice as a one-dimensional array.
func FromVector(data []float64) *Array {
	return &Array{Shape: []int{len(data)}, Data: data}
}

// Scalar wraps a single value as a one-element array.
func Scalar(v float64) *Array {
	return &Array{Shape: []int{1}, Data: []float64{v}}
}

// Len returns the total number of elements.
func (a *Array) Len() int {
	return len(a.Data)
}

// NDims returns the number of dimensions.
func (a *Array) NDims() int {
	return len(a.Shape)
}

// Rows returns the extent of the leading axis. After orientation
// correction the leading axis is the sample axis.
func (a *Array) Rows() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// IsEmpty reports whether the array holds no elements.
func (a *Array) IsEmpty() bool {
	return len(a.Data) == 0
}

// IsVector reports whether at most one dimension has extent greater than
// one, i.e. the array is a line of values regardless of how it is laid
// out ([n], [1 n], [n 1], or a scalar).
func (a *Array) IsVector() bool {
	wide := 0
	for _, d := range a.Shape {
		if d > 1 {
			wide++
		}
	}
	return wide <= 1
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	return &Array{
		Shape: append([]int(nil), a.Shape...),
		Data:  append([]float64(nil), a.Data...),
	}
}

// Range returns the minimum and maximum element values, skipping NaN
// entries. An empty or all-NaN array yields (NaN, NaN). Used for the
// structural diagnostics attached to skipped channels.
func (a *Array) Range() (min, max float64) {
	min, max = math.NaN(), math.NaN()
	for _, v := range a.Data {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return min, max
}

// ShapeString renders the shape as "r x c x ..." for diagnostics.
func (a *Array) ShapeString() string {
	s := ""
	for i, d := range a.Shape {
		if i > 0 {
			s += "x"
		}
		s += fmt.Sprintf("%d", d)
	}
	return s
}
