package ndarray

import "fmt"

// Target axis conventions for EnsureTimeAxis. The container accepts two
// emission layouts: value data wants samples running down the leading
// axis, timestamp vectors want samples running along the second axis.
const (
	AxisRows = 1 // samples vary along the leading axis (n x 1 for vectors)
	AxisCols = 2 // samples vary along the second axis (1 x n for vectors)
)

// EnsureTimeAxis aligns the varies-with-time axis of a with the target
// axis convention. Vectors laid out against the target orientation are
// transposed; a flat vector is assigned the target orientation directly.
// Non-vector arrays are normalized with PermuteLongestLeading. The
// transform is pure layout: element values and count are never changed,
// and applying it to an already conforming array returns the array
// untouched.
func EnsureTimeAxis(a *Array, axis int) (*Array, error) {
	if axis != AxisRows && axis != AxisCols {
		return nil, fmt.Errorf("target time axis must be %d or %d, got %d", AxisRows, AxisCols, axis)
	}
	if a.IsEmpty() {
		return a, nil
	}
	if a.IsVector() {
		want := []int{a.Len(), 1}
		if axis == AxisCols {
			want = []int{1, a.Len()}
		}
		if shapeEqual(a.Shape, want) {
			return a, nil
		}
		// Vector transposition is a reshape: row-major data is identical
		// for n x 1 and 1 x n.
		return &Array{Shape: want, Data: a.Data}, nil
	}
	return PermuteLongestLeading(a), nil
}

// PermuteLongestLeading moves the longest dimension of a to axis 0,
// preserving the relative order of the remaining axes. The longest
// dimension is assumed to be the sample axis; this is a best-effort
// heuristic, not a guarantee, and ties keep the earlier axis so the
// transform stays idempotent. Arrays whose longest dimension already
// leads are returned untouched.
func PermuteLongestLeading(a *Array) *Array {
	nd := a.NDims()
	if nd < 2 {
		return a
	}
	longest := 0
	for i, d := range a.Shape {
		if d > a.Shape[longest] {
			longest = i
		}
	}
	if longest == 0 {
		return a
	}
	perm := make([]int, 0, nd)
	perm = append(perm, longest)
	for i := 0; i < nd; i++ {
		if i != longest {
			perm = append(perm, i)
		}
	}
	return a.permute(perm)
}

// Transpose swaps the two axes of a 2-D array. One-dimensional arrays
// are returned unchanged.
func Transpose(a *Array) *Array {
	if a.NDims() < 2 {
		return a
	}
	if a.NDims() != 2 {
		return PermuteLongestLeading(a)
	}
	return a.permute([]int{1, 0})
}

// permute reorders the axes of a so that new axis i carries old axis
// perm[i], rewriting the flat data into the new row-major layout.
func (a *Array) permute(perm []int) *Array {
	nd := len(a.Shape)
	newShape := make([]int, nd)
	for i, p := range perm {
		newShape[i] = a.Shape[p]
	}

	strides := make([]int, nd)
	s := 1
	for i := nd - 1; i >= 0; i-- {
		strides[i] = s
		s *= a.Shape[i]
	}

	out := make([]float64, len(a.Data))
	idx := make([]int, nd)
	for i := range out {
		off := 0
		for d := 0; d < nd; d++ {
			off += idx[d] * strides[perm[d]]
		}
		out[i] = a.Data[off]

		for d := nd - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < newShape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return &Array{Shape: newShape, Data: out}
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
