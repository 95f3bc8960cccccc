package calc

import "gonum.org/v1/gonum/mat"

// TriangleLen is the number of strictly upper-triangular entries of an n × n matrix.
func TriangleLen(n int) int {
	return n * (n - 1) / 2
}

// UpperTriangle flattens the strict upper triangle of m, row by row, into dst
// (allocated when nil).
func UpperTriangle(dst []float64, m mat.Matrix) []float64 {
	n, _ := m.Dims()
	if dst == nil {
		dst = make([]float64, 0, TriangleLen(n))
	}
	dst = dst[:0]
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dst = append(dst, m.At(i, j))
		}
	}
	return dst
}
