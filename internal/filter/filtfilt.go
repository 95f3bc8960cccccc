package filter

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// IIR is a digital filter in transfer function form, a[0] == 1.
type IIR struct {
	B, A []float64
}

// NewIIR normalizes (b, a) by a[0] and pads both to the same length.
func NewIIR(b, a []float64) (*IIR, error) {
	if len(a) == 0 || a[0] == 0 || len(b) == 0 {
		return nil, fmt.Errorf("transfer function with a[0] = 0: %w", ErrUnknownFilter)
	}

	n := max(len(a), len(b))
	f := &IIR{B: make([]float64, n), A: make([]float64, n)}
	for i, v := range b {
		f.B[i] = v / a[0]
	}
	for i, v := range a {
		f.A[i] = v / a[0]
	}
	return f, nil
}

// padLen is the number of samples reflected at each edge before filtering.
func (f *IIR) padLen() int {
	return 3 * len(f.A)
}

// steadyState returns the initial state of a step response in steady state:
// the solution zi of (I - Cᵀ) zi = b[1:] - a[1:]·b[0], C the companion matrix of a.
func (f *IIR) steadyState() ([]float64, error) {
	n := len(f.A) - 1
	if n == 0 {
		return nil, nil
	}

	iMinusA := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		iMinusA.Set(i, i, 1)
		iMinusA.Set(i, 0, iMinusA.At(i, 0)+f.A[i+1])
		if i+1 < n {
			iMinusA.Set(i, i+1, -1)
		}
		rhs.SetVec(i, f.B[i+1]-f.A[i+1]*f.B[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(iMinusA, rhs); err != nil {
		return nil, fmt.Errorf("filter initial conditions: %w", err)
	}
	return zi.RawVector().Data, nil
}

// lfilter runs the direct form II transposed recursion over x with initial
// state scale·zi.
func (f *IIR) lfilter(x []float64, zi []float64, scale float64) []float64 {
	n := len(f.A)
	z := make([]float64, n)
	for i, v := range zi {
		z[i] = v * scale
	}

	y := make([]float64, len(x))
	for t, xt := range x {
		yt := f.B[0]*xt + z[0]
		for i := 0; i < n-2; i++ {
			z[i] = f.B[i+1]*xt + z[i+1] - f.A[i+1]*yt
		}
		if n > 1 {
			z[n-2] = f.B[n-1]*xt - f.A[n-1]*yt
		}
		y[t] = yt
	}
	return y
}

// Apply filters x forward and backward, so the output has no phase shift.
// The edges are extended by odd reflection over padLen samples and both
// passes start from the steady state of the edge value.
func (f *IIR) Apply(x []float64) ([]float64, error) {
	edge := f.padLen()
	if len(x) <= edge {
		return nil, fmt.Errorf("%d samples, need more than %d: %w", len(x), edge, ErrTooShort)
	}

	zi, err := f.steadyState()
	if err != nil {
		return nil, err
	}

	ext := oddExtend(x, edge)
	y := f.lfilter(ext, zi, ext[0])
	reverse(y)
	y = f.lfilter(y, zi, y[0])
	reverse(y)

	return y[edge : len(y)-edge], nil
}

func oddExtend(x []float64, edge int) []float64 {
	n := len(x)
	ext := make([]float64, 0, n+2*edge)
	for i := edge; i > 0; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := n - 2; i > n-2-edge; i-- {
		ext = append(ext, 2*x[n-1]-x[i])
	}
	return ext
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
