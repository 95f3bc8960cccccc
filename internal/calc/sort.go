package calc

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// LeadResult is the outcome of sorting a lead matrix.
type LeadResult struct {
	Lead        *mat.Dense
	Phases      []complex128 // selected eigenvector
	Angles      []float64    // phase of every Phases component in [0, 2π)
	Permutation []int
	Sorted      *mat.Dense
	Eigenvalues []complex128
}

// EigenColumn returns the eigenvector column used for conjugate pair p.
// Pairs are counted from 1 in order of decreasing eigenvalue modulus and the
// member with positive imaginary part comes first, so pair p lives in column
// 2p-2. For an N × N matrix, p must satisfy 1 <= p and 2p-1 < N, so the
// unpaired real eigenvector of an odd-sized matrix is never selected.
func EigenColumn(p, n int) (int, error) {
	col := 2*p - 2
	if p < 1 || col+1 >= n {
		return 0, fmt.Errorf("pair %d of a %d × %d matrix: %w", p, n, n, ErrBadEigenIndex)
	}
	return col, nil
}

// orderedEigen factorizes a and returns its eigenvalues and right
// eigenvectors ordered by decreasing modulus, conjugate pairs adjacent with the
// positive imaginary member first.
func orderedEigen(a mat.Matrix) ([]complex128, *mat.CDense, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenRight); !ok {
		return nil, nil, ErrEigen
	}

	values := eig.Values(nil)
	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	n := len(values)
	const relTol = 1e-9
	scale := 0.0
	for _, v := range values {
		scale = math.Max(scale, cmplx.Abs(v))
	}
	tol := relTol * scale

	// Conjugate pairs come out of the factorization adjacent and are sorted
	// as one unit.
	type group struct {
		cols    []int
		modulus float64
	}
	groups := make([]group, 0, n)
	for i := 0; i < n; i++ {
		v := values[i]
		if i+1 < n && math.Abs(imag(v)) > tol && cmplx.Abs(values[i+1]-cmplx.Conj(v)) <= tol {
			cols := []int{i, i + 1}
			if imag(v) < 0 {
				cols = []int{i + 1, i}
			}
			groups = append(groups, group{cols: cols, modulus: cmplx.Abs(v)})
			i++
			continue
		}
		groups = append(groups, group{cols: []int{i}, modulus: cmplx.Abs(v)})
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ga, gb := groups[a], groups[b]
		if math.Abs(ga.modulus-gb.modulus) > tol {
			return ga.modulus > gb.modulus
		}
		return len(ga.cols) > len(gb.cols)
	})

	idx := make([]int, 0, n)
	for _, g := range groups {
		idx = append(idx, g.cols...)
	}

	sortedValues := make([]complex128, n)
	sortedVectors := mat.NewCDense(n, n, nil)
	for dst, src := range idx {
		sortedValues[dst] = values[src]
		for r := 0; r < n; r++ {
			sortedVectors.Set(r, dst, vectors.At(r, src))
		}
	}

	return sortedValues, sortedVectors, nil
}

// Angle returns the phase of z reduced into [0, 2π).
func Angle(z complex128) float64 {
	a := math.Mod(cmplx.Phase(z), 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

// CircularOrder orders points on the circle starting right after the largest
// gap between neighbouring angles. Ties between equal gaps go to the first
// one in ascending angle order. The returned slice is a permutation of the
// input indices.
func CircularOrder(angles []float64) []int {
	n := len(angles)
	if n == 0 {
		return []int{}
	}

	sorted := append([]float64(nil), angles...)
	sort.Float64s(sorted)

	shift, widest := 0, math.Inf(-1)
	for k := 0; k < n; k++ {
		var gap float64
		if k == n-1 {
			gap = sorted[0] + 2*math.Pi - sorted[k]
		} else {
			gap = sorted[k+1] - sorted[k]
		}
		if math.Abs(gap) > widest {
			shift, widest = k, math.Abs(gap)
		}
	}
	origin := sorted[(shift+1)%n]

	rel := make([]float64, n)
	perm := make([]int, n)
	for i, a := range angles {
		rel[i] = math.Mod(math.Mod(a-origin, 2*math.Pi)+2*math.Pi, 2*math.Pi)
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return rel[perm[a]] < rel[perm[b]]
	})

	return perm
}

// SortLeadMatrix derives the canonical channel ordering of a lead matrix from
// the phases of the eigenvector of conjugate pair p (see EigenColumn) and
// applies it to rows and columns.
func SortLeadMatrix(leadMat *mat.Dense, p int) (LeadResult, error) {
	n, _ := leadMat.Dims()
	col, err := EigenColumn(p, n)
	if err != nil {
		return LeadResult{}, err
	}

	values, vectors, err := orderedEigen(leadMat)
	if err != nil {
		return LeadResult{}, err
	}

	phases := make([]complex128, n)
	angles := make([]float64, n)
	for r := 0; r < n; r++ {
		phases[r] = vectors.At(r, col)
		angles[r] = Angle(phases[r])
	}

	perm := CircularOrder(angles)

	return LeadResult{
		Lead:        leadMat,
		Phases:      phases,
		Angles:      angles,
		Permutation: perm,
		Sorted:      Permute(leadMat, perm),
		Eigenvalues: values,
	}, nil
}

// Permute returns m with rows and columns reordered: out[a][b] = m[perm[a]][perm[b]].
func Permute(m mat.Matrix, perm []int) *mat.Dense {
	n := len(perm)
	out := mat.NewDense(n, n, nil)
	for a, pa := range perm {
		for b, pb := range perm {
			out.Set(a, b, m.At(pa, pb))
		}
	}
	return out
}

// InversePermutation returns q with q[perm[i]] = i.
func InversePermutation(perm []int) []int {
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return inv
}

// IsPermutation reports whether perm is a bijection on {0, ..., len(perm)-1}.
func IsPermutation(perm []int) bool {
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
