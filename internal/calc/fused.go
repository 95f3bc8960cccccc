package calc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FusedResult is the ordering derived from the Hermitian matrix cov + i·lead.
type FusedResult struct {
	Phases      []complex128 // eigenvector of the largest eigenvalue
	Angles      []float64
	Permutation []int
	Eigenvalues []float64 // descending
}

// FusedOrder orders channels by the dominant eigenvector of the Hermitian
// matrix H = cov + i·lead. H is factorized through its real symmetric
// embedding [[cov, -lead], [lead, cov]], whose spectrum is that of H with every
// eigenvalue doubled; an embedding eigenvector [u; w] maps to u + i·w.
func FusedOrder(cov, lead mat.Matrix) (FusedResult, error) {
	n, c := cov.Dims()
	ln, lc := lead.Dims()
	if n != c || ln != n || lc != n {
		return FusedResult{}, fmt.Errorf("fused matrix of %d×%d and %d×%d: %w", n, c, ln, lc, ErrDimensionMismatch)
	}

	embed := mat.NewSymDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a := 0.5 * (cov.At(i, j) + cov.At(j, i))
			embed.SetSym(i, j, a)
			embed.SetSym(n+i, n+j, a)
		}
		for j := 0; j < n; j++ {
			// lower-left block is lead, upper-right is its negation
			embed.SetSym(n+i, j, lead.At(i, j))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(embed, true); !ok {
		return FusedResult{}, ErrEigen
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// ascending order: the dominant pair sits at the end
	top := 2*n - 1
	phases := make([]complex128, n)
	angles := make([]float64, n)
	for r := 0; r < n; r++ {
		phases[r] = complex(vectors.At(r, top), vectors.At(n+r, top))
		angles[r] = Angle(phases[r])
	}

	eigenvalues := make([]float64, n)
	for k := 0; k < n; k++ {
		eigenvalues[k] = values[top-2*k]
	}

	return FusedResult{
		Phases:      phases,
		Angles:      angles,
		Permutation: CircularOrder(angles),
		Eigenvalues: eigenvalues,
	}, nil
}
