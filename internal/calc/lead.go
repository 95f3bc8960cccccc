package calc

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LeadScale multiplies every lead matrix entry. Kept for compatibility with
// previously published lead matrices.
const LeadScale = 10

// cycDiff writes the circular first difference of x into dst:
// dst[0] = x[0] - x[T-1], dst[k] = x[k] - x[k-1].
func cycDiff(dst, x []float64) {
	n := len(x)
	if n == 0 {
		return
	}
	dst[0] = x[0] - x[n-1]
	for k := 1; k < n; k++ {
		dst[k] = x[k] - x[k-1]
	}
}

// LeadMatrix builds the antisymmetric lead matrix of a channels × time
// series: entry (i, j) is LeadScale * (x·Δy - y·Δx) for rows x = i, y = j with
// Δ the circular difference. The caller is expected to have end-matched the
// series.
func (p *PipeLine) LeadMatrix(data *mat.Dense) *mat.Dense {
	rows, cols := data.Dims()
	leadMat := mat.NewDense(rows, rows, nil)

	diffs := mat.NewDense(rows, max(cols, 1), nil)
	p.fanOut(rows, func(index int) {
		cycDiff(diffs.RawRowView(index)[:cols], data.RawRowView(index))
	})

	p.fanOut(rows, func(i int) {
		x, dx := data.RawRowView(i), diffs.RawRowView(i)[:cols]
		for j := i + 1; j < rows; j++ {
			y, dy := data.RawRowView(j), diffs.RawRowView(j)[:cols]
			d := LeadScale * (floats.Dot(x, dy) - floats.Dot(y, dx))
			leadMat.Set(i, j, d)
			leadMat.Set(j, i, -d)
		}
	})

	return leadMat
}

// CyclicAnalysis end-matches the series, builds its lead matrix and sorts it
// by conjugate pair p.
func (p *PipeLine) CyclicAnalysis(data *mat.Dense, pair int) (LeadResult, error) {
	return SortLeadMatrix(p.LeadMatrix(p.MatchEnds(data)), pair)
}
