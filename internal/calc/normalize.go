package calc

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Norm is a per-row normalization policy.
type Norm int

const (
	// NormNone leaves rows intact.
	NormNone Norm = iota
	// NormSquares scales every row to unit sum of squares.
	NormSquares
	// NormTV scales every row to unit total variation.
	NormTV
	// NormStd scales every row to unit (population) standard deviation.
	NormStd
)

var normNames = map[string]Norm{
	"":     NormNone,
	"none": NormNone,
	"sqr":  NormSquares,
	"tv":   NormTV,
	"std":  NormStd,
}

// ParseNorm maps a policy name (none, sqr, tv, std) to a Norm.
func ParseNorm(name string) (Norm, bool) {
	n, ok := normNames[name]
	return n, ok
}

func (n Norm) String() string {
	switch n {
	case NormSquares:
		return "sqr"
	case NormTV:
		return "tv"
	case NormStd:
		return "std"
	}
	return "none"
}

// Description is the human readable name of the policy.
func (n Norm) Description() string {
	switch n {
	case NormSquares:
		return "Unit Squares"
	case NormTV:
		return "Unit Total Variation"
	case NormStd:
		return "Unit Standard Deviation"
	}
	return "Leave Intact"
}

// TotalVariation is the sum of absolute successive differences of v.
func TotalVariation(v []float64) float64 {
	var acc float64
	for t := 1; t < len(v); t++ {
		acc += math.Abs(v[t] - v[t-1])
	}
	return acc
}

func (n Norm) rowNorm(row []float64) float64 {
	switch n {
	case NormSquares:
		return floats.Norm(row, 2)
	case NormTV:
		return TotalVariation(row)
	case NormStd:
		std, err := stats.StandardDeviationPopulation(stats.Float64Data(row))
		if err != nil {
			return 0
		}
		return std
	}
	return 1
}

// Normalize divides every row by its own norm under policy n. A row whose
// norm is zero (or not finite) fails the whole call with ErrDegenerate.
func (p *PipeLine) Normalize(inputMat *mat.Dense, n Norm) (*mat.Dense, error) {
	inputRows, _ := inputMat.Dims()
	outputMat := mat.DenseCopyOf(inputMat)
	if n == NormNone {
		return outputMat, nil
	}

	norms := make([]float64, inputRows)
	p.fanOut(inputRows, func(index int) {
		norms[index] = n.rowNorm(inputMat.RawRowView(index))
	})

	for index, norm := range norms {
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return nil, fmt.Errorf("row %d has %s norm %v: %w", index, n, norm, ErrDegenerate)
		}
	}

	p.fanOut(inputRows, func(index int) {
		floats.Scale(1/norms[index], outputMat.RawRowView(index))
	})

	return outputMat, nil
}
