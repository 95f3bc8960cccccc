package calc

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Avg does averaging: outputMat = inputMat / div.
func (p *PipeLine) Avg(inputMat *mat.Dense, outputMat *mat.Dense, div float64) error {
	inputRows, inputCols := inputMat.Dims()
	outputRows, outputCols := outputMat.Dims()

	if inputRows != outputRows || inputCols != outputCols {
		return fmt.Errorf("avg: input dims %d by %d, output dims %d by %d: %w", inputRows, inputCols, outputRows, outputCols, ErrDimensionMismatch)
	}

	p.fanOut(inputRows, func(index int) {
		floats.ScaleTo(outputMat.RawRowView(index), 1/div, inputMat.RawRowView(index))
	})

	return nil
}
