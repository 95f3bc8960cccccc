package calc

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Acc does accumulation: outputMat += inputMat, row by row.
func (p *PipeLine) Acc(inputMat *mat.Dense, outputMat *mat.Dense) error {
	inputRows, inputCols := inputMat.Dims()
	outputRows, outputCols := outputMat.Dims()

	if inputRows != outputRows || inputCols != outputCols {
		return fmt.Errorf("acc: input dims %d by %d, output dims %d by %d: %w", inputRows, inputCols, outputRows, outputCols, ErrDimensionMismatch)
	}

	p.fanOut(inputRows, func(index int) {
		floats.Add(outputMat.RawRowView(index), inputMat.RawRowView(index))
	})

	return nil
}
