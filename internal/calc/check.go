package calc

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SymCheck checks symmetry within pre
func (p *PipeLine) SymCheck(matrix mat.Matrix, pre float64) bool {
	return p.mirrorCheck(matrix, math.Abs(pre), 1)
}

// AntisymCheck checks m[i][j] == -m[j][i] within pre, including a zero diagonal.
// With pre == 0 the check is exact.
func (p *PipeLine) AntisymCheck(matrix mat.Matrix, pre float64) bool {
	return p.mirrorCheck(matrix, math.Abs(pre), -1)
}

func (p *PipeLine) mirrorCheck(matrix mat.Matrix, pre float64, sign float64) bool {
	rows, cols := matrix.Dims()
	if rows != cols {
		return false
	}

	isMirrored := make([]bool, rows)

	p.fanOut(rows, func(index int) {
		isMirrored[index] = true
		for i := index; i < cols; i++ {
			if math.Abs(matrix.At(index, i)-sign*matrix.At(i, index)) > pre {
				isMirrored[index] = false
				break
			}
		}
	})

	for _, ok := range isMirrored {
		if !ok {
			return false
		}
	}

	return true
}
