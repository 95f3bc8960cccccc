package calc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func getStat(timeSeriesMat *mat.Dense, stats []statistic, index int) {
	row := timeSeriesMat.RawRowView(index)
	numCols := float64(len(row))

	avgVal := floats.Sum(row) / numCols
	avgSqrVal := floats.Dot(row, row) / numCols

	stats[index].avg = avgVal
	stats[index].std = math.Sqrt(math.Max(avgSqrVal-(avgVal*avgVal), 0))
}

func (p *PipeLine) stats(timeSeriesMat *mat.Dense) []statistic {
	rows, _ := timeSeriesMat.Dims()
	stats := make([]statistic, rows)

	p.fanOut(rows, func(index int) {
		getStat(timeSeriesMat, stats, index)
	})

	return stats
}

// covariance fills the population covariance of every channel pair. Each
// worker owns the upper-triangle row "from" and its mirrored column.
func (p *PipeLine) covariance(timeSeriesMat *mat.Dense, stats []statistic, emit func(from, to int, cov float64)) {
	inputRows, inputCols := timeSeriesMat.Dims()

	p.fanOut(inputRows, func(from int) {
		x := timeSeriesMat.RawRowView(from)
		for to := from; to < inputRows; to++ {
			accProd := floats.Dot(x, timeSeriesMat.RawRowView(to))
			cov := (accProd / float64(inputCols)) - (stats[from].avg * stats[to].avg)
			emit(from, to, cov)
		}
	})
}

// Covariance returns the channel covariance matrix of a channels × time
// series, with the unbiased estimator scaled by the number of time points.
func (p *PipeLine) Covariance(timeSeriesMat *mat.Dense) (*mat.Dense, error) {
	inputRows, inputCols := timeSeriesMat.Dims()
	if inputCols < 2 {
		return nil, fmt.Errorf("covariance of %d time points: %w", inputCols, ErrTooShort)
	}

	outputMat := mat.NewDense(inputRows, inputRows, nil)
	t := float64(inputCols)
	scale := t * t / (t - 1)

	p.covariance(timeSeriesMat, p.stats(timeSeriesMat), func(from, to int, cov float64) {
		outputMat.Set(from, to, cov*scale)
		outputMat.Set(to, from, cov*scale)
	})

	return outputMat, nil
}

// Pearson does Pearson's correlation calculation. Channels with zero variance
// get NaN rows and columns.
func (p *PipeLine) Pearson(timeSeriesMat *mat.Dense) (*mat.Dense, error) {
	inputRows, inputCols := timeSeriesMat.Dims()
	if inputCols < 2 {
		return nil, fmt.Errorf("correlation of %d time points: %w", inputCols, ErrTooShort)
	}

	outputMat := mat.NewDense(inputRows, inputRows, nil)
	stats := p.stats(timeSeriesMat)

	p.covariance(timeSeriesMat, stats, func(from, to int, cov float64) {
		pearson := cov / (stats[from].std * stats[to].std)
		if stats[from].std == 0 || stats[to].std == 0 {
			pearson = math.NaN()
		} else if from == to {
			pearson = 1
		}

		outputMat.Set(from, to, pearson)
		outputMat.Set(to, from, pearson)
	})

	return outputMat, nil
}
