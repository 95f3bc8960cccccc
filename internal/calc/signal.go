package calc

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Trend selects the trend removal applied after mean-centering.
type Trend int

const (
	// TrendNone leaves the series as is.
	TrendNone Trend = iota
	// TrendLinear removes the least-squares line from every row.
	TrendLinear
)

// ParseTrend maps "none" (or "") and "linear" to a Trend.
func ParseTrend(name string) (Trend, bool) {
	switch name {
	case "", "none":
		return TrendNone, true
	case "linear":
		return TrendLinear, true
	}

	return TrendNone, false
}

func (t Trend) String() string {
	if t == TrendLinear {
		return "linear"
	}
	return "none"
}

// GSRegression regresses the global signal (the per-timepoint mean across
// channels) out of every channel of a channels × time series.
func (p *PipeLine) GSRegression(data *mat.Dense) *mat.Dense {
	rows, cols := data.Dims()

	g := make([]float64, cols)
	for i := 0; i < rows; i++ {
		floats.Add(g, data.RawRowView(i))
	}
	floats.Scale(1/float64(rows), g)

	// pinv of a column vector is its transpose over its squared norm; the
	// pseudo-inverse of a zero vector is zero.
	gg := floats.Dot(g, g)

	out := mat.DenseCopyOf(data)
	if gg == 0 {
		return out
	}

	p.fanOut(rows, func(index int) {
		row := out.RawRowView(index)
		beta := floats.Dot(g, row) / gg
		floats.AddScaled(row, -beta, g)
	})

	return out
}

// MeanCenter subtracts from every row its own mean.
func (p *PipeLine) MeanCenter(data *mat.Dense) *mat.Dense {
	rows, _ := data.Dims()
	out := mat.DenseCopyOf(data)

	p.fanOut(rows, func(index int) {
		row := out.RawRowView(index)
		floats.AddConst(-stat.Mean(row, nil), row)
	})

	return out
}

// Detrend removes the best-fit line from every row.
func (p *PipeLine) Detrend(data *mat.Dense) *mat.Dense {
	rows, cols := data.Dims()
	out := mat.DenseCopyOf(data)
	if cols < 2 {
		return out
	}

	xs := make([]float64, cols)
	floats.Span(xs, 0, float64(cols-1))

	p.fanOut(rows, func(index int) {
		row := out.RawRowView(index)
		alpha, beta := stat.LinearRegression(xs, row, nil, false)
		for t := range row {
			row[t] -= alpha + beta*xs[t]
		}
	})

	return out
}

// MatchEnds subtracts from each row the ramp (last - first) * linspace(0, 1, T)
// so that every row starts and ends on the same value.
func (p *PipeLine) MatchEnds(data *mat.Dense) *mat.Dense {
	rows, cols := data.Dims()
	out := mat.DenseCopyOf(data)
	if cols < 2 {
		return out
	}

	ramp := make([]float64, cols)
	floats.Span(ramp, 0, 1)

	p.fanOut(rows, func(index int) {
		row := out.RawRowView(index)
		floats.AddScaled(row, -(row[cols-1] - row[0]), ramp)
	})

	return out
}
