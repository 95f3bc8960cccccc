package viz

import (
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
	"github.com/KyungWonPark/RestingConnectome/internal/filter"
)

// PlotTimeSeries renders the preprocessed series of the named ROIs (all of
// them when rois is empty) of one sample as a PNG line chart, time in seconds.
func (e *Explorer) PlotTimeSeries(w io.Writer, subject string, session connectome.Session, run connectome.Run, rois []string) error {
	samples, err := e.d.Select(subject, session, run)
	if err != nil {
		return err
	}
	s := samples[0]

	if len(rois) == 0 {
		rois = e.d.ROIs()
	}
	index := make(map[string]int)
	for i, name := range e.d.ROIs() {
		index[name] = i
	}

	_, cols := s.TimeSeries.Dims()
	seconds := make([]float64, cols)
	for t := range seconds {
		seconds[t] = float64(t) * filter.RepetitionTime
	}

	var series []chart.Series
	for k, name := range rois {
		row, ok := index[name]
		if !ok {
			return fmt.Errorf("channel %q: %w", name, connectome.ErrNotFound)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: seconds,
			YValues: append([]float64(nil), s.TimeSeries.RawRowView(row)...),
			Style:   chart.Style{StrokeColor: chart.GetDefaultColor(k)},
		})
	}

	graph := chart.Chart{
		Title:  s.String(),
		Width:  1024,
		Height: 384,
		XAxis:  chart.XAxis{Name: "time (s)"},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// Scatter renders the reduced samples as a PNG scatter plot, one color per
// gender.
func (e *Explorer) Scatter(w io.Writer, kind connectome.MatrixKind, method string) error {
	points, err := e.Reduce(kind, method)
	if err != nil {
		return err
	}

	groups := map[string]*chart.ContinuousSeries{}
	var order []string
	for _, p := range points {
		gender := p.Sample.Metadata.Gender()
		if gender == "" {
			gender = "unknown"
		}
		g, ok := groups[gender]
		if !ok {
			g = &chart.ContinuousSeries{
				Name: gender,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    5,
					DotColor:    genderColor(gender),
				},
			}
			groups[gender] = g
			order = append(order, gender)
		}
		g.XValues = append(g.XValues, p.X)
		g.YValues = append(g.YValues, p.Y)
	}

	series := make([]chart.Series, 0, len(order))
	for _, gender := range order {
		series = append(series, *groups[gender])
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s, %s", kind, method),
		Width:  768,
		Height: 768,
		XAxis:  chart.XAxis{Name: "component 1"},
		YAxis:  chart.YAxis{Name: "component 2"},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

func genderColor(gender string) drawing.Color {
	switch gender {
	case "M":
		return drawing.ColorBlue
	case "F":
		return drawing.ColorRed
	}
	return drawing.ColorBlack
}

// Heatmap renders one matrix of one sample as a PNG with cell×cell pixels per
// entry. Values map onto a blue-white-red scale symmetric around zero; NaN
// entries are gray.
func (e *Explorer) Heatmap(w io.Writer, s *connectome.Sample, kind connectome.MatrixKind, cell int) error {
	if kind == connectome.TimeSeries {
		return fmt.Errorf("heatmap of %v: %w", kind, connectome.ErrUsage)
	}
	if cell < 1 {
		cell = 1
	}

	m, err := s.Matrix(kind)
	if err != nil {
		return err
	}
	rows, cols := m.Dims()

	var scale float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := math.Abs(m.At(i, j)); !math.IsNaN(v) && v > scale {
				scale = v
			}
		}
	}
	if scale == 0 {
		scale = 1
	}

	dc := gg.NewContext(cols*cell, rows*cell)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			r, g, b := diverging(m.At(i, j) / scale)
			dc.SetRGB(r, g, b)
			dc.DrawRectangle(float64(j*cell), float64(i*cell), float64(cell), float64(cell))
			dc.Fill()
		}
	}

	return dc.EncodePNG(w)
}

// diverging maps x in [-1, 1] to blue (-1), white (0) and red (1).
func diverging(x float64) (r, g, b float64) {
	if math.IsNaN(x) {
		return 0.5, 0.5, 0.5
	}
	x = math.Max(-1, math.Min(1, x))
	if x < 0 {
		return 1 + x, 1 + x, 1
	}
	return 1, 1 - x, 1 - x
}
