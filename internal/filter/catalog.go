package filter

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// RepetitionTime is the acquisition interval (seconds) of the resting-state runs.
const RepetitionTime = 0.72

// Filter is a resolved zero-phase filter ready to apply to a single channel.
type Filter interface {
	Apply(x []float64) ([]float64, error)
}

// Preset describes one catalog entry.
type Preset struct {
	Name       string
	Family     Family // empty for the causal preset
	Order      int
	LowCut     float64 // Hz, 0 for low-pass
	HighCut    float64 // Hz
	SampleRate float64 // Hz
	Causal     bool
}

var catalog = map[string]Preset{
	"band1":       {Name: "band1", Family: Bessel, Order: 5, LowCut: 0.008, HighCut: 0.08, SampleRate: 1 / RepetitionTime},
	"band2":       {Name: "band2", Family: Bessel, Order: 5, LowCut: 0.008, HighCut: 0.5, SampleRate: 1 / RepetitionTime},
	"low_pass":    {Name: "low_pass", Family: Bessel, Order: 5, HighCut: 0.6, SampleRate: 1 / RepetitionTime},
	"causal_band": {Name: "causal_band", Order: 1, LowCut: 0.008, HighCut: 0.08, SampleRate: 1 / RepetitionTime, Causal: true},
}

// Presets lists the catalog names in lexical order.
func Presets() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (Preset, error) {
	p, ok := catalog[name]
	if !ok {
		return Preset{}, fmt.Errorf("%q (known: %v): %w", name, Presets(), ErrUnknownFilter)
	}
	return p, nil
}

// Resolve designs the filter of a catalog entry.
func (p Preset) Resolve() (Filter, error) {
	if p.Causal {
		return newCausalBand(p.LowCut, p.HighCut, p.SampleRate)
	}

	nyq := 0.5 * p.SampleRate
	b, a, err := Design(p.Family, p.Order, p.LowCut/nyq, p.HighCut/nyq)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return NewIIR(b, a)
}

// New looks up and resolves a catalog filter by name.
func New(name string) (Filter, error) {
	p, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Resolve()
}

// ApplyRows filters every row of a channels × time series.
func ApplyRows(f Filter, data *mat.Dense) (*mat.Dense, error) {
	rows, cols := data.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		y, err := f.Apply(data.RawRowView(i))
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		out.SetRow(i, y)
	}
	return out, nil
}
