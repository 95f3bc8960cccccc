package filter

import (
	"fmt"
	"math"

	"github.com/jfcg/butter"
)

// causalBand chains first-order Butterworth high- and low-pass sections.
// Running it forward then backward cancels the phase shift of each pass.
type causalBand struct {
	highWc, lowWc float64
}

func newCausalBand(low, high, sampleRate float64) (*causalBand, error) {
	c := &causalBand{
		highWc: 2 * math.Pi * low / sampleRate,
		lowWc:  2 * math.Pi * high / sampleRate,
	}
	// butter rejects cutoffs outside (.0001, π)
	if butter.NewHighPass1(c.highWc) == nil || butter.NewLowPass1(c.lowWc) == nil {
		return nil, fmt.Errorf("causal band [%g, %g] Hz at %g Hz: %w", low, high, sampleRate, ErrBadCutoff)
	}
	return c, nil
}

func (c *causalBand) pass(x []float64) []float64 {
	high := butter.NewHighPass1(c.highWc)
	low := butter.NewLowPass1(c.lowWc)

	y := make([]float64, len(x))
	for t, v := range x {
		y[t] = high.Next(low.Next(v))
	}
	return y
}

func (c *causalBand) Apply(x []float64) ([]float64, error) {
	if len(x) < 2 {
		return nil, fmt.Errorf("%d samples: %w", len(x), ErrTooShort)
	}

	y := c.pass(x)
	reverse(y)
	y = c.pass(y)
	reverse(y)
	return y, nil
}
