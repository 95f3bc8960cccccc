package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// gainAt evaluates |H(e^{iω})| of a transfer function.
func gainAt(b, a []float64, w float64) float64 {
	eval := func(c []float64) complex128 {
		var acc complex128
		for k, v := range c {
			acc += complex(v, 0) * complex(math.Cos(-w*float64(k)), math.Sin(-w*float64(k)))
		}
		return acc
	}
	num, den := eval(b), eval(a)
	return math.Hypot(real(num/den), imag(num/den))
}

func TestDesignButterworthLowPass(t *testing.T) {
	b, a, err := Design(Butterworth, 2, 0, 0.5)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.29289322, 0.58578644, 0.29289322}, b, 1e-8)
	assert.InDeltaSlice(t, []float64{1, 0, 0.17157288}, a, 1e-8)
}

func TestDesignLowPassGain(t *testing.T) {
	for _, family := range []Family{Bessel, Butterworth} {
		b, a, err := Design(family, 5, 0, 0.3)
		require.NoError(t, err, family)

		assert.InDelta(t, 1, gainAt(b, a, 0), 1e-9, "%s DC gain", family)
		assert.InDelta(t, 0, gainAt(b, a, math.Pi), 1e-9, "%s Nyquist gain", family)
		assert.Equal(t, 1.0, a[0])
	}

	// Chebyshev II is normalized to unit DC gain
	b, a, err := Design(Chebyshev2, 5, 0, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 1, gainAt(b, a, 0), 1e-9)
}

func TestDesignBandPassGain(t *testing.T) {
	b, a, err := Design(Bessel, 5, 0.1, 0.4)
	require.NoError(t, err)
	require.Len(t, a, 11)

	assert.InDelta(t, 0, gainAt(b, a, 0), 1e-9)
	assert.InDelta(t, 0, gainAt(b, a, math.Pi), 1e-9)
	assert.Greater(t, gainAt(b, a, 0.2*math.Pi), 0.5)
}

func TestDesignErrors(t *testing.T) {
	_, _, err := Design(Bessel, 5, 0, 1.2)
	assert.ErrorIs(t, err, ErrBadCutoff)
	_, _, err = Design(Bessel, 5, 0.5, 0.4)
	assert.ErrorIs(t, err, ErrBadCutoff)
	_, _, err = Design("elliptic", 5, 0, 0.4)
	assert.ErrorIs(t, err, ErrUnknownFilter)
	_, _, err = Design(Bessel, 0, 0, 0.4)
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestIIRApplyConstant(t *testing.T) {
	b, a, err := Design(Bessel, 5, 0, 0.3)
	require.NoError(t, err)
	f, err := NewIIR(b, a)
	require.NoError(t, err)

	x := make([]float64, 100)
	floats.AddConst(2.5, x)
	y, err := f.Apply(x)
	require.NoError(t, err)
	require.Len(t, y, len(x))
	for _, v := range y {
		assert.InDelta(t, 2.5, v, 1e-9)
	}
}

func TestIIRApplyTooShort(t *testing.T) {
	f, err := New("band1")
	require.NoError(t, err)

	_, err = f.Apply(make([]float64, 33))
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestCatalog(t *testing.T) {
	assert.Equal(t, []string{"band1", "band2", "causal_band", "low_pass"}, Presets())

	for _, name := range Presets() {
		f, err := New(name)
		require.NoError(t, err, name)
		require.NotNil(t, f, name)
	}

	_, err := New("band3")
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestApplyRowsBandPass(t *testing.T) {
	f, err := New("band2")
	require.NoError(t, err)

	const cols = 120
	data := mat.NewDense(2, cols, nil)
	for k := 0; k < cols; k++ {
		// a 0.07 Hz oscillation on an offset
		v := math.Sin(2 * math.Pi * float64(k) / 20)
		data.Set(0, k, 3+v)
		data.Set(1, k, 3-v)
	}

	out, err := ApplyRows(f, data)
	require.NoError(t, err)
	r, c := out.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, cols, c)

	for i := 0; i < 2; i++ {
		y, err := f.Apply(data.RawRowView(i))
		require.NoError(t, err)
		assert.Equal(t, y, out.RawRowView(i))
	}
	// the in-band oscillation survives
	assert.Greater(t, floats.Max(out.RawRowView(0)[20:100]), 0.5)
}

func TestCausalBand(t *testing.T) {
	f, err := New("causal_band")
	require.NoError(t, err)

	x := make([]float64, 64)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * float64(i) / 16)
	}
	y, err := f.Apply(x)
	require.NoError(t, err)
	assert.Len(t, y, len(x))

	_, err = f.Apply([]float64{1})
	assert.ErrorIs(t, err, ErrTooShort)
}
