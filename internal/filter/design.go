// Package filter designs IIR filters and applies them without phase shift.
package filter

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownFilter is returned for names outside the catalog or unknown families.
	ErrUnknownFilter = errors.New("filter: unknown filter")
	// ErrBadCutoff is returned when cutoffs are not inside (0, Nyquist).
	ErrBadCutoff = errors.New("filter: cutoff outside (0, nyquist)")
	// ErrTooShort is returned when a series is too short for the filter padding.
	ErrTooShort = errors.New("filter: series too short")
)

// Family is an IIR filter design family.
type Family string

const (
	Bessel      Family = "bessel"
	Chebyshev2  Family = "chebyshev"
	Butterworth Family = "butterworth"
)

// stopbandAttenuation is the minimum stop-band attenuation (dB) for Chebyshev II.
const stopbandAttenuation = 4

// zpk is a filter in zeros, poles, gain form.
type zpk struct {
	z []complex128
	p []complex128
	k float64
}

func buttap(n int) zpk {
	p := make([]complex128, n)
	for i := range p {
		m := float64(-n + 1 + 2*i)
		p[i] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*n)))
	}
	return zpk{p: p, k: 1}
}

func cheb2ap(n int, rs float64) zpk {
	de := 1 / math.Sqrt(math.Pow(10, 0.1*rs)-1)
	mu := math.Asinh(1/de) / float64(n)

	var z []complex128
	for m := -n + 1; m < n; m += 2 {
		if m == 0 {
			continue
		}
		s := math.Sin(float64(m) * math.Pi / float64(2*n))
		z = append(z, -cmplx.Conj(complex(0, 1/s)))
	}

	p := make([]complex128, n)
	for i := range p {
		m := float64(-n + 1 + 2*i)
		q := -cmplx.Exp(complex(0, math.Pi*m/float64(2*n)))
		p[i] = 1 / complex(math.Sinh(mu)*real(q), math.Cosh(mu)*imag(q))
	}

	num, den := complex(1, 0), complex(1, 0)
	for _, v := range p {
		num *= -v
	}
	for _, v := range z {
		den *= -v
	}

	return zpk{z: z, p: p, k: real(num / den)}
}

// besselap returns the phase-normalized Bessel prototype: the roots of the
// reverse Bessel polynomial scaled so that its asymptotes match Butterworth.
func besselap(n int) (zpk, error) {
	// θ_n(s) = Σ a_k s^k, a_k = (2n-k)! / (2^(n-k) k! (n-k)!), monic in s^n
	coef := make([]float64, n+1)
	for k := 0; k <= n; k++ {
		lg := lfact(2*n-k) - lfact(k) - lfact(n-k) - float64(n-k)*math.Ln2
		coef[k] = math.Round(math.Exp(lg))
	}

	roots, err := polyRoots(coef)
	if err != nil {
		return zpk{}, err
	}

	scale := math.Pow(10, -math.Log10(coef[0])/float64(n))
	for i := range roots {
		roots[i] *= complex(scale, 0)
	}

	return zpk{p: roots, k: 1}, nil
}

func lfact(n int) float64 {
	v, _ := math.Lgamma(float64(n + 1))
	return v
}

// polyRoots returns the roots of the monic polynomial Σ coef[k] s^k as the
// eigenvalues of its companion matrix.
func polyRoots(coef []float64) ([]complex128, error) {
	n := len(coef) - 1
	if n == 1 {
		return []complex128{complex(-coef[0], 0)}, nil
	}

	companion := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		companion.Set(0, j, -coef[n-1-j]/coef[n])
	}
	for i := 1; i < n; i++ {
		companion.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return nil, errors.New("filter: bessel prototype roots did not converge")
	}
	return eig.Values(nil), nil
}

func prototype(family Family, order int) (zpk, error) {
	switch family {
	case Butterworth:
		return buttap(order), nil
	case Chebyshev2:
		return cheb2ap(order, stopbandAttenuation), nil
	case Bessel:
		return besselap(order)
	}
	return zpk{}, fmt.Errorf("family %q: %w", family, ErrUnknownFilter)
}

func lp2lp(f zpk, wo float64) zpk {
	degree := len(f.p) - len(f.z)
	out := zpk{k: f.k * math.Pow(wo, float64(degree))}
	for _, v := range f.z {
		out.z = append(out.z, v*complex(wo, 0))
	}
	for _, v := range f.p {
		out.p = append(out.p, v*complex(wo, 0))
	}
	return out
}

func lp2bp(f zpk, wo, bw float64) zpk {
	degree := len(f.p) - len(f.z)
	half := complex(bw/2, 0)
	wo2 := complex(wo*wo, 0)

	split := func(in []complex128) []complex128 {
		plus := make([]complex128, 0, 2*len(in))
		minus := make([]complex128, 0, len(in))
		for _, v := range in {
			v *= half
			r := cmplx.Sqrt(v*v - wo2)
			plus = append(plus, v+r)
			minus = append(minus, v-r)
		}
		return append(plus, minus...)
	}

	out := zpk{z: split(f.z), p: split(f.p), k: f.k * math.Pow(bw, float64(degree))}
	for i := 0; i < degree; i++ {
		out.z = append(out.z, 0)
	}
	return out
}

func bilinear(f zpk, fs float64) zpk {
	degree := len(f.p) - len(f.z)
	fs2 := complex(2*fs, 0)

	out := zpk{}
	num, den := complex(1, 0), complex(1, 0)
	for _, v := range f.z {
		out.z = append(out.z, (fs2+v)/(fs2-v))
		num *= fs2 - v
	}
	for _, v := range f.p {
		out.p = append(out.p, (fs2+v)/(fs2-v))
		den *= fs2 - v
	}
	for i := 0; i < degree; i++ {
		out.z = append(out.z, -1)
	}
	out.k = f.k * real(num/den)
	return out
}

// poly expands Π (x - r) into coefficients, highest power first.
func poly(roots []complex128) []float64 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}

// Design returns the transfer function coefficients (b, a) of a digital
// filter. Cutoffs are normalized to the Nyquist frequency. low <= 0 selects a
// low-pass at high, anything else a band-pass between low and high.
func Design(family Family, order int, low, high float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("order %d: %w", order, ErrUnknownFilter)
	}
	if high <= 0 || high >= 1 || low < 0 || low >= high {
		return nil, nil, fmt.Errorf("band [%g, %g]: %w", low, high, ErrBadCutoff)
	}

	proto, err := prototype(family, order)
	if err != nil {
		return nil, nil, err
	}

	const fs = 2.0
	warp := func(w float64) float64 { return 2 * fs * math.Tan(math.Pi*w/fs) }

	var analog zpk
	if low <= 0 {
		analog = lp2lp(proto, warp(high))
	} else {
		wl, wh := warp(low), warp(high)
		analog = lp2bp(proto, math.Sqrt(wl*wh), wh-wl)
	}

	digital := bilinear(analog, fs)

	b = poly(digital.z)
	for i := range b {
		b[i] *= digital.k
	}
	return b, poly(digital.p), nil
}
