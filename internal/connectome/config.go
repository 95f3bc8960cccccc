package connectome

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/KyungWonPark/RestingConnectome/internal/calc"
	"github.com/KyungWonPark/RestingConnectome/internal/filter"
)

// Config selects the preprocessing and ordering applied to every sample.
type Config struct {
	// Norm is one of "none", "sqr", "tv", "std".
	Norm string
	// Trend is one of "none", "linear". It is recorded only: every series is
	// linearly detrended.
	Trend string
	// GSR enables global signal regression.
	GSR bool
	// Filter is empty or a filter catalog name (band1, band2, low_pass, causal_band).
	Filter string
	// EigenIndex selects the conjugate eigen pair (from 1, strongest first)
	// whose eigenvector phases order the channels.
	EigenIndex int
	// Workers bounds how many samples are processed at once; < 1 means NumCPU.
	Workers int
	Logger  logrus.FieldLogger
}

// DefaultConfig is unit-squares normalization, linear detrending, no GSR and
// no filter, ordered by the strongest eigen pair.
func DefaultConfig() Config {
	return Config{Norm: "sqr", Trend: "linear", EigenIndex: 1}
}

// settings is a Config with every name resolved.
type settings struct {
	norm   calc.Norm
	trend  calc.Trend
	gsr    bool
	filter filter.Filter
	pair   int
}

func (c Config) resolve() (settings, error) {
	var s settings
	var ok bool

	if s.norm, ok = calc.ParseNorm(c.Norm); !ok {
		return s, fmt.Errorf("normalization %q: %w", c.Norm, ErrConfig)
	}
	if s.trend, ok = calc.ParseTrend(c.Trend); !ok {
		return s, fmt.Errorf("trend removal %q: %w", c.Trend, ErrConfig)
	}
	if c.Filter != "" && c.Filter != "none" {
		f, err := filter.New(c.Filter)
		if err != nil {
			return s, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		s.filter = f
	}

	s.pair = c.EigenIndex
	if s.pair == 0 {
		s.pair = 1
	}
	if s.pair < 0 {
		return s, fmt.Errorf("eigen index %d: %w", c.EigenIndex, ErrConfig)
	}
	s.gsr = c.GSR

	return s, nil
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return runtime.NumCPU()
	}
	return c.Workers
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
