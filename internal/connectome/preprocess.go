package connectome

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/RestingConnectome/internal/calc"
	"github.com/KyungWonPark/RestingConnectome/internal/filter"
)

// Preprocess turns a raw channels × time series into the series every matrix
// is derived from: optional global signal regression, mean-centering, linear
// detrending, then normalization.
//
// When a filter is configured the filter runs on the centered, detrended
// series and the normalization step is skipped: filtered output is never
// normalized.
func Preprocess(pl *calc.PipeLine, raw *mat.Dense, cfg Config) (*mat.Dense, error) {
	s, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return s.preprocess(pl, raw)
}

func (st settings) preprocess(pl *calc.PipeLine, raw *mat.Dense) (*mat.Dense, error) {
	if _, cols := raw.Dims(); cols < 2 {
		return nil, fmt.Errorf("%d time points: %w", cols, ErrUsage)
	}

	series := raw
	if st.gsr {
		series = pl.GSRegression(series)
	}

	detrended := pl.Detrend(pl.MeanCenter(series))

	if st.filter != nil {
		filtered, err := filter.ApplyRows(st.filter, detrended)
		if err != nil {
			if errors.Is(err, filter.ErrTooShort) {
				return nil, fmt.Errorf("%w: %v", ErrUsage, err)
			}
			return nil, err
		}
		return filtered, nil
	}

	normed, err := pl.Normalize(detrended, st.norm)
	if err != nil {
		if errors.Is(err, calc.ErrDegenerate) {
			return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
		}
		return nil, err
	}
	return normed, nil
}

// derive recomputes every matrix of s from its time series.
func (st settings) derive(pl *calc.PipeLine, s *Sample) error {
	cov, err := pl.Covariance(s.TimeSeries)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	corr, err := pl.Pearson(s.TimeSeries)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	lead, err := pl.CyclicAnalysis(s.TimeSeries, st.pair)
	if err != nil {
		if errors.Is(err, calc.ErrBadEigenIndex) {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
		return err
	}

	fused, err := calc.FusedOrder(cov, lead.Lead)
	if err != nil {
		return err
	}

	s.Lead = lead.Lead
	s.Sorted = lead.Sorted
	s.Phases = lead.Phases
	s.Permutation = lead.Permutation
	s.Eigenvalues = lead.Eigenvalues
	s.Covariance = cov
	s.Correlation = corr
	s.FusedPhases = fused.Phases
	s.FusedPermutation = fused.Permutation
	s.FusedEigenvalues = fused.Eigenvalues
	s.stale = false

	return nil
}
