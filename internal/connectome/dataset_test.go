package connectome_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/RestingConnectome/internal/calc"
	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

var (
	rois    = []string{"A", "B", "C", "D"}
	offsets = []float64{0, math.Pi / 4, math.Pi / 2, 3 * math.Pi / 4}
)

// wave is one period of cos(2πt/T + shift - offset) per ROI.
func wave(code string, names []string, period int, shift float64) connectome.Scan {
	series := make(map[string][]float64, len(names))
	for k, name := range names {
		x := make([]float64, period)
		for t := range x {
			x[t] = math.Cos(2*math.Pi*float64(t)/float64(period) + shift - offsets[k%len(offsets)])
		}
		series[name] = x
	}
	return connectome.ScanFromMap(code, series)
}

func cohortOf(n, period int) []connectome.Subject {
	subjects := make([]connectome.Subject, n)
	for i := range subjects {
		gender := "M"
		if i%2 == 1 {
			gender = "F"
		}
		subjects[i] = connectome.Subject{
			Name:     fmt.Sprintf("s%d", i),
			Scans:    []connectome.Scan{wave("REST1_LR", rois, period, 0.3*float64(i))},
			Metadata: connectome.Metadata{"Gender": gender, "Age": "22-25"},
		}
	}
	return subjects
}

func quietConfig() (connectome.Config, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	cfg := connectome.DefaultConfig()
	cfg.Logger = logger
	cfg.Workers = 2
	return cfg, hook
}

type DatasetSuite struct {
	suite.Suite
	ctx  context.Context
	cfg  connectome.Config
	hook *test.Hook
	d    *connectome.Dataset
}

func (s *DatasetSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg, s.hook = quietConfig()

	d, err := connectome.New(s.ctx, cohortOf(3, 20), s.cfg)
	require.NoError(s.T(), err)
	s.d = d
}

func TestDatasetSuite(t *testing.T) {
	suite.Run(t, new(DatasetSuite))
}

func (s *DatasetSuite) TestEndToEndOrdering() {
	t := s.T()
	require.Equal(t, 3, s.d.Len())
	require.Equal(t, rois, s.d.ROIs())
	assert.Equal(t, []connectome.Session{connectome.Session1}, s.d.Sessions())
	assert.Equal(t, []connectome.Run{connectome.Run1}, s.d.Runs())

	pl := calc.Init(1)
	for _, sample := range s.d.Samples() {
		assert.True(t, pl.AntisymCheck(sample.Lead, 0), sample.String())
		require.True(t, calc.IsPermutation(sample.Permutation), sample.String())
		// A has the smallest offset and leads, the phase order follows
		assert.Equal(t, []int{0, 1, 2, 3}, sample.Permutation, sample.String())
		assert.True(t, calc.IsPermutation(sample.FusedPermutation), sample.String())

		r, c := sample.TimeSeries.Dims()
		assert.Equal(t, 4, r)
		assert.Equal(t, 20, c)
	}

	assert.False(t, s.d.CohortDegenerate())
	m, _ := s.d.CohortCovariance().Dims()
	assert.Equal(t, 6, m)
	eig := s.d.CohortEigenvalues()
	require.Len(t, eig, 6)
	for k := 1; k < len(eig); k++ {
		assert.GreaterOrEqual(t, eig[k-1], eig[k])
	}
	assert.NotEmpty(t, s.hook.AllEntries())
}

func (s *DatasetSuite) TestUnitSquaresSeries() {
	for _, sample := range s.d.Samples() {
		rows, _ := sample.TimeSeries.Dims()
		for i := 0; i < rows; i++ {
			row := sample.TimeSeries.RawRowView(i)
			s.InDelta(1, floats.Dot(row, row), 1e-9)
		}
	}
}

func (s *DatasetSuite) TestRemoveChannel() {
	t := s.T()
	require.NoError(t, s.d.RemoveChannel("B"))

	assert.Equal(t, []string{"A", "C", "D"}, s.d.ROIs())
	assert.True(t, s.d.Stale())
	for _, sample := range s.d.Samples() {
		r, _ := sample.TimeSeries.Dims()
		assert.Equal(t, 3, r)
		lr, _ := sample.Lead.Dims()
		assert.Equal(t, 4, lr, "lead matrix is stale until Recompute")
	}

	require.NoError(t, s.d.Recompute(s.ctx))
	assert.False(t, s.d.Stale())
	for _, sample := range s.d.Samples() {
		lr, _ := sample.Lead.Dims()
		assert.Equal(t, 3, lr)
	}
	m, _ := s.d.CohortCovariance().Dims()
	assert.Equal(t, 3, m)
}

func (s *DatasetSuite) TestRemoveUnknownChannel() {
	t := s.T()
	err := s.d.RemoveChannel("Z")
	require.ErrorIs(t, err, connectome.ErrNotFound)

	assert.Equal(t, rois, s.d.ROIs())
	assert.False(t, s.d.Stale())
	for _, sample := range s.d.Samples() {
		r, _ := sample.TimeSeries.Dims()
		assert.Equal(t, 4, r)
	}
}

func (s *DatasetSuite) TestRemoveChannelKeepsTwo() {
	t := s.T()
	require.NoError(t, s.d.RemoveChannel("A"))
	require.NoError(t, s.d.RemoveChannel("B"))
	require.ErrorIs(t, s.d.RemoveChannel("C"), connectome.ErrUsage)
	assert.Equal(t, []string{"C", "D"}, s.d.ROIs())
}

func (s *DatasetSuite) TestRecomputeAllOrNothing() {
	t := s.T()
	span := connectome.Span{Start: 0, Stop: 10}
	require.NoError(t, s.d.EditTimeSeries("s0", connectome.Session1, connectome.Run1, span))
	require.NoError(t, s.d.EditTimeSeries("s1", connectome.Session1, connectome.Run1, span))

	good, err := s.d.Select("s0", "", "")
	require.NoError(t, err)
	lead := good[0].Lead

	bad, err := s.d.Select("s1", "", "")
	require.NoError(t, err)
	r, _ := bad[0].TimeSeries.Dims()
	bad[0].TimeSeries = mat.NewDense(r, 1, nil)

	require.ErrorIs(t, s.d.Recompute(s.ctx), connectome.ErrUsage)
	assert.True(t, good[0].Stale(), "no sample is committed when another fails")
	assert.Same(t, lead, good[0].Lead)
	assert.True(t, s.d.Stale())
}

func (s *DatasetSuite) TestAddRemoveRoundTrip() {
	t := s.T()
	before := s.d.CohortCovariance()

	require.NoError(t, s.d.RemoveSubjects("s1"))
	assert.Equal(t, 2, s.d.Len())
	require.Len(t, s.d.Deleted(), 1)
	assert.Equal(t, "s1", s.d.Deleted()[0].Name)

	require.NoError(t, s.d.AddSubjects("s1"))
	assert.Empty(t, s.d.Deleted())

	var names []string
	for _, sample := range s.d.Samples() {
		names = append(names, sample.Name)
	}
	assert.ElementsMatch(t, []string{"s0", "s1", "s2"}, names)

	after := s.d.CohortCovariance()
	n, _ := before.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.InDelta(t, before.At(i, j), after.At(i, j), 1e-9)
		}
	}
}

func (s *DatasetSuite) TestModSamplesAllOrNothing() {
	t := s.T()
	err := s.d.ModSamples(connectome.OpRemove, []string{"s0", "nobody"})
	require.ErrorIs(t, err, connectome.ErrNotFound)
	assert.Equal(t, 3, s.d.Len())
	assert.Empty(t, s.d.Deleted())

	require.ErrorIs(t, s.d.AddSubjects("s0"), connectome.ErrNotFound)
	require.ErrorIs(t, s.d.ModSamples(connectome.OpRemove, nil), connectome.ErrUsage)
	require.ErrorIs(t, s.d.ModSamples(connectome.Op(7), []string{"s0"}), connectome.ErrUsage)
}

func (s *DatasetSuite) TestRemoveAllSamples() {
	t := s.T()
	require.NoError(t, s.d.RemoveSubjects("s0", "s1", "s2"))
	assert.Equal(t, 0, s.d.Len())
	assert.True(t, s.d.CohortDegenerate())
	assert.Empty(t, s.d.Sessions())
	assert.Equal(t, "Empty RestingConnectome dataset", s.d.String())

	require.NoError(t, s.d.AddSubjects("s2"))
	assert.Equal(t, 1, s.d.Len())
	assert.True(t, s.d.CohortDegenerate())
}

func (s *DatasetSuite) TestEditTimeSeries() {
	t := s.T()
	require.NoError(t, s.d.EditTimeSeries("s0", connectome.Session1, connectome.Run1, connectome.Span{Start: 2, Stop: 12}))

	got, err := s.d.Select("s0", connectome.Session1, connectome.Run1)
	require.NoError(t, err)
	_, c := got[0].TimeSeries.Dims()
	assert.Equal(t, 10, c)
	assert.True(t, got[0].Stale())

	err = s.d.EditTimeSeries("s1", connectome.Session1, connectome.Run1, connectome.Spans{{Start: 0, Stop: 5}, {Start: 10, Stop: 15}})
	require.NoError(t, err)
	got, err = s.d.Select("s1", "", "")
	require.NoError(t, err)
	_, c = got[0].TimeSeries.Dims()
	assert.Equal(t, 10, c)

	require.NoError(t, s.d.Recompute(s.ctx))
	assert.False(t, s.d.Stale())
}

func (s *DatasetSuite) TestEditTimeSeriesRejects() {
	t := s.T()
	edit := func(subject string, sel connectome.Selection) error {
		return s.d.EditTimeSeries(subject, connectome.Session1, connectome.Run1, sel)
	}

	assert.ErrorIs(t, edit("s0", nil), connectome.ErrUsage)
	assert.ErrorIs(t, edit("s0", connectome.Span{Start: 5, Stop: 3}), connectome.ErrUsage)
	assert.ErrorIs(t, edit("s0", connectome.Span{Start: 0, Stop: 40}), connectome.ErrUsage)
	assert.ErrorIs(t, edit("s0", connectome.Span{Start: 3, Stop: 4}), connectome.ErrUsage)
	assert.ErrorIs(t, edit("s0", connectome.Spans{}), connectome.ErrUsage)
	assert.ErrorIs(t, edit("nobody", connectome.Span{Start: 0, Stop: 10}), connectome.ErrNotFound)
	assert.ErrorIs(t, s.d.EditTimeSeries("s0", connectome.Session2, connectome.Run1, connectome.Span{Start: 0, Stop: 10}), connectome.ErrNotFound)

	assert.False(t, s.d.Stale())
	for _, sample := range s.d.Samples() {
		_, c := sample.TimeSeries.Dims()
		assert.Equal(t, 20, c)
	}
}

func (s *DatasetSuite) TestSummaries() {
	t := s.T()
	demo := s.d.Demographics()
	assert.Equal(t, 3, demo.Subjects)
	assert.Equal(t, 2, demo.Males)
	assert.Equal(t, 1, demo.Females)
	assert.Equal(t, map[string]int{"22-25": 3}, demo.AgeBands)
	assert.Contains(t, s.d.String(), "Number of unique subjects: 3")

	mean, err := s.d.MeanMatrix(connectome.LeadMatrix, connectome.Session1, "")
	require.NoError(t, err)
	assert.True(t, calc.Init(1).AntisymCheck(mean, 1e-12))

	_, err = s.d.MeanMatrix(connectome.LeadMatrix, connectome.Session2, "")
	assert.ErrorIs(t, err, connectome.ErrNotFound)

	vals, pairs, err := s.d.WilksLambda(connectome.CorrelationMatrix, "Gender")
	require.NoError(t, err)
	assert.Len(t, vals, 6)
	assert.Len(t, pairs, 6)

	proj, err := s.d.Project(s.d.Samples()[0], 2)
	require.NoError(t, err)
	assert.Len(t, proj, 2)
}

func TestParseMatrixKind(t *testing.T) {
	k, err := connectome.ParseMatrixKind("crm")
	require.NoError(t, err)
	assert.Equal(t, connectome.CorrelationMatrix, k)
	assert.Equal(t, "SLM", connectome.SortedLeadMatrix.String())

	_, err = connectome.ParseMatrixKind("FHM2")
	assert.ErrorIs(t, err, connectome.ErrUsage)
}

func TestROIMismatch(t *testing.T) {
	cfg, _ := quietConfig()
	ctx := context.Background()

	renamed := cohortOf(2, 20)
	renamed[1].Scans[0] = wave("REST1_LR", []string{"A", "B", "C", "E"}, 20, 0)
	d, err := connectome.New(ctx, renamed, cfg)
	assert.ErrorIs(t, err, connectome.ErrROIMismatch)
	assert.Nil(t, d)

	shrunk := cohortOf(2, 20)
	shrunk[1].Scans[0] = wave("REST1_LR", []string{"A", "B", "C"}, 20, 0)
	d, err = connectome.New(ctx, shrunk, cfg)
	assert.ErrorIs(t, err, connectome.ErrROIMismatch)
	assert.Nil(t, d)
}

func TestConstructionErrors(t *testing.T) {
	ctx := context.Background()

	for name, mutate := range map[string]func(*connectome.Config){
		"norm":   func(c *connectome.Config) { c.Norm = "l3" },
		"trend":  func(c *connectome.Config) { c.Trend = "cubic" },
		"filter": func(c *connectome.Config) { c.Filter = "band9" },
		"pair":   func(c *connectome.Config) { c.EigenIndex = 3 },
	} {
		cfg, _ := quietConfig()
		mutate(&cfg)
		_, err := connectome.New(ctx, cohortOf(2, 20), cfg)
		assert.ErrorIs(t, err, connectome.ErrConfig, name)
	}

	cfg, _ := quietConfig()
	_, err := connectome.New(ctx, nil, cfg)
	assert.ErrorIs(t, err, connectome.ErrUsage)

	bad := cohortOf(1, 20)
	bad[0].Scans[0].Code = "REST3_LR"
	_, err = connectome.New(ctx, bad, cfg)
	assert.ErrorIs(t, err, connectome.ErrUsage)
}

func TestEigenPairNeedsChannels(t *testing.T) {
	ctx := context.Background()
	cfg, _ := quietConfig()
	cfg.EigenIndex = 2

	three := cohortOf(2, 20)
	for i := range three {
		three[i].Scans[0] = wave("REST1_LR", []string{"A", "B", "C"}, 20, 0.3*float64(i))
	}
	_, err := connectome.New(ctx, three, cfg)
	assert.ErrorIs(t, err, connectome.ErrConfig)

	d, err := connectome.New(ctx, cohortOf(2, 20), cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, d.RemoveChannel("B"), connectome.ErrUsage)
	assert.Equal(t, rois, d.ROIs())
	assert.False(t, d.Stale())
}

func TestZeroNormChannel(t *testing.T) {
	cfg, _ := quietConfig()
	subjects := cohortOf(1, 20)
	scan := &subjects[0].Scans[0]
	for k := range scan.Series[0] {
		scan.Series[0][k] = 7
	}

	_, err := connectome.New(context.Background(), subjects, cfg)
	assert.ErrorIs(t, err, connectome.ErrDegenerate)
}

func TestSingleSampleCohort(t *testing.T) {
	cfg, hook := quietConfig()
	d, err := connectome.New(context.Background(), cohortOf(1, 20), cfg)
	require.NoError(t, err)

	assert.True(t, d.CohortDegenerate())
	m, _ := d.CohortCovariance().Dims()
	assert.Equal(t, 6, m)
	assert.Equal(t, make([]float64, 6), d.CohortEigenvalues())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

// A configured filter runs on the centered, detrended series and the
// normalization step is skipped.
func TestFilterSkipsNormalization(t *testing.T) {
	cfg, _ := quietConfig()
	cfg.Norm = "sqr"
	cfg.Filter = "band2"

	d, err := connectome.New(context.Background(), cohortOf(2, 100), cfg)
	require.NoError(t, err)

	for _, sample := range d.Samples() {
		row := sample.TimeSeries.RawRowView(0)
		assert.Greater(t, floats.Dot(row, row), 2.0)
	}

	cfg.Filter = ""
	plain, err := connectome.New(context.Background(), cohortOf(2, 100), cfg)
	require.NoError(t, err)
	row := plain.Samples()[0].TimeSeries.RawRowView(0)
	assert.InDelta(t, 1, floats.Dot(row, row), 1e-9)
}
