package connectome

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KyungWonPark/RestingConnectome/internal/calc"
)

// cohort is the covariance of the flattened lead matrices across samples and
// its eigen-decomposition.
type cohort struct {
	covariance  *mat.SymDense
	projectors  *mat.Dense // columns are eigenvectors, strongest first
	eigenvalues []float64  // descending
	degenerate  bool
}

// newCohort takes, per sample, the strict upper triangle of the lead matrix
// as one observation. With fewer than 2 samples the covariance is zero and
// the projectors are the identity.
func newCohort(samples []*Sample, n int) (cohort, error) {
	m := calc.TriangleLen(n)
	if m == 0 {
		return cohort{degenerate: true}, nil
	}

	if len(samples) < 2 {
		ident := mat.NewDense(m, m, nil)
		for i := 0; i < m; i++ {
			ident.Set(i, i, 1)
		}
		return cohort{
			covariance:  mat.NewSymDense(m, nil),
			projectors:  ident,
			eigenvalues: make([]float64, m),
			degenerate:  true,
		}, nil
	}

	obs := mat.NewDense(len(samples), m, nil)
	for i, s := range samples {
		if k, _ := s.Lead.Dims(); k != n {
			return cohort{}, fmt.Errorf("sample %s has a %d × %d lead matrix, want %d: %w", s, k, k, n, ErrUsage)
		}
		calc.UpperTriangle(obs.RawRowView(i), s.Lead)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, obs, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return cohort{}, fmt.Errorf("cohort covariance: %w", calc.ErrEigen)
	}
	ascending := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	projectors := mat.NewDense(m, m, nil)
	eigenvalues := make([]float64, m)
	for k := 0; k < m; k++ {
		src := m - 1 - k
		eigenvalues[k] = ascending[src]
		for r := 0; r < m; r++ {
			projectors.Set(r, k, vectors.At(r, src))
		}
	}

	return cohort{covariance: &cov, projectors: projectors, eigenvalues: eigenvalues}, nil
}

// CohortCovariance is the covariance of the strict upper triangles of the
// live samples' lead matrices.
func (d *Dataset) CohortCovariance() *mat.SymDense { return d.cohort.covariance }

// Projectors are the eigenvectors of CohortCovariance as columns, in order of
// decreasing eigenvalue.
func (d *Dataset) Projectors() *mat.Dense { return d.cohort.projectors }

// CohortEigenvalues are the eigenvalues of CohortCovariance, descending.
func (d *Dataset) CohortEigenvalues() []float64 {
	return append([]float64(nil), d.cohort.eigenvalues...)
}

// CohortDegenerate reports that fewer than 2 live samples back the cohort
// covariance, so its content carries no information.
func (d *Dataset) CohortDegenerate() bool { return d.cohort.degenerate }

// Project maps a sample's flattened lead matrix onto the first k projectors.
func (d *Dataset) Project(s *Sample, k int) ([]float64, error) {
	if d.cohort.projectors == nil {
		return nil, fmt.Errorf("no cohort projectors: %w", ErrDegenerate)
	}
	m, _ := d.cohort.projectors.Dims()
	if k < 1 || k > m {
		return nil, fmt.Errorf("%d projectors of %d: %w", k, m, ErrUsage)
	}
	x := calc.UpperTriangle(nil, s.Lead)
	if len(x) != m {
		return nil, fmt.Errorf("sample %s has %d lead entries, projectors have %d: %w", s, len(x), m, ErrUsage)
	}

	out := make([]float64, k)
	for j := 0; j < k; j++ {
		out[j] = mat.Dot(mat.NewVecDense(m, x), d.cohort.projectors.ColView(j))
	}
	return out, nil
}

// Demographics counts unique subjects among the live samples.
type Demographics struct {
	Subjects int
	Males    int
	Females  int
	AgeBands map[string]int
	Series   int
}

func newDemographics(samples []*Sample) Demographics {
	subjects := make(map[string]bool)
	males := make(map[string]bool)
	females := make(map[string]bool)
	ages := make(map[string]map[string]bool)

	for _, s := range samples {
		subjects[s.Name] = true
		switch s.Metadata.Gender() {
		case "M":
			males[s.Name] = true
		case "F":
			females[s.Name] = true
		}
		if age := s.Metadata.Age(); age != "" {
			if ages[age] == nil {
				ages[age] = make(map[string]bool)
			}
			ages[age][s.Name] = true
		}
	}

	d := Demographics{
		Subjects: len(subjects),
		Males:    len(males),
		Females:  len(females),
		AgeBands: make(map[string]int, len(ages)),
		Series:   len(samples),
	}
	for age, names := range ages {
		d.AgeBands[age] = len(names)
	}
	return d
}

// Demographics of the live samples.
func (d *Dataset) Demographics() Demographics { return d.demo }

func (d *Dataset) String() string {
	if len(d.samples) == 0 {
		return "Empty RestingConnectome dataset"
	}

	rule := strings.Repeat("=", 80)
	lines := []string{
		rule,
		"\t\tRestingConnectome dataset",
		fmt.Sprintf("Number of unique subjects: %d", d.demo.Subjects),
		fmt.Sprintf("Number of men: %d", d.demo.Males),
		fmt.Sprintf("Number of women: %d", d.demo.Females),
		"",
	}

	bands := make([]string, 0, len(d.demo.AgeBands))
	for band := range d.demo.AgeBands {
		bands = append(bands, band)
	}
	sort.Strings(bands)
	for _, band := range bands {
		lines = append(lines, fmt.Sprintf("Number of subjects in age group '%s':\t%d", band, d.demo.AgeBands[band]))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total number of BOLD time series: %d", len(d.samples)),
		fmt.Sprintf("Channels: %d, normalization: %s, GSR: %t", len(d.rois), d.settings.norm.Description(), d.settings.gsr),
		rule,
	)
	return strings.Join(lines, "\n")
}

// MeanMatrix averages a matrix kind over the live samples matching session
// and run (empty matches all).
func (d *Dataset) MeanMatrix(kind MatrixKind, session Session, run Run) (*mat.Dense, error) {
	var acc *mat.Dense
	var count int
	for _, s := range d.samples {
		if !s.matches(session, run) {
			continue
		}
		m, err := s.Matrix(kind)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			r, c := m.Dims()
			acc = mat.NewDense(r, c, nil)
		}
		if err := d.pl.Acc(m, acc); err != nil {
			return nil, fmt.Errorf("sample %s: %w", s, ErrUsage)
		}
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("no samples in session %q run %q: %w", session, run, ErrNotFound)
	}

	if err := d.pl.Avg(acc, acc, float64(count)); err != nil {
		return nil, err
	}
	return acc, nil
}

// WilksLambda ranks the strict upper-triangle entries of a square matrix kind
// by how well the metadata attribute key separates the live samples. It
// returns the ascending lambda values and the matching (row, column) pairs.
func (d *Dataset) WilksLambda(kind MatrixKind, key string) ([]float64, [][2]int, error) {
	if kind == TimeSeries {
		return nil, nil, fmt.Errorf("wilks lambda over %v: %w", kind, ErrUsage)
	}
	if len(d.samples) == 0 {
		return nil, nil, fmt.Errorf("no live samples: %w", ErrNotFound)
	}

	first, err := d.samples[0].Matrix(kind)
	if err != nil {
		return nil, nil, err
	}
	n, _ := first.Dims()
	m := calc.TriangleLen(n)

	data := mat.NewDense(len(d.samples), m, nil)
	classes := make([]string, len(d.samples))
	for i, s := range d.samples {
		x, _ := s.Matrix(kind)
		if r, _ := x.Dims(); r != n {
			return nil, nil, fmt.Errorf("sample %s is stale: %w", s, ErrUsage)
		}
		calc.UpperTriangle(data.RawRowView(i), x)
		classes[i] = s.Metadata[key]
	}

	vals, order, err := calc.WilksLambda(data, classes)
	if err != nil {
		return nil, nil, err
	}

	pairs := make([][2]int, 0, m)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	at := make([][2]int, len(order))
	for k, idx := range order {
		at[k] = pairs[idx]
	}
	return vals, at, nil
}
