// Package viz renders a connectome dataset: time series, matrix heatmaps and
// cohort scatter plots. It only reads the dataset.
package viz

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KyungWonPark/RestingConnectome/internal/calc"
	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

// ErrUnknownMethod is returned for dimensionality reductions other than pca
// and trunc_svd.
var ErrUnknownMethod = errors.New("viz: unknown reduction method")

// Explorer wraps a dataset for plotting.
type Explorer struct {
	d   *connectome.Dataset
	log logrus.FieldLogger
}

// NewExplorer returns an Explorer over d, logging through the dataset's logger.
func NewExplorer(d *connectome.Dataset) *Explorer {
	log := d.Config().Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Explorer{d: d, log: log}
}

// Methods lists the supported dimensionality reductions.
func Methods() []string { return []string{"pca", "trunc_svd"} }

// Point is one live sample placed in the plane.
type Point struct {
	Sample *connectome.Sample
	X, Y   float64
}

// Reduce flattens the strict upper triangle of the chosen matrix of every
// live sample and projects the samples onto their first two components.
// "pca" centers the features first, "trunc_svd" does not.
func (e *Explorer) Reduce(kind connectome.MatrixKind, method string) ([]Point, error) {
	if method != "pca" && method != "trunc_svd" {
		return nil, fmt.Errorf("%q (want one of %v): %w", method, Methods(), ErrUnknownMethod)
	}
	if kind == connectome.TimeSeries {
		return nil, fmt.Errorf("reduce %v: %w", kind, connectome.ErrUsage)
	}

	samples := e.d.Samples()
	if len(samples) < 2 {
		return nil, fmt.Errorf("%d live samples: %w", len(samples), connectome.ErrDegenerate)
	}

	var data *mat.Dense
	for i, s := range samples {
		m, err := s.Matrix(kind)
		if err != nil {
			return nil, err
		}
		row := calc.UpperTriangle(nil, m)
		if data == nil {
			data = mat.NewDense(len(samples), len(row), nil)
		}
		if _, cols := data.Dims(); cols != len(row) {
			return nil, fmt.Errorf("sample %s is stale: %w", s, connectome.ErrUsage)
		}
		data.SetRow(i, row)
	}

	rows, cols := data.Dims()
	if cols < 2 {
		return nil, fmt.Errorf("%d features: %w", cols, connectome.ErrDegenerate)
	}

	var scores mat.Dense
	switch method {
	case "pca":
		var pc stat.PC
		if ok := pc.PrincipalComponents(data, nil); !ok {
			return nil, fmt.Errorf("pca: %w", calc.ErrEigen)
		}
		var vecs mat.Dense
		pc.VectorsTo(&vecs)

		centered := mat.DenseCopyOf(data)
		for j := 0; j < cols; j++ {
			col := mat.Col(nil, j, data)
			mean := stat.Mean(col, nil)
			for i := 0; i < rows; i++ {
				centered.Set(i, j, col[i]-mean)
			}
		}
		scores.Mul(centered, vecs.Slice(0, cols, 0, 2))
	case "trunc_svd":
		var svd mat.SVD
		if ok := svd.Factorize(data, mat.SVDThin); !ok {
			return nil, fmt.Errorf("trunc_svd: %w", calc.ErrEigen)
		}
		var v mat.Dense
		svd.VTo(&v)
		scores.Mul(data, v.Slice(0, cols, 0, 2))
	}

	points := make([]Point, rows)
	for i, s := range samples {
		points[i] = Point{Sample: s, X: scores.At(i, 0), Y: scores.At(i, 1)}
	}

	e.log.WithFields(logrus.Fields{"kind": kind.String(), "method": method, "samples": rows}).Debug("samples reduced")
	return points, nil
}
