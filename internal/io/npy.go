package io

import (
	"bytes"
	"fmt"
	stdio "io"

	"github.com/carbocation/pfx"
	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"
)

// WriteNpy writes a matrix to a numpy .npy file, row major.
func WriteNpy(path string, matrix mat.Matrix) error {
	dense := mat.DenseCopyOf(matrix)
	rows, cols := dense.Dims()

	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return pfx.Err(err)
	}
	w.Shape = []int{rows, cols}
	w.Version = 2
	if err := w.WriteFloat64(dense.RawMatrix().Data); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}

// WriteVector writes a 1-D numpy .npy file.
func WriteVector(path string, data []float64) error {
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return pfx.Err(err)
	}
	w.Shape = []int{len(data)}
	w.Version = 2
	if err := w.WriteFloat64(data); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}

// ReadNpy reads a 1-D or 2-D numpy .npy file as a matrix. A 1-D array
// becomes a single row.
func ReadNpy(path string) (*mat.Dense, error) {
	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	rows, cols, data, err := decode(r)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	return mat.NewDense(rows, cols, data), nil
}

// readSeries reads one 1-D .npy array from r.
func readSeries(r stdio.Reader) ([]float64, error) {
	// gonpy pulls the payload lazily, so the whole entry is buffered first
	raw, err := stdio.ReadAll(r)
	if err != nil {
		return nil, err
	}
	npy, err := gonpy.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	rows, _, data, err := decode(npy)
	if err != nil {
		return nil, err
	}
	if rows != 1 {
		return nil, fmt.Errorf("want a 1-D series, got shape %v: %w", npy.Shape, ErrShape)
	}
	return data, nil
}

// decode returns the array as row-major float64 data.
func decode(r *gonpy.NpyReader) (int, int, []float64, error) {
	var rows, cols int
	switch len(r.Shape) {
	case 1:
		rows, cols = 1, r.Shape[0]
	case 2:
		rows, cols = r.Shape[0], r.Shape[1]
	default:
		return 0, 0, nil, fmt.Errorf("shape %v: %w", r.Shape, ErrShape)
	}

	var data []float64
	switch r.Dtype {
	case "f8":
		d, err := r.GetFloat64()
		if err != nil {
			return 0, 0, nil, err
		}
		data = d
	case "f4":
		d, err := r.GetFloat32()
		if err != nil {
			return 0, 0, nil, err
		}
		data = make([]float64, len(d))
		for i, v := range d {
			data[i] = float64(v)
		}
	default:
		return 0, 0, nil, fmt.Errorf("dtype %q: %w", r.Dtype, ErrShape)
	}

	if r.ColumnMajor && rows > 1 {
		rowMajor := make([]float64, len(data))
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				rowMajor[i*cols+j] = data[j*rows+i]
			}
		}
		data = rowMajor
	}

	return rows, cols, data, nil
}
