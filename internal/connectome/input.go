package connectome

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Scan is the raw ROI time series of one scan: Series[i] belongs to ROIs[i].
type Scan struct {
	Code   string
	ROIs   []string
	Series [][]float64
}

// Subject is everything acquired for one subject.
type Subject struct {
	Name     string
	Scans    []Scan
	Metadata Metadata
}

// ScanFromMap builds a Scan from an ROI → series mapping, ROIs in lexical order.
func ScanFromMap(code string, rois map[string][]float64) Scan {
	names := make([]string, 0, len(rois))
	for name := range rois {
		names = append(names, name)
	}
	sort.Strings(names)

	scan := Scan{Code: code, ROIs: names, Series: make([][]float64, len(names))}
	for i, name := range names {
		scan.Series[i] = rois[name]
	}
	return scan
}

// matrix arranges the scan as a channels × time matrix in the given channel
// order. The scan must hold exactly the ROIs of order.
func (s Scan) matrix(order []string) (*mat.Dense, error) {
	if len(s.ROIs) != len(s.Series) {
		return nil, fmt.Errorf("scan %s: %d ROI names for %d series: %w", s.Code, len(s.ROIs), len(s.Series), ErrUsage)
	}

	index := make(map[string]int, len(s.ROIs))
	for i, name := range s.ROIs {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("scan %s: ROI %q listed twice: %w", s.Code, name, ErrROIMismatch)
		}
		index[name] = i
	}
	if len(index) != len(order) {
		return nil, fmt.Errorf("scan %s: %d ROIs, want %d: %w", s.Code, len(index), len(order), ErrROIMismatch)
	}

	var cols int
	if len(s.Series) > 0 {
		cols = len(s.Series[0])
	}
	if cols == 0 {
		return nil, fmt.Errorf("scan %s: empty time series: %w", s.Code, ErrUsage)
	}

	out := mat.NewDense(len(order), cols, nil)
	for row, name := range order {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("scan %s: ROI %q missing: %w", s.Code, name, ErrROIMismatch)
		}
		if len(s.Series[i]) != cols {
			return nil, fmt.Errorf("scan %s: ROI %q has %d time points, want %d: %w", s.Code, name, len(s.Series[i]), cols, ErrUsage)
		}
		out.SetRow(row, s.Series[i])
	}
	return out, nil
}
