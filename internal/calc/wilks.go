package calc

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// WilksLambda computes, for every feature (column) of data, the ratio of the
// within-class scatter to the total scatter, with observations in rows and
// classes giving the label of every row. It returns the ratios in ascending
// order together with the feature index of each. Classes with a single member
// contribute no within-class scatter.
func WilksLambda(data mat.Matrix, classes []string) ([]float64, []int, error) {
	rows, cols := data.Dims()
	if rows != len(classes) {
		return nil, nil, fmt.Errorf("wilks lambda with %d observations and %d labels: %w", rows, len(classes), ErrDimensionMismatch)
	}

	members := make(map[string][]int)
	for i, c := range classes {
		members[c] = append(members[c], i)
	}

	vals := make([]float64, cols)
	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(column, j, data)
		total := stat.Variance(column, nil) * float64(rows-1)

		var within float64
		for _, idx := range members {
			if len(idx) < 2 {
				continue
			}
			group := make([]float64, len(idx))
			for k, i := range idx {
				group[k] = column[i]
			}
			within += stat.Variance(group, nil) * float64(len(idx)-1)
		}

		vals[j] = within / total
	}

	order := make([]int, cols)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return vals[order[a]] < vals[order[b]]
	})

	sorted := make([]float64, cols)
	for k, j := range order {
		sorted[k] = vals[j]
	}

	return sorted, order, nil
}
