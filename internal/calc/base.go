package calc

import (
	"errors"
	"runtime"
	"sync"
)

var (
	// ErrDimensionMismatch is returned when operand shapes disagree.
	ErrDimensionMismatch = errors.New("calc: dimension mismatch")
	// ErrTooShort is returned for time series with fewer than two time points.
	ErrTooShort = errors.New("calc: time series too short")
	// ErrDegenerate is returned when a row cannot be normalized.
	ErrDegenerate = errors.New("calc: degenerate row")
	// ErrEigen is returned when an eigen-decomposition fails to converge.
	ErrEigen = errors.New("calc: eigen-decomposition failed")
	// ErrBadEigenIndex is returned when the requested conjugate pair does not exist.
	ErrBadEigenIndex = errors.New("calc: eigenvector index out of range")
)

// PipeLine represents a compute pipeline. Row-wise kernels are handed to
// numPoper goroutines through an order channel, one row index at a time.
// A PipeLine holds no per-call state and may be shared between goroutines.
type PipeLine struct {
	numPoper int
}

// Init returns a compute PipeLine. numPoper < 1 means runtime.NumCPU().
func Init(numPoper int) *PipeLine {
	if numPoper < 1 {
		numPoper = runtime.NumCPU()
	}

	return &PipeLine{numPoper: numPoper}
}

// GetNP returns the number of row workers
func (p *PipeLine) GetNP() int {
	return p.numPoper
}

// fanOut runs job once for every index in [0, rows) and waits for all of them.
func (p *PipeLine) fanOut(rows int, job func(index int)) {
	if rows == 0 {
		return
	}

	workers := p.numPoper
	if workers > rows {
		workers = rows
	}

	order := make(chan int, workers)
	var wg sync.WaitGroup

	wg.Add(rows)

	for i := 0; i < workers; i++ {
		go func() {
			for index := range order {
				job(index)
				wg.Done()
			}
		}()
	}

	for i := 0; i < rows; i++ {
		order <- i
	}

	wg.Wait()
	close(order)
}

type statistic struct {
	avg float64
	std float64
}
