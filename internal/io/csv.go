package io

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/mat"
)

// WriteCSV saves a matrix as a comma separated file, one matrix row per line.
// Rows are formatted in parallel, NumCPU lines at a time.
func WriteCSV(path string, matrix mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	rows, _ := matrix.Dims()

	stride := runtime.NumCPU()
	parsed := make([]string, stride)

	for row := 0; row < rows; row += stride {
		var wg sync.WaitGroup
		jobMark := stride

		if row+stride >= rows {
			jobMark = rows - row
		}

		wg.Add(jobMark)
		for offset := 0; offset < jobMark; offset++ {
			go formatLine(matrix, parsed, offset, row, &wg)
		}
		wg.Wait()

		for i := 0; i < jobMark; i++ {
			if _, err := fmt.Fprintf(w, "%s\n", parsed[i]); err != nil {
				return pfx.Err(err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

func formatLine(matrix mat.Matrix, parsed []string, offset int, row int, wg *sync.WaitGroup) {
	defer wg.Done()

	_, cols := matrix.Dims()
	fields := make([]string, cols)
	for i := 0; i < cols; i++ {
		fields[i] = strconv.FormatFloat(matrix.At(row+offset, i), 'g', -1, 64)
	}
	parsed[offset] = strings.Join(fields, ", ")
}

// ReadCSV loads a numeric CSV file written by WriteCSV (or any rectangular
// numeric CSV) into a matrix.
func ReadCSV(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	csvReader.TrimLeadingSpace = true
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}
	if len(records) == 0 {
		return nil, pfx.Err(fmt.Errorf("%s: no rows: %w", path, ErrShape))
	}

	rows, cols := len(records), len(records[0])
	matrix := mat.NewDense(rows, cols, nil)
	parseErrs := make([]error, rows)

	workers := runtime.NumCPU()
	order := make(chan int, workers)
	var wg sync.WaitGroup

	wg.Add(rows)

	for i := 0; i < workers; i++ {
		go parseLine(records, matrix, parseErrs, order, &wg)
	}

	for i := 0; i < rows; i++ {
		order <- i
	}

	wg.Wait()
	close(order)

	for i, err := range parseErrs {
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s line %d: %w", path, i+1, err))
		}
	}
	return matrix, nil
}

func parseLine(records [][]string, matrix *mat.Dense, parseErrs []error, order <-chan int, wg *sync.WaitGroup) {
	_, cols := matrix.Dims()

	for index := range order {
		record := records[index]
		if len(record) != cols {
			parseErrs[index] = fmt.Errorf("%d fields, want %d: %w", len(record), cols, ErrShape)
			wg.Done()
			continue
		}

		for i := 0; i < cols; i++ {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				parseErrs[index] = err
				break
			}
			matrix.Set(index, i, value)
		}

		wg.Done()
	}
}
