// Package io reads scan archives and subject metadata from disk and writes
// derived matrices back out as .npy and CSV files.
package io

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	stdio "io"
	"os"
	"path"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

var (
	// ErrShape is returned for arrays of unexpected rank or dtype.
	ErrShape = errors.New("io: unexpected array shape")
	// ErrEmptyArchive is returned for .npz files without any .npy entry.
	ErrEmptyArchive = errors.New("io: archive holds no arrays")
)

// eocd opens the end of central directory record, the first thing in a zip
// archive without entries.
var eocd = []byte("PK\x05\x06")

// ReadNpz streams a numpy .npz archive of 1-D arrays and returns the entry
// names, without the .npy suffix, and the arrays in archive order.
func ReadNpz(r stdio.Reader) ([]string, [][]float64, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(eocd))
	if err != nil && err != stdio.EOF {
		return nil, nil, err
	}
	if bytes.Equal(head, eocd) {
		return nil, nil, ErrEmptyArchive
	}

	zr := zipstream.NewReader(br)

	var (
		names  []string
		arrays [][]float64
	)
	for {
		hdr, err := zr.Next()
		if err == stdio.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if !strings.HasSuffix(hdr.Name, ".npy") {
			if _, err := stdio.Copy(stdio.Discard, zr); err != nil {
				return nil, nil, fmt.Errorf("entry %s: %w", hdr.Name, err)
			}
			continue
		}

		series, err := readSeries(zr)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %s: %w", hdr.Name, err)
		}
		names = append(names, strings.TrimSuffix(path.Base(hdr.Name), ".npy"))
		arrays = append(arrays, series)
	}

	if len(names) == 0 {
		return nil, nil, ErrEmptyArchive
	}
	return names, arrays, nil
}

// ReadScan loads one scan archive, one entry per ROI, ROIs in archive order.
func ReadScan(file, code string) (connectome.Scan, error) {
	f, err := os.Open(file)
	if err != nil {
		return connectome.Scan{}, pfx.Err(err)
	}
	defer f.Close()

	rois, series, err := ReadNpz(f)
	if err != nil {
		return connectome.Scan{}, pfx.Err(fmt.Errorf("%s: %w", file, err))
	}
	return connectome.Scan{Code: code, ROIs: rois, Series: series}, nil
}
