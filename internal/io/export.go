package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

// ManifestFile lists every file written by Export.
const ManifestFile = "manifest.csv"

// DefaultExportKinds are the matrices written per sample unless told otherwise.
var DefaultExportKinds = []connectome.MatrixKind{
	connectome.CorrelationMatrix,
	connectome.LeadMatrix,
	connectome.CovarianceMatrix,
}

// ManifestRow describes one exported file.
type ManifestRow struct {
	RunID   string `csv:"RunID"`
	Subject string `csv:"Subject"`
	Session string `csv:"Session"`
	Run     string `csv:"Run"`
	Kind    string `csv:"Kind"`
	File    string `csv:"File"`
}

// SampleFileName is <subject>_<s1|s2>_<r1|r2>_<KIND>.npy.
func SampleFileName(s *connectome.Sample, kind connectome.MatrixKind) string {
	session := "s" + strings.TrimPrefix(string(s.Session), "Session")
	run := "r" + strings.TrimPrefix(string(s.Run), "Run")
	return fmt.Sprintf("%s_%s_%s_%s.npy", s.Name, session, run, kind)
}

// Export writes the chosen matrices of every live sample, the cohort
// eigenvalues and a manifest into dir. Every row of the manifest carries the
// same freshly generated run id. A dataset with stale samples is refused.
func Export(d *connectome.Dataset, dir string, kinds []connectome.MatrixKind) ([]ManifestRow, error) {
	if d.Stale() {
		return nil, fmt.Errorf("export of a stale dataset, recompute first: %w", connectome.ErrUsage)
	}
	if len(kinds) == 0 {
		kinds = DefaultExportKinds
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pfx.Err(err)
	}

	runID := uuid.New().String()
	var rows []*ManifestRow

	for _, s := range d.Samples() {
		for _, kind := range kinds {
			m, err := s.Matrix(kind)
			if err != nil {
				return nil, err
			}
			name := SampleFileName(s, kind)
			if err := WriteNpy(filepath.Join(dir, name), m); err != nil {
				return nil, err
			}
			rows = append(rows, &ManifestRow{
				RunID:   runID,
				Subject: s.Name,
				Session: string(s.Session),
				Run:     string(s.Run),
				Kind:    kind.String(),
				File:    name,
			})
		}
	}

	const eigenFile = "cohort_eigenvalues.npy"
	if err := WriteVector(filepath.Join(dir, eigenFile), d.CohortEigenvalues()); err != nil {
		return nil, err
	}
	rows = append(rows, &ManifestRow{RunID: runID, Kind: "CohortEigenvalues", File: eigenFile})

	f, err := os.Create(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]ManifestRow, len(rows))
	for i, row := range rows {
		out[i] = *row
	}
	return out, nil
}

// ReadManifest reads a manifest written by Export.
func ReadManifest(dir string) ([]ManifestRow, error) {
	f, err := os.Open(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	rows := []*ManifestRow{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]ManifestRow, len(rows))
	for i, row := range rows {
		out[i] = *row
	}
	return out, nil
}
