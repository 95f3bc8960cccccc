package io

import (
	"archive/zip"
	"bytes"
	"context"
	stdio "io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kshedden/gonpy"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

type entryCloser struct {
	w stdio.Writer
}

func (e entryCloser) Write(p []byte) (int, error) { return e.w.Write(p) }
func (e entryCloser) Close() error                { return nil }

// writeNpz writes one deflated 1-D .npy entry per ROI, in the given order.
func writeNpz(t *testing.T, file string, names []string, series [][]float64) {
	t.Helper()

	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for i, name := range names {
		entry, err := zw.CreateHeader(&zip.FileHeader{Name: name + ".npy", Method: zip.Deflate})
		require.NoError(t, err)

		w, err := gonpy.NewWriter(entryCloser{entry})
		require.NoError(t, err)
		w.Shape = []int{len(series[i])}
		require.NoError(t, w.WriteFloat64(series[i]))
	}
	require.NoError(t, zw.Close())
}

func wave(phase float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Cos(2*math.Pi*float64(i)/float64(n) - phase)
	}
	return x
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	for i, subject := range []string{"100307", "100408"} {
		dir := filepath.Join(root, subject)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		shift := 0.4 * float64(i)
		writeNpz(t, filepath.Join(dir, "REST1_LR.npz"),
			[]string{"L_V1", "L_MT", "L_FEF"},
			[][]float64{wave(shift, 24), wave(shift+0.6, 24), wave(shift+1.2, 24)})
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, MetadataFile),
		[]byte("Subject,Gender,Age\n100307,F,26-30\n100408,M,31-35\n"), 0o644))

	return root
}

func TestNpyRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "m.npy")
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	require.NoError(t, WriteNpy(file, m))
	got, err := ReadNpy(file)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestCSVRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "m.csv")
	m := mat.NewDense(3, 2, []float64{1.5, -2, 0, 1e-9, math.Pi, 7})

	require.NoError(t, WriteCSV(file, m))
	got, err := ReadCSV(file)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("1, x\n"), 0o644))
	_, err = ReadCSV(bad)
	assert.Error(t, err)
}

func TestLoadSubjects(t *testing.T) {
	logger, hook := test.NewNullLogger()
	subjects, err := LoadSubjects(fixture(t), logger)
	require.NoError(t, err)

	require.Len(t, subjects, 2)
	assert.Equal(t, "100307", subjects[0].Name)
	assert.Equal(t, "F", subjects[0].Metadata.Gender())
	assert.Equal(t, "31-35", subjects[1].Metadata.Age())

	scan := subjects[0].Scans[0]
	assert.Equal(t, "REST1_LR", scan.Code)
	assert.Equal(t, []string{"L_V1", "L_MT", "L_FEF"}, scan.ROIs, "archive order is kept")
	assert.InDeltaSlice(t, wave(0, 24), scan.Series[0], 1e-12)
	assert.InDeltaSlice(t, wave(1.2, 24), scan.Series[2], 1e-12)

	assert.NotEmpty(t, hook.AllEntries(), "the empty directory is reported")
}

func TestReadNpzEmpty(t *testing.T) {
	file := filepath.Join(t.TempDir(), "empty.npz")
	writeNpz(t, file, nil, nil)

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	_, _, err = ReadNpz(f)
	assert.ErrorIs(t, err, ErrEmptyArchive)

	var buf bytes.Buffer
	require.NoError(t, zip.NewWriter(&buf).Close())
	_, _, err = ReadNpz(&buf)
	assert.ErrorIs(t, err, ErrEmptyArchive)

	// entries that are not arrays do not count
	buf.Reset()
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("README.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("no arrays here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, _, err = ReadNpz(&buf)
	assert.ErrorIs(t, err, ErrEmptyArchive)
}

func TestReadNpzOrder(t *testing.T) {
	file := filepath.Join(t.TempDir(), "scan.npz")
	names := []string{"R_V1", "L_V1", "R_MT"}
	writeNpz(t, file, names, [][]float64{{1, 2}, {3, 4}, {5, 6}})

	scan, err := ReadScan(file, "REST2_RL")
	require.NoError(t, err)
	assert.Equal(t, "REST2_RL", scan.Code)
	assert.Equal(t, names, scan.ROIs)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, scan.Series)
}

func TestExport(t *testing.T) {
	logger, _ := test.NewNullLogger()
	subjects, err := LoadSubjects(fixture(t), logger)
	require.NoError(t, err)

	cfg := connectome.DefaultConfig()
	cfg.Logger = logger
	d, err := connectome.New(context.Background(), subjects, cfg)
	require.NoError(t, err)

	out := t.TempDir()
	rows, err := Export(d, out, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2*len(DefaultExportKinds)+1)

	sample := d.Samples()[0]
	name := SampleFileName(sample, connectome.LeadMatrix)
	assert.Equal(t, "100307_s1_r1_ULM.npy", name)

	lead, err := ReadNpy(filepath.Join(out, name))
	require.NoError(t, err)
	assert.True(t, mat.Equal(sample.Lead, lead))

	manifest, err := ReadManifest(out)
	require.NoError(t, err)
	assert.Equal(t, rows, manifest)
	for _, row := range manifest {
		assert.Equal(t, rows[0].RunID, row.RunID)
	}

	require.NoError(t, d.RemoveChannel("L_MT"))
	_, err = Export(d, out, nil)
	assert.ErrorIs(t, err, connectome.ErrUsage)
}
