package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATA", "RESULT", "CONNECTOME_NORM", "CONNECTOME_GSR", "CONNECTOME_LOG_LEVEL", "CONNECTOME_WORKERS"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ".", c.DataDir)
	assert.Equal(t, "sqr", c.Norm)
	assert.Equal(t, "linear", c.Trend)
	assert.Equal(t, 1, c.EigenIndex)
	assert.False(t, c.GSR)
	assert.Equal(t, logrus.InfoLevel, c.LogLevel)
	assert.Equal(t, "file", c.ShelfDriver)
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("CONNECTOME_GSR", "")
	t.Setenv("CONNECTOME_FILTER", "")
	dir := t.TempDir()
	env := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(env, []byte("CONNECTOME_GSR=true\nCONNECTOME_FILTER=band1\n"), 0o644))

	// godotenv never overrides variables already set, even empty ones
	os.Unsetenv("CONNECTOME_GSR")
	os.Unsetenv("CONNECTOME_FILTER")

	c, err := Load(env)
	require.NoError(t, err)
	assert.True(t, c.GSR)
	assert.Equal(t, "band1", c.Filter)

	cc := c.Connectome(logrus.New())
	assert.True(t, cc.GSR)
	assert.Equal(t, "band1", cc.Filter)
}

func TestLoadInvalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("CONNECTOME_WORKERS", "many")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalid)

	t.Setenv("CONNECTOME_WORKERS", "")
	t.Setenv("CONNECTOME_LOG_LEVEL", "loud")
	_, err = Load()
	assert.ErrorIs(t, err, ErrInvalid)
}
