// Package config reads the command line tools' settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/carbocation/pfx"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

// ErrInvalid is returned for environment values that do not parse.
var ErrInvalid = errors.New("config: invalid value")

// Config holds every environment setting of the tools.
type Config struct {
	DataDir     string // DATA
	ResultDir   string // RESULT
	Norm        string // CONNECTOME_NORM
	Trend       string // CONNECTOME_TREND
	GSR         bool   // CONNECTOME_GSR
	Filter      string // CONNECTOME_FILTER
	EigenIndex  int    // CONNECTOME_EIGEN_INDEX
	Workers     int    // CONNECTOME_WORKERS
	Shelf       string // CONNECTOME_SHELF
	ShelfDriver string // CONNECTOME_SHELF_DRIVER
	LogLevel    logrus.Level
}

// Load reads an optional .env file from the working directory (or the files
// given), then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, pfx.Err(err)
	}

	defaults := connectome.DefaultConfig()
	c := &Config{
		DataDir:     getEnvOrDefault("DATA", "."),
		ResultDir:   getEnvOrDefault("RESULT", "result"),
		Norm:        getEnvOrDefault("CONNECTOME_NORM", defaults.Norm),
		Trend:       getEnvOrDefault("CONNECTOME_TREND", defaults.Trend),
		Filter:      os.Getenv("CONNECTOME_FILTER"),
		Shelf:       os.Getenv("CONNECTOME_SHELF"),
		ShelfDriver: getEnvOrDefault("CONNECTOME_SHELF_DRIVER", "file"),
	}

	var err error
	if c.GSR, err = getEnvBool("CONNECTOME_GSR", false); err != nil {
		return nil, err
	}
	if c.EigenIndex, err = getEnvInt("CONNECTOME_EIGEN_INDEX", defaults.EigenIndex); err != nil {
		return nil, err
	}
	if c.Workers, err = getEnvInt("CONNECTOME_WORKERS", 0); err != nil {
		return nil, err
	}

	level := getEnvOrDefault("CONNECTOME_LOG_LEVEL", "info")
	if c.LogLevel, err = logrus.ParseLevel(level); err != nil {
		return nil, fmt.Errorf("CONNECTOME_LOG_LEVEL=%q: %w", level, ErrInvalid)
	}

	return c, nil
}

// Connectome builds the dataset configuration.
func (c *Config) Connectome(log logrus.FieldLogger) connectome.Config {
	return connectome.Config{
		Norm:       c.Norm,
		Trend:      c.Trend,
		GSR:        c.GSR,
		Filter:     c.Filter,
		EigenIndex: c.EigenIndex,
		Workers:    c.Workers,
		Logger:     log,
	}
}

func getEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, v, ErrInvalid)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q: %w", key, v, ErrInvalid)
	}
	return b, nil
}
