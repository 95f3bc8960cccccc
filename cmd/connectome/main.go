// Command connectome builds cyclic lead-matrix datasets from resting-state
// ROI time series and describes, exports and plots them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/RestingConnectome/internal/config"
	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
	"github.com/KyungWonPark/RestingConnectome/internal/io"
	"github.com/KyungWonPark/RestingConnectome/internal/shelf"
)

var (
	cfg *config.Config
	log = logrus.New()

	dropROIs []string
	exclude  []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "connectome",
		Short: "Cyclic lead-matrix analysis of resting-state ROI time series",
		Long: `Builds per-scan lead, covariance and correlation matrices from ROI time series
stored as $DATA/<subject>/<SCAN>.npz (plus $DATA/metadata.csv), and describes,
exports or plots the resulting cohort. Settings come from the environment
(optionally a .env file); flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("data", "", "input root (DATA)")
	flags.String("result", "", "output directory (RESULT)")
	flags.String("norm", "", "normalization: none, sqr, tv, std (CONNECTOME_NORM)")
	flags.String("trend", "", "trend removal: none, linear (CONNECTOME_TREND)")
	flags.Bool("gsr", false, "global signal regression (CONNECTOME_GSR)")
	flags.String("filter", "", "filter preset: band1, band2, low_pass, causal_band (CONNECTOME_FILTER)")
	flags.Int("eigen-index", 0, "conjugate eigen pair used for ordering, from 1 (CONNECTOME_EIGEN_INDEX)")
	flags.Int("workers", 0, "samples processed at once (CONNECTOME_WORKERS)")
	flags.String("shelf", "", "shelf caching the raw subjects (CONNECTOME_SHELF)")
	flags.String("shelf-driver", "", "shelf driver: file, sqlite3 (CONNECTOME_SHELF_DRIVER)")
	flags.String("log-level", "", "debug, info, warn, error (CONNECTOME_LOG_LEVEL)")
	flags.StringSliceVar(&dropROIs, "drop-roi", nil, "ROIs removed before analysis")
	flags.StringSliceVar(&exclude, "exclude", nil, "subjects excluded from the cohort")

	rootCmd.AddCommand(buildCmd(), describeCmd(), exportCmd(), plotCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("data", &c.DataDir)
	override("result", &c.ResultDir)
	override("norm", &c.Norm)
	override("trend", &c.Trend)
	override("filter", &c.Filter)
	override("shelf", &c.Shelf)
	override("shelf-driver", &c.ShelfDriver)
	if flags.Changed("gsr") {
		c.GSR, _ = flags.GetBool("gsr")
	}
	if flags.Changed("eigen-index") {
		c.EigenIndex, _ = flags.GetInt("eigen-index")
	}
	if flags.Changed("workers") {
		c.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("log-level") {
		name, _ := flags.GetString("log-level")
		level, err := logrus.ParseLevel(name)
		if err != nil {
			return fmt.Errorf("--log-level %q: %w", name, config.ErrInvalid)
		}
		c.LogLevel = level
	}

	log.SetLevel(c.LogLevel)
	cfg = c
	return nil
}

// loadSubjects reads the shelf when it already holds subjects, the data root
// otherwise. Subjects read from the data root are written to the shelf.
func loadSubjects() ([]connectome.Subject, error) {
	if cfg.Shelf == "" {
		return io.LoadSubjects(cfg.DataDir, log)
	}

	store, err := shelf.Open(cfg.ShelfDriver, cfg.Shelf)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("closing shelf")
		}
	}()

	keys, err := store.Keys()
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		log.WithFields(logrus.Fields{"shelf": cfg.Shelf, "subjects": len(keys)}).Info("loading subjects from shelf")
		return shelf.LoadSubjects(store)
	}

	subjects, err := io.LoadSubjects(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}
	if err := shelf.SaveSubjects(store, subjects); err != nil {
		if errors.Is(err, shelf.ErrReadOnly) {
			log.WithField("shelf", cfg.Shelf).Warn("shelf is read only, not caching subjects")
			return subjects, nil
		}
		return nil, err
	}
	return subjects, nil
}

// openDataset builds the dataset and applies --drop-roi and --exclude.
func openDataset(ctx context.Context) (*connectome.Dataset, error) {
	subjects, err := loadSubjects()
	if err != nil {
		return nil, err
	}

	d, err := connectome.New(ctx, subjects, cfg.Connectome(log))
	if err != nil {
		return nil, err
	}

	if len(dropROIs) > 0 {
		for _, roi := range dropROIs {
			if err := d.RemoveChannel(roi); err != nil {
				return nil, err
			}
		}
		if err := d.Recompute(ctx); err != nil {
			return nil, err
		}
	}
	if len(exclude) > 0 {
		if err := d.RemoveSubjects(exclude...); err != nil {
			return nil, err
		}
	}

	return d, nil
}
