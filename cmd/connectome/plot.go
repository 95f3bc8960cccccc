package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
	"github.com/KyungWonPark/RestingConnectome/internal/viz"
)

func parseKinds(names []string) ([]connectome.MatrixKind, error) {
	kinds := make([]connectome.MatrixKind, 0, len(names))
	for _, name := range names {
		k, err := connectome.ParseMatrixKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func create(name string) (*os.File, error) {
	if err := os.MkdirAll(cfg.ResultDir, 0o755); err != nil {
		return nil, pfx.Err(err)
	}
	f, err := os.Create(filepath.Join(cfg.ResultDir, name))
	if err != nil {
		return nil, pfx.Err(err)
	}
	return f, nil
}

func plotCmd() *cobra.Command {
	var (
		subject, session, run string
		kind, method          string
		rois                  []string
		cell                  int
	)

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render a sample's time series and matrix, and the cohort scatter, as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := connectome.ParseMatrixKind(kind)
			if err != nil {
				return err
			}

			d, err := openDataset(cmd.Context())
			if err != nil {
				return err
			}
			e := viz.NewExplorer(d)

			var written []string
			if subject != "" {
				samples, err := d.Select(subject, connectome.Session(session), connectome.Run(run))
				if err != nil {
					return err
				}

				name := fmt.Sprintf("%s_timeseries.png", subject)
				f, err := create(name)
				if err != nil {
					return err
				}
				err = e.PlotTimeSeries(f, subject, samples[0].Session, samples[0].Run, rois)
				f.Close()
				if err != nil {
					return err
				}
				written = append(written, name)

				if k != connectome.TimeSeries {
					name = fmt.Sprintf("%s_%s_%s_%s.png", subject, samples[0].Session, samples[0].Run, k)
					f, err := create(name)
					if err != nil {
						return err
					}
					err = e.Heatmap(f, samples[0], k, cell)
					f.Close()
					if err != nil {
						return err
					}
					written = append(written, name)
				}
			}

			if method != "" && k != connectome.TimeSeries {
				name := fmt.Sprintf("cohort_%s_%s.png", k, method)
				f, err := create(name)
				if err != nil {
					return err
				}
				err = e.Scatter(f, k, method)
				f.Close()
				if err != nil {
					return err
				}
				written = append(written, name)
			}

			for _, name := range written {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(cfg.ResultDir, name))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&subject, "subject", "", "subject whose sample is plotted")
	flags.StringVar(&session, "session", "", "Session1 or Session2 (default: first match)")
	flags.StringVar(&run, "run", "", "Run1 or Run2 (default: first match)")
	flags.StringVar(&kind, "kind", "SLM", "matrix: TimeSeries, ULM, SLM, CVM, CRM")
	flags.StringVar(&method, "method", "pca", "cohort scatter reduction: pca, trunc_svd; empty to skip")
	flags.StringSliceVar(&rois, "roi", nil, "ROIs in the time series plot (default all)")
	flags.IntVar(&cell, "cell", 8, "heatmap pixels per matrix entry")

	return cmd
}
