package main

import (
	"fmt"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

func describeCmd() *cobra.Command {
	var (
		bins int
		top  int
		by   string
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarize the cohort: demographics, cohort spectrum and separating channel pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDataset(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, d)

			if d.CohortDegenerate() {
				fmt.Fprintln(out, "Fewer than 2 live samples: no cohort spectrum")
				return nil
			}

			eig := d.CohortEigenvalues()
			total, err := stats.Sum(stats.Float64Data(eig))
			if err != nil {
				return err
			}
			if total > 0 {
				var cum float64
				for k := 0; k < len(eig) && k < 3; k++ {
					cum += eig[k]
					fmt.Fprintf(out, "Projector %d explains %.1f%% (cumulative %.1f%%)\n", k+1, 100*eig[k]/total, 100*cum/total)
				}
			}

			fmt.Fprintln(out, "\nCohort eigenvalues:")
			if err := histogram.Fprint(out, histogram.Hist(bins, eig), histogram.Linear(40)); err != nil {
				return err
			}

			if by == "" {
				return nil
			}
			vals, pairs, err := d.WilksLambda(connectome.CorrelationMatrix, by)
			if err != nil {
				log.WithError(err).Warnf("no Wilks' lambda by %s", by)
				return nil
			}
			rois := d.ROIs()
			fmt.Fprintf(out, "\nCorrelations best separated by %s (Wilks' lambda):\n", by)
			for k := 0; k < len(vals) && k < top; k++ {
				fmt.Fprintf(out, "%s - %s\t%.4f\n", rois[pairs[k][0]], rois[pairs[k][1]], vals[k])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bins, "bins", 20, "histogram buckets")
	cmd.Flags().IntVar(&top, "top", 10, "channel pairs listed")
	cmd.Flags().StringVar(&by, "by", "Gender", "metadata attribute for Wilks' lambda, empty to skip")

	return cmd
}
