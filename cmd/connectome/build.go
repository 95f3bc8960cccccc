package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KyungWonPark/RestingConnectome/internal/io"
)

func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the dataset and export the default matrices to RESULT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDataset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)

			rows, err := io.Export(d, cfg.ResultDir, nil)
			if err != nil {
				return err
			}
			log.WithField("files", len(rows)).Infof("exported to %s", cfg.ResultDir)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write chosen matrices of every live sample as .npy with a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := parseKinds(kinds)
			if err != nil {
				return err
			}

			d, err := openDataset(cmd.Context())
			if err != nil {
				return err
			}

			rows, err := io.Export(d, cfg.ResultDir, selected)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d files, run %s\n", len(rows), rows[0].RunID)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds", []string{"CRM", "ULM", "CVM"}, "matrices to export: TimeSeries, ULM, SLM, CVM, CRM")

	return cmd
}
