package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"defecteval/adapters/excel"
	"defecteval/adapters/postgres"
	"defecteval/domain/core"
	"defecteval/domain/dataset"
	"defecteval/internal/analysis"
	"defecteval/internal/errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without reading the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			req, err := buildRequest(cfg)
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Printf("%s: configuration valid\n", opts.configPath)
			fmt.Printf("  project:     %s\n", cfg.Project)
			fmt.Printf("  dataset:     %s (%d features)\n", cfg.Path, req.Load.Schema.Width())
			fmt.Printf("  releases:    2..%d\n", cfg.Releases)
			fmt.Printf("  matrix:      %d selection x %d balancing x %d classifiers = %d cells per release\n",
				len(req.Matrix.Selections), len(req.Matrix.Balancings), len(req.Matrix.Classifiers), req.Matrix.CellsPerRelease())
			fmt.Printf("  config hash: %s\n", req.ConfigHash.String())
			return nil
		},
	}
}

func newInspectCmd(opts *globalOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show per-release instance and defect counts of the dataset",
		Long: `Show per-release instance and defect counts of the configured dataset, with the
training fraction and defect rates every walk-forward step would report.

With --run, summarise a run stored in the configured database instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if runID != "" {
				return inspectStoredRun(cmd.Context(), cfg.DatabaseURL, runID)
			}

			logger, err := openLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			req, err := buildRequest(cfg)
			if err != nil {
				return err
			}
			ds, err := excel.NewDataReader(logger).Load(cmd.Context(), req.Load)
			if err != nil {
				return err
			}

			return writeReleaseTable(cmd.OutOrStdout(), ds)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Stored run ID to summarise (needs database_url)")
	return cmd
}

// writeReleaseTable prints per-release counts and the walk-forward ratios
func writeReleaseTable(out io.Writer, ds *dataset.Dataset) error {
	partitioner := analysis.NewReleasePartitioner()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Release\tInstances\tDefective\t%%Training\t%%Defective in training\t%%Defective in testing\n")
	for _, rc := range ds.ReleaseCounts() {
		if rc.Release < 2 {
			fmt.Fprintf(w, "%d\t%d\t%d\t-\t-\t-\n", rc.Release, rc.Total, rc.Defective)
			continue
		}
		split, err := partitioner.Partition(ds, rc.Release)
		if err != nil {
			return err
		}
		s := split.PartitionStats
		fmt.Fprintf(w, "%d\t%d\t%d\t%.3f\t%.3f\t%.3f\n",
			rc.Release, rc.Total, rc.Defective, s.TrainingFraction, s.TrainDefectRate, s.TestDefectRate)
	}
	return w.Flush()
}

func inspectStoredRun(ctx context.Context, databaseURL, id string) error {
	if databaseURL == "" {
		return errors.ConfigInvalid("--run needs database_url or DATABASE_URL")
	}
	runID, err := core.ParseRunID(id)
	if err != nil {
		return errors.ConfigInvalid(err.Error())
	}

	repo, err := postgres.Connect(ctx, databaseURL, nil)
	if err != nil {
		return err
	}
	defer repo.Close()

	records, err := repo.ListRecords(ctx, runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.DataError(fmt.Sprintf("run %s has no stored records", runID), nil)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Feature selection\tBalancing\tClassifier\tReleases\tPrecision\tRecall\tROC Area\tKappa")
	for _, s := range analysis.Summarize(records) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			s.Selection, s.Balancing, s.Classifier, s.Releases,
			meanOf(s.Precision), meanOf(s.Recall), meanOf(s.ROCArea), meanOf(s.Kappa))
	}
	return w.Flush()
}

func meanOf(m analysis.MetricSummary) string {
	if m.N == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", m.Mean)
}
