package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"defecteval/adapters/excel"
	"defecteval/adapters/postgres"
	"defecteval/adapters/report"
	"defecteval/app"
	"defecteval/internal"
	"defecteval/internal/config"
	"defecteval/internal/errors"
	"defecteval/internal/metrics"
	"defecteval/ports"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var workers int
	var outputDir string
	var strict bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the walk-forward evaluation and write the report",
		Long: `Train on every release before r and test on release r, for r = 2..releases,
across every configured feature selection, balancing and classifier combination.

Example: defecteval run --config bookkeeper.yaml --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEvaluation(ctx, cfg, strict)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Concurrent cell evaluations")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the report files")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any cell or release produced no record")
	return cmd
}

func runEvaluation(ctx context.Context, cfg *config.Config, strict bool) error {
	logger, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	req, err := buildRequest(cfg)
	if err != nil {
		return err
	}

	runMetrics := metrics.NewRunMetrics(cfg.Project)
	svc := app.NewStandardWalkForwardService(
		excel.NewDataReader(logger),
		app.WalkForwardConfig{Seed: cfg.Seed, Workers: cfg.Workers, FitTimeout: cfg.FitTimeout.Std()},
		runMetrics,
		logger,
	)

	result, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	sink, repo, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if repo != nil {
		defer repo.Close()
		if earlier, err := repo.FindRunsByFingerprint(ctx, result.Fingerprint.Fingerprint); err != nil {
			logger.Warn("fingerprint lookup failed: %v", err)
		} else if len(earlier) > 0 {
			logger.Info("same inputs were evaluated by %d earlier run(s), latest %s", len(earlier), earlier[len(earlier)-1])
		}
	}

	if err := sink.Write(ctx, ports.RunReport{Project: cfg.Project, Records: result.Records, Manifest: result.Manifest}); err != nil {
		return err
	}
	runMetrics.RecordsWritten(len(result.Records))

	if cfg.MetricsFile != "" {
		if err := runMetrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics to %s: %v", cfg.MetricsFile, err)
		}
	}

	printResult(result)
	if strict && !result.Manifest.Complete() {
		return errors.DataError(fmt.Sprintf("%d failed cells, %d skipped releases",
			len(result.Failures), len(result.SkippedReleases)), nil)
	}
	return nil
}

func buildRequest(cfg *config.Config) (app.RunRequest, error) {
	schema, err := cfg.Schema()
	if err != nil {
		return app.RunRequest{}, errors.ConfigInvalid(err.Error())
	}
	matrix, err := cfg.Matrix()
	if err != nil {
		return app.RunRequest{}, errors.ConfigInvalid(err.Error())
	}
	return app.RunRequest{
		Project:  cfg.Project,
		Releases: cfg.Releases,
		Load: ports.LoadRequest{
			Name:      cfg.Project,
			Path:      cfg.Path,
			Separator: cfg.Separator,
			Schema:    schema,
			Labels:    cfg.LabelTokens(),
		},
		Matrix:     matrix,
		ConfigHash: cfg.Hash(),
	}, nil
}

// buildSinks returns one sink for every configured output. The manifest is
// always written. The repository is non-nil when a database is configured.
func buildSinks(ctx context.Context, cfg *config.Config, logger *internal.Logger) (ports.RecordSink, *postgres.RecordRepository, error) {
	var sinks []ports.RecordSink
	if cfg.HasFormat(config.FormatCSV) {
		sinks = append(sinks, report.NewCSVSink(cfg.OutputDir, logger))
	}
	if cfg.HasFormat(config.FormatXLSX) {
		sinks = append(sinks, excel.NewReportWriter(cfg.OutputDir, logger))
	}
	if cfg.HasFormat(config.FormatMarkdown) {
		sinks = append(sinks, report.NewSummarySink(cfg.OutputDir, logger))
	}
	sinks = append(sinks, report.NewManifestSink(cfg.OutputDir, logger))

	var repo *postgres.RecordRepository
	if cfg.DatabaseURL != "" {
		var err error
		if repo, err = postgres.Connect(ctx, cfg.DatabaseURL, logger); err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, repo)
	}

	multi := report.NewMultiSink(logger, sinks...)
	logger.Debug("sinks: %v", multi.Names())
	return multi, repo, nil
}

func printResult(result *app.RunResult) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Printf("Run %s\n", result.RunID)
	fmt.Printf("  records:      %d of %d\n", result.Manifest.RecordCount, result.Manifest.ExpectedRecords)
	fmt.Printf("  output hash:  %s\n", result.Manifest.OutputHash)
	fmt.Printf("  fingerprint:  %s\n", result.Fingerprint.Fingerprint)
	fmt.Printf("  duration:     %v\n", result.Duration)

	if len(result.SkippedReleases) > 0 {
		yellow.Printf("  skipped releases: %v\n", result.SkippedReleases)
	}
	for _, f := range result.Failures {
		yellow.Printf("  failed: %s [%s] %v\n", f.Cell, f.Code, f.Err)
	}
	if result.Manifest.Complete() {
		green.Println("  complete")
	}
}
