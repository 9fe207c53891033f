package main

import (
	"fmt"
	"os"

	"defecteval/app"
	"defecteval/internal"
	"defecteval/internal/config"
	"defecteval/internal/errors"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "defecteval",
		Short:         "Walk-forward evaluation of defect prediction pipelines",
		Version:       app.CodeVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.json", "Configuration file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override LOG_LEVEL (ERROR, WARN, INFO, DEBUG, TRACE)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newInspectCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error [%s]: ", errors.GetCode(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error codes to distinct process exit statuses
func exitCode(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeConfigInvalid:
		return 2
	case errors.CodeIOFailure:
		return 3
	case errors.CodeParseFailure:
		return 4
	case errors.CodeDatabaseError:
		return 5
	}
	return 1
}

// loadConfig reads the configuration and applies the --log-level flag
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

// openLogger creates the run logger; callers close it when the command ends
func openLogger(cfg *config.Config) (*internal.Logger, error) {
	level, ok := internal.ParseLogLevel(cfg.LogLevel)
	if !ok && cfg.LogLevel != "" {
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown log level %q", cfg.LogLevel))
	}
	logger, err := internal.OpenLogger(internal.LoggerOptions{
		Level:   level,
		File:    cfg.LogFile,
		NoColor: color.NoColor,
	})
	if err != nil {
		return nil, errors.IOFailure(cfg.LogFile, err)
	}
	return logger, nil
}
