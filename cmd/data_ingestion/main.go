package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/config"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/logging"
)

type globalOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	root := &cobra.Command{
		Use:           "data_ingestion",
		Short:         "Load vaccination source files into the warehouse",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newRunCmd(&opts), newValidateCmd(&opts), newViewsCmd(&opts))
	return root
}

// loadEnvironment reads .env, the configuration and builds the run logger.
func loadEnvironment(name string, opts *globalOptions) (*config.Config, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, logPath, err := logging.New(cfg.LogDir, name, opts.verbose)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Logging initialized", zap.String("log_file", logPath))
	return cfg, logger, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
