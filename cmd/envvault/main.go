package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/systmms/envvault/cmd/envvault/commands"
	"github.com/systmms/envvault/internal/config"
	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/logging"
	"github.com/systmms/envvault/internal/metrics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe enclave keys on Ctrl-C as well as on normal exit.
	memguard.CatchInterrupt()

	err := run(os.Args[1:])
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run(args []string) error {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCommand() *cobra.Command {
	// Global flags
	var (
		configFile      string
		noColor         bool
		debug           bool
		metricsTextfile string
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "envvault",
		Short: "Environment configuration and credential vault for test suites",
		Long: `envvault loads per-environment dotenv and .properties files for test
suites and keeps their credentials encrypted at rest with AES-256-GCM.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
			if metricsTextfile != "" {
				metrics.InitMetrics()
			}
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsTextfile == "" {
				return nil
			}
			if err := metrics.WriteTextfile(metricsTextfile); err != nil {
				return fmt.Errorf("failed to write metrics to %s: %w", metricsTextfile, err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		commands.NewKeygenCommand(cfg),
		commands.NewEncryptCommand(cfg),
		commands.NewDecryptCommand(cfg),
		commands.NewGetCommand(cfg),
		commands.NewCheckCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd
}
