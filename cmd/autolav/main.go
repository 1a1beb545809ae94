package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"autolav/internal/auth"
	"autolav/internal/backend"
	"autolav/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "autolav",
	Short: "AutoLav - hospital laundry weight collection client",
	Long: `autolav collects per-unit laundry weight measurements from the
AutoLav backend over a date range, shows progress as results arrive,
and exports the accumulated dataset as CSV.

Run without arguments to start the interactive interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive UI owns the terminal; logging there would
		// tear the screen, so it gets a no-op logger.
		if cmd.Use == "autolav" && cmd.CalledAs() == "autolav" {
			logger = zap.NewNop()
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(configCmd)
}

// loadClient builds the backend client and session gate from config.
func loadClient() (*config.Config, *backend.Client, *auth.Gate, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	client := backend.NewClient(cfg.BaseURL, cfg.APIToken,
		backend.WithLogger(logger),
		backend.WithTimeout(cfg.RequestTimeoutDuration()))

	gate := auth.NewGate(auth.ProberFunc(func(ctx context.Context) (bool, string, error) {
		status, err := client.CredentialStatus(ctx)
		if err != nil {
			return false, "", err
		}
		return status.HasCredentials, status.Username, nil
	}), logger)

	return cfg, client, gate, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
