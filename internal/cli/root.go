// Package cli wires configuration, infrastructure and services into the
// tokengate commands.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opsbridge/tokengate/internal/infrastructure/config"
	"github.com/opsbridge/tokengate/pkg/logger"
)

const serviceName = "tokengate"

// app carries what every subcommand needs once the root pre-run has loaded
// it.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var envFile string
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Token issuance and verification service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  cfg.IsDevelopment(),
				Service: serviceName,
			})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newUserCmd(a))
	return rootCmd
}

// loadEnvFile applies a dotenv file without overriding variables that are
// already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
