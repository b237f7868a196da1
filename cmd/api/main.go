package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/health-enrollment/internal/config"
	"github.com/jwalitptl/health-enrollment/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "enrollment-api",
		Short:         "Health program enrollment tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			logger.Setup(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: config.yaml in ., ./config, /app/config)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newTokenCmd(),
		newEventsCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
