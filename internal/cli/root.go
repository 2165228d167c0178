// Package cli holds the taskboard cobra commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phonginreallife/taskboard/internal/config"
	"github.com/phonginreallife/taskboard/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Multi-tenant project and task board backend",
	Long: `taskboard serves organizations, projects, board columns and tasks
behind an organization -> project permission model.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default: ./config/taskboard.yaml or ./taskboard.yaml)")
}

// setup loads configuration and builds the logger shared by every command
func setup() (*zap.Logger, error) {
	if err := config.LoadConfig(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(config.App.LogLevel)
	if err != nil {
		return nil, err
	}
	if config.FileUsed != "" {
		logger.Info("loaded config file", zap.String("path", config.FileUsed))
	}
	return logger, nil
}
