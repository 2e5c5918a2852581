package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/summa/internal/config"
	"github.com/phrazzld/summa/internal/platform/logger"
	"github.com/spf13/cobra"
)

// newRootCmd builds the summa command tree.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "summa",
		Short:         "Summarize long documents into five bullet points",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml)")

	load := func(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
		return loadRuntime(cmd, configPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newSummarizeCmd(load),
	)
	return root
}

// runtimeLoader loads configuration and the logger for a subcommand.
type runtimeLoader func(cmd *cobra.Command) (*config.Config, *slog.Logger, error)

// loadRuntime loads configuration and sets up the default logger.
func loadRuntime(cmd *cobra.Command, configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(logger.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		"command", cmd.Name(),
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_provider", cfg.LLM.Provider)
	return cfg, log, nil
}
