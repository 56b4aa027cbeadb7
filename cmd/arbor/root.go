package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/crabritto/arbor/internal/cli"
	"github.com/crabritto/arbor/internal/config"
	"github.com/crabritto/arbor/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor is an editor for labeled binary trees",
	Long: `Arbor builds labeled binary trees one validated edit at a time and
submits them to an analysis service for traversals, height and classification.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./"+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(level), nil
}

// newRuntime loads configuration and builds the service behind every command.
func newRuntime(cmd *cobra.Command) (config.Config, *cli.Runtime, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	rt, err := cli.NewRuntime(cfg, logger)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, rt, nil
}
