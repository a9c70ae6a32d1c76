// Rf433bridge receives 433 MHz remote switch and weather sensor frames on
// a GPIO line and publishes them to the Gray Logic MQTT bus.
//
// Usage:
//
//	rf433bridge run      [--config FILE]
//	rf433bridge sniff    [--config FILE] [--annotate]
//	rf433bridge replay   FILE [--protocol switch|sensor]
//	rf433bridge discover [--timeout 5s]
//	rf433bridge version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds flags shared by all subcommands.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "rf433bridge",
		Short: "433 MHz OOK receiver bridge for Gray Logic",
		Long: `Decodes on-off keyed 433 MHz remote switches and differential weather
sensors from a GPIO receiver line and publishes each frame to MQTT.

The sniff and replay commands help tune thresholds: sniff prints every raw
interval the receiver sees, replay decodes a saved sniff dump offline.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(versionString() + "\n")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", getConfigPath(),
		"Path to config file (env GRAYLOGIC_CONFIG)")

	root.AddCommand(
		newRunCmd(opts),
		newSniffCmd(opts),
		newReplayCmd(opts),
		newDiscoverCmd(),
		newMigrateCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}

func versionString() string {
	return fmt.Sprintf("rf433bridge %s (commit %s, built %s)", version, commit, date)
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the config file. When the file is missing and
// optional is set, built-in defaults with env overrides are used.
func loadConfig(path string, optional bool) (*config.Config, error) {
	if optional {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
