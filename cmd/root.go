/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gatekeep/authserver/config"
	"github.com/gatekeep/authserver/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "authserver",
	Short: "Username/password accounts with cookie sessions",
	Long: `authserver registers accounts, verifies passwords and keeps users
signed in with a sealed session cookie.

	authserver server
	authserver migrate up
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the environment and builds the process logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg := config.LoadConfig()
	logger := logging.Setup(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return cfg, logger, fmt.Errorf("invalid configuration: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
