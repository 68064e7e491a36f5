// Package cli wires the openclaw commands. Every command loads config
// itself; there is no shared mutable state between commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "openclaw",
	Short: "Security gateway between chat channels and an LLM",
	Long:  "Relays messages from chat channels to an LLM backend through a security pipeline: allowlists, prompt injection scanning, PII redaction, encrypted sessions, and a tamper-evident audit log.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
