package main

import (
	"github.com/spf13/cobra"

	"github.com/raglab/arxrag/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig()
	},
}

// showConfig prints every non-secret key with its env var and current value.
func showConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	for _, k := range config.ShowAll(cfg) {
		printStatus(k.Key, "%s (%s)", k.Value, k.EnvVar)
	}
	return nil
}
