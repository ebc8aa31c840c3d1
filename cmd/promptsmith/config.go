package main

import (
	"github.com/spf13/cobra"

	"github.com/teilomillet/promptsmith/config"
)

// loadConfig reads the environment and, when --config is set, the YAML file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.LoadConfig()
	}
	return config.LoadFile(path)
}
