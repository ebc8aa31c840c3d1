// Package main provides the promptsmith command-line interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "promptsmith",
		Short:         "Refine prompts against a scoring rubric",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "YAML config file (overlays PROMPTSMITH_* environment)")

	root.AddCommand(
		newRefineCmd(),
		newCacheCmd(),
		newRubricCmd(),
	)
	return root
}
