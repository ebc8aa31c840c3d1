package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teilomillet/promptsmith/cache"
	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/utils"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the reply cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show the number of cached replies",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCache(cmd, func(cfg *config.Config, c *cache.Cache) error {
					stats, err := c.Stats(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\npath:    %s\nentries: %d\n",
						cfg.CacheBackend, cfg.CachePath, stats.Entries)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached reply",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCache(cmd, func(cfg *config.Config, c *cache.Cache) error {
					if err := c.Clear(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
					return nil
				})
			},
		},
	)
	return cmd
}

// withCache opens the configured store without building a provider client, so
// no API key is needed.
func withCache(cmd *cobra.Command, fn func(*config.Config, *cache.Cache) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := cache.NewStore(cfg.CacheBackend, cfg.CachePath)
	if err != nil {
		return err
	}
	c := cache.New(store, utils.NewLogger(cfg.LogLevel))
	defer c.Close()
	return fn(cfg, c)
}
