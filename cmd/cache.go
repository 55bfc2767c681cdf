package cmd

import (
	"fmt"

	"duplicalis/internal/cache"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache [target]",
	Short: "Delete the embedding cache of a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}

		fmt.Printf("Deleting cache: %s\n", cfg.CachePath)
		if err := cache.Clear(cfg.CachePath); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println(color.GreenString("✓ Cache cleared"))
		return nil
	},
}
