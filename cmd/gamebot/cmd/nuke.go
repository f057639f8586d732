package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var nukeCmd = &cobra.Command{
	Use:   "nuke",
	Short: "Delete the cache and force a complete rebuild",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Println("Backing up and rebuilding the cache from scratch...")
		if err := app.store.Backup(); err != nil {
			return fmt.Errorf("backup cache: %w", err)
		}
		if err := app.store.Reset(); err != nil {
			return fmt.Errorf("reset cache: %w", err)
		}

		cache, err := app.svc.Refresh(cmd.Context(), true)
		if err != nil {
			return err
		}
		fmt.Printf("Cache completely rebuilt: %d games\n", len(cache.Entries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nukeCmd)
}
