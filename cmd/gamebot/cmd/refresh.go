package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshForce bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Update the game cache",
	Long:  "Fetches missing or stale game metadata from Steam and persists it. With --force the entry map is rebuilt from scratch.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Println("Refreshing game cache, this may take a while...")
		cache, err := app.svc.Refresh(cmd.Context(), refreshForce)
		if err != nil {
			return err
		}

		fmt.Printf("Cache updated: %d games\n", len(cache.Entries))
		if len(cache.FailedTitles) > 0 {
			fmt.Printf("Failed to fetch details for %d games:\n", len(cache.FailedTitles))
			for _, title := range cache.FailedTitles {
				fmt.Printf("  %s\n", title)
			}
		}
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "rebuild every entry instead of only missing/stale ones")
	rootCmd.AddCommand(refreshCmd)
}
