package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List all genres in the cached library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		genres := app.svc.Genres()
		if len(genres) == 0 {
			fmt.Println("The cache is empty; run `gamebot refresh` first.")
			return nil
		}
		for _, genre := range genres {
			fmt.Println(genre)
		}

		if failed := app.svc.FailedTitles(); len(failed) > 0 {
			fmt.Printf("\n%d games failed their last update and will be retried on the next refresh.\n", len(failed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genresCmd)
}
