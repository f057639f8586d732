package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gamebot/internal/domain"
)

var (
	addGenres      []string
	addDescription string
)

var addCmd = &cobra.Command{
	Use:   "add <game>",
	Short: "Manually add or overwrite a cache entry",
	Long:  "Upserts a single entry outside the batch refresh path, for titles Steam has no public detail for.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		name := strings.Join(args, " ")
		genres := make([]string, 0, len(addGenres))
		for _, g := range addGenres {
			genres = append(genres, strings.ToLower(strings.TrimSpace(g)))
		}
		description := strings.TrimSpace(addDescription)
		if description == "" {
			description = domain.NoDescription
		}

		if err := app.svc.AddEntry(name, domain.EntryUpdate{
			Name:        name,
			Genres:      genres,
			Description: description,
		}); err != nil {
			return err
		}

		fmt.Printf("Added %s\n", name)
		return nil
	},
}

func init() {
	addCmd.Flags().StringSliceVar(&addGenres, "genres", nil, "comma-separated genre list")
	addCmd.Flags().StringVar(&addDescription, "description", "", "short description")
	rootCmd.AddCommand(addCmd)
}
