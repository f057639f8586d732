package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gamebot/internal/domain"
	"gamebot/internal/search"
)

var infoCmd = &cobra.Command{
	Use:   "info <game>",
	Short: "Show information about a cached game",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		query := strings.Join(args, " ")
		matches := app.svc.ResolveTitle(query)

		switch len(matches) {
		case 0:
			fmt.Printf("Couldn't find any games matching %q\n", query)
			if nearest := search.Suggest(query, app.svc.CachedTitles(), 3); len(nearest) > 0 {
				fmt.Printf("Closest titles: %s\n", strings.Join(nearest, ", "))
			}
			return nil
		case 1:
			entry, ok := app.svc.Entry(matches[0])
			if !ok {
				return fmt.Errorf("%q: %w", matches[0], domain.ErrTitleNotFound)
			}
			printEntry(matches[0], entry)
			return nil
		default:
			fmt.Println("Found multiple matching games:")
			for i, name := range matches {
				fmt.Printf("%d. %s\n", i+1, name)
			}
			fmt.Println("\nPlease be more specific!")
			return nil
		}
	},
}

func printEntry(name string, entry *domain.Entry) {
	fmt.Printf("%s", name)
	if len(entry.Genres) > 0 {
		fmt.Printf(" (%s)", strings.Join(entry.Genres, ", "))
	}
	fmt.Println()
	if entry.Description != "" {
		fmt.Printf("> %s\n", entry.Description)
	} else {
		fmt.Printf("> %s\n", domain.NoDescription)
	}
	if entry.EnrichedDescription != "" {
		fmt.Printf("\n%s\n", entry.EnrichedDescription)
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
