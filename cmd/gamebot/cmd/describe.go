package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gamebot/internal/domain"
)

var describeCmd = &cobra.Command{
	Use:   "describe <game>",
	Short: "Generate an enriched description for a cached game",
	Long:  "Asks the configured text-enrichment service for an engaging description and stores it with the entry. Requires OPENAI_API_KEY.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		query := strings.Join(args, " ")
		matches := app.svc.ResolveTitle(query)
		if len(matches) == 0 {
			return fmt.Errorf("%q: %w", query, domain.ErrTitleNotFound)
		}
		if len(matches) > 1 {
			fmt.Println("Found multiple matching games:")
			for i, name := range matches {
				fmt.Printf("%d. %s\n", i+1, name)
			}
			fmt.Println("\nPlease be more specific!")
			return nil
		}

		generated, err := app.svc.Describe(cmd.Context(), matches[0])
		if err != nil {
			if errors.Is(err, domain.ErrNotConfigured) {
				return fmt.Errorf("no enrichment service configured: set OPENAI_API_KEY")
			}
			return err
		}

		fmt.Printf("%s\n\n%s\n", matches[0], generated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
