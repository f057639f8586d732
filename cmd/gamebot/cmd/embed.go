package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate embedding vectors for cached games",
	Long:  "Generates a vector for every cached entry missing one, through the configured enrichment service. Requires OPENAI_API_KEY.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if app.enricher == nil {
			return fmt.Errorf("no enrichment service configured: set OPENAI_API_KEY")
		}

		fmt.Println("Generating embeddings, this may take a while...")
		embedded, err := app.svc.EmbedEntries(cmd.Context(), app.enricher)
		if err != nil {
			return err
		}
		fmt.Printf("Embedded %d games\n", embedded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)
}
