package cmd

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/spf13/cobra"

	"gamebot/internal/domain"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [genre]",
	Short: "Recommend a game, optionally filtered by genre",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		entries, err := app.svc.Entries(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("the cache is empty; run `gamebot refresh` first")
		}

		if len(args) == 0 {
			name := randomKey(entries)
			fmt.Printf("Random game recommendation: %s\n", name)
			printEntry(name, entries[name])
			return nil
		}

		genre := strings.ToLower(args[0])
		candidates := app.svc.TitlesByGenre(genre)
		if len(candidates) == 0 {
			fmt.Printf("No games found with genre %q.\n", genre)
			if similar := app.svc.ResolveGenre(genre); len(similar) > 0 {
				fmt.Printf("Did you mean: %s?\n", strings.Join(similar, ", "))
			} else if sample := sampleGenres(app.svc.Genres(), 3); len(sample) > 0 {
				fmt.Printf("Available genres include: %s\n", strings.Join(sample, ", "))
			}
			return nil
		}

		name := candidates[rand.Intn(len(candidates))]
		fmt.Printf("Recommended %s game: %s\n", genre, name)
		printEntry(name, entries[name])
		return nil
	},
}

// randomKey picks an arbitrary entry; map iteration order is random enough
// for a recommendation.
func randomKey(entries map[string]*domain.Entry) string {
	n := rand.Intn(len(entries))
	for name := range entries {
		if n == 0 {
			return name
		}
		n--
	}
	return ""
}

// sampleGenres returns up to count random genres to suggest.
func sampleGenres(genres []string, count int) []string {
	if len(genres) <= count {
		return genres
	}
	picked := rand.Perm(len(genres))[:count]
	sample := make([]string, count)
	for i, idx := range picked {
		sample[i] = genres[idx]
	}
	return sample
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}
