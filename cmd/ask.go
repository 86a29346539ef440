package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question about the ingested courses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		question := strings.Join(args, " ")
		answer, sources, links := a.RAG.Query(ctx, question, "")

		fmt.Println(answer)
		printSources(sources, links)
		return nil
	},
}

// printSources lists citation sources, with links when known.
func printSources(sources, links []string) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, s := range sources {
		if i < len(links) && links[i] != "" {
			fmt.Printf("  - %s (%s)\n", s, links[i])
		} else {
			fmt.Printf("  - %s\n", s)
		}
	}
}

func init() {
	rootCmd.AddCommand(askCmd)
}
