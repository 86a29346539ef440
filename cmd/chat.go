package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive Q&A session with conversation memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		sessionID := a.RAG.CreateSession()
		fmt.Println("coursepilot chat - ask about your courses (\"exit\" to quit)")

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			answer, sources, links := a.RAG.Query(ctx, line, sessionID)
			fmt.Println(answer)
			printSources(sources, links)
			fmt.Println()
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
