package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestClear bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder]",
	Short: "Ingest course transcripts from a folder",
	Long: `Ingest every supported transcript file (.txt, .pdf, .docx read as text)
from a folder. Files whose course title is already in the catalog are
skipped; pass --clear to wipe both collections and re-ingest everything.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		dir := a.Config.DocsDir
		if len(args) == 1 {
			dir = args[0]
		}

		courses, chunks, err := a.RAG.AddCourseFolder(ctx, dir, ingestClear)
		if err != nil {
			return err
		}

		fmt.Printf("Ingested %d courses (%d chunks) from %s\n", courses, chunks, dir)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false,
		"clear existing course data before ingesting")
	rootCmd.AddCommand(ingestCmd)
}
