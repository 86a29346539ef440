package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List ingested courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := setupApp(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		analytics, err := a.RAG.Analytics(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Courses: %d\n", analytics.TotalCourses)
		for _, title := range analytics.CourseTitles {
			fmt.Printf("  - %s\n", title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(coursesCmd)
}
