package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coursepilot/coursepilot/internal/course"
	"github.com/coursepilot/coursepilot/internal/store"
)

// OutlineToolName is the name the model uses to fetch a course outline.
const OutlineToolName = "get_course_outline"

// OutlineStore is what the outline tool needs from the vector store.
type OutlineStore interface {
	ResolveCourseName(ctx context.Context, name string) (string, error)
	GetCourseOutline(ctx context.Context, title string) (*course.Course, error)
}

// CourseOutlineTool returns a course's title, link, instructor and lesson
// list given a course name or partial name.
type CourseOutlineTool struct {
	store  OutlineStore
	logger *slog.Logger
}

// NewCourseOutlineTool creates the outline tool. A nil logger falls back to
// slog.Default().
func NewCourseOutlineTool(s OutlineStore, logger *slog.Logger) (*CourseOutlineTool, error) {
	if s == nil {
		return nil, errors.New("outline store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseOutlineTool{store: s, logger: logger}, nil
}

// Definition implements Tool.
func (t *CourseOutlineTool) Definition() Definition {
	return Definition{
		Name: OutlineToolName,
		Description: "Get the complete outline of a course: its title, link, instructor " +
			"and the full numbered lesson list. Use for questions about course structure.",
		Parameters: map[string]map[string]any{
			"course_name": {
				"type":        "string",
				"description": "Course title or partial name",
			},
		},
		Required: []string{"course_name"},
	}
}

// Execute implements Tool. An unresolvable name degrades to a string for the
// model, matching the search tool's behavior.
func (t *CourseOutlineTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	name, _ := args["course_name"].(string)
	if strings.TrimSpace(name) == "" {
		return "", errors.New("course_name is required")
	}

	title, err := t.store.ResolveCourseName(ctx, name)
	if errors.Is(err, store.ErrCourseNotFound) {
		return fmt.Sprintf("No course found matching '%s'", name), nil
	}
	if err != nil {
		return "", err
	}

	c, err := t.store.GetCourseOutline(ctx, title)
	if errors.Is(err, store.ErrCourseNotFound) {
		return fmt.Sprintf("No course found matching '%s'", name), nil
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course Title: %s\n", c.Title)
	if c.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", c.Link)
	}
	if c.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", c.Instructor)
	}
	fmt.Fprintf(&b, "\nLessons (%d):\n", len(c.Lessons))
	for _, l := range c.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", l.Number, l.Title)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
