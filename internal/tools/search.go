package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/coursepilot/coursepilot/internal/course"
	"github.com/coursepilot/coursepilot/internal/store"
)

// SearchToolName is the name the model uses to invoke content search.
const SearchToolName = "search_course_content"

// SearchStore is what the search tool needs from the vector store.
type SearchStore interface {
	Search(ctx context.Context, query string, opts ...store.SearchOption) course.SearchResults
	GetCourseLink(ctx context.Context, title string) (string, error)
	GetLessonLink(ctx context.Context, title string, lessonNumber int) (string, error)
}

// CourseSearchTool searches course content with optional course and lesson
// scoping. It records the sources of its last execution for citation display.
type CourseSearchTool struct {
	store  SearchStore
	logger *slog.Logger

	mu              sync.Mutex
	lastSources     []string
	lastSourceLinks []string
}

// NewCourseSearchTool creates the search tool. A nil logger falls back to
// slog.Default().
func NewCourseSearchTool(s SearchStore, logger *slog.Logger) (*CourseSearchTool, error) {
	if s == nil {
		return nil, errors.New("search store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseSearchTool{store: s, logger: logger}, nil
}

// Definition implements Tool.
func (t *CourseSearchTool) Definition() Definition {
	return Definition{
		Name: SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering. " +
			"Returns matching content excerpts labeled with their course and lesson.",
		Parameters: map[string]map[string]any{
			"query": {
				"type":        "string",
				"description": "What to search for in the course content",
			},
			"course_name": {
				"type":        "string",
				"description": "Course title or partial name (e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": {
				"type":        "integer",
				"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		},
		Required: []string{"query"},
	}
}

// Execute implements Tool. Store-level failures arrive as strings in the
// result set and are returned verbatim for the model to read.
func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", errors.New("query is required")
	}
	courseName, _ := args["course_name"].(string)
	lesson := intArg(args, "lesson_number")

	var opts []store.SearchOption
	if courseName != "" {
		opts = append(opts, store.WithCourseName(courseName))
	}
	if lesson != nil {
		opts = append(opts, store.WithLessonNumber(*lesson))
	}

	results := t.store.Search(ctx, query, opts...)

	if results.Error != "" {
		return results.Error, nil
	}

	if results.IsEmpty() {
		msg := "No relevant content found"
		if courseName != "" {
			msg += fmt.Sprintf(" in course '%s'", courseName)
		}
		if lesson != nil {
			msg += fmt.Sprintf(" in lesson %d", *lesson)
		}
		return msg + ".", nil
	}

	return t.formatResults(ctx, results), nil
}

// formatResults renders hits as labeled blocks and records sources.
func (t *CourseSearchTool) formatResults(ctx context.Context, results course.SearchResults) string {
	blocks := make([]string, 0, len(results.Documents))
	sources := make([]string, 0, len(results.Documents))
	links := make([]string, 0, len(results.Documents))

	for i, doc := range results.Documents {
		meta := results.Metadata[i]

		title := meta.CourseTitle
		if title == "" {
			title = "unknown"
		}

		header := fmt.Sprintf("[%s]", title)
		label := title
		var link string
		if meta.LessonNumber != nil {
			header = fmt.Sprintf("[%s - Lesson %d]", title, *meta.LessonNumber)
			label = fmt.Sprintf("%s - Lesson %d", title, *meta.LessonNumber)
			link, _ = t.store.GetLessonLink(ctx, meta.CourseTitle, *meta.LessonNumber)
		} else {
			link, _ = t.store.GetCourseLink(ctx, meta.CourseTitle)
		}

		blocks = append(blocks, header+"\n"+doc)
		sources = append(sources, label)
		links = append(links, link)
	}

	t.mu.Lock()
	t.lastSources = sources
	t.lastSourceLinks = links
	t.mu.Unlock()

	return strings.Join(blocks, "\n\n")
}

// LastSources implements sourceTracker.
func (t *CourseSearchTool) LastSources() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lastSources...)
}

// LastSourceLinks implements sourceTracker.
func (t *CourseSearchTool) LastSourceLinks() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lastSourceLinks...)
}

// ResetSources implements sourceTracker.
func (t *CourseSearchTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSources = nil
	t.lastSourceLinks = nil
}

// intArg extracts an optional integer argument. JSON decoding yields float64
// for numbers, so several representations are accepted.
func intArg(args map[string]any, key string) *int {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	case json.Number:
		if i64, err := n.Int64(); err == nil {
			i := int(i64)
			return &i
		}
	}
	return nil
}
