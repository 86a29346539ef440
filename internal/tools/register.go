package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// SearchInput is the typed schema Genkit presents to the model for
// search_course_content. It mirrors CourseSearchTool's Definition.
type SearchInput struct {
	Query        string `json:"query" jsonschema_description:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title or partial name (e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// OutlineInput is the typed schema for get_course_outline.
type OutlineInput struct {
	CourseName string `json:"course_name" jsonschema_description:"Course title or partial name"`
}

// Register exposes the manager's tools to Genkit and returns the references
// to pass to Generate calls. Handlers delegate back to the manager so
// execution behaves identically whether Genkit or the generation loop
// dispatches the call. Both tools must already be registered on the manager.
func Register(g *genkit.Genkit, m *Manager) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if m == nil {
		return nil, fmt.Errorf("tool manager is required")
	}

	searchDef, err := definitionFor(m, SearchToolName)
	if err != nil {
		return nil, err
	}
	outlineDef, err := definitionFor(m, OutlineToolName)
	if err != nil {
		return nil, err
	}

	return []ai.Tool{
		genkit.DefineTool(g, SearchToolName, searchDef.Description,
			func(ctx *ai.ToolContext, in SearchInput) (string, error) {
				args := map[string]any{"query": in.Query}
				if in.CourseName != "" {
					args["course_name"] = in.CourseName
				}
				if in.LessonNumber != nil {
					args["lesson_number"] = *in.LessonNumber
				}
				return m.ExecuteTool(ctx, SearchToolName, args)
			}),
		genkit.DefineTool(g, OutlineToolName, outlineDef.Description,
			func(ctx *ai.ToolContext, in OutlineInput) (string, error) {
				return m.ExecuteTool(ctx, OutlineToolName, map[string]any{
					"course_name": in.CourseName,
				})
			}),
	}, nil
}

func definitionFor(m *Manager, name string) (Definition, error) {
	for _, def := range m.Definitions() {
		if def.Name == name {
			return def, nil
		}
	}
	return Definition{}, fmt.Errorf("tool %q is not registered on the manager", name)
}
