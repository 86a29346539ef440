// Package rag wires document processing, vector storage, tools, generation
// and session memory into the course Q&A facade.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/coursepilot/coursepilot/internal/course"
	"github.com/coursepilot/coursepilot/internal/docproc"
	"github.com/coursepilot/coursepilot/internal/generator"
	"github.com/coursepilot/coursepilot/internal/session"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/internal/tools"
)

// queryTemplate frames the user's question for the model.
const queryTemplate = "Answer this question about course materials: %s"

// supportedExtensions are the transcript file types folder ingestion accepts.
// All of them are read as text.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

// Config contains the components the System orchestrates.
type Config struct {
	Processor *docproc.Processor
	Store     *store.Store
	Generator *generator.Generator
	Tools     *tools.Manager
	Sessions  *session.Manager
	ToolRefs  []ai.ToolRef
	Logger    *slog.Logger
}

// Analytics summarizes the catalog for display surfaces.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System is the top-level facade over the whole pipeline.
type System struct {
	processor *docproc.Processor
	store     *store.Store
	generator *generator.Generator
	tools     *tools.Manager
	sessions  *session.Manager
	toolRefs  []ai.ToolRef
	logger    *slog.Logger
}

// New validates the configuration and creates a System.
func New(cfg Config) (*System, error) {
	if cfg.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Tools == nil {
		return nil, errors.New("tool manager is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		processor: cfg.Processor,
		store:     cfg.Store,
		generator: cfg.Generator,
		tools:     cfg.Tools,
		sessions:  cfg.Sessions,
		toolRefs:  cfg.ToolRefs,
		logger:    logger,
	}, nil
}

// Query answers a question, returning the answer plus the citation sources
// and parallel links collected during tool execution.
//
// sessionID may be empty: the query then runs without history and is not
// recorded. Sources are reset after collection so the next query starts
// clean. The query text is passed through as given; input validation is the
// caller's concern.
func (s *System) Query(ctx context.Context, text, sessionID string) (answer string, sources, sourceLinks []string) {
	var history string
	if sessionID != "" {
		history = s.sessions.History(sessionID)
	}

	prompt := fmt.Sprintf(queryTemplate, text)
	answer = s.generator.GenerateResponse(ctx, prompt, history, s.toolRefs, s.tools)

	sources, sourceLinks = s.tools.LastSources()

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, text, answer)
	}
	s.tools.ResetSources()

	return answer, sources, sourceLinks
}

// AddCourseDocument ingests a single transcript file: parse, store metadata,
// store content. Returns the parsed course and the number of chunks stored.
func (s *System) AddCourseDocument(ctx context.Context, path string) (*course.Course, int, error) {
	c, chunks, err := s.processor.ProcessCourseDocument(path)
	if err != nil {
		return nil, 0, fmt.Errorf("processing %s: %w", path, err)
	}
	if err := s.store.AddCourseMetadata(ctx, c); err != nil {
		return nil, 0, err
	}
	if err := s.store.AddCourseContent(ctx, chunks); err != nil {
		return nil, 0, err
	}
	s.logger.Info("added course document", "course", c.Title, "chunks", len(chunks))
	return c, len(chunks), nil
}

// AddCourseFolder ingests every supported file in a folder and returns the
// number of courses and chunks added.
//
// Existing catalog titles are fetched once up front, and files whose parsed
// course title is already present are skipped entirely. The skip is by title
// only: a catalog entry whose content rows were lost still suppresses
// re-ingestion, and that divergence stays visible until clearExisting wipes
// both collections. Per-file failures are logged and skipped, never fatal.
func (s *System) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (coursesAdded, chunksAdded int, err error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return 0, 0, fmt.Errorf("course folder %s does not exist", dir)
	}

	if clearExisting {
		s.logger.Info("clearing existing course data")
		if err := s.store.ClearAll(ctx); err != nil {
			return 0, 0, err
		}
	}

	titles, err := s.store.GetExistingCourseTitles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("listing existing courses: %w", err)
	}
	existing := make(map[string]bool, len(titles))
	for _, t := range titles {
		existing[t] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("reading course folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		c, chunks, err := s.processor.ProcessCourseDocument(path)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "path", path, "error", err)
			continue
		}
		if existing[c.Title] {
			s.logger.Debug("skipping already-ingested course", "course", c.Title)
			continue
		}

		if err := s.store.AddCourseMetadata(ctx, c); err != nil {
			s.logger.Warn("storing course metadata failed", "course", c.Title, "error", err)
			continue
		}
		if err := s.store.AddCourseContent(ctx, chunks); err != nil {
			s.logger.Warn("storing course content failed", "course", c.Title, "error", err)
			continue
		}

		existing[c.Title] = true
		coursesAdded++
		chunksAdded += len(chunks)
		s.logger.Info("ingested course", "course", c.Title, "chunks", len(chunks))
	}

	return coursesAdded, chunksAdded, nil
}

// Analytics reports catalog totals and titles.
func (s *System) Analytics(ctx context.Context) (Analytics, error) {
	count, err := s.store.GetCourseCount(ctx)
	if err != nil {
		return Analytics{}, err
	}
	titles, err := s.store.GetExistingCourseTitles(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}

// CreateSession starts a new conversation session.
func (s *System) CreateSession() string {
	return s.sessions.CreateSession()
}
