// Package store implements the dual-collection vector store backing course
// search.
//
// Two PostgreSQL tables hold the data: course_catalog keeps one row per
// course (title, instructor, link, lesson list, title embedding) and
// course_content keeps one row per text chunk. The catalog answers
// "which course does this name mean" via title-embedding similarity; the
// content table answers the actual semantic search. The tables are linked by
// course title value only — no foreign key — so a catalog row without content
// rows is representable and observable.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/coursepilot/coursepilot/internal/course"
)

// VectorDimension is the embedding dimension pinned by the migration schema.
// Embedders must be configured to produce vectors of this size.
const VectorDimension = 768

// DefaultMaxResults is the search result limit when none is configured.
const DefaultMaxResults = 5

// ErrCourseNotFound indicates a course name resolved to nothing, neither by
// exact title match nor by semantic lookup.
var ErrCourseNotFound = errors.New("course not found")

// Store provides course metadata and content operations over a Querier.
type Store struct {
	q          Querier
	embedder   ai.Embedder
	maxResults int
	logger     *slog.Logger
}

// New creates a Store. maxResults <= 0 falls back to DefaultMaxResults.
// A nil logger falls back to slog.Default().
func New(q Querier, embedder ai.Embedder, maxResults int, logger *slog.Logger) (*Store, error) {
	if q == nil {
		return nil, errors.New("querier is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{q: q, embedder: embedder, maxResults: maxResults, logger: logger}, nil
}

// SearchOption configures a content search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	courseName   string
	lessonNumber *int
	limit        int
}

// WithCourseName restricts the search to a course. The name is resolved
// against the catalog (exact match first, then semantic).
func WithCourseName(name string) SearchOption {
	return func(c *searchConfig) {
		c.courseName = name
	}
}

// WithLessonNumber restricts the search to a single lesson.
func WithLessonNumber(n int) SearchOption {
	return func(c *searchConfig) {
		c.lessonNumber = &n
	}
}

// WithLimit overrides the configured result limit for one search.
func WithLimit(limit int) SearchOption {
	return func(c *searchConfig) {
		c.limit = limit
	}
}

// AddCourseMetadata embeds the course title and upserts the catalog row.
func (s *Store) AddCourseMetadata(ctx context.Context, c *course.Course) error {
	if c == nil || c.Title == "" {
		return errors.New("course with a title is required")
	}

	lessons := c.Lessons
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	lessonsJSON, err := json.Marshal(lessons)
	if err != nil {
		return fmt.Errorf("marshaling lessons: %w", err)
	}

	vectors, err := s.embed(ctx, []string{c.Title})
	if err != nil {
		return fmt.Errorf("embedding course title: %w", err)
	}

	if err := s.q.UpsertCourse(ctx, UpsertCourseParams{
		Title:      c.Title,
		Instructor: c.Instructor,
		Link:       c.Link,
		Lessons:    lessonsJSON,
		Embedding:  vectors[0],
	}); err != nil {
		return err
	}

	s.logger.Debug("added course metadata", "course", c.Title, "lessons", len(c.Lessons))
	return nil
}

// AddCourseContent embeds all chunk contents in one request and upserts the
// content rows. Chunk IDs are deterministic, so re-adding a course overwrites
// its previous chunks.
func (s *Store) AddCourseContent(ctx context.Context, chunks []course.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	for i, c := range chunks {
		var lesson *int32
		if c.LessonNumber != nil {
			n := int32(*c.LessonNumber)
			lesson = &n
		}
		if err := s.q.UpsertChunk(ctx, UpsertChunkParams{
			ID:           fmt.Sprintf("%s::%d", c.CourseTitle, c.Index),
			CourseTitle:  c.CourseTitle,
			LessonNumber: lesson,
			ChunkIndex:   int32(c.Index),
			Content:      c.Content,
			Embedding:    vectors[i],
		}); err != nil {
			return err
		}
	}

	s.logger.Debug("added course content", "chunks", len(chunks))
	return nil
}

// Search runs a semantic search over course content.
//
// Failures are reported in SearchResults.Error rather than as a Go error:
// an unresolvable course name yields "No course found matching '{name}'",
// any backend or embedding failure yields "Search error: {detail}". The tool
// layer passes these strings to the model verbatim.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) course.SearchResults {
	cfg := searchConfig{limit: s.maxResults}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.limit <= 0 {
		cfg.limit = s.maxResults
	}

	var filter ContentFilter
	if cfg.courseName != "" {
		title, err := s.ResolveCourseName(ctx, cfg.courseName)
		if errors.Is(err, ErrCourseNotFound) {
			return course.ErrorResults(fmt.Sprintf("No course found matching '%s'", cfg.courseName))
		}
		if err != nil {
			return course.ErrorResults(fmt.Sprintf("Search error: %v", err))
		}
		filter.CourseTitle = &title
	}
	filter.LessonNumber = cfg.lessonNumber

	vectors, err := s.embed(ctx, []string{query})
	if err != nil {
		return course.ErrorResults(fmt.Sprintf("Search error: %v", err))
	}

	rows, err := s.q.SearchChunks(ctx, SearchChunksParams{
		Embedding: vectors[0],
		Filter:    filter,
		Limit:     int32(cfg.limit),
	})
	if err != nil {
		return course.ErrorResults(fmt.Sprintf("Search error: %v", err))
	}

	docs := make([]string, len(rows))
	meta := make([]course.ChunkMeta, len(rows))
	distances := make([]float64, len(rows))
	for i, r := range rows {
		docs[i] = r.Content
		meta[i] = course.ChunkMeta{
			CourseTitle: r.CourseTitle,
			Index:       int(r.ChunkIndex),
		}
		if r.LessonNumber != nil {
			n := int(*r.LessonNumber)
			meta[i].LessonNumber = &n
		}
		distances[i] = r.Distance
	}
	return course.NewSearchResults(docs, meta, distances)
}

// ResolveCourseName maps a user-supplied course name to a catalog title.
// An exact title match short-circuits; otherwise the closest catalog entry by
// title embedding wins. Returns ErrCourseNotFound when the catalog has no
// candidate at all.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	exists, err := s.q.CourseTitleExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("resolving course name: %w", err)
	}
	if exists {
		return name, nil
	}

	vectors, err := s.embed(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("embedding course name: %w", err)
	}

	title, err := s.q.NearestCourseTitle(ctx, vectors[0])
	if err != nil {
		return "", fmt.Errorf("resolving course name: %w", err)
	}
	if title == "" {
		return "", ErrCourseNotFound
	}

	s.logger.Debug("resolved course name semantically", "input", name, "resolved", title)
	return title, nil
}

// GetExistingCourseTitles lists all catalog titles.
func (s *Store) GetExistingCourseTitles(ctx context.Context) ([]string, error) {
	return s.q.ListCourseTitles(ctx)
}

// GetCourseCount returns the number of catalog entries.
func (s *Store) GetCourseCount(ctx context.Context) (int, error) {
	n, err := s.q.CountCourses(ctx)
	return int(n), err
}

// GetAllCoursesMetadata returns every catalog entry with its lessons.
func (s *Store) GetAllCoursesMetadata(ctx context.Context) ([]course.Course, error) {
	rows, err := s.q.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		c, err := rowToCourse(r)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// GetCourseLink returns the link of a course, or "" when the course is
// unknown. Absence is not an error.
func (s *Store) GetCourseLink(ctx context.Context, title string) (string, error) {
	row, found, err := s.q.GetCourse(ctx, title)
	if err != nil || !found {
		return "", err
	}
	return row.Link, nil
}

// GetLessonLink returns the link of a lesson within a course, or "" when
// either the course or the lesson is unknown. Absence is not an error.
func (s *Store) GetLessonLink(ctx context.Context, title string, lessonNumber int) (string, error) {
	row, found, err := s.q.GetCourse(ctx, title)
	if err != nil || !found {
		return "", err
	}
	c, err := rowToCourse(row)
	if err != nil {
		return "", err
	}
	for _, l := range c.Lessons {
		if l.Number == lessonNumber {
			return l.Link, nil
		}
	}
	return "", nil
}

// GetCourseOutline returns the full catalog entry for a title.
func (s *Store) GetCourseOutline(ctx context.Context, title string) (*course.Course, error) {
	row, found, err := s.q.GetCourse(ctx, title)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCourseNotFound
	}
	c, err := rowToCourse(row)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClearAll removes all data from both collections.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.q.TruncateAll(ctx); err != nil {
		return err
	}
	s.logger.Info("cleared all course data")
	return nil
}

// embed converts texts to vectors in a single embedder request.
func (s *Store) embed(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(t)}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d inputs",
			len(resp.Embeddings), len(texts))
	}

	vectors := make([]pgvector.Vector, len(texts))
	for i, e := range resp.Embeddings {
		vectors[i] = pgvector.NewVector(e.Embedding)
	}
	return vectors, nil
}

func rowToCourse(r CourseRow) (course.Course, error) {
	c := course.Course{
		Title:      r.Title,
		Instructor: r.Instructor,
		Link:       r.Link,
	}
	if len(r.Lessons) > 0 {
		if err := json.Unmarshal(r.Lessons, &c.Lessons); err != nil {
			return course.Course{}, fmt.Errorf("unmarshaling lessons for %q: %w", r.Title, err)
		}
	}
	return c, nil
}
