package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Querier is the database access surface the Store depends on.
// Defined by the consumer so tests can substitute an in-memory fake.
type Querier interface {
	UpsertCourse(ctx context.Context, p UpsertCourseParams) error
	UpsertChunk(ctx context.Context, p UpsertChunkParams) error
	SearchChunks(ctx context.Context, p SearchChunksParams) ([]ChunkRow, error)
	CourseTitleExists(ctx context.Context, title string) (bool, error)
	// NearestCourseTitle returns the catalog title closest to the embedding,
	// or "" when the catalog is empty.
	NearestCourseTitle(ctx context.Context, embedding pgvector.Vector) (string, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
	CountCourses(ctx context.Context) (int64, error)
	ListCourses(ctx context.Context) ([]CourseRow, error)
	// GetCourse returns the catalog row for an exact title.
	// The bool reports whether the row exists.
	GetCourse(ctx context.Context, title string) (CourseRow, bool, error)
	TruncateAll(ctx context.Context) error
}

// UpsertCourseParams is one catalog row. Lessons is pre-marshaled JSON.
type UpsertCourseParams struct {
	Title      string
	Instructor string
	Link       string
	Lessons    []byte
	Embedding  pgvector.Vector
}

// UpsertChunkParams is one content row. ID is "{course title}::{chunk index}"
// so re-ingesting a course overwrites its chunks in place.
type UpsertChunkParams struct {
	ID           string
	CourseTitle  string
	LessonNumber *int32
	ChunkIndex   int32
	Content      string
	Embedding    pgvector.Vector
}

// SearchChunksParams drives a similarity search over course_content.
type SearchChunksParams struct {
	Embedding pgvector.Vector
	Filter    ContentFilter
	Limit     int32
}

// ChunkRow is a single content search hit with its cosine distance.
type ChunkRow struct {
	Content      string
	CourseTitle  string
	LessonNumber *int32
	ChunkIndex   int32
	Distance     float64
}

// CourseRow is a catalog row as stored. Lessons is raw JSON.
type CourseRow struct {
	Title      string
	Instructor string
	Link       string
	Lessons    []byte
}

// ContentFilter restricts a content search by course and/or lesson.
// The zero value matches everything.
type ContentFilter struct {
	CourseTitle  *string
	LessonNumber *int
}

// Conditions renders the filter as SQL predicates with numbered placeholders
// starting at argIndex. The shape is part of the search contract:
// no constraint produces no predicate, a single constraint a single equality,
// and both constraints their conjunction.
func (f ContentFilter) Conditions(argIndex int) (string, []any) {
	var (
		preds []string
		args  []any
	)
	if f.CourseTitle != nil {
		preds = append(preds, fmt.Sprintf("course_title = $%d", argIndex))
		args = append(args, *f.CourseTitle)
		argIndex++
	}
	if f.LessonNumber != nil {
		preds = append(preds, fmt.Sprintf("lesson_number = $%d", argIndex))
		args = append(args, *f.LessonNumber)
	}
	return strings.Join(preds, " AND "), args
}

// PGQuerier implements Querier over a pgx connection pool with hand-written
// SQL. Both tables are created by db/migrations.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier wraps a connection pool.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const upsertCourseSQL = `
INSERT INTO course_catalog (title, instructor, course_link, lessons, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (title) DO UPDATE SET
	instructor = EXCLUDED.instructor,
	course_link = EXCLUDED.course_link,
	lessons = EXCLUDED.lessons,
	embedding = EXCLUDED.embedding`

func (q *PGQuerier) UpsertCourse(ctx context.Context, p UpsertCourseParams) error {
	_, err := q.pool.Exec(ctx, upsertCourseSQL,
		p.Title, p.Instructor, p.Link, p.Lessons, p.Embedding)
	if err != nil {
		return fmt.Errorf("upserting course %q: %w", p.Title, err)
	}
	return nil
}

const upsertChunkSQL = `
INSERT INTO course_content (id, course_title, lesson_number, chunk_index, content, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	course_title = EXCLUDED.course_title,
	lesson_number = EXCLUDED.lesson_number,
	chunk_index = EXCLUDED.chunk_index,
	content = EXCLUDED.content,
	embedding = EXCLUDED.embedding`

func (q *PGQuerier) UpsertChunk(ctx context.Context, p UpsertChunkParams) error {
	_, err := q.pool.Exec(ctx, upsertChunkSQL,
		p.ID, p.CourseTitle, p.LessonNumber, p.ChunkIndex, p.Content, p.Embedding)
	if err != nil {
		return fmt.Errorf("upserting chunk %q: %w", p.ID, err)
	}
	return nil
}

func (q *PGQuerier) SearchChunks(ctx context.Context, p SearchChunksParams) ([]ChunkRow, error) {
	query := `
SELECT content, course_title, lesson_number, chunk_index, embedding <=> $1 AS distance
FROM course_content`
	args := []any{p.Embedding}

	if preds, filterArgs := p.Filter.Conditions(2); preds != "" {
		query += "\nWHERE " + preds
		args = append(args, filterArgs...)
	}

	query += fmt.Sprintf("\nORDER BY embedding <=> $1\nLIMIT %d", p.Limit)

	rows, err := q.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var results []ChunkRow
	for rows.Next() {
		var r ChunkRow
		if err := rows.Scan(&r.Content, &r.CourseTitle, &r.LessonNumber, &r.ChunkIndex, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}
	return results, nil
}

func (q *PGQuerier) CourseTitleExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM course_catalog WHERE title = $1)`, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking course title: %w", err)
	}
	return exists, nil
}

func (q *PGQuerier) NearestCourseTitle(ctx context.Context, embedding pgvector.Vector) (string, error) {
	var title string
	err := q.pool.QueryRow(ctx,
		`SELECT title FROM course_catalog ORDER BY embedding <=> $1 LIMIT 1`, embedding).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("finding nearest course title: %w", err)
	}
	return title, nil
}

func (q *PGQuerier) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx, `SELECT title FROM course_catalog ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning course title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course titles: %w", err)
	}
	return titles, nil
}

func (q *PGQuerier) CountCourses(ctx context.Context) (int64, error) {
	var n int64
	if err := q.pool.QueryRow(ctx, `SELECT COUNT(*) FROM course_catalog`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return n, nil
}

func (q *PGQuerier) ListCourses(ctx context.Context) ([]CourseRow, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT title, instructor, course_link, lessons FROM course_catalog ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	var courses []CourseRow
	for rows.Next() {
		var r CourseRow
		if err := rows.Scan(&r.Title, &r.Instructor, &r.Link, &r.Lessons); err != nil {
			return nil, fmt.Errorf("scanning course row: %w", err)
		}
		courses = append(courses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course rows: %w", err)
	}
	return courses, nil
}

func (q *PGQuerier) GetCourse(ctx context.Context, title string) (CourseRow, bool, error) {
	var r CourseRow
	err := q.pool.QueryRow(ctx,
		`SELECT title, instructor, course_link, lessons FROM course_catalog WHERE title = $1`,
		title).Scan(&r.Title, &r.Instructor, &r.Link, &r.Lessons)
	if errors.Is(err, pgx.ErrNoRows) {
		return CourseRow{}, false, nil
	}
	if err != nil {
		return CourseRow{}, false, fmt.Errorf("getting course %q: %w", title, err)
	}
	return r, true, nil
}

// TruncateAll removes every row from both collections, restoring the empty
// state. Used by folder ingestion with clearExisting and by tests.
func (q *PGQuerier) TruncateAll(ctx context.Context) error {
	if _, err := q.pool.Exec(ctx, `TRUNCATE course_catalog, course_content`); err != nil {
		return fmt.Errorf("truncating collections: %w", err)
	}
	return nil
}
