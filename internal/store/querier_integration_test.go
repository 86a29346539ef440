//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/internal/testutil"
)

// unitVector builds a 768-dimensional unit vector pointing along axis i.
// Distinct axes are orthogonal, so cosine distance between them is 1.
func unitVector(i int) pgvector.Vector {
	v := make([]float32, store.VectorDimension)
	v[i%store.VectorDimension] = 1
	return pgvector.NewVector(v)
}

func seedCourse(t *testing.T, q *store.PGQuerier, title string, axis int) {
	t.Helper()
	err := q.UpsertCourse(context.Background(), store.UpsertCourseParams{
		Title:     title,
		Lessons:   []byte("[]"),
		Embedding: unitVector(axis),
	})
	require.NoError(t, err, "UpsertCourse(%q)", title)
}

func seedChunk(t *testing.T, q *store.PGQuerier, title string, lesson *int32, idx int, axis int) {
	t.Helper()
	err := q.UpsertChunk(context.Background(), store.UpsertChunkParams{
		ID:           fmt.Sprintf("%s::%d", title, idx),
		CourseTitle:  title,
		LessonNumber: lesson,
		ChunkIndex:   int32(idx),
		Content:      "chunk content",
		Embedding:    unitVector(axis),
	})
	require.NoError(t, err, "UpsertChunk(%s::%d)", title, idx)
}

func TestPGQuerier_RoundTrip(t *testing.T) {
	t.Parallel()

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	q := store.NewPGQuerier(db.Pool)
	ctx := context.Background()

	// Empty catalog behaviors.
	title, err := q.NearestCourseTitle(ctx, unitVector(0))
	require.NoError(t, err)
	assert.Empty(t, title, "empty catalog should yield no nearest title")

	_, found, err := q.GetCourse(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found, "absent course should not be an error")

	seedCourse(t, q, "Course A", 0)
	seedCourse(t, q, "Course B", 1)

	exists, err := q.CourseTitleExists(ctx, "Course A")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := q.CountCourses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	titles, err := q.ListCourseTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Course A", "Course B"}, titles)

	// Nearest title tracks the query embedding.
	title, err = q.NearestCourseTitle(ctx, unitVector(1))
	require.NoError(t, err)
	assert.Equal(t, "Course B", title)

	// Upsert in place: same title, new data, still 2 rows.
	err = q.UpsertCourse(ctx, store.UpsertCourseParams{
		Title:      "Course A",
		Instructor: "Updated",
		Lessons:    []byte("[]"),
		Embedding:  unitVector(0),
	})
	require.NoError(t, err)

	n, err = q.CountCourses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "upsert must not create a second row")

	row, found, err := q.GetCourse(ctx, "Course A")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Updated", row.Instructor)
}

func TestPGQuerier_SearchChunksFilters(t *testing.T) {
	t.Parallel()

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	q := store.NewPGQuerier(db.Pool)
	ctx := context.Background()

	one := int32(1)
	two := int32(2)
	seedChunk(t, q, "Course A", &one, 0, 0)
	seedChunk(t, q, "Course A", &two, 1, 1)
	seedChunk(t, q, "Course B", &one, 0, 2)
	seedChunk(t, q, "Course B", nil, 1, 3)

	search := func(filter store.ContentFilter) []store.ChunkRow {
		t.Helper()
		rows, err := q.SearchChunks(ctx, store.SearchChunksParams{
			Embedding: unitVector(0),
			Filter:    filter,
			Limit:     10,
		})
		require.NoError(t, err, "SearchChunks")
		return rows
	}

	assert.Len(t, search(store.ContentFilter{}), 4, "unfiltered search")

	titleA := "Course A"
	assert.Len(t, search(store.ContentFilter{CourseTitle: &titleA}), 2, "course filter")

	lesson := 1
	assert.Len(t, search(store.ContentFilter{LessonNumber: &lesson}), 2, "lesson filter")

	rows := search(store.ContentFilter{CourseTitle: &titleA, LessonNumber: &lesson})
	require.Len(t, rows, 1, "conjunction filter")
	assert.Equal(t, "Course A", rows[0].CourseTitle)
	require.NotNil(t, rows[0].LessonNumber)
	assert.EqualValues(t, 1, *rows[0].LessonNumber)

	// Ordering: the chunk sharing the query axis comes first with distance 0.
	all := search(store.ContentFilter{})
	assert.Zero(t, all[0].Distance, "closest chunk should sort first")
}

func TestPGQuerier_TruncateAll(t *testing.T) {
	t.Parallel()

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	q := store.NewPGQuerier(db.Pool)
	ctx := context.Background()

	seedCourse(t, q, "Course A", 0)
	seedChunk(t, q, "Course A", nil, 0, 0)

	require.NoError(t, q.TruncateAll(ctx))

	n, err := q.CountCourses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	rows, err := q.SearchChunks(ctx, store.SearchChunksParams{
		Embedding: unitVector(0),
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
