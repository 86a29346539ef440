// Package course defines the data model shared by ingestion, storage and search.
//
// A Course is identified by its title across both storage collections:
// the catalog (one row per course) and the content store (one row per chunk).
// The two collections are linked by title value only, so a catalog entry may
// exist without any content rows. That state is observable and intentional.
package course

// Lesson is a single lesson within a course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Course represents a full course parsed from a transcript document.
// Title is the unique identifier used as the join key across collections.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Chunk is a piece of course text prepared for vector storage.
// LessonNumber is nil for text that appears before the first lesson marker.
// Index is sequential across the whole course document, starting at 0.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Index        int
}

// ChunkMeta is the metadata attached to a single search hit.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber *int
	Index        int
}

// SearchResults carries the outcome of a content search.
//
// Documents, Metadata and Distances are parallel slices. Error holds a
// human-readable message when the search could not be performed; backend
// failures are captured here instead of being returned as Go errors, so the
// tool layer can surface them directly to the model.
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMeta
	Distances []float64
	Error     string
}

// NewSearchResults builds a successful result set.
func NewSearchResults(docs []string, meta []ChunkMeta, distances []float64) SearchResults {
	return SearchResults{Documents: docs, Metadata: meta, Distances: distances}
}

// ErrorResults builds a result set carrying only an error message.
func ErrorResults(msg string) SearchResults {
	return SearchResults{Error: msg}
}

// IsEmpty reports whether the search produced no documents.
// An error result is not considered empty; check Error first.
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}
