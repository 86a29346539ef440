package docproc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coursepilot/coursepilot/internal/testutil"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing test document: %v", err)
	}
	return path
}

func TestNew_Defaults(t *testing.T) {
	p := New(0, -1, nil)
	if p.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize = %d, want %d", p.chunkSize, DefaultChunkSize)
	}
	if p.chunkOverlap != DefaultChunkOverlap {
		t.Errorf("chunkOverlap = %d, want %d", p.chunkOverlap, DefaultChunkOverlap)
	}
}

func TestReadFile_InvalidUTF8(t *testing.T) {
	p := New(800, 100, testutil.DiscardLogger())
	path := writeDoc(t, "bad.txt", "hello \xff\xfe world")

	got, err := p.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got != "hello  world" {
		t.Errorf("ReadFile() = %q, want invalid bytes dropped", got)
	}
}

func TestReadFile_Missing(t *testing.T) {
	p := New(800, 100, testutil.DiscardLogger())
	if _, err := p.ReadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("ReadFile() on missing file: expected error")
	}
}

func TestChunkText_Empty(t *testing.T) {
	p := New(800, 100, testutil.DiscardLogger())
	if got := p.ChunkText("   \n\t  "); got != nil {
		t.Errorf("ChunkText(whitespace) = %v, want nil", got)
	}
}

func TestChunkText_SingleChunk(t *testing.T) {
	p := New(800, 100, testutil.DiscardLogger())
	got := p.ChunkText("First sentence. Second sentence.")
	if len(got) != 1 {
		t.Fatalf("ChunkText() returned %d chunks, want 1", len(got))
	}
	if got[0] != "First sentence. Second sentence." {
		t.Errorf("chunk = %q", got[0])
	}
}

func TestChunkText_NormalizesWhitespace(t *testing.T) {
	p := New(800, 100, testutil.DiscardLogger())
	got := p.ChunkText("First\n\nsentence.   Second\tsentence.")
	if len(got) != 1 {
		t.Fatalf("ChunkText() returned %d chunks, want 1", len(got))
	}
	if got[0] != "First sentence. Second sentence." {
		t.Errorf("chunk = %q, want normalized whitespace", got[0])
	}
}

func TestChunkText_ShortInputIsIdentity(t *testing.T) {
	p := New(100, 0, testutil.DiscardLogger())
	tests := []string{
		"The value of pi is 3.14 approximately.",
		"Install v1.2.3 before starting the exercises.",
		"Use abbreviations, e.g. MCP, sparingly in answers.",
		"Is that all? Yes! That is all.",
	}
	for _, text := range tests {
		got := p.ChunkText(text)
		if len(got) != 1 || got[0] != text {
			t.Errorf("ChunkText(%q) = %v, want one chunk equal to the input", text, got)
		}
	}
}

func TestChunkText_SplitKeepsTokensIntact(t *testing.T) {
	p := New(45, 0, testutil.DiscardLogger())
	text := "Pi is roughly 3.14159 in this course. The 2.0 release changed the API entirely."

	chunks := p.ChunkText(text)
	if len(chunks) != 2 {
		t.Fatalf("ChunkText() returned %d chunks, want 2", len(chunks))
	}
	if chunks[0] != "Pi is roughly 3.14159 in this course." {
		t.Errorf("chunks[0] = %q", chunks[0])
	}
	if chunks[1] != "The 2.0 release changed the API entirely." {
		t.Errorf("chunks[1] = %q", chunks[1])
	}
}

func TestChunkText_RespectsSizeLimit(t *testing.T) {
	p := New(60, 0, testutil.DiscardLogger())
	text := "One short sentence here. Another short sentence here. A third short sentence here."

	chunks := p.ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("ChunkText() returned %d chunks, want at least 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 60 {
			t.Errorf("chunk %d length = %d, exceeds limit: %q", i, len(c), c)
		}
	}
}

func TestChunkText_OversizedSentenceOwnChunk(t *testing.T) {
	p := New(20, 0, testutil.DiscardLogger())
	long := strings.Repeat("word ", 10) + "end."

	chunks := p.ChunkText("Short one. " + long)
	if len(chunks) != 2 {
		t.Fatalf("ChunkText() returned %d chunks, want 2", len(chunks))
	}
	// The oversized sentence may exceed the limit but must be intact.
	if !strings.HasSuffix(chunks[1], "end.") {
		t.Errorf("oversized sentence split: %q", chunks[1])
	}
}

func TestChunkText_ConsecutiveChunksOverlap(t *testing.T) {
	p := New(80, 30, testutil.DiscardLogger())
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("This is sentence number something. ")
	}

	chunks := p.ChunkText(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("ChunkText() returned %d chunks, want at least 2", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		// The successor must open with text the predecessor ends with.
		words := strings.Fields(cur)
		if len(words) == 0 {
			t.Fatalf("chunk %d is empty", i)
		}
		if !strings.Contains(prev, words[0]) {
			t.Errorf("chunk %d does not share text with its predecessor:\nprev: %q\ncur:  %q", i, prev, cur)
		}
	}
}

func TestChunkText_ZeroOverlapNoSharedText(t *testing.T) {
	p := New(40, 0, testutil.DiscardLogger())
	text := "Alpha sentence one. Bravo sentence two. Charlie sentence three. Delta sentence four."

	chunks := p.ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("ChunkText() returned %d chunks, want at least 2", len(chunks))
	}
	joined := strings.Join(chunks, " ")
	for _, want := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		if strings.Count(joined, want) != 1 {
			t.Errorf("%q appears %d times across chunks, want exactly 1", want, strings.Count(joined, want))
		}
	}
}

func TestChunkText_Progress(t *testing.T) {
	// Overlap budget larger than chunk size must not stall the window.
	p := New(30, 100, testutil.DiscardLogger())
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("Tiny sentence. ")
	}

	chunks := p.ChunkText(sb.String())
	if len(chunks) == 0 || len(chunks) > 200 {
		t.Fatalf("ChunkText() returned %d chunks, expected bounded forward progress", len(chunks))
	}
}

func TestProcessCourseDocument_FullHeader(t *testing.T) {
	doc := `Course Title: Building Toward Computer Use
Course Link: https://example.com/course
Course Instructor: Colt Steele

Lesson 0: Introduction
Lesson Link: https://example.com/lesson/0
Welcome to the course. This lesson introduces the topic.

Lesson 1: Getting Started
Lesson Link: https://example.com/lesson/1
Now we get started. This is the second lesson.
`
	p := New(800, 100, testutil.DiscardLogger())
	c, chunks, err := p.ProcessCourseDocument(writeDoc(t, "course1.txt", doc))
	if err != nil {
		t.Fatalf("ProcessCourseDocument() error = %v", err)
	}

	if c.Title != "Building Toward Computer Use" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Link != "https://example.com/course" {
		t.Errorf("Link = %q", c.Link)
	}
	if c.Instructor != "Colt Steele" {
		t.Errorf("Instructor = %q", c.Instructor)
	}
	if len(c.Lessons) != 2 {
		t.Fatalf("len(Lessons) = %d, want 2", len(c.Lessons))
	}
	if c.Lessons[0].Number != 0 || c.Lessons[0].Title != "Introduction" {
		t.Errorf("Lessons[0] = %+v", c.Lessons[0])
	}
	if c.Lessons[0].Link != "https://example.com/lesson/0" {
		t.Errorf("Lessons[0].Link = %q", c.Lessons[0].Link)
	}
	if c.Lessons[1].Number != 1 || c.Lessons[1].Link != "https://example.com/lesson/1" {
		t.Errorf("Lessons[1] = %+v", c.Lessons[1])
	}

	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Content, "Lesson 0 content: ") {
		t.Errorf("chunks[0].Content = %q, want lesson prefix", chunks[0].Content)
	}
	if !strings.HasPrefix(chunks[1].Content, "Lesson 1 content: ") {
		t.Errorf("chunks[1].Content = %q, want lesson prefix", chunks[1].Content)
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunks[%d].Index = %d, want %d", i, ch.Index, i)
		}
		if ch.CourseTitle != c.Title {
			t.Errorf("chunks[%d].CourseTitle = %q", i, ch.CourseTitle)
		}
		if ch.LessonNumber == nil {
			t.Errorf("chunks[%d].LessonNumber = nil", i)
		}
	}
	if *chunks[0].LessonNumber != 0 || *chunks[1].LessonNumber != 1 {
		t.Errorf("lesson numbers = %d, %d", *chunks[0].LessonNumber, *chunks[1].LessonNumber)
	}
}

func TestProcessCourseDocument_NoHeaderFallsBackToFirstLine(t *testing.T) {
	doc := `My Untitled Course

Some preamble content before any lesson marker appears.
`
	p := New(800, 100, testutil.DiscardLogger())
	c, chunks, err := p.ProcessCourseDocument(writeDoc(t, "untitled.txt", doc))
	if err != nil {
		t.Fatalf("ProcessCourseDocument() error = %v", err)
	}

	if c.Title != "My Untitled Course" {
		t.Errorf("Title = %q, want first line", c.Title)
	}
	if len(c.Lessons) != 0 {
		t.Errorf("len(Lessons) = %d, want 0", len(c.Lessons))
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].LessonNumber != nil {
		t.Errorf("preamble chunk LessonNumber = %d, want nil", *chunks[0].LessonNumber)
	}
	if strings.HasPrefix(chunks[0].Content, "Lesson") {
		t.Errorf("preamble chunk should not carry a lesson prefix: %q", chunks[0].Content)
	}
}

func TestProcessCourseDocument_EmptyFileUsesFilenameStem(t *testing.T) {
	p := New(800, 100, testutil.DiscardLogger())
	c, chunks, err := p.ProcessCourseDocument(writeDoc(t, "standalone_notes.txt", ""))
	if err != nil {
		t.Fatalf("ProcessCourseDocument() error = %v", err)
	}
	if c.Title != "standalone_notes" {
		t.Errorf("Title = %q, want filename stem", c.Title)
	}
	if len(chunks) != 0 {
		t.Errorf("len(chunks) = %d, want 0", len(chunks))
	}
}

func TestProcessCourseDocument_MalformedLessonIsBodyText(t *testing.T) {
	doc := `Course Title: Edge Cases

Lesson one: not a real marker because the number is spelled out.
Lesson 99999999999999999999: overflows and is kept as text.
Actual content continues here.
`
	p := New(800, 100, testutil.DiscardLogger())
	c, chunks, err := p.ProcessCourseDocument(writeDoc(t, "edge.txt", doc))
	if err != nil {
		t.Fatalf("ProcessCourseDocument() error = %v", err)
	}

	if len(c.Lessons) != 0 {
		t.Errorf("len(Lessons) = %d, want 0 for malformed markers", len(c.Lessons))
	}
	if len(chunks) == 0 {
		t.Fatal("expected body chunks")
	}
	joined := chunks[0].Content
	if !strings.Contains(joined, "spelled out") || !strings.Contains(joined, "overflows") {
		t.Errorf("malformed markers missing from body text: %q", joined)
	}
}

func TestProcessCourseDocument_PreambleBeforeFirstLesson(t *testing.T) {
	doc := `Course Title: With Preamble

This text comes before the first lesson and has no lesson number.

Lesson 1: Start
Lesson one content goes here in full sentences.
`
	p := New(800, 100, testutil.DiscardLogger())
	_, chunks, err := p.ProcessCourseDocument(writeDoc(t, "pre.txt", doc))
	if err != nil {
		t.Fatalf("ProcessCourseDocument() error = %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if chunks[0].LessonNumber != nil {
		t.Errorf("preamble chunk LessonNumber = %v, want nil", *chunks[0].LessonNumber)
	}
	if chunks[1].LessonNumber == nil || *chunks[1].LessonNumber != 1 {
		t.Errorf("lesson chunk LessonNumber = %v, want 1", chunks[1].LessonNumber)
	}
	if chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Errorf("indices = %d, %d; want sequential", chunks[0].Index, chunks[1].Index)
	}
}

func TestProcessCourseDocument_LessonWithoutLink(t *testing.T) {
	doc := `Course Title: Linkless

Lesson 3: No Link Here
Content of the lesson without a link line.
`
	p := New(800, 100, testutil.DiscardLogger())
	c, _, err := p.ProcessCourseDocument(writeDoc(t, "linkless.txt", doc))
	if err != nil {
		t.Fatalf("ProcessCourseDocument() error = %v", err)
	}
	if len(c.Lessons) != 1 {
		t.Fatalf("len(Lessons) = %d, want 1", len(c.Lessons))
	}
	if c.Lessons[0].Link != "" {
		t.Errorf("Lessons[0].Link = %q, want empty", c.Lessons[0].Link)
	}
	if c.Lessons[0].Number != 3 {
		t.Errorf("Lessons[0].Number = %d, want 3", c.Lessons[0].Number)
	}
}

func TestProcessCourseDocument_LessonPrefixOnlyOnFirstChunk(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Course Title: Long Lesson\n\nLesson 1: Big\n")
	for i := 0; i < 40; i++ {
		sb.WriteString("This sentence pads the lesson body with enough text to split. ")
	}

	p := New(120, 20, testutil.DiscardLogger())
	_, chunks, err := p.ProcessCourseDocument(writeDoc(t, "long.txt", sb.String()))
	if err != nil {
		t.Fatalf("ProcessCourseDocument() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want several", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Content, "Lesson 1 content: ") {
		t.Errorf("first chunk missing prefix: %q", chunks[0].Content)
	}
	for i := 1; i < len(chunks); i++ {
		if strings.HasPrefix(chunks[i].Content, "Lesson 1 content: ") {
			t.Errorf("chunk %d should not carry the lesson prefix", i)
		}
	}
}
