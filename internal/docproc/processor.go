// Package docproc parses course transcript documents into the course model
// and splits their text into overlapping, sentence-aligned chunks.
//
// Expected document layout:
//
//	Course Title: Building Toward Computer Use
//	Course Link: https://example.com/course
//	Course Instructor: Colt Steele
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/lesson/0
//	<lesson transcript...>
//
//	Lesson 1: Getting Started
//	...
//
// Header lines are optional; a document without them is still ingested with
// the first line (or the filename) as the course title. Text before the first
// lesson marker is chunked without a lesson number.
package docproc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursepilot/coursepilot/internal/course"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// A sentence ends at terminal punctuation followed by whitespace.
	// Punctuation inside a token ("3.14", "e.g.", "v1.2.3") is not a
	// boundary, so joining sentences back with single spaces reproduces
	// the normalized input exactly.
	sentenceEndRe = regexp.MustCompile(`([.!?]+)\s+`)
	lessonRe      = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)
)

// Header line prefixes recognized in the first lines of a document.
const (
	titlePrefix      = "Course Title:"
	courseLinkPrefix = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

// Processor turns transcript files into a Course plus content chunks.
type Processor struct {
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// New creates a Processor. Non-positive chunkSize or negative chunkOverlap
// fall back to the defaults. A nil logger falls back to slog.Default().
func New(chunkSize, chunkOverlap int, logger *slog.Logger) *Processor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap, logger: logger}
}

// ReadFile reads a transcript file as text. Byte sequences that are not valid
// UTF-8 are dropped rather than failing the read, since transcripts come from
// a variety of export pipelines with inconsistent encodings.
func (p *Processor) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the ingestion folder walk
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// ChunkText splits text into sentence-aligned chunks of at most chunkSize
// characters. Consecutive chunks share trailing sentences of the predecessor
// totaling at most chunkOverlap characters; when no whole sentence fits the
// overlap budget, a word-boundary suffix of the previous chunk is carried
// instead, so consecutive chunks always share text when chunkOverlap > 0.
func (p *Processor) ChunkText(text string) []string {
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	prefix := ""
	start := 0

	for start < len(sentences) {
		avail := p.chunkSize - len(prefix)
		if prefix != "" {
			avail-- // joining space
		}

		// Pack sentences greedily; always take at least one so an
		// oversized sentence forms its own chunk.
		end := start
		size := 0
		for end < len(sentences) {
			add := len(sentences[end])
			if end > start {
				add++
			}
			if end > start && size+add > avail {
				break
			}
			size += add
			end++
		}

		chunk := strings.Join(sentences[start:end], " ")
		if prefix != "" {
			chunk = prefix + " " + chunk
		}
		chunks = append(chunks, chunk)

		if end >= len(sentences) {
			break
		}

		if p.chunkOverlap <= 0 {
			prefix = ""
			start = end
			continue
		}

		// Walk back over trailing sentences that fit the overlap budget.
		// Stop at start+1 so the window always advances.
		back := end
		carried := 0
		for back > start+1 {
			n := len(sentences[back-1])
			if carried > 0 {
				n++
			}
			if carried+n > p.chunkOverlap {
				break
			}
			carried += n
			back--
		}

		if back < end {
			prefix = ""
			start = back
		} else {
			prefix = tailWords(chunk, p.chunkOverlap)
			start = end
		}
	}

	return chunks
}

// splitSentences breaks normalized text into trimmed sentences, cutting only
// where terminal punctuation is followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	prev := 0
	for _, m := range sentenceEndRe.FindAllStringSubmatchIndex(text, -1) {
		// m[3] is the end of the punctuation run; the trailing
		// whitespace is consumed, not kept.
		if s := strings.TrimSpace(text[prev:m[3]]); s != "" {
			sentences = append(sentences, s)
		}
		prev = m[1]
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// tailWords returns a suffix of s, cut at a word boundary, of at most budget
// characters. At minimum the last word is returned.
func tailWords(s string, budget int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	i := len(words) - 1 // always carry at least the last word
	size := len(words[i])
	for i > 0 {
		n := len(words[i-1]) + 1
		if size+n > budget {
			break
		}
		size += n
		i--
	}
	return strings.Join(words[i:], " ")
}

// ProcessCourseDocument reads and parses a transcript file.
//
// It returns the parsed Course and its content chunks. Chunk indices are
// sequential across the whole document. The first chunk of each lesson is
// prefixed with "Lesson N content: " so lesson context survives chunking.
func (p *Processor) ProcessCourseDocument(path string) (*course.Course, []course.Chunk, error) {
	content, err := p.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	lines := strings.Split(content, "\n")

	c := &course.Course{}
	bodyStart := 0

	// Header: up to three prefixed lines at the top of the file.
	for i := 0; i < len(lines) && i < 4; i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, titlePrefix):
			c.Title = strings.TrimSpace(strings.TrimPrefix(line, titlePrefix))
			bodyStart = i + 1
		case strings.HasPrefix(line, courseLinkPrefix):
			c.Link = strings.TrimSpace(strings.TrimPrefix(line, courseLinkPrefix))
			bodyStart = i + 1
		case strings.HasPrefix(line, instructorPrefix):
			c.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorPrefix))
			bodyStart = i + 1
		}
	}

	if c.Title == "" {
		// No recognizable header: first non-empty line is the title,
		// otherwise fall back to the filename stem.
		for i, line := range lines {
			if t := strings.TrimSpace(line); t != "" {
				c.Title = t
				bodyStart = i + 1
				break
			}
		}
		if c.Title == "" {
			base := filepath.Base(path)
			c.Title = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}

	var (
		chunks        []course.Chunk
		segment       []string
		currentLesson *int
	)

	flush := func() {
		text := strings.Join(segment, " ")
		segment = segment[:0]
		for i, chunkText := range p.ChunkText(text) {
			content := chunkText
			if currentLesson != nil && i == 0 {
				content = fmt.Sprintf("Lesson %d content: %s", *currentLesson, chunkText)
			}
			chunks = append(chunks, course.Chunk{
				Content:      content,
				CourseTitle:  c.Title,
				LessonNumber: currentLesson,
				Index:        len(chunks),
			})
		}
	}

	for i := bodyStart; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if m := lessonRe.FindStringSubmatch(line); m != nil {
			num, convErr := strconv.Atoi(m[1])
			if convErr != nil {
				// Unparseable lesson number: treat as body text.
				segment = append(segment, line)
				continue
			}

			flush()

			lesson := course.Lesson{Number: num, Title: strings.TrimSpace(m[2])}
			if i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if strings.HasPrefix(next, lessonLinkPrefix) {
					lesson.Link = strings.TrimSpace(strings.TrimPrefix(next, lessonLinkPrefix))
					i++
				}
			}
			c.Lessons = append(c.Lessons, lesson)
			n := num
			currentLesson = &n
			continue
		}

		if line != "" {
			segment = append(segment, line)
		}
	}
	flush()

	p.logger.Debug("processed course document",
		"path", path,
		"course", c.Title,
		"lessons", len(c.Lessons),
		"chunks", len(chunks))

	return c, chunks, nil
}
