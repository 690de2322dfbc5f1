package parser

import (
	"regexp"
	"strings"
)

var (
	documentSeparator = regexp.MustCompile(`(?m)^--- *$`)
	trailingDots      = regexp.MustCompile(`([\n\r]+)\.\.\.(\n?)$`)
)

// Chunk is the text of one document and where it starts in the file.
type Chunk struct {
	Text   string // normalized chunk text
	Offset int    // absolute file line of chunk line 1
}

// Split splits text into document chunks and normalizes each one.
// CRLF line endings become LF before splitting. The end-of-document marker is
// dropped and tabs become two spaces; neither changes the number of lines.
func Split(text string) []Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := documentSeparator.Split(text, -1)
	chunks := make([]Chunk, 0, len(parts))

	line := 1
	for _, part := range parts {
		normalized := Normalize(part)
		chunks = append(chunks, Chunk{Text: normalized, Offset: line})
		line += strings.Count(normalized, "\n")
	}
	return chunks
}

// Normalize strips a trailing "..." marker line and expands tabs.
func Normalize(chunk string) string {
	chunk = trailingDots.ReplaceAllString(chunk, "$1$2")
	return strings.ReplaceAll(chunk, "\t", "  ")
}
