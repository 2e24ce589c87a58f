// Package textsplit cuts plain text into overlapping chunks on
// sentence boundaries for embedding.
package textsplit

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1500

	// DefaultOverlap is the number of trailing characters carried into
	// the next chunk for context continuity.
	DefaultOverlap = 150
)

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// Splitter produces overlapping sentence-aligned chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter; zero or negative arguments fall back
// to the defaults. Overlap is clamped below chunkSize.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split returns the chunks of text in order. Text at or under the
// chunk size comes back as a single chunk; empty text yields none.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		// A single oversized sentence becomes its own chunk rather
		// than being cut mid-word.
		if current.Len() > 0 && current.Len()+len(sentence)+1 > s.chunkSize {
			chunk := strings.TrimSpace(current.String())
			chunks = append(chunks, chunk)
			current.Reset()
			current.WriteString(overlapTail(chunk, s.overlap))
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}

// splitSentences breaks text after terminal punctuation, keeping the
// punctuation with its sentence.
func splitSentences(text string) []string {
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// overlapTail returns the last n characters of chunk, snapped forward
// to a word boundary so the overlap never starts mid-word.
func overlapTail(chunk string, n int) string {
	if n <= 0 || len(chunk) <= n {
		if n <= 0 {
			return ""
		}
		return chunk
	}
	tail := chunk[len(chunk)-n:]
	if idx := strings.IndexByte(tail, ' '); idx >= 0 {
		tail = tail[idx+1:]
	}
	return tail
}
