package chunker

import "strings"

const (
	DefaultSize    = 1000
	DefaultOverlap = 200

	// How far back from the cut point to look for a sentence boundary.
	boundaryWindow = 100
)

// Chunker splits extracted text into overlapping fixed-size windows.
// Cuts snap to the rightmost period or newline within the trailing
// boundary window so chunks avoid mid-sentence breaks.
type Chunker struct {
	size    int
	overlap int
}

// New builds a chunker. Non-positive arguments select the defaults; an
// overlap that would not fit the window falls back to a fifth of it.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap <= 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the ordered chunk sequence for text. Text no longer than
// one window is returned as a single chunk, unmodified.
func (c *Chunker) Split(text string) []string {
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			lo := end - boundaryWindow
			if lo < start {
				lo = start
			}
			if boundary := strings.LastIndexAny(text[lo:end], ".\n"); boundary >= 0 {
				end = lo + boundary + 1
			}
		}
		chunks = append(chunks, strings.TrimSpace(text[start:end]))
		if end >= len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			// Degenerate overlap/snap combination; force forward progress.
			next = end
		}
		start = next
	}
	return chunks
}

func (c *Chunker) Size() int {
	return c.size
}

func (c *Chunker) Overlap() int {
	return c.overlap
}
