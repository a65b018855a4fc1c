// Package chunk defines the atomic unit of indexing and retrieval.
package chunk

import "strconv"

// DefaultPage is assigned when a document carries no pagination.
const DefaultPage = 1

// PageSpan maps the rune range [Start, End) of a document onto a page.
type PageSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Page  int `json:"page"`
}

// Len returns the span length, 0 for inverted spans.
func (s PageSpan) Len() int {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Overlap returns how many runes of [start, end) fall inside the span.
func (s PageSpan) Overlap(start, end int) int {
	lo := max(s.Start, start)
	hi := min(s.End, end)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Chunk is a contiguous slice of a document's text. Offsets are rune offsets
// into the full document text and CharEnd-CharStart equals the rune length of Text.
// Chunks are produced by the segmenter and never modified afterwards.
type Chunk struct {
	ID        string
	Text      string
	CharStart int
	CharEnd   int
	SourceID  string
	Page      int
	Index     int // 1-based position within the document
	Path      string
}

// MakeID builds the chunk identifier "<source_id>:<index>".
func MakeID(sourceID string, index int) string {
	return sourceID + ":" + strconv.Itoa(index)
}

