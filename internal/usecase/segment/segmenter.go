// Package segment splits document text into overlapping, page-attributed chunks.
package segment

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/chunk"
)

// boundaries are the sentence/paragraph separators a window may be cut after.
var boundaries = []string{"\n\n", ". ", "? ", "! "}

// Segmenter cuts text into windows of at most maxChars runes.
type Segmenter struct {
	maxChars int
	overlap  int
	minCut   int
}

// New validates the window parameters.
func New(maxChars, overlap int) (*Segmenter, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max_chars must be greater than zero: %w", domain.ErrInvalidParameter)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap cannot be negative: %w", domain.ErrInvalidParameter)
	}
	if overlap >= maxChars {
		return nil, fmt.Errorf("overlap %d must be smaller than max_chars %d: %w",
			overlap, maxChars, domain.ErrInvalidParameter)
	}
	return &Segmenter{maxChars: maxChars, overlap: overlap, minCut: maxChars / 4}, nil
}

// Range is a half-open rune range [Start, End).
type Range struct {
	Start int
	End   int
}

// Segment is a convenience wrapper returning only the chunk ranges.
func Segment(text string, maxChars, overlap int) ([]Range, error) {
	s, err := New(maxChars, overlap)
	if err != nil {
		return nil, err
	}
	return s.Ranges([]rune(text)), nil
}

// Split produces the chunks of one document. Whitespace-only text yields nil.
// Without spans every chunk is attributed to chunk.DefaultPage.
func (s *Segmenter) Split(sourceID, path, text string, spans []chunk.PageSpan) []chunk.Chunk {
	runes := []rune(text)
	ranges := s.Ranges(runes)
	if len(ranges) == 0 {
		return nil
	}

	chunks := make([]chunk.Chunk, len(ranges))
	for i, r := range ranges {
		chunks[i] = chunk.Chunk{
			ID:        chunk.MakeID(sourceID, i+1),
			Text:      string(runes[r.Start:r.End]),
			CharStart: r.Start,
			CharEnd:   r.End,
			SourceID:  sourceID,
			Page:      AttributePage(r.Start, r.End, spans),
			Index:     i + 1,
			Path:      path,
		}
	}
	return chunks
}

// Ranges walks the text left to right and returns the window ranges.
func (s *Segmenter) Ranges(runes []rune) []Range {
	if strings.TrimSpace(string(runes)) == "" {
		return nil
	}

	n := len(runes)
	var out []Range
	start := 0
	for start < n {
		end := min(start+s.maxChars, n)
		if end < n {
			if cut := lastBoundary(runes[start:end]); cut > s.minCut {
				end = start + cut + 1
			}
		}
		out = append(out, Range{Start: start, End: end})
		if end >= n {
			break
		}
		start = max(start+1, end-s.overlap)
	}
	return out
}

// lastBoundary returns the rune index of the last boundary inside window, -1 if none.
func lastBoundary(window []rune) int {
	best := -1
	for _, b := range boundaries {
		sep := []rune(b)
		for i := len(window) - len(sep); i > best; i-- {
			if hasPrefix(window[i:], sep) {
				best = i
				break
			}
		}
	}
	return best
}

func hasPrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// AttributePage picks the page whose span overlaps [start, end) the most.
// Ties go to the lowest page number. No spans, or no overlapping span, gives chunk.DefaultPage.
func AttributePage(start, end int, spans []chunk.PageSpan) int {
	page, best := chunk.DefaultPage, 0
	for _, sp := range spans {
		ov := sp.Overlap(start, end)
		if ov == 0 {
			continue
		}
		if ov > best || (ov == best && sp.Page < page) {
			page, best = sp.Page, ov
		}
	}
	return page
}

// MaxChars returns the window size.
func (s *Segmenter) MaxChars() int { return s.maxChars }

// Overlap returns the number of runes shared by consecutive windows.
func (s *Segmenter) Overlap() int { return s.overlap }
