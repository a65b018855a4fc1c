// Package lexical implements an in-memory BM25 keyword index over chunks.
package lexical

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/kailas-cloud/docrag/internal/domain/chunk"
	"github.com/kailas-cloud/docrag/internal/domain/search/result"
)

// BM25 parameters.
const (
	K1 = 1.5
	B  = 0.75
)

type entry struct {
	chunk chunk.Chunk
	tf    map[string]int
	dl    int
}

// snapshot is an immutable view of the corpus and its statistics.
type snapshot struct {
	entries []entry
	idf     map[string]float64
	avgdl   float64
}

// Index is a BM25 index. Every mutation rebuilds the snapshot and swaps it
// under the write lock; queries read a single snapshot.
type Index struct {
	mu   sync.RWMutex
	snap *snapshot
}

// New creates an empty index.
func New() *Index {
	return &Index{snap: build(nil)}
}

// Tokenize lowercases text and returns its runs of letters, digits and underscores.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// Add appends chunks. Chunks whose ID is already indexed replace the old entry in place.
func (ix *Index) Add(chunks []chunk.Chunk) {
	if len(chunks) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.snap = build(merge(ix.snap.entries, chunks))
}

// Replace swaps every chunk of sourceID for chunks in a single snapshot.
func (ix *Index) Replace(sourceID string, chunks []chunk.Chunk) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.snap = build(merge(without(ix.snap.entries, sourceID), chunks))
}

// merge returns a copy of entries with chunks appended or replaced by id.
func merge(entries []entry, chunks []chunk.Chunk) []entry {
	out := make([]entry, len(entries), len(entries)+len(chunks))
	copy(out, entries)
	pos := make(map[string]int, len(out))
	for i, e := range out {
		pos[e.chunk.ID] = i
	}
	for _, c := range chunks {
		e := newEntry(c)
		if i, ok := pos[c.ID]; ok {
			out[i] = e
			continue
		}
		pos[c.ID] = len(out)
		out = append(out, e)
	}
	return out
}

func without(entries []entry, sourceID string) []entry {
	kept := make([]entry, 0, len(entries))
	for _, e := range entries {
		if e.chunk.SourceID != sourceID {
			kept = append(kept, e)
		}
	}
	return kept
}

// Remove drops every chunk of sourceID and returns how many were removed.
func (ix *Index) Remove(sourceID string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := without(ix.snap.entries, sourceID)
	removed := len(ix.snap.entries) - len(kept)
	if removed > 0 {
		ix.snap = build(kept)
	}
	return removed
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.snap = build(nil)
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.snap.entries)
}

// Query scores every chunk against text and returns at most topK positive
// matches, best first. Equal scores keep insertion order.
func (ix *Index) Query(text string, topK int) []result.Result {
	terms := Tokenize(text)
	if len(terms) == 0 || topK <= 0 {
		return nil
	}

	ix.mu.RLock()
	snap := ix.snap
	ix.mu.RUnlock()

	if len(snap.entries) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	for i := range snap.entries {
		if s := snap.score(&snap.entries[i], terms); s > 0 {
			hits = append(hits, scored{idx: i, score: s})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]result.Result, len(hits))
	for i, h := range hits {
		c := snap.entries[h.idx].chunk
		out[i] = result.New(c.ID, c.Text, h.score, result.Meta{Source: c.SourceID, Page: c.Page, Path: c.Path})
	}
	return out
}

func (s *snapshot) score(e *entry, terms []string) float64 {
	var total float64
	norm := K1 * (1 - B + B*float64(e.dl)/s.avgdl)
	for _, t := range terms {
		f := float64(e.tf[t])
		if f == 0 {
			continue
		}
		total += s.idf[t] * f * (K1 + 1) / (f + norm)
	}
	return total
}

func newEntry(c chunk.Chunk) entry {
	tokens := Tokenize(c.Text)
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return entry{chunk: c, tf: tf, dl: len(tokens)}
}

func build(entries []entry) *snapshot {
	df := make(map[string]int)
	totalLen := 0
	for _, e := range entries {
		totalLen += e.dl
		for t := range e.tf {
			df[t]++
		}
	}

	n := float64(len(entries))
	idf := make(map[string]float64, len(df))
	for t, d := range df {
		idf[t] = math.Log(1 + (n-float64(d)+0.5)/(float64(d)+0.5))
	}

	avgdl := 1.0
	if len(entries) > 0 && totalLen > 0 {
		avgdl = float64(totalLen) / n
	}
	return &snapshot{entries: entries, idf: idf, avgdl: avgdl}
}
