package search

import (
	"sort"

	"github.com/kailas-cloud/docrag/internal/domain/search/result"
	"github.com/kailas-cloud/docrag/internal/domain/search/score"
)

// normalize rescales native scores of one ranked list onto [0,1], keeping order.
func normalize(list []result.Result) []result.Result {
	native := make([]float64, len(list))
	for i := range list {
		native[i] = list[i].Score()
	}
	out := make([]result.Result, len(list))
	for i, n := range score.MinMax(native) {
		out[i] = list[i].WithScore(float64(n))
	}
	return out
}

// fuse merges dense and lexical candidates by chunk id into
// alpha*dense + (1-alpha)*lexical over min-max normalized scores.
// A missing component counts as 0 and a list with zero weight contributes no candidates.
// Ties keep dense order first, then lexical-only entries in lexical order.
func fuse(dense, lexical []result.Result, alpha float64, topK int) []result.Result {
	type candidate struct {
		res   result.Result
		dense score.Normalized
		lex   score.Normalized
	}

	byID := make(map[string]*candidate, len(dense)+len(lexical))
	order := make([]*candidate, 0, len(dense)+len(lexical))

	if alpha > 0 {
		for _, r := range normalize(dense) {
			if _, dup := byID[r.ID()]; dup {
				continue
			}
			c := &candidate{res: r, dense: score.Normalized(r.Score())}
			byID[r.ID()] = c
			order = append(order, c)
		}
	}

	if alpha < 1 {
		for _, r := range normalize(lexical) {
			if c, ok := byID[r.ID()]; ok {
				c.lex = score.Normalized(r.Score())
				continue
			}
			c := &candidate{res: r, lex: score.Normalized(r.Score())}
			byID[r.ID()] = c
			order = append(order, c)
		}
	}

	out := make([]result.Result, len(order))
	for i, c := range order {
		out[i] = c.res.WithScore(float64(score.Blend(alpha, c.dense, c.lex)))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score() > out[j].Score() })

	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
