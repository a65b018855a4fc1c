// Package score holds the single comparable score scale used across retrieval modes.
package score

// Normalized is a relevance score in [0,1], higher is better.
type Normalized float64

// Degenerate is assigned to every entry of a list whose scores are all equal.
const Degenerate Normalized = 0.5

// MinMax maps native scores onto [0,1] independently of their native scale.
// A list with a single distinct value maps every entry to Degenerate.
func MinMax(native []float64) []Normalized {
	out := make([]Normalized, len(native))
	if len(native) == 0 {
		return out
	}

	lo, hi := native[0], native[0]
	for _, v := range native[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for i := range out {
			out[i] = Degenerate
		}
		return out
	}

	span := hi - lo
	for i, v := range native {
		out[i] = clamp(Normalized((v - lo) / span))
	}
	return out
}

// Blend combines a dense and a lexical score: alpha*dense + (1-alpha)*lex.
func Blend(alpha float64, dense, lex Normalized) Normalized {
	return clamp(Normalized(alpha*float64(dense) + (1-alpha)*float64(lex)))
}

func clamp(n Normalized) Normalized {
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
