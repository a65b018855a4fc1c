package result

// PreviewLength is the number of characters returned by Preview.
const PreviewLength = 200

// Meta locates a passage in its source document.
type Meta struct {
	Source string // source_id of the owning document
	Page   int
	Path   string
}

// Result is a single retrieved passage.
type Result struct {
	id    string
	text  string
	score float64
	meta  Meta
}

// New creates a retrieval result.
func New(id, text string, score float64, meta Meta) Result {
	return Result{id: id, text: text, score: score, meta: meta}
}

// ID returns the chunk identifier.
func (r *Result) ID() string { return r.id }

// Text returns the chunk text.
func (r *Result) Text() string { return r.text }

// Score returns the relevance score (higher is better).
func (r *Result) Score() float64 { return r.score }

// Meta returns the source attribution.
func (r *Result) Meta() Meta { return r.meta }

// WithScore returns a copy carrying a different score.
func (r *Result) WithScore(score float64) Result {
	return Result{id: r.id, text: r.text, score: score, meta: r.meta}
}

// Preview returns the first PreviewLength characters of the text.
func (r *Result) Preview() string {
	runes := []rune(r.text)
	if len(runes) <= PreviewLength {
		return r.text
	}
	return string(runes[:PreviewLength]) + "…"
}
