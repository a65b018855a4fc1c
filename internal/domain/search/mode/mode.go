package mode

// Mode is the retrieval strategy.
type Mode string

// Retrieval mode constants.
const (
	// Hybrid fuses semantic and lexical results.
	Hybrid   Mode = "hybrid"
	Semantic Mode = "semantic"
	Lexical  Mode = "lexical"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Lexical
}

// Parse maps user input onto a Mode. "keyword" is accepted as an alias of
// Lexical and the empty string selects Hybrid.
func Parse(s string) (Mode, bool) {
	switch s {
	case "":
		return Hybrid, true
	case "keyword":
		return Lexical, true
	}
	m := Mode(s)
	return m, m.IsValid()
}
