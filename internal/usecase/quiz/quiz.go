// Package quiz builds fill-in-the-blank questions from retrieved passages.
package quiz

import (
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Blank replaces the keyword in a question stem.
const Blank = "_____"

// maxStem bounds the stem length in runes, not counting ellipses.
const maxStem = 220

// optionCount is the answer plus distractors per question.
const optionCount = 4

var keywordRe = regexp.MustCompile(`[A-Za-z][A-Za-z-]{3,}`)

// Passage is the source material of one question.
type Passage struct {
	Text   string
	Source string
	Page   int
}

// Question is a multiple-choice item. Options[Answer] is the blanked keyword.
type Question struct {
	Prompt  string
	Options []string
	Answer  int
	Source  string
	Page    int
}

// Generate returns up to k questions, one per passage in order, skipping passages
// without a usable keyword. The same passages, k and seed always produce the same quiz.
func Generate(passages []Passage, k int, seed uint64) []Question {
	if k <= 0 || len(passages) == 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pool := distractorPool(passages, rng)

	var out []Question
	for _, p := range passages {
		q, ok := makeQuestion(p, pool, rng)
		if !ok {
			continue
		}
		out = append(out, q)
		if len(out) >= k {
			break
		}
	}
	return out
}

func distractorPool(passages []Passage, rng *rand.Rand) []string {
	seen := make(map[string]struct{})
	var pool []string
	for _, p := range passages {
		for _, w := range keywordRe.FindAllString(p.Text, -1) {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			pool = append(pool, w)
		}
	}
	sort.Strings(pool)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

// pickTarget prefers capitalised words, then longer ones, then earlier ones.
func pickTarget(text string) (string, bool) {
	words := keywordRe.FindAllString(text, -1)
	if len(words) == 0 {
		return "", false
	}
	sort.SliceStable(words, func(i, j int) bool {
		ui, uj := unicode.IsUpper(rune(words[i][0])), unicode.IsUpper(rune(words[j][0]))
		if ui != uj {
			return ui
		}
		return len(words[i]) > len(words[j])
	})
	return words[0], true
}

func makeQuestion(p Passage, pool []string, rng *rand.Rand) (Question, bool) {
	target, ok := pickTarget(p.Text)
	if !ok {
		return Question{}, false
	}

	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(target))
	loc := re.FindStringIndex(p.Text)
	stem := clipAround(p.Text[:loc[0]], p.Text[loc[1]:], maxStem)

	var distractors []string
	for _, w := range pool {
		if !strings.EqualFold(w, target) {
			distractors = append(distractors, w)
		}
	}
	rng.Shuffle(len(distractors), func(i, j int) { distractors[i], distractors[j] = distractors[j], distractors[i] })
	if len(distractors) > optionCount-1 {
		distractors = distractors[:optionCount-1]
	}

	options := append([]string{target}, distractors...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	answer := 0
	for i, o := range options {
		if o == target {
			answer = i
			break
		}
	}

	return Question{
		Prompt:  "Fill the blank: " + stem,
		Options: options,
		Answer:  answer,
		Source:  p.Source,
		Page:    p.Page,
	}, true
}

// clipAround joins before, Blank and after with collapsed whitespace and cuts the
// result to a window of at most limit runes centred on the blank.
// Cut ends are marked with an ellipsis.
func clipAround(before, after string, limit int) string {
	head := strings.Join(strings.Fields(before), " ")
	tail := strings.Join(strings.Fields(after), " ")
	if head != "" && strings.TrimRightFunc(before, unicode.IsSpace) != before {
		head += " "
	}
	if tail != "" && strings.TrimLeftFunc(after, unicode.IsSpace) != after {
		tail = " " + tail
	}

	runes := []rune(head + Blank + tail)
	if len(runes) <= limit {
		return string(runes)
	}

	blankAt := utf8.RuneCountInString(head)
	blankLen := utf8.RuneCountInString(Blank)
	end := min(len(runes), max(blankAt+blankLen, blankAt+blankLen/2+limit/2))
	start := max(0, end-limit)
	end = min(len(runes), start+limit)

	out := string(runes[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}
