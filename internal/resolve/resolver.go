// Package resolve maps an ambiguous natural-language identifier onto an
// item in an ordered list. It is pure and total over any sequence of item
// texts; reminders are one caller, any future list-valued domain can be
// another.
package resolve

import (
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Result is the outcome of a resolution attempt. A miss is an expected
// outcome, not an error: callers must present it to the user rather than
// guess.
type Result struct {
	// Index is the zero-based position of the matched item. Only valid
	// when Found is true.
	Index int
	// Found reports whether the identifier matched an item.
	Found bool
	// Suggestion is the text of the closest item by edit distance when
	// nothing matched. Advisory only, for error messages.
	Suggestion string
}

// ordinal words and their zero-based positions. "last" and friends are
// handled separately as they depend on the list length.
var ordinals = map[string]int{
	"first": 0, "1st": 0,
	"second": 1, "2nd": 1,
	"third": 2, "3rd": 2,
	"fourth": 3, "4th": 3,
	"fifth": 4, "5th": 4,
}

// Resolve tries, in order: a 1-based numeric literal, an ordinal or
// positional word, then a case-insensitive substring match scored by
// len(identifier)/len(text) with ties keeping the lowest index. The
// first strategy that matches wins.
func Resolve(texts []string, identifier string) Result {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || len(texts) == 0 {
		return Result{}
	}

	if n, err := strconv.Atoi(identifier); err == nil {
		if n >= 1 && n <= len(texts) {
			return Result{Index: n - 1, Found: true}
		}
		return notFound(texts, identifier)
	}

	lower := strings.ToLower(identifier)
	if idx, ok := ordinals[lower]; ok {
		if idx < len(texts) {
			return Result{Index: idx, Found: true}
		}
		return notFound(texts, identifier)
	}
	switch lower {
	case "last", "latest", "newest":
		return Result{Index: len(texts) - 1, Found: true}
	}

	bestIndex := -1
	bestScore := 0.0
	for i, text := range texts {
		if text == "" {
			continue
		}
		if strings.Contains(strings.ToLower(text), lower) {
			score := float64(len(identifier)) / float64(len(text))
			if score > bestScore {
				bestScore = score
				bestIndex = i
			}
		}
	}
	if bestIndex >= 0 {
		return Result{Index: bestIndex, Found: true}
	}

	return notFound(texts, identifier)
}

// notFound builds the miss result with a nearest-item suggestion.
func notFound(texts []string, identifier string) Result {
	suggestion := ""
	best := -1
	for _, text := range texts {
		if text == "" {
			continue
		}
		d := levenshtein.ComputeDistance(strings.ToLower(identifier), strings.ToLower(text))
		if best == -1 || d < best {
			best = d
			suggestion = text
		}
	}
	return Result{Suggestion: suggestion}
}
