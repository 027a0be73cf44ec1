// Package extract pulls structured facts out of free-form simulator reports.
//
// The simulator's output format is not contractually fixed, so each fact is
// recovered by an ordered list of strategies: a strict pattern for the
// canonical line, then progressively looser patterns. The first strategy that
// yields a structural match wins and its name is recorded alongside the facts,
// which keeps the fallback path visible in verdict messages and tests.
//
// Keyword checks are case-insensitive and use Unicode case folding.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Keywords answers case-insensitive substring questions about a report.
// The report is folded once on construction.
type Keywords struct {
	folded string
}

// NewKeywords folds text for keyword lookups.
func NewKeywords(text string) Keywords {
	return Keywords{folded: cases.Fold().String(text)}
}

// Has reports whether kw occurs anywhere in the text, ignoring case.
func (k Keywords) Has(kw string) bool {
	return strings.Contains(k.folded, cases.Fold().String(kw))
}

// Any reports whether at least one of kws occurs in the text.
func (k Keywords) Any(kws ...string) bool {
	for _, kw := range kws {
		if k.Has(kw) {
			return true
		}
	}
	return false
}

// All reports whether every one of kws occurs in the text.
func (k Keywords) All(kws ...string) bool {
	for _, kw := range kws {
		if !k.Has(kw) {
			return false
		}
	}
	return true
}

// countMatches returns the number of non-overlapping matches of re in text.
func countMatches(re *regexp.Regexp, text string) int {
	return len(re.FindAllStringIndex(text, -1))
}

// parseInts parses every string as a base-10 int64, failing on the first
// value that is malformed or out of range.
func parseInts(values ...string) ([]int64, bool) {
	out := make([]int64, len(values))
	for i, v := range values {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
