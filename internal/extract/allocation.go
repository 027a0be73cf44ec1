package extract

import (
	"regexp"
	"strconv"
)

// Triple is a total/free/used memory reading from an allocation report.
type Triple struct {
	Total int64
	Free  int64
	Used  int64
}

// Conserved reports whether total == free + used exactly.
func (t Triple) Conserved() bool {
	return t.Total == t.Free+t.Used
}

// TripleStrategy recognises one textual form of the memory triple. Pattern
// must have exactly three capture groups: total, free, used.
type TripleStrategy struct {
	Name    string
	Pattern *regexp.Regexp
}

// TripleStrategies are tried in order; the first that parses wins.
var TripleStrategies = []TripleStrategy{
	{
		Name:    "summary-line",
		Pattern: regexp.MustCompile(`(?i)Total Memory:\s*(\d+),\s*Free:\s*(\d+),\s*Used:\s*(\d+)`),
	},
	{
		Name:    "stats-block",
		Pattern: regexp.MustCompile(`(?i)Total memory[: ]\s*(\d+)\s*\n\s*Free memory[: ]\s*(\d+)\s*\n\s*Allocated memory[: ]\s*(\d+)`),
	},
	{
		// Whole words only: "freed", "reused" and "unused" are not fields.
		Name:    "loose-fields",
		Pattern: regexp.MustCompile(`(?is)\bTotal\s+Memory\b\D*?(\d+).*?\bFree\b\D*?(\d+).*?\bUsed\b\D*?(\d+)`),
	},
}

var (
	// reBlockAllocated matches per-event lines such as "Block 3 allocated".
	reBlockAllocated = regexp.MustCompile(`(?i)\bBlock\s+\d+\s+allocated\b`)

	// reIDAllocated matches the allocator's "Memory allocated with ID: 7" lines.
	reIDAllocated = regexp.MustCompile(`(?i)Memory allocated with ID:\s*\d+`)

	reSuccessfulAllocs = regexp.MustCompile(`(?i)Successful Allocations:\s*(\d+)`)
	reFailedAllocs     = regexp.MustCompile(`(?i)Failed Allocations:\s*(\d+)`)
)

// AllocationFacts are the facts recovered from an allocation report.
type AllocationFacts struct {
	// Triple is the memory reading; valid only when HasTriple is set.
	Triple    Triple
	HasTriple bool

	// Strategy names the TripleStrategy that matched.
	Strategy string

	// Events counts allocation event lines. Zero is acceptable: some
	// reports only carry a summary.
	Events int

	// Successful and Failed come from the allocator's statistics block;
	// valid only when HasCounts is set.
	Successful int64
	Failed     int64
	HasCounts  bool

	// HasError is set when the report mentions "error".
	HasError bool

	// HasExit is set when the report carries a completion/exit marker.
	HasExit bool
}

// Allocation extracts allocation facts from report text.
func Allocation(text string) AllocationFacts {
	var facts AllocationFacts

	if triple, name, ok := MatchTriple(text, TripleStrategies); ok {
		facts.Triple = triple
		facts.HasTriple = true
		facts.Strategy = name
	}

	facts.Events = countMatches(reBlockAllocated, text) + countMatches(reIDAllocated, text)

	if s, ok := firstInt(reSuccessfulAllocs, text); ok {
		if f, ok := firstInt(reFailedAllocs, text); ok {
			facts.Successful, facts.Failed, facts.HasCounts = s, f, true
		}
	}

	kw := NewKeywords(text)
	facts.HasError = kw.Has("error")
	facts.HasExit = kw.Has("exit")

	return facts
}

// MatchTriple runs strategies in order and returns the first parsed triple.
func MatchTriple(text string, strategies []TripleStrategy) (Triple, string, bool) {
	for _, s := range strategies {
		m := s.Pattern.FindStringSubmatch(text)
		if len(m) != 4 {
			continue
		}
		vals, ok := parseInts(m[1], m[2], m[3])
		if !ok {
			continue
		}
		return Triple{Total: vals[0], Free: vals[1], Used: vals[2]}, s.Name, true
	}
	return Triple{}, "", false
}

func firstInt(re *regexp.Regexp, text string) (int64, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) != 2 {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
