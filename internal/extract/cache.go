package extract

import (
	"regexp"
	"strconv"
)

// CacheStats is one cache level's reported statistics.
type CacheStats struct {
	Level  int
	Hits   int64
	Misses int64
	Ratio  float64
}

// ExpectedRatio recomputes the hit ratio from hits and misses.
// It is 0 when there were no accesses.
func (c CacheStats) ExpectedRatio() float64 {
	total := c.Hits + c.Misses
	if total == 0 {
		return 0
	}
	return float64(c.Hits) / float64(total)
}

// CacheStrategy recognises one form of the combined statistics line. Pattern
// must have four capture groups: level, hits, misses, ratio.
type CacheStrategy struct {
	Name    string
	Pattern *regexp.Regexp
}

// CacheStrategies are tried in order; the first that yields a line wins.
var CacheStrategies = []CacheStrategy{
	{
		Name:    "stats-line",
		Pattern: regexp.MustCompile(`L(\d+) Cache - Hits: (\d+), Misses: (\d+), Hit Ratio: (\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`),
	},
	{
		Name:    "loose-stats",
		Pattern: regexp.MustCompile(`(?i)L(\d+)\s*Cache\W*Hits\W*(\d+)\W*Misses\W*(\d+)\W*Hit\s*Ratio\W*(\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`),
	},
}

// CacheFacts are the facts recovered from a cache report.
type CacheFacts struct {
	// Levels holds every statistics line in report order.
	Levels []CacheStats

	// Strategy names the CacheStrategy that matched.
	Strategy string

	// HasActivity is set when the report mentions "cache" or "hit".
	HasActivity bool
}

// Primary returns the first L1 line, or the first line when none is
// labelled L1.
func (f CacheFacts) Primary() (CacheStats, bool) {
	if len(f.Levels) == 0 {
		return CacheStats{}, false
	}
	for _, l := range f.Levels {
		if l.Level == 1 {
			return l, true
		}
	}
	return f.Levels[0], true
}

// Cache extracts cache facts from report text.
func Cache(text string) CacheFacts {
	facts := CacheFacts{
		HasActivity: NewKeywords(text).Any("cache", "hit"),
	}

	for _, s := range CacheStrategies {
		levels := matchCacheLines(s.Pattern, text)
		if len(levels) == 0 {
			continue
		}
		facts.Levels = levels
		facts.Strategy = s.Name
		break
	}

	return facts
}

func matchCacheLines(re *regexp.Regexp, text string) []CacheStats {
	var levels []CacheStats
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) != 5 {
			continue
		}
		level, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		counts, ok := parseInts(m[2], m[3])
		if !ok {
			continue
		}
		ratio, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			continue
		}
		levels = append(levels, CacheStats{
			Level:  level,
			Hits:   counts[0],
			Misses: counts[1],
			Ratio:  ratio,
		})
	}
	return levels
}
