package extract

import (
	"regexp"
	"strconv"
)

// Translation is one virtual-to-physical address record.
type Translation struct {
	Virtual  int64
	Physical int64

	// Overflow is set when either address did not fit in an int64.
	Overflow bool
}

// Valid reports whether the physical address is a usable non-negative integer.
func (t Translation) Valid() bool {
	return !t.Overflow && t.Physical >= 0
}

// TranslationStrategy recognises one form of translation record. Pattern must
// have two capture groups: virtual, physical. The physical group accepts a
// sign so negative addresses are seen and rejected rather than skipped.
type TranslationStrategy struct {
	Name    string
	Pattern *regexp.Regexp
}

// TranslationStrategies are tried in order; the first that yields at least
// one record wins.
var TranslationStrategies = []TranslationStrategy{
	{
		Name:    "arrow-record",
		Pattern: regexp.MustCompile(`Virtual address (\d+) -> Physical address (-?\d+)`),
	},
	{
		Name:    "loose-record",
		Pattern: regexp.MustCompile(`(?i)virtual\s+address\s*:?\s*(\d+)\s*(?:->|=>|maps\s+to)\s*physical\s+address\s*:?\s*(-?\d+)`),
	},
}

// TranslationFacts are the facts recovered from a virtual-memory report.
type TranslationFacts struct {
	// Records holds translations in the order they appear.
	Records []Translation

	// Strategy names the TranslationStrategy that matched.
	Strategy string

	// HasActivity is set when the report mentions both "virtual" and "translate".
	HasActivity bool
}

// Translations extracts virtual-memory facts from report text.
func Translations(text string) TranslationFacts {
	facts := TranslationFacts{
		HasActivity: NewKeywords(text).All("virtual", "translate"),
	}

	for _, s := range TranslationStrategies {
		matches := s.Pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		records := make([]Translation, 0, len(matches))
		for _, m := range matches {
			records = append(records, parseTranslation(m[1], m[2]))
		}
		facts.Records = records
		facts.Strategy = s.Name
		break
	}

	return facts
}

func parseTranslation(virt, phys string) Translation {
	v, verr := strconv.ParseInt(virt, 10, 64)
	p, perr := strconv.ParseInt(phys, 10, 64)
	return Translation{
		Virtual:  v,
		Physical: p,
		Overflow: verr != nil || perr != nil,
	}
}
