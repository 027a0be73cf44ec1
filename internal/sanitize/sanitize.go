// Package sanitize normalises simulator report text before pattern extraction
// and cleans labels that flow from manifest files into the console report.
// It strips terminal escape sequences and control characters, and folds
// Windows and old-Mac line endings so extraction patterns see plain LF text.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength is the maximum allowed length for a manifest display label.
const MaxLabelLength = 80

// Pre-compiled regular expressions for performance.
var (
	// reANSIEscape matches CSI escape sequences (colours, cursor movement)
	// that a simulator may emit when its stdout is captured from a TTY.
	reANSIEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

	// reWhitespaceRun matches runs of spaces and tabs.
	reWhitespaceRun = regexp.MustCompile(`[ \t]+`)
)

// NormalizeReport prepares raw report text for extraction.
//
// The pipeline runs in this order:
//  1. Fold CRLF and lone CR to LF
//  2. Strip ANSI escape sequences
//  3. Strip null bytes and ASCII control characters (except \n, \t)
//
// Content is otherwise preserved byte for byte; no trimming or truncation is
// applied because extraction patterns may anchor anywhere in the body.
func NormalizeReport(input string) string {
	if input == "" {
		return ""
	}

	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reANSIEscape.ReplaceAllString(s, "")
	return stripControlChars(s)
}

// SanitizeLabel cleans a display label: control characters are removed,
// whitespace runs collapse to one space, and the result is truncated to
// at most MaxLabelLength bytes on a rune boundary.
func SanitizeLabel(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = strings.ReplaceAll(s, "\n", " ")
	s = reWhitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if len(s) > MaxLabelLength {
		cut := MaxLabelLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}

	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F, 0x7F) from
// the string, except for newline (0x0A) and tab (0x09) which are preserved.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
