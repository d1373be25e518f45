// Package receipt turns the raw text a vision model returns for a receipt photo into
// a validated list of line items.
//
// Model output is treated as untrusted: nothing is read from the parsed value until
// it has passed schema validation, and syntax failures are reported separately from
// schema failures so callers can respond with the right status.
package receipt

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// fencePattern matches Markdown code-fence tokens with an optional language tag.
var fencePattern = regexp.MustCompile("(?i)```[ \t]*(?:json)?")

// Sanitize strips every Markdown code-fence token from raw and trims whitespace.
func Sanitize(raw string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
}

// Excerpt returns at most n runes of s, marking truncation with an ellipsis.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
