// Package dialect holds the immutable language tables: keyword sets, message
// templates, and onboarding prompts for the supported dialects. Everything
// here is plain data loaded once per process and passed by reference.
package dialect

import "strings"

// Dialect is one of the closed set of language identifiers.
type Dialect string

const (
	Hindi   Dialect = "hi"
	Marathi Dialect = "mr"
	Telugu  Dialect = "te"
)

// Default is the fallback when a profile carries no usable dialect.
const Default = Hindi

// All lists the supported dialects in a stable order.
var All = []Dialect{Hindi, Marathi, Telugu}

// Normalize maps a stored dialect string to a supported Dialect, falling
// back to the default for anything unknown.
func Normalize(s string) Dialect {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case Hindi:
		return Hindi
	case Marathi:
		return Marathi
	case Telugu:
		return Telugu
	}
	return Default
}

// containsAny reports whether text contains any keyword, case-insensitively.
// Matching is simple substring containment; short tokens are kept out of the
// keyword tables to limit false positives.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
