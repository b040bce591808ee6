package llm

import "regexp"

// Best-effort repair for the JSON malformations language models
// actually produce: trailing commas and single-quoted keys or values.
// This is a bounded text-normalization pass, not a lenient parser; if
// the result still fails to parse the caller treats the response as
// unusable.

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
	singleQuotedKey     = regexp.MustCompile(`'([^']*)'\s*:`)
	singleQuotedValue   = regexp.MustCompile(`:\s*'([^']*)'`)
)

// RepairJSON normalizes common malformations in s and returns the
// repaired text. The input is returned unchanged when nothing matches.
func RepairJSON(s string) string {
	s = trailingCommaObject.ReplaceAllString(s, "}")
	s = trailingCommaArray.ReplaceAllString(s, "]")
	s = singleQuotedKey.ReplaceAllString(s, `"$1":`)
	s = singleQuotedValue.ReplaceAllString(s, `: "$1"`)
	return s
}
