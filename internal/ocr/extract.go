package ocr

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultTextPattern matches the printed inventory code convention.
const DefaultTextPattern = `AZT\d+`

var upper = cases.Upper(language.Und)

// NormalizeText folds compatibility forms (full-width digits, ligatures)
// and upper-cases the text.
func NormalizeText(text string) string {
	return upper.String(norm.NFKC.String(text))
}

// ExtractCode returns the first match of pattern in the normalized text, or
// "" when nothing matches. A pattern with a capture group yields the group.
func ExtractCode(text string, pattern *regexp.Regexp) string {
	if pattern == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	m := pattern.FindStringSubmatch(NormalizeText(text))
	switch {
	case len(m) == 0:
		return ""
	case len(m) > 1 && m[1] != "":
		return m[1]
	default:
		return m[0]
	}
}
