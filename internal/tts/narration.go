package tts

import (
	"regexp"
	"strings"
)

// Reference markers such as [12] or superscript digits are read aloud literally by the
// speech model, so they are stripped before synthesis.
const (
	referenceRegexPattern  = `\[\d+\]|[¹²³⁴⁵⁶⁷⁸⁹⁰]+`
	whitespaceRegexPattern = `\s+`
)

var (
	referencePattern  = regexp.MustCompile(referenceRegexPattern)
	whitespacePattern = regexp.MustCompile(whitespaceRegexPattern)

	punctuationReplacer = strings.NewReplacer(
		"\u2014", "-",
		"\u2013", "-",
		"\u2012", "-",
		"…", "...",
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
)

// NormalizeNarration prepares text for the speech API: reference markers are removed,
// typographic quotes and dashes become plain ASCII and whitespace runs collapse to one space.
func NormalizeNarration(text string) string {
	if text == "" {
		return text
	}

	text = referencePattern.ReplaceAllString(text, "")
	text = punctuationReplacer.Replace(text)
	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
