package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinContentLength is the shortest cleaned text accepted as a real resume
const DefaultMinContentLength = 100

var (
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	horizontalRuns   = regexp.MustCompile(`[ \t]{2,}`)
)

// CleanText normalizes line endings, collapses 3+ newlines to one blank line and
// collapses runs of spaces/tabs. CleanText(CleanText(s)) == CleanText(s).
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = excessBlankLines.ReplaceAllString(content, "\n\n")
	content = horizontalRuns.ReplaceAllString(content, " ")

	return strings.TrimSpace(content)
}

// CheckContent rejects text shorter than minimum characters. A minimum <= 0 uses
// DefaultMinContentLength.
func CheckContent(text string, minimum int) error {
	if minimum <= 0 {
		minimum = DefaultMinContentLength
	}
	if n := utf8.RuneCountInString(text); n < minimum {
		return &InsufficientContentError{Length: n, Minimum: minimum}
	}
	return nil
}
