// Package rendering fills LaTeX resume templates from structured resume data.
package rendering

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// decompose applies NFKD and drops the combining marks it splits off, so accented
// letters reach pdflatex as their base letter instead of a bare U+03xx mark.
var decompose = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// EscapeLaTeX makes free text safe to embed in LaTeX source. The steps run in a fixed
// order: normalize, map Unicode spaces/dashes/quotes/bullets to ASCII, strip control
// characters, escape the LaTeX specials, then collapse whitespace. It never fails.
// Special characters: \ { } $ & % # ^ _ ~
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	normalized, _, err := transform.String(decompose, text)
	if err != nil {
		normalized = norm.NFKD.String(text)
	}

	ascii := normalizeGlyphs(normalized)

	var result strings.Builder
	result.Grow(len(ascii) * 2)

	for _, r := range ascii {
		switch r {
		case '\\':
			result.WriteString(`\textbackslash{}`)
		case '{':
			result.WriteString(`\{`)
		case '}':
			result.WriteString(`\}`)
		case '$':
			result.WriteString(`\$`)
		case '&':
			result.WriteString(`\&`)
		case '%':
			result.WriteString(`\%`)
		case '#':
			result.WriteString(`\#`)
		case '^':
			result.WriteString(`\textasciicircum{}`)
		case '_':
			result.WriteString(`\_`)
		case '~':
			result.WriteString(`\textasciitilde{}`)
		default:
			result.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(result.String()), " ")
}

// normalizeGlyphs maps typographic glyphs to ASCII and strips C0/C1 controls.
// Tabs and line breaks survive as whitespace for the final collapse.
func normalizeGlyphs(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case isUnicodeSpace(r):
			b.WriteByte(' ')
		case r == '\u2013' || r == '\u2014':
			b.WriteByte('-')
		case r == '\u2018' || r == '\u2019':
			b.WriteByte('\'')
		case r == '\u201C' || r == '\u201D':
			b.WriteByte('"')
		case isBullet(r):
			b.WriteString("* ")
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r <= 0x1F || (r >= 0x7F && r <= 0x9F):
			// control character, dropped
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func isUnicodeSpace(r rune) bool {
	switch r {
	case '\u00A0', '\u1680', '\u180E', '\u202F', '\u205F', '\u3000', '\uFEFF':
		return true
	}
	return r >= '\u2000' && r <= '\u200B'
}

func isBullet(r rune) bool {
	switch r {
	case '\u2022', '\u2023', '\u25E6', '\u2043', '\u2219':
		return true
	}
	return false
}

// EscapeURL prepares a URL for the first argument of \href. The templates pass
// \href inside other macros' arguments (tabular cells among them), where the URL
// is already tokenized, so & % # _ ~ are backslash-escaped for hyperref to map
// back. Backslashes, braces, whitespace and control characters are dropped.
func EscapeURL(url string) string {
	url = strings.TrimSpace(norm.NFKC.String(url))

	var b strings.Builder
	for _, r := range url {
		switch {
		case r == '&' || r == '%' || r == '#' || r == '_' || r == '~':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\\' || r == '{' || r == '}' || unicode.IsSpace(r) || unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
