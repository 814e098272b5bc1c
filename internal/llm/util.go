package llm

import "strings"

// CleanJSONBlock strips what models wrap around JSON replies: markdown code fences,
// conversational preambles and trailing remarks. Input with no recognizable JSON is
// returned trimmed.
func CleanJSONBlock(text string) string {
	text = stripCodeFence(strings.TrimSpace(text))

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}

	var extracted string
	if text[start] == '{' {
		extracted = extractJSONObject(text[start:])
	} else {
		extracted = extractJSONArray(text[start:])
	}
	if extracted == "" {
		return text
	}
	return extracted
}

// FirstJSONObject returns the first balanced {...} span in text, skipping anything
// before it. A '{' that never closes is skipped in favor of the next one. It
// returns "" when text holds no complete object.
func FirstJSONObject(text string) string {
	text = stripCodeFence(strings.TrimSpace(text))
	for offset := 0; offset < len(text); {
		start := strings.IndexByte(text[offset:], '{')
		if start < 0 {
			return ""
		}
		start += offset
		if obj := extractJSONObject(text[start:]); obj != "" {
			return obj
		}
		offset = start + 1
	}
	return ""
}

func stripCodeFence(text string) string {
	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}

// extractJSONObject returns the balanced object at the start of s, or "" if s does
// not start with '{' or the object never closes.
func extractJSONObject(s string) string {
	return extractBalanced(s, '{', '}')
}

// extractJSONArray returns the balanced array at the start of s
func extractJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

// extractBalanced scans s from its first byte, which must be open, and returns the
// prefix up to the matching close. Brackets inside string literals are ignored.
func extractBalanced(s string, open, close byte) string {
	if s == "" || s[0] != open {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
