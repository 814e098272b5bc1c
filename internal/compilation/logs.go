package compilation

import (
	"bytes"
	"os"
	"strings"
)

const (
	errorTailChars = 1000
	plainTailChars = 1500
	truncatedNote  = "\n[output truncated]"
)

// summarizeLog reduces a pdflatex .log file to the lines that explain a failure:
// every "!" error line followed by the tail of the log, or just a longer tail when
// the log carries no error lines.
func summarizeLog(logPath string) string {
	content, err := os.ReadFile(logPath)
	if err != nil || len(content) == 0 {
		return "Log file not found"
	}
	log := string(content)

	var errorLines []string
	for _, line := range strings.Split(log, "\n") {
		if strings.HasPrefix(line, "!") {
			errorLines = append(errorLines, line)
		}
	}

	if len(errorLines) > 0 {
		return strings.Join(errorLines, "\n") + "\n\n" + tail(log, errorTailChars)
	}
	return tail(log, plainTailChars)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// limitedBuffer captures process output up to limit bytes and silently drops the rest,
// so a runaway toolchain cannot exhaust memory.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + truncatedNote
	}
	return b.buf.String()
}
