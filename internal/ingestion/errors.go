// Package ingestion extracts and normalizes text from uploaded resume documents.
package ingestion

import "fmt"

// ExtractionError represents a document that could not be parsed or decoded
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction error: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// InsufficientContentError represents a document that parsed but yielded too little text,
// which usually means a scanned image rather than a text-based PDF.
type InsufficientContentError struct {
	Length  int
	Minimum int
}

func (e *InsufficientContentError) Error() string {
	return fmt.Sprintf("insufficient content: extracted %d characters, need at least %d", e.Length, e.Minimum)
}
