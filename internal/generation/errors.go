// Package generation turns resume text and company research into structured resume
// data, scores rendered resumes, and improves resume data from ATS feedback, all by
// prompting an LLM.
package generation

import "fmt"

// ParseError reports an LLM reply that could not be turned into the expected structure
type ParseError struct {
	// Operation is "generate", "score" or "improve"
	Operation string
	Message   string
	// Reply is the raw model output, kept for server-side logs
	Reply string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s parse error: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s parse error: %s", e.Operation, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// LLMError wraps a failed model call
type LLMError struct {
	Operation string
	Cause     error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("%s LLM call failed: %v", e.Operation, e.Cause)
}

func (e *LLMError) Unwrap() error {
	return e.Cause
}
