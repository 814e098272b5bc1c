// Package compilation turns LaTeX sources into a PDF by running pdflatex in an
// isolated scratch directory, either inside a container or on the host.
package compilation

import "fmt"

// CompilationError represents a LaTeX compilation failure
type CompilationError struct {
	Message   string
	LogOutput string
	Cause     error
}

func (e *CompilationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("LaTeX compilation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("LaTeX compilation error: %s", e.Message)
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// Result is the outcome of one compilation. Document is set only on success.
type Result struct {
	Success  bool   `json:"success"`
	Document []byte `json:"-"`
	Error    string `json:"error,omitempty"`
	Logs     string `json:"logs,omitempty"`
}

// Err converts a failed result into a *CompilationError, or returns nil on success
func (r *Result) Err() error {
	if r == nil || r.Success {
		return nil
	}
	return &CompilationError{Message: r.Error, LogOutput: r.Logs}
}

func failure(message, logs string) *Result {
	return &Result{Success: false, Error: message, Logs: logs}
}
