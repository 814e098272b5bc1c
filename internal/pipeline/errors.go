package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/resume-optimizer/internal/compilation"
	"github.com/jonathan/resume-optimizer/internal/generation"
	"github.com/jonathan/resume-optimizer/internal/ingestion"
	"github.com/jonathan/resume-optimizer/internal/rendering"
)

const (
	msgExtraction   = "Failed to extract text from PDF. Please ensure the PDF is text-based, not scanned."
	msgInsufficient = "Could not extract enough text from the PDF. The file may be a scanned image; please upload a text-based PDF."
	msgParse        = "The AI returned an invalid response. Please try again."
	msgLLM          = "The AI service is currently unavailable. Please try again later."
	msgRender       = "Failed to fill the resume template."
	msgCompile      = "Failed to compile the resume PDF."
	msgPersist      = "Failed to save the optimized resume."
	msgCancelled    = "Resume optimization was cancelled."
	msgTimeout      = "Resume optimization timed out."
	msgDefault      = "Failed to optimize resume"
)

// InputError reports an invalid optimization request
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid request: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// StageError is a fatal failure of one stage of a run
type StageError struct {
	Stage Stage
	// UserMessage is safe to show to the requester; it never contains logs
	UserMessage string
	Cause       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// PersistenceError reports a failure to store the finished resume
type PersistenceError struct {
	Message string
	Cause   error
}

func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persistence error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("persistence error: %s", e.Message)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

func stageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, UserMessage: UserMessage(err), Cause: err}
}

// UserMessage maps err to a plain sentence for the requester
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) && stageErr.UserMessage != "" {
		return stageErr.UserMessage
	}

	var (
		inputErr        *InputError
		extractionErr   *ingestion.ExtractionError
		insufficientErr *ingestion.InsufficientContentError
		parseErr        *generation.ParseError
		llmErr          *generation.LLMError
		templateErr     *rendering.TemplateError
		renderErr       *rendering.RenderError
		compileErr      *compilation.CompilationError
		persistErr      *PersistenceError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.As(err, &inputErr):
		return inputErr.Message
	case errors.As(err, &extractionErr):
		return msgExtraction
	case errors.As(err, &insufficientErr):
		return msgInsufficient
	case errors.As(err, &parseErr):
		return msgParse
	case errors.As(err, &llmErr):
		return msgLLM
	case errors.As(err, &templateErr), errors.As(err, &renderErr):
		return msgRender
	case errors.As(err, &compileErr):
		return msgCompile
	case errors.As(err, &persistErr):
		return msgPersist
	default:
		return msgDefault
	}
}
