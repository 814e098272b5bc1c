package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-optimizer/internal/pipeline"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a resource the caller may not see or that does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnavailable indicates a feature whose backing service is not configured
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not available on this server", e.Feature)
}

// HTTPStatus returns the HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr  *ErrValidation
		notFoundErr    *ErrNotFound
		unavailableErr *ErrUnavailable
		inputErr       *pipeline.InputError
		persistErr     *pipeline.PersistenceError
		stageErr       *pipeline.StageError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &unavailableErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &stageErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the text returned to the client for err
func errorMessage(err error) string {
	var (
		validationErr  *ErrValidation
		notFoundErr    *ErrNotFound
		unavailableErr *ErrUnavailable
		inputErr       *pipeline.InputError
		stageErr       *pipeline.StageError
		persistErr     *pipeline.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &notFoundErr), errors.As(err, &unavailableErr):
		return err.Error()
	case errors.As(err, &inputErr), errors.As(err, &stageErr), errors.As(err, &persistErr):
		return pipeline.UserMessage(err)
	default:
		return "Internal server error"
	}
}
