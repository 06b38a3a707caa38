// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/video-summary/backend/internal/analysis"
	"github.com/video-summary/backend/internal/staging"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewUnsupportedFormatError creates a 415 error for a rejected video container
func NewUnsupportedFormatError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusUnsupportedMediaType,
		Code:    "UNSUPPORTED_FORMAT",
		Message: "Supported formats are mp4, avi and mov",
		Details: cause.Error(),
	}
}

// NewEmptyQueryError creates a 422 error carrying the warning shown to the user
func NewEmptyQueryError(warning string) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "EMPTY_QUERY",
		Message: warning,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewAnalysisError maps a failed analysis outcome to a response. The message
// is the text the user sees.
func NewAnalysisError(out analysis.Outcome) *APIError {
	switch {
	case errors.Is(out.Err, staging.ErrNotFound):
		return NewNotFoundError("video", out.VideoID)
	case errors.Is(out.Err, staging.ErrInUse):
		return NewConflictError("video is already being analysed")
	}

	kind := analysis.KindOf(out.Err)
	apiErr := &APIError{
		Status:  http.StatusBadGateway,
		Code:    "ANALYSIS_FAILED",
		Message: out.Message(),
		Details: kind.String(),
	}
	if kind == analysis.KindTimeout {
		apiErr.Status = http.StatusGatewayTimeout
		apiErr.Code = "ANALYSIS_TIMEOUT"
	}
	return apiErr
}

// NewErrorHandler builds the Echo error handler. With showDetails set,
// unexpected errors carry their text in the details field.
// Usage: e.HTTPErrorHandler = api.NewErrorHandler(cfg.Advanced.ShowErrorDetails)
func NewErrorHandler(showDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError

		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			apiErr = &APIError{
				Status:  httpErr.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", httpErr.Message),
			}
			if httpErr.Code == http.StatusRequestEntityTooLarge {
				apiErr.Code = "FILE_TOO_LARGE"
			}
		default:
			apiErr = &APIError{
				Status:  http.StatusInternalServerError,
				Code:    "UNKNOWN_ERROR",
				Message: "An unexpected error occurred",
			}
			if showDetails {
				apiErr.Details = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}
