package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the client-visible error carried in the response envelope.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports server-side and throttling failures.
func (e *APIError) Retryable() bool {
	return e != nil && (e.HTTPStatus >= http.StatusInternalServerError || e.HTTPStatus == http.StatusTooManyRequests)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// From extracts the first APIError in err's chain.
func From(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	return nil, false
}

// HasStatus reports whether err carries an APIError with the given status.
func HasStatus(err error, status int) bool {
	apiErr, ok := From(err)
	return ok && apiErr.HTTPStatus == status
}
