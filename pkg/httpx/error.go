package httpx

import "net/http"

// APIError is the client-facing error taxonomy. Every error raised at the
// service or access-gate boundary is one of these; anything else is mapped
// to a 500 by WriteError.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

func Validation(message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, Message: message}
}

func Unauthenticated(message string) *APIError {
	return &APIError{StatusCode: http.StatusUnauthorized, Message: message}
}

func Forbidden(message string) *APIError {
	return &APIError{StatusCode: http.StatusForbidden, Message: message}
}

func NotFound(message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, Message: message}
}

func Internal(message string) *APIError {
	return &APIError{StatusCode: http.StatusInternalServerError, Message: message}
}

// IsUnauthenticated reports whether err carries a 401 status. The autosave
// pipeline uses it to decide between signalling re-login and surfacing a
// recoverable error.
func IsUnauthenticated(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}
