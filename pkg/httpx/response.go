package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"sesi/pkg/logger"
)

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Stack      string      `json:"stack,omitempty"`
}

// DevMode controls whether failure envelopes include a stack trace.
// Set once at startup from the config.
var DevMode bool

func JSON(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Envelope{
		Success:    true,
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
	})
}

// WriteError maps err onto the failure envelope. Unknown errors become a 500
// with a generic message; the underlying cause is logged, not leaked.
func WriteError(w http.ResponseWriter, err error) {
	apiErr, ok := asAPIError(err)
	if !ok {
		logger.Sugar.Errorf("Unexpected error: %v", err)
		apiErr = Internal("Internal Server Error")
	}

	env := Envelope{
		Success:    false,
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.Message,
	}
	if DevMode {
		env.Stack = string(debug.Stack())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	json.NewEncoder(w).Encode(env)
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
