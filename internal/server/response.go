package server

import (
	"encoding/json"
	"net/http"

	"github.com/turnono/sim/internal/tools"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// writeToolResult maps a tool outcome onto an HTTP response. Validation
// failures and resolution misses are client errors carrying the
// structured result, not opaque 500s.
func writeToolResult(w http.ResponseWriter, result *tools.Result) {
	switch result.Status {
	case tools.StatusError:
		writeJSON(w, http.StatusBadRequest, result)
	case tools.StatusNotFound:
		writeJSON(w, http.StatusNotFound, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}
