package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"modstream/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	// If it's a BundleError, include additional information
	var be *errors.BundleError
	if stderrors.As(err, &be) {
		resp.Code = string(be.Code)
		resp.Details = be.Details
		resp.SuggestedFixes = be.SuggestedFixes
	}

	WriteJSON(w, resp, status)
}

// WriteBundleError writes an error with automatic status code mapping
func WriteBundleError(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(err))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(err error) int {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout // 504
	}
	switch errors.CodeOf(err) {
	case errors.TargetNotFound:
		return http.StatusNotFound // 404
	case errors.CycleDetected, errors.ParseError, errors.ResolveError, errors.RewriteError:
		return http.StatusUnprocessableEntity // 422
	case errors.FrameTooLarge:
		return http.StatusRequestEntityTooLarge // 413
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, errors.Errorf(errors.TargetNotFound, "%s", message), http.StatusNotFound)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteError(w, errors.NewBundleError(errors.InternalError, message, err), http.StatusInternalServerError)
}
