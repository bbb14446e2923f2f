// Package api provides HTTP handlers and routing for the TerraVue gateway.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the single JSON error shape every failure path writes.
// AuthURL is set only for authentication errors that carry a redirect.
type ErrorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	AuthURL     string `json:"authUrl,omitempty"`
}

// Error codes used across the API.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeValidation       = "ValidationError"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeServerError      = "ServerError"
	ErrCodeUpstreamError    = "UpstreamServiceError"
	ErrCodeAuthRequired     = "AuthenticationRequired"
	ErrCodeRequestInFlight  = "RequestInFlight"
	ErrCodeNotSupported     = "NotSupported"
)

// WriteJSON writes a JSON response with the given status code and value.
// If encoding fails, it logs the error and returns it.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteGeoJSON writes a GeoJSON response with the given status code and value.
// GeoJSON responses use the application/geo+json media type.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode GeoJSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteError writes an error response with the given status and code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	errResp := ErrorResponse{
		Code:        code,
		Description: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("failed to encode error response",
			slog.String("error", err.Error()),
		)
	}
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteValidationError writes a 400 response for a request that failed
// validation before any upstream call was issued.
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// WriteNotFound writes a 404 Not Found error response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInvalidParameter writes a 400 Bad Request error for invalid parameters.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeServerError, message)
}

// WriteInternalErrorWithRequestID writes a 500 response and echoes the
// request ID header so the failure can be matched to a log line.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	if requestID != "" {
		w.Header().Set(RequestIDHeader, requestID)
	}
	WriteInternalError(w, message)
}

// WriteUpstreamError writes a 502 Bad Gateway error for processing backend
// failures.
func WriteUpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, ErrCodeUpstreamError, message)
}

// WriteAuthRequired writes a 401 response, carrying the upstream auth URL
// when one was provided.
func WriteAuthRequired(w http.ResponseWriter, message, authURL string) {
	errResp := ErrorResponse{
		Code:        ErrCodeAuthRequired,
		Description: message,
		AuthURL:     authURL,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("failed to encode error response",
			slog.String("error", err.Error()),
		)
	}
}

// WriteRequestInFlight writes a 409 response for a request dropped because
// an identical operation is still running.
func WriteRequestInFlight(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, ErrCodeRequestInFlight, message)
}

// WriteNotSupported writes a 501 response for operations the active backend
// or configuration does not provide.
func WriteNotSupported(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotImplemented, ErrCodeNotSupported, message)
}
