package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Sentinel errors.
var (
	// ErrSendBufferFull is returned when a scanner is not draining its socket.
	ErrSendBufferFull = errors.New("gateway: send buffer full")

	// ErrConnClosed is returned when sending to a connection that has gone away.
	ErrConnClosed = errors.New("gateway: connection closed")

	// ErrNotStarted is returned by operations that need a running listener.
	ErrNotStarted = errors.New("gateway: not started")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("gateway: already started")
)

// apiError is the JSON error body of the HTTP API.
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	errCodeBadRequest   = "bad_request"
	errCodeUnauthorized = "unauthorized"
	errCodeNotFound     = "not_found"
	errCodeInternal     = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, errCodeBadRequest, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="scanlink"`)
	writeError(w, http.StatusUnauthorized, errCodeUnauthorized, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, errCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, errCodeInternal, message)
}
