// Package httpserver contains the broker's HTTP handlers and middleware.
//
// It exposes the enqueue/dequeue/complete/delete job surface and the
// admin-gated introspection endpoints, keeping HTTP concerns (request
// validation, error envelopes, auth) separate from broker logic.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/routerfleet/regional-broker/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrDuplicateJob):
		code = http.StatusConflict
		codeStr = "DUPLICATE_JOB"
	case errors.Is(err, domain.ErrCapacityExhausted):
		code = http.StatusServiceUnavailable
		codeStr = "CAPACITY_EXHAUSTED"
	case errors.Is(err, domain.ErrLauncherUnavailable):
		code = http.StatusServiceUnavailable
		codeStr = "LAUNCHER_UNAVAILABLE"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
