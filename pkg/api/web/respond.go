// Package web holds the response helpers shared by the HTTP handlers.
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/core/validate"

	"github.com/phuslu/log"
)

// CORS sets the headers for local front-end development.
func CORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Preflight answers OPTIONS requests. It reports whether the request was handled.
func Preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Str("component", "api").Msg("failed to encode response")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// Error writes err as JSON. Not-found and validation errors map to 404 and
// 400; anything else is logged and reported as status.
func Error(w http.ResponseWriter, err error, status int) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, validate.ErrInvalid):
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("component", "api").Msg("request failed")
	}
	JSON(w, status, errorBody{Error: err.Error()})
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
