// Package api exposes the broadcast service over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/kilianp07/teamcast/core/model"
)

// ErrorBody is the JSON body of every 4xx and 5xx answer.
type ErrorBody struct {
	Error  string       `json:"error"`
	Reason model.Reason `json:"reason,omitempty"`
}

// ReasonUnexpected marks internal failures.
const ReasonUnexpected model.Reason = "unexpected"

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody.
func WriteError(w http.ResponseWriter, status int, reason model.Reason, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg, Reason: reason})
}

// RequireToken rejects requests without the bearer token. An empty token
// disables the check.
func RequireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			WriteError(w, http.StatusUnauthorized, "", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
