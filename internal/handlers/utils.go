package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gatekeep/authserver/internal/services"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// ErrorResponse is the JSON body for error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

func withIdentity(ctx context.Context, identity services.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

// IdentityFromContext returns the identity stored by Identify, or Anonymous.
func IdentityFromContext(ctx context.Context) services.Identity {
	identity, ok := ctx.Value(contextIdentityKey).(services.Identity)
	if !ok {
		return services.Anonymous
	}
	return identity
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound is the JSON fallback for unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
