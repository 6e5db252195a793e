package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/gateway"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// mutationError maps gateway failures onto HTTP statuses.
func mutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		jsonError(w, "authentication required", http.StatusUnauthorized)
	case errors.Is(err, backend.ErrNotFound):
		jsonError(w, "document not found", http.StatusNotFound)
	case errors.Is(err, gateway.ErrMissingFields):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
