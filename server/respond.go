package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// maxRequestBody caps JSON request bodies at 1 MiB.
const maxRequestBody = 1 << 20

// respondJSON writes payload as a JSON response with the given status.
func (server *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		server.logger.Error("encoding response", "error", err)
	}
}

// respondError writes a JSON error envelope.
func (server *Server) respondError(w http.ResponseWriter, status int, message string) {
	server.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-capped JSON request body into target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxBytesErr.Limit)
		}
		return fmt.Errorf("parsing request body : %w", err)
	}
	return nil
}
