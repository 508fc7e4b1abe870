package main

import (
	"context"
	"net/http"
	"time"
)

// verifyHandler runs the full verification pipeline synchronously for a
// single address, bypassing the bulk worker's queue and throttle entirely
// — spec §4.11 "single-check surface, not subject to worker.throttle".
func (s *server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "missing 'email' parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	v := s.pipeline.Check(ctx, email)
	writeJSON(w, http.StatusOK, v)
}
