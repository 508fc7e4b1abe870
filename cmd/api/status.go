package main

import (
	"net/http"
)

// statusHandler returns the progress snapshot for a bulk job, adapted from
// the teacher's cmd/api/status.go onto store.Store.GetJobStatus.
func (s *server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "bulk worker is not enabled on this deployment", http.StatusServiceUnavailable)
		return
	}

	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		http.Error(w, "missing 'id' parameter", http.StatusBadRequest)
		return
	}

	status, err := s.store.GetJobStatus(r.Context(), jobID)
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
