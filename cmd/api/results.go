package main

import (
	"net/http"
	"strconv"

	"mailvetter/internal/verdict"
)

// resultsPage wraps a page of results with metadata the client needs to
// paginate without a separate count query, kept from the teacher's
// cmd/api/results.go ResultsPage shape.
type resultsPage struct {
	JobID      string            `json:"job_id"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int               `json:"total_count"`
	HasMore    bool              `json:"has_more"`
	Results    []verdict.Verdict `json:"results"`
}

const (
	defaultPageSize = 500
	maxPageSize     = 2000
)

// resultsHandler returns one page of verdicts for a job. Adapted from the
// teacher's cmd/api/results.go LIMIT/OFFSET SQL query onto
// store.Store.GetResults, which returns the full result set for a job;
// pagination is applied in-memory here instead of pushed into the query —
// an acceptable tradeoff at the row counts a single bulk job produces, and
// it keeps the JSONB decode (store.GetResults already unmarshals every
// row) from needing a second, paginated SQL shape.
func (s *server) resultsHandler(w http.ResponseWriter, r *http.Request) {
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

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	pageSize := defaultPageSize
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	all, err := s.store.GetResults(r.Context(), jobID)
	if err != nil {
		http.Error(w, "failed to fetch results", http.StatusInternalServerError)
		return
	}

	total := len(all)
	offset := (page - 1) * pageSize
	var pageResults []verdict.Verdict
	if offset < total {
		end := offset + pageSize
		if end > total {
			end = total
		}
		pageResults = all[offset:end]
	}

	writeJSON(w, http.StatusOK, resultsPage{
		JobID:      jobID,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		HasMore:    offset+len(pageResults) < total,
		Results:    pageResults,
	})
}
