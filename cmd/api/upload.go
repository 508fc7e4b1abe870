package main

import (
	"encoding/csv"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"mailvetter/internal/provider"
	"mailvetter/internal/queue"
)

type uploadResponse struct {
	JobID     string `json:"job_id"`
	TotalRows int    `json:"total_rows"`
	Message   string `json:"message"`
}

// uploadHandler ingests a CSV of addresses, creates a job row, and
// publishes one queue.Message per address onto its provider's queue so
// the Bulk Worker can start draining it immediately — adapted from the
// teacher's cmd/api/upload.go CSV-then-EnqueueBatch flow, generalized from
// one flat Redis list to per-provider AMQP routing (queue.RouteFor).
func (s *server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil || s.producer == nil {
		http.Error(w, "bulk worker is not enabled on this deployment", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "file too large or malformed", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing 'file' parameter", http.StatusBadRequest)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var emails []string
	firstRow := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, "invalid CSV format", http.StatusBadRequest)
			return
		}
		if len(record) == 0 {
			continue
		}
		val := record[0]
		if firstRow {
			firstRow = false
			if val == "email" || val == "Email" || val == "Email Address" {
				continue
			}
		}
		if val != "" {
			emails = append(emails, val)
		}
	}

	ctx := r.Context()
	jobID := uuid.New().String()
	if err := s.store.CreateJob(ctx, jobID, len(emails)); err != nil {
		log.Printf("api: failed to create job: %v", err)
		http.Error(w, "failed to create job", http.StatusInternalServerError)
		return
	}

	for _, email := range emails {
		tag := provider.Classify(domainOf(email), nil)
		msg := queue.Message{Input: email, JobID: jobID, Attempt: 1}
		if err := s.producer.Publish(ctx, queue.RouteFor(tag), msg); err != nil {
			log.Printf("api: failed to enqueue %s: %v", email, err)
		}
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		JobID:     jobID,
		TotalRows: len(emails),
		Message:   "job created and queued",
	})
}

func domainOf(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return ""
}
