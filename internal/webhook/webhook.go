// Package webhook fans a completed Verdict out to the optional per-result
// POST target configured by worker.webhook.on_each_email.url (spec §6).
// A webhook failure is logged but never affects the job's ack/nack
// decision — the result is already durably persisted by the time the
// webhook fires, per spec §4.9.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"mailvetter/internal/verdict"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Notifier posts a Verdict to a single configured URL.
type Notifier struct {
	url string
}

func New(url string) *Notifier {
	return &Notifier{url: url}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Send POSTs v as JSON to the configured URL. Errors are logged, not
// returned — the caller does not gate persistence or ack behavior on
// webhook delivery.
func (n *Notifier) Send(ctx context.Context, v verdict.Verdict) {
	if !n.Enabled() {
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("webhook: failed to marshal verdict for %s: %v", v.Input, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("webhook: failed to build request for %s: %v", v.Input, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Printf("webhook: delivery failed for %s: %v", v.Input, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("webhook: %s returned %s", n.url, statusText(resp.StatusCode))
	}
}

func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
