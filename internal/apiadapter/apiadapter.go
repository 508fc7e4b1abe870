// Package apiadapter implements the supplemented API Adapter (SPEC_FULL.md
// §4.10): VerifMethod.api is named by the configuration surface but never
// specified in detail. This adapter issues a lightweight HTTP existence
// check against a provider's own public API — mirroring the teacher's
// CheckMicrosoftLogin / CheckGoogleCalendar / CheckAdobe pattern in
// internal/lookup/probes.go and probes_extended.go.
//
// API-adapter results feed account-quality signals only; they never alone
// decide is_reachable, because the underlying existence inference is
// approximate — the same caution the teacher documents on CheckGitHub
// ("Email search often requires auth").
package apiadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

var httpClient = &http.Client{Timeout: 15 * time.Second}

// Signals is the set of API-backed existence checks an address can carry.
// Each field is a pointer so "not checked" is distinguishable from "checked,
// false".
type Signals struct {
	MicrosoftAccountExists *bool
	GoogleCalendarExists   *bool
	AdobeAccountExists     *bool
}

// CheckMicrosoft probes login.microsoftonline.com's credential-type
// endpoint, grounded on the teacher's CheckMicrosoftLogin.
func CheckMicrosoft(ctx context.Context, email string) bool {
	payload, _ := json.Marshal(map[string]string{"username": email})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://login.microsoftonline.com/common/GetCredentialType", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		IfExistsResult int `json:"IfExistsResult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	return result.IfExistsResult == 0
}

// CheckGoogleCalendar probes the CalDAV events endpoint for email, grounded
// on the teacher's CheckGoogleCalendar — a 401 (auth required, account
// exists) or 200 both indicate the account is real.
func CheckGoogleCalendar(ctx context.Context, email string) bool {
	target := "https://calendar.google.com/calendar/dav/" + email + "/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusOK
}

// CheckAdobe probes Adobe's sign-in account-existence endpoint, grounded on
// the teacher's CheckAdobe — retried once on transport failure.
func CheckAdobe(ctx context.Context, email string) bool {
	payload, _ := json.Marshal(map[string]string{"username": email})

	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			"https://auth.services.adobe.com/signin/v2/users/accounts", bytes.NewReader(payload))
		if err != nil {
			return false
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-IMS-ClientId", "AdobeID_v2_1")
		req.Header.Set("User-Agent", randomUserAgent())

		resp, err := httpClient.Do(req)
		if err != nil {
			if attempt == 1 {
				if !sleepOrDone(ctx, 500*time.Millisecond) {
					return false
				}
				continue
			}
			return false
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return false
		}

		var buf bytes.Buffer
		_, readErr := buf.ReadFrom(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			if attempt == 1 {
				continue
			}
			return false
		}
		return buf.Len() > 50 && bytes.Contains(buf.Bytes(), []byte("accountType"))
	}
	return false
}

// Collect runs every configured API check for email and reports which were
// attempted. The caller (internal/pipeline) folds the results into
// Verdict.Misc.APIExists as a single best-effort existence signal.
func Collect(ctx context.Context, email string, checkMicrosoft, checkGoogleCalendar, checkAdobe bool) Signals {
	var out Signals
	if checkMicrosoft {
		v := CheckMicrosoft(ctx, email)
		out.MicrosoftAccountExists = &v
	}
	if checkGoogleCalendar {
		v := CheckGoogleCalendar(ctx, email)
		out.GoogleCalendarExists = &v
	}
	if checkAdobe {
		v := CheckAdobe(ctx, email)
		out.AdobeAccountExists = &v
	}
	return out
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
