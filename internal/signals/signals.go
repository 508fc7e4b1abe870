// Package signals implements the Misc Signals component (spec §4.7):
// account-quality flags that never gate the core Reachability verdict but
// ride along in Verdict.Misc — disposable-domain membership, role-account
// local-parts, free-provider membership, Gravatar presence, and an optional
// HaveIBeenPwned breach count.
//
// Grounded on the teacher's internal/lookup/static.go (membership checks),
// internal/lookup/breach.go (CheckHIBP), internal/lookup/probes.go
// (CheckGravatar, CheckGitHub), internal/lookup/probes_extended.go
// (CheckDomainAge), and internal/lookup/security.go (CheckSPF/CheckDMARC)
// — rewritten to share one HTTP client across every outbound HTTP call and
// to drop the teacher's pURL-threaded proxy parameter — per spec §4.9's
// proxy-only-for-SMTP rule, Misc Signals never dial through the SOCKS5
// pool or through a proxied resolver.
package signals

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mailvetter/internal/domainlists"
	"mailvetter/internal/verdict"
)

const userAgent = "mailvetter-verifier/1.0"

var httpClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Config toggles the optional network-backed signals; each is silently
// skipped (left nil in the result) when disabled or misconfigured, per
// spec §4.7 "never block or fail the overall check".
type Config struct {
	EnableGravatar    bool
	HIBPAPIKey        string
	EnableDomainInfra bool
	EnableGitHub      bool
	EnableDomainAge   bool
}

// Collect computes every Misc Signal for addr, skipping the network-backed
// ones that are disabled in cfg.
func Collect(ctx context.Context, addr verdict.Address, cfg Config) verdict.MiscSignals {
	domain := strings.ToLower(addr.Domain)
	local := strings.ToLower(addr.Local)

	out := verdict.MiscSignals{
		IsDisposable:   isDisposable(domain),
		IsRoleAccount:  isRoleAccount(local),
		IsFreeProvider: isFreeProvider(domain),
	}

	if cfg.EnableGravatar {
		has := checkGravatar(ctx, addr.Normalized)
		out.HasGravatar = &has
	}
	if cfg.HIBPAPIKey != "" {
		count := checkHIBP(ctx, addr.Normalized, cfg.HIBPAPIKey)
		out.BreachCount = &count
	}
	if cfg.EnableDomainInfra {
		spf := checkSPF(ctx, domain)
		out.HasSPF = &spf
		dmarc := checkDMARC(ctx, domain)
		out.HasDMARC = &dmarc
	}
	if cfg.EnableGitHub {
		has := checkGitHub(ctx, addr.Normalized)
		out.HasGitHub = &has
	}
	if cfg.EnableDomainAge {
		age := checkDomainAge(ctx, domain)
		out.DomainAgeDays = &age
	}
	return out
}

// checkSPF reports whether domain publishes an SPF TXT record, grounded on
// the teacher's internal/lookup/security.go CheckSPF.
func checkSPF(ctx context.Context, domain string) bool {
	txts, err := net.DefaultResolver.LookupTXT(ctx, domain)
	if err != nil {
		return false
	}
	for _, txt := range txts {
		if strings.HasPrefix(txt, "v=spf1") {
			return true
		}
	}
	return false
}

// checkDMARC reports whether domain publishes a DMARC policy at
// _dmarc.<domain>, grounded on the teacher's CheckDMARC.
func checkDMARC(ctx context.Context, domain string) bool {
	txts, err := net.DefaultResolver.LookupTXT(ctx, "_dmarc."+domain)
	if err != nil {
		return false
	}
	for _, txt := range txts {
		if strings.HasPrefix(txt, "v=DMARC1") {
			return true
		}
	}
	return false
}

// checkGitHub reports whether GitHub's unauthenticated user-search endpoint
// returns a hit for email, grounded on the teacher's CheckGitHub. The
// teacher's own comment notes unauthenticated email search is restricted
// and rate-limited, so a false is common and never treated as authoritative
// — same caution the API Adapter documents for its existence checks.
func checkGitHub(ctx context.Context, email string) bool {
	target := "https://api.github.com/search/users?q=" + url.QueryEscape(email) + "+in:email"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	return result.TotalCount > 0
}

// checkDomainAge queries rdap.org for domain's registration event and
// returns its age in days, or 0 on any error or missing event — grounded on
// the teacher's CheckDomainAge, retried once on transport failure.
func checkDomainAge(ctx context.Context, domain string) int {
	target := "https://rdap.org/domain/" + domain

	var rdap struct {
		Events []struct {
			Action string `json:"eventAction"`
			Date   string `json:"eventDate"`
		} `json:"events"`
	}

	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return 0
		}
		req.Header.Set("Accept", "application/rdap+json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := httpClient.Do(req)
		if err != nil {
			if attempt == 1 {
				if !sleepOrDone(ctx, 500*time.Millisecond) {
					return 0
				}
				continue
			}
			return 0
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return 0
		}
		err = json.NewDecoder(resp.Body).Decode(&rdap)
		resp.Body.Close()
		if err != nil {
			return 0
		}
		break
	}

	for _, event := range rdap.Events {
		if event.Action != "registration" && event.Action != "creation" {
			continue
		}
		created, err := time.Parse(time.RFC3339, event.Date)
		if err != nil {
			return 0
		}
		days := int(time.Since(created).Hours() / 24)
		if days < 0 {
			return 0
		}
		return days
	}
	return 0
}

func isDisposable(domain string) bool {
	_, ok := domainlists.Disposable[domain]
	return ok
}

func isRoleAccount(local string) bool {
	_, ok := domainlists.RoleAccounts[local]
	return ok
}

func isFreeProvider(domain string) bool {
	_, ok := domainlists.FreeProviders[domain]
	return ok
}

// checkGravatar reports whether a Gravatar profile image exists for addr.
func checkGravatar(ctx context.Context, addr string) bool {
	clean := strings.TrimSpace(strings.ToLower(addr))
	hash := md5.Sum([]byte(clean))
	target := fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=404", hash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type hibpBreach struct {
	Name string `json:"Name"`
}

// checkHIBP queries the HaveIBeenPwned v3 API and returns the number of
// breaches addr has appeared in, or 0 on any error, rate limit, or absent
// key. The whole address is PathEscape'd before interpolation — a raw "%"
// or "/" in a local part otherwise produces a malformed URL.
func checkHIBP(ctx context.Context, addr, apiKey string) int {
	target := "https://haveibeenpwned.com/api/v3/breachedaccount/" + url.PathEscape(addr) + "?truncateResponse=true"

	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return 0
		}
		req.Header.Set("hibp-api-key", apiKey)
		req.Header.Set("User-Agent", userAgent)

		resp, err := httpClient.Do(req)
		if err != nil {
			if attempt == 1 {
				if !sleepOrDone(ctx, 500*time.Millisecond) {
					return 0
				}
				continue
			}
			return 0
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var breaches []hibpBreach
			err := json.NewDecoder(resp.Body).Decode(&breaches)
			resp.Body.Close()
			if err != nil {
				return 0
			}
			return len(breaches)
		case http.StatusNotFound:
			resp.Body.Close()
			return 0
		case http.StatusTooManyRequests:
			resp.Body.Close()
			if attempt == 1 {
				if !sleepOrDone(ctx, 1600*time.Millisecond) {
					return 0
				}
				continue
			}
			return 0
		default:
			resp.Body.Close()
			if attempt == 1 {
				if !sleepOrDone(ctx, 500*time.Millisecond) {
					return 0
				}
				continue
			}
			return 0
		}
	}
	return 0
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
