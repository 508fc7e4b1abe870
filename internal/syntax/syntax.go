// Package syntax implements the Syntax Analyzer (spec §4.1): it parses and
// normalizes a raw address string, extracting the local-part, domain, and an
// optional typo-correction suggestion, without ever silently altering the
// caller's input.
package syntax

import (
	"net/mail"
	"strings"

	"golang.org/x/net/idna"

	"mailvetter/internal/domainlists"
	"mailvetter/internal/verdict"
)

// maxSuggestionDistance bounds how close a domain must be (Levenshtein) to a
// known free-provider domain before a correction is proposed.
const maxSuggestionDistance = 2

// Analyze parses raw and returns the normalized address plus whether it is
// syntactically valid. An invalid result carries Reason = syntax_invalid and
// the pipeline must short-circuit to is_reachable = invalid without issuing
// any DNS, SMTP, or headless call (spec invariant 2).
func Analyze(raw string) verdict.SyntaxResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return verdict.SyntaxResult{Valid: false, Reason: verdict.ReasonSyntaxInvalid}
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return verdict.SyntaxResult{Valid: false, Reason: verdict.ReasonSyntaxInvalid}
	}

	at := strings.LastIndex(addr.Address, "@")
	if at <= 0 || at == len(addr.Address)-1 {
		return verdict.SyntaxResult{Valid: false, Reason: verdict.ReasonSyntaxInvalid}
	}

	local := addr.Address[:at]
	domain := addr.Address[at+1:]

	normalizedDomain, err := idna.Lookup.ToUnicode(strings.ToLower(domain))
	if err != nil {
		// Not a valid IDNA label — fall back to a plain lowercase fold
		// rather than rejecting outright; many real domains (e.g. legacy
		// ASCII-only labels with underscores) fail strict IDNA validation
		// yet are perfectly deliverable.
		normalizedDomain = strings.ToLower(domain)
	}

	result := verdict.SyntaxResult{
		Valid:      true,
		Local:      local,
		Domain:     normalizedDomain,
		Normalized: local + "@" + normalizedDomain,
	}

	if suggestion, ok := suggestCorrection(normalizedDomain); ok {
		result.Suggestion = local + "@" + suggestion
	}

	return result
}

// suggestCorrection proposes a known free-provider domain if domain is
// within maxSuggestionDistance edits of one and is not itself an exact
// match. It never mutates the caller's input — only returns a suggestion.
func suggestCorrection(domain string) (string, bool) {
	if _, exact := domainlists.FreeProviders[domain]; exact {
		return "", false
	}

	best := ""
	bestDist := maxSuggestionDistance + 1
	for candidate := range domainlists.FreeProviders {
		d := levenshtein(domain, candidate)
		if d < bestDist {
			bestDist = d
			best = candidate
		}
	}
	if bestDist <= maxSuggestionDistance {
		return best, true
	}
	return "", false
}

// levenshtein computes the classic edit distance between a and b.
func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
