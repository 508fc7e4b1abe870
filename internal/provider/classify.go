// Package provider implements the Provider Classifier (spec §4.3): a pure
// function from (domain, mx hosts) to a ProviderTag, plus the dispatch table
// (MethodConfig) that maps a ProviderTag to the VerifMethod that verifies it.
// The handler for each VerifMethod is chosen by internal/pipeline.
//
// Provider dispatch is modeled as a tagged variant and a lookup table
// (spec §9 Design Notes), not open-ended polymorphism — adding a provider
// means adding an enum value and a table row, never an interface.
package provider

import (
	"strings"

	"mailvetter/internal/verdict"
)

var hotmailFreeDomains = map[string]struct{}{
	"outlook.com": {}, "hotmail.com": {}, "hotmail.co.uk": {},
	"hotmail.fr": {}, "hotmail.it": {}, "hotmail.de": {},
	"live.com": {}, "live.co.uk": {}, "msn.com": {},
}

var gmailDomains = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {},
}

// Classify returns the ProviderTag for domain given its resolved MX hosts,
// applying the ordered rules from spec §4.3 — first match wins.
func Classify(domain string, mxHosts []string) verdict.ProviderTag {
	domain = strings.ToLower(domain)

	// 1. Gmail: exact domain match, or any MX suffix-matching Google
	// infrastructure.
	if _, ok := gmailDomains[domain]; ok {
		return verdict.ProviderGmail
	}
	for _, h := range mxHosts {
		if hasSuffix(h, "google.com.") || hasSuffix(h, "googlemail.com.") ||
			hasSuffix(h, "google.com") || hasSuffix(h, "googlemail.com") {
			return verdict.ProviderGmail
		}
	}

	// 2. Hotmail/Outlook family: free-list domains are B2C; any other
	// domain whose MX points at Outlook infrastructure is B2B (a business
	// running Microsoft 365 on its own domain).
	if _, ok := hotmailFreeDomains[domain]; ok {
		return verdict.ProviderHotmailB2C
	}
	for _, h := range mxHosts {
		if hasSuffix(h, "outlook.com.") || hasSuffix(h, "outlook.com") ||
			hasSuffix(h, "protection.outlook.com") {
			return verdict.ProviderHotmailB2B
		}
	}

	// 3. Yahoo infrastructure.
	for _, h := range mxHosts {
		if hasSuffix(h, "yahoodns.net") || hasSuffix(h, "yahoo.com") {
			return verdict.ProviderYahoo
		}
	}

	// 4. Proton infrastructure.
	for _, h := range mxHosts {
		if hasSuffix(h, "protonmail.ch") || hasSuffix(h, "proton.me") {
			return verdict.ProviderProton
		}
	}

	// 5. Fallback.
	return verdict.ProviderGeneric
}

func hasSuffix(host, suffix string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	suffix = strings.ToLower(strings.TrimSuffix(suffix, "."))
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
