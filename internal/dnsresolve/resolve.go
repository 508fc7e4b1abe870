// Package dnsresolve implements the MX Resolver (spec §4.2): it resolves and
// ranks MX hosts for a domain, falling back to implicit A/AAAA per RFC 5321
// §5.1 when no MX record exists, and classifies domain reachability.
package dnsresolve

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"

	"mailvetter/internal/cache"
	"mailvetter/internal/domainlists"
	"mailvetter/internal/verdict"
)

// cacheTTL bounds how long a resolved MX set is reused across checks in the
// same bulk job — long enough to avoid re-resolving the same domain for
// every address in a large upload, short enough that an MX change during a
// job is picked up on the next run.
const cacheTTL = 15 * time.Minute

type cachedMX struct {
	Records []verdict.MXRecord `json:"records"`
	Reason  verdict.Reason     `json:"reason,omitempty"`
}

// CachedResolve wraps Resolve with store, a domain-level memoization the
// bulk worker shares across every address in a job so a large upload with
// many addresses at the same domain pays the DNS round trip once. A
// dns_timeout result is not stored, so the next check re-resolves. A nil
// store disables memoization entirely.
func CachedResolve(ctx context.Context, store cache.Store, domain string) ([]verdict.MXRecord, verdict.Reason) {
	if store == nil {
		return Resolve(ctx, domain)
	}

	key := "mx:" + strings.ToLower(domain)
	var hit cachedMX
	if ok, err := store.Get(ctx, key, &hit); err == nil && ok {
		return hit.Records, hit.Reason
	}

	records, reason := Resolve(ctx, domain)
	if reason != verdict.ReasonDNSTimeout {
		_ = store.Set(ctx, key, cachedMX{Records: records, Reason: reason}, cacheTTL)
	}
	return records, reason
}

// DefaultTimeout bounds a single MX (or fallback A/AAAA) lookup.
const DefaultTimeout = 5 * time.Second

// resolver is a package-level *net.Resolver configured with a direct dialer.
// DNS traffic must never be sent through the SOCKS5 proxy: standard SOCKS5
// does not carry UDP, and DNS-over-TCP-through-SOCKS5 adds latency with no
// deliverability benefit — the proxy exists to protect the SMTP probe's
// reputation, not to hide resolver queries.
var resolver = &net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		d := net.Dialer{Timeout: DefaultTimeout}
		return d.DialContext(ctx, network, address)
	},
}

// Resolve returns the MX record set for domain, sorted ascending by
// preference with lexicographic host tie-breaking, or a reason classifying
// why the domain is unreachable.
//
// Failure semantics (spec §4.2): a DNS timeout surfaces as
// Unknown(dns_timeout); NXDOMAIN (and an empty result even after the
// implicit-MX fallback) surfaces as Undeliverable(no_such_host); an MX set
// that resolves cleanly but points entirely at a parking registrar
// surfaces as Undeliverable(domain_rejected).
func Resolve(ctx context.Context, domain string) ([]verdict.MXRecord, verdict.Reason) {
	lookupCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	records, err := resolver.LookupMX(lookupCtx, domain)
	if err != nil {
		if lookupCtx.Err() != nil {
			return nil, verdict.ReasonDNSTimeout
		}
		if isNXDomain(err) {
			return fallbackAddressRecords(ctx, domain)
		}
		return nil, verdict.ReasonDNSTimeout
	}

	if len(records) == 0 {
		return fallbackAddressRecords(ctx, domain)
	}

	out := toMXRecords(records)
	sortRecords(out)
	if isParkedMX(out) {
		return out, verdict.ReasonDomainRejected
	}
	return out, verdict.ReasonNone
}

// isParkedMX reports whether every MX host for a domain belongs to a
// domain-parking registrar, per domainlists.ParkedMXHosts — such a domain
// resolves cleanly (it is not NXDOMAIN) but is not actually receiving mail,
// so it must not be probed over SMTP as if it were a live mailbox.
func isParkedMX(records []verdict.MXRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		if !isParkedHost(r.Host) {
			return false
		}
	}
	return true
}

func isParkedHost(host string) bool {
	for _, parked := range domainlists.ParkedMXHosts {
		if strings.Contains(host, parked) {
			return true
		}
	}
	return false
}

// fallbackAddressRecords implements the RFC 5321 §5.1 implicit-MX rule: if a
// domain publishes no MX record, an A/AAAA record for the domain itself is
// treated as a single, lowest-preference mail exchanger.
func fallbackAddressRecords(ctx context.Context, domain string) ([]verdict.MXRecord, verdict.Reason) {
	lookupCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	ips, err := resolver.LookupHost(lookupCtx, domain)
	if err != nil || len(ips) == 0 {
		if lookupCtx.Err() != nil {
			return nil, verdict.ReasonDNSTimeout
		}
		return nil, verdict.ReasonNoSuchHost
	}

	return []verdict.MXRecord{{Preference: 0, Host: domain}}, verdict.ReasonNone
}

func toMXRecords(records []*net.MX) []verdict.MXRecord {
	out := make([]verdict.MXRecord, 0, len(records))
	for _, r := range records {
		out = append(out, verdict.MXRecord{
			Preference: r.Pref,
			Host:       strings.TrimSuffix(strings.ToLower(r.Host), "."),
		})
	}
	return out
}

func sortRecords(records []verdict.MXRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Preference != records[j].Preference {
			return records[i].Preference < records[j].Preference
		}
		return records[i].Host < records[j].Host
	})
}

// isNXDomain reports whether err represents an authoritative "no such
// domain" response rather than a transient resolver failure.
func isNXDomain(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}
