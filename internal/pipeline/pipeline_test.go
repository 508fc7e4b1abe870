package pipeline

import (
	"context"
	"testing"
	"time"

	"mailvetter/internal/cache"
	"mailvetter/internal/provider"
	"mailvetter/internal/verdict"
)

// cachedMXShape mirrors dnsresolve's unexported cachedMX JSON shape, letting
// a test seed MX results for a domain without ever hitting the network.
type cachedMXShape struct {
	Records []verdict.MXRecord `json:"records"`
	Reason  verdict.Reason     `json:"reason,omitempty"`
}

func seedMX(t *testing.T, domain string, shape cachedMXShape) cache.Store {
	t.Helper()
	store := cache.NewMemory()
	if err := store.Set(context.Background(), "mx:"+domain, shape, time.Minute); err != nil {
		t.Fatalf("seed MX cache for %s: %v", domain, err)
	}
	return store
}

func TestCheckSyntaxInvalidShortCircuits(t *testing.T) {
	p := New(Config{})
	v := p.Check(context.Background(), "not-an-email")
	if v.IsReachable != verdict.ReachInvalid {
		t.Fatalf("expected syntax-invalid input to short-circuit to invalid, got %s", v.IsReachable)
	}
	if v.MX.Records != nil || v.SMTP.Kind != "" {
		t.Errorf("expected no MX resolution or SMTP outcome for syntax-invalid input, got MX=%v SMTP=%v", v.MX, v.SMTP)
	}
}

// TestCheckDNSTimeoutSurfacesAsUnknown regression-tests the mapping
// mxFailureKind introduces: a transient dns_timeout reason must surface as
// Unknown so a later retry can reclassify it, never as Undeliverable.
func TestCheckDNSTimeoutSurfacesAsUnknown(t *testing.T) {
	store := seedMX(t, "slow-dns.example", cachedMXShape{Reason: verdict.ReasonDNSTimeout})
	p := New(Config{MXCache: store})

	v := p.Check(context.Background(), "person@slow-dns.example")
	if v.SMTP.Kind != verdict.Unknown {
		t.Fatalf("expected dns_timeout to surface as Unknown, got %s", v.SMTP.Kind)
	}
	if v.SMTP.Reason != verdict.ReasonDNSTimeout {
		t.Errorf("expected reason dns_timeout preserved, got %s", v.SMTP.Reason)
	}
	if v.IsReachable != verdict.ReachUnknown {
		t.Errorf("expected overall reachability unknown, got %s", v.IsReachable)
	}
}

func TestCheckNoSuchHostSurfacesAsUndeliverable(t *testing.T) {
	store := seedMX(t, "no-such-domain.example", cachedMXShape{Reason: verdict.ReasonNoSuchHost})
	p := New(Config{MXCache: store})

	v := p.Check(context.Background(), "bob@no-such-domain.example")
	if v.SMTP.Kind != verdict.Undeliverable {
		t.Fatalf("expected no_such_host to surface as Undeliverable, got %s", v.SMTP.Kind)
	}
	if v.IsReachable != verdict.ReachInvalid {
		t.Errorf("expected overall reachability invalid, got %s", v.IsReachable)
	}
}

func TestCheckParkedDomainSurfacesAsUndeliverable(t *testing.T) {
	records := []verdict.MXRecord{{Preference: 0, Host: "park-mx.secureserver.net"}}
	store := seedMX(t, "parked.example", cachedMXShape{Records: records, Reason: verdict.ReasonDomainRejected})
	p := New(Config{MXCache: store})

	v := p.Check(context.Background(), "person@parked.example")
	if v.SMTP.Kind != verdict.Undeliverable {
		t.Fatalf("expected domain_rejected to surface as Undeliverable, got %s", v.SMTP.Kind)
	}
	if v.SMTP.Reason != verdict.ReasonDomainRejected {
		t.Errorf("expected reason domain_rejected preserved, got %s", v.SMTP.Reason)
	}
}

// TestCheckSkipMethodNeverDialsOut confirms a provider routed to
// VerifMethod.skip resolves with no SMTP dial attempt: MX resolves cleanly
// (no Prober is even configured) and the method still reports a skip-shaped
// Unknown outcome rather than panicking on a nil Prober.
func TestCheckSkipMethodNeverDialsOut(t *testing.T) {
	records := []verdict.MXRecord{{Preference: 10, Host: "aspmx.l.google.com"}}
	store := seedMX(t, "gmail.com", cachedMXShape{Records: records})
	cfg := Config{
		MXCache:      store,
		MethodConfig: provider.MethodConfig{Gmail: verdict.MethodSkip},
	}
	p := New(cfg)

	v := p.Check(context.Background(), "person@gmail.com")
	if v.SMTP.Kind != verdict.Unknown || v.SMTP.Reason != verdict.ReasonSMTPUnknown {
		t.Fatalf("expected a skip-routed method to report Unknown(smtp_unknown), got %+v", v.SMTP)
	}
	if v.IsReachable != verdict.ReachUnknown {
		t.Errorf("expected overall reachability unknown for a skipped method, got %s", v.IsReachable)
	}
}
