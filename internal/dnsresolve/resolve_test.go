package dnsresolve

import (
	"context"
	"testing"
	"time"

	"mailvetter/internal/cache"
	"mailvetter/internal/verdict"
)

func TestIsParkedMXAllHostsParked(t *testing.T) {
	records := []verdict.MXRecord{
		{Preference: 0, Host: "park-mx.secureserver.net"},
		{Preference: 10, Host: "park-mx2.secureserver.net"},
	}
	if !isParkedMX(records) {
		t.Errorf("expected an all-parked MX set to be detected as parked")
	}
}

func TestIsParkedMXMixedHostsNotParked(t *testing.T) {
	records := []verdict.MXRecord{
		{Preference: 0, Host: "mx1.realcompany.com"},
		{Preference: 10, Host: "park-mx.secureserver.net"},
	}
	if isParkedMX(records) {
		t.Errorf("expected a mixed MX set (not every host parked) to not be flagged parked")
	}
}

func TestIsParkedMXEmptyNotParked(t *testing.T) {
	if isParkedMX(nil) {
		t.Errorf("expected an empty MX set to not be flagged parked")
	}
}

func TestIsParkedHostSubstringMatch(t *testing.T) {
	if !isParkedHost("mx01.domaincontrol.com") {
		t.Errorf("expected a domaincontrol.com host to be recognized as parked")
	}
	if isParkedHost("mx01.google.com") {
		t.Errorf("expected a google.com host to not be recognized as parked")
	}
}

// cachedMXShape mirrors the unexported cachedMX type's JSON shape so a test
// can seed a cache.Store without reaching into the package's internals.
type cachedMXShape struct {
	Records []verdict.MXRecord `json:"records"`
	Reason  verdict.Reason     `json:"reason,omitempty"`
}

func TestCachedResolveReturnsCacheHitWithoutResolving(t *testing.T) {
	store := cache.NewMemory()
	want := []verdict.MXRecord{{Preference: 0, Host: "mx.example.com"}}
	if err := store.Set(context.Background(), "mx:cached.example", cachedMXShape{Records: want, Reason: verdict.ReasonNone}, time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	records, reason := CachedResolve(context.Background(), store, "cached.example")
	if reason != verdict.ReasonNone {
		t.Errorf("expected no reason from the cache hit, got %s", reason)
	}
	if len(records) != 1 || records[0].Host != "mx.example.com" {
		t.Errorf("expected the cached record set back, got %v", records)
	}
}

func TestCachedResolveKeyIsCaseInsensitive(t *testing.T) {
	store := cache.NewMemory()
	want := []verdict.MXRecord{{Preference: 0, Host: "mx.example.com"}}
	if err := store.Set(context.Background(), "mx:mixedcase.example", cachedMXShape{Records: want}, time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	records, _ := CachedResolve(context.Background(), store, "MixedCase.Example")
	if len(records) != 1 {
		t.Errorf("expected the cache lookup to be case-insensitive, got %v", records)
	}
}
