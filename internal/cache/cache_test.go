package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetGetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	type payload struct {
		Provider string `json:"provider"`
	}

	if err := m.Set(ctx, "domain:example.com", payload{Provider: "generic"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got payload
	ok, err := m.Get(ctx, "domain:example.com", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got.Provider != "generic" {
		t.Fatalf("expected hit with provider=generic, got ok=%v value=%+v", ok, got)
	}
}

func TestMemoryExpiresEntries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "k", "v", -time.Second)

	var got string
	ok, err := m.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestMemoryCleanupRemovesExpired(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "stale", "v", -time.Second)
	_ = m.Set(ctx, "fresh", "v", time.Minute)

	m.Cleanup()

	if len(m.items) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(m.items))
	}
	if _, ok := m.items["fresh"]; !ok {
		t.Fatal("expected fresh entry to survive cleanup")
	}
}
