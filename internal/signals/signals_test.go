package signals

import (
	"context"
	"testing"

	"mailvetter/internal/verdict"
)

func TestCollectStaticSignalsNoNetworkCalls(t *testing.T) {
	addr := verdict.Address{Local: "support", Domain: "mailinator.com", Normalized: "support@mailinator.com"}
	got := Collect(context.Background(), addr, Config{})

	if !got.IsDisposable {
		t.Error("expected mailinator.com to be flagged disposable")
	}
	if !got.IsRoleAccount {
		t.Error("expected support@ to be flagged a role account")
	}
	if got.IsFreeProvider {
		t.Error("mailinator.com is not a free provider")
	}
	if got.HasGravatar != nil || got.BreachCount != nil {
		t.Error("disabled network signals must stay nil")
	}
}

func TestCollectFreeProvider(t *testing.T) {
	addr := verdict.Address{Local: "jane.doe", Domain: "gmail.com", Normalized: "jane.doe@gmail.com"}
	got := Collect(context.Background(), addr, Config{})

	if got.IsDisposable || got.IsRoleAccount {
		t.Error("unexpected flag set for a normal gmail address")
	}
	if !got.IsFreeProvider {
		t.Error("expected gmail.com to be flagged a free provider")
	}
}
