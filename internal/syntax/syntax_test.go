package syntax

import (
	"testing"

	"mailvetter/internal/verdict"
)

func TestAnalyzeValidAddress(t *testing.T) {
	got := Analyze("  Jane.Doe@Example.com ")
	if !got.Valid {
		t.Fatalf("expected valid, got %+v", got)
	}
	if got.Local != "Jane.Doe" {
		t.Errorf("expected local part preserved verbatim, got %q", got.Local)
	}
	if got.Domain != "example.com" {
		t.Errorf("expected domain lowercased, got %q", got.Domain)
	}
	if got.Normalized != "Jane.Doe@example.com" {
		t.Errorf("expected normalized %q, got %q", "Jane.Doe@example.com", got.Normalized)
	}
}

func TestAnalyzeEmptyInputInvalid(t *testing.T) {
	got := Analyze("   ")
	if got.Valid {
		t.Fatalf("expected invalid for blank input, got %+v", got)
	}
	if got.Reason != verdict.ReasonSyntaxInvalid {
		t.Errorf("expected syntax_invalid reason, got %s", got.Reason)
	}
}

func TestAnalyzeMissingAtSignInvalid(t *testing.T) {
	got := Analyze("not-an-email")
	if got.Valid {
		t.Fatalf("expected invalid, got %+v", got)
	}
	if got.Reason != verdict.ReasonSyntaxInvalid {
		t.Errorf("expected syntax_invalid reason, got %s", got.Reason)
	}
}

func TestAnalyzeTrailingAtSignInvalid(t *testing.T) {
	got := Analyze("person@")
	if got.Valid {
		t.Fatalf("expected invalid for a domainless address, got %+v", got)
	}
}

func TestAnalyzeSuggestsCloseTypo(t *testing.T) {
	got := Analyze("person@gmial.com")
	if !got.Valid {
		t.Fatalf("expected valid syntax even with a typo'd domain, got %+v", got)
	}
	if got.Suggestion != "person@gmail.com" {
		t.Errorf("expected a gmail.com suggestion, got %q", got.Suggestion)
	}
}

func TestAnalyzeNoSuggestionForExactFreeProviderMatch(t *testing.T) {
	got := Analyze("person@gmail.com")
	if got.Suggestion != "" {
		t.Errorf("expected no suggestion for an exact free-provider match, got %q", got.Suggestion)
	}
}

func TestAnalyzeNoSuggestionWhenTooFarFromAnyKnownDomain(t *testing.T) {
	got := Analyze("person@somecompletelyunrelateddomain.biz")
	if got.Suggestion != "" {
		t.Errorf("expected no suggestion for a domain far from every free provider, got %q", got.Suggestion)
	}
}
