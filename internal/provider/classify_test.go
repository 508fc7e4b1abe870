package provider

import (
	"testing"

	"mailvetter/internal/verdict"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		domain  string
		mxHosts []string
		want    verdict.ProviderTag
	}{
		{"gmail free domain", "gmail.com", nil, verdict.ProviderGmail},
		{"googlemail alias", "googlemail.com", nil, verdict.ProviderGmail},
		{"custom domain on google MX", "acme.com", []string{"aspmx.l.google.com."}, verdict.ProviderGmail},
		{"hotmail free domain", "hotmail.com", nil, verdict.ProviderHotmailB2C},
		{"outlook free domain", "outlook.com", nil, verdict.ProviderHotmailB2C},
		{"custom domain on outlook MX is B2B", "acme.com", []string{"acme-com.mail.protection.outlook.com"}, verdict.ProviderHotmailB2B},
		{"yahoo free domain via MX", "yahoo.com", []string{"mta6.am0.yahoodns.net"}, verdict.ProviderYahoo},
		{"proton free domain via MX", "proton.me", []string{"mail.protonmail.ch"}, verdict.ProviderProton},
		{"unrecognized MX falls back to generic", "example.com", []string{"mx1.example.com"}, verdict.ProviderGeneric},
		{"no MX hosts at all falls back to generic", "example.com", nil, verdict.ProviderGeneric},
		{"domain match is case-insensitive", "GMAIL.COM", nil, verdict.ProviderGmail},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.domain, c.mxHosts)
			if got != c.want {
				t.Errorf("Classify(%q, %v) = %s, want %s", c.domain, c.mxHosts, got, c.want)
			}
		})
	}
}

func TestMethodForHonorsConfiguredOverride(t *testing.T) {
	cfg := MethodConfig{HotmailB2C: verdict.MethodSkip}
	if got := cfg.MethodFor(verdict.ProviderHotmailB2C); got != verdict.MethodSkip {
		t.Errorf("expected configured override to win, got %s", got)
	}
}

func TestMethodForFallsBackToDefaultsWhenUnset(t *testing.T) {
	cfg := MethodConfig{}
	cases := []struct {
		tag  verdict.ProviderTag
		want verdict.VerifMethod
	}{
		{verdict.ProviderGmail, verdict.MethodSMTP},
		{verdict.ProviderHotmailB2B, verdict.MethodSMTP},
		{verdict.ProviderHotmailB2C, verdict.MethodHeadless},
		{verdict.ProviderYahoo, verdict.MethodHeadless},
		{verdict.ProviderProton, verdict.MethodSMTP},
		{verdict.ProviderGeneric, verdict.MethodSMTP},
	}
	for _, c := range cases {
		if got := cfg.MethodFor(c.tag); got != c.want {
			t.Errorf("MethodFor(%s) = %s, want %s", c.tag, got, c.want)
		}
	}
}
