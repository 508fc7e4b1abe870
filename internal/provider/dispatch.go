package provider

import "mailvetter/internal/verdict"

// MethodConfig configures which VerifMethod handles each ProviderTag with a
// dedicated strategy; ProviderGeneric always uses SMTP and is not
// configurable (spec §6 configuration surface only exposes
// verif_method.{gmail,hotmailb2b,hotmailb2c,yahoo}).
type MethodConfig struct {
	Gmail      verdict.VerifMethod
	HotmailB2B verdict.VerifMethod
	HotmailB2C verdict.VerifMethod
	Yahoo      verdict.VerifMethod
}

// DefaultMethodConfig mirrors the spec's worked scenarios: Gmail and
// hotmail_b2b speak plain SMTP, hotmail_b2c and yahoo are headless by
// default because their SMTP replies are deliberately uninformative.
func DefaultMethodConfig() MethodConfig {
	return MethodConfig{
		Gmail:      verdict.MethodSMTP,
		HotmailB2B: verdict.MethodSMTP,
		HotmailB2C: verdict.MethodHeadless,
		Yahoo:      verdict.MethodHeadless,
	}
}

// MethodFor returns the VerifMethod configured for tag. Proton has no
// configuration surface per spec §6; it is routed through SMTP like the
// generic bucket until a dedicated probe strategy is specified.
func (c MethodConfig) MethodFor(tag verdict.ProviderTag) verdict.VerifMethod {
	switch tag {
	case verdict.ProviderGmail:
		return orDefault(c.Gmail, verdict.MethodSMTP)
	case verdict.ProviderHotmailB2B:
		return orDefault(c.HotmailB2B, verdict.MethodSMTP)
	case verdict.ProviderHotmailB2C:
		return orDefault(c.HotmailB2C, verdict.MethodHeadless)
	case verdict.ProviderYahoo:
		return orDefault(c.Yahoo, verdict.MethodHeadless)
	case verdict.ProviderProton, verdict.ProviderGeneric:
		return verdict.MethodSMTP
	default:
		return verdict.MethodSMTP
	}
}

func orDefault(m, fallback verdict.VerifMethod) verdict.VerifMethod {
	if m == "" {
		return fallback
	}
	return m
}
