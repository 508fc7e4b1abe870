// reply pattern tables for the Reply Classifier (spec §4.5). Kept as static
// declarative data (spec §9 Design Notes) — a new provider-specific
// signature is a new table row, never a change to the state machine.
package smtpprobe

import (
	"strconv"
	"strings"

	"mailvetter/internal/verdict"
)

// pattern is one row of the reply classifier's pattern table.
type pattern struct {
	provider    verdict.ProviderTag // "" matches any provider (the generic bucket)
	codePrefix  string              // e.g. "550" or "55" to match a class; "" matches any code
	textSubstr  string              // case-insensitive substring of the reply text; "" matches any text
	outcome     verdict.SmtpOutcome
}

// replyPatterns is matched in declaration order; exact-provider patterns are
// listed before the generic bucket so the generic (provider == "") entries
// below always sort last regardless of table position, per spec §4.5
// "exact-provider patterns before generic patterns".
var replyPatterns = []pattern{
	// --- Gmail ---
	{provider: verdict.ProviderGmail, codePrefix: "550", textSubstr: "5.1.1", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{provider: verdict.ProviderGmail, codePrefix: "550", textSubstr: "5.2.1", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDisabled}},
	{provider: verdict.ProviderGmail, codePrefix: "552", textSubstr: "5.2.2", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxFull}},
	{provider: verdict.ProviderGmail, codePrefix: "421", textSubstr: "4.7.0", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonBlockedReputation}},
	{provider: verdict.ProviderGmail, codePrefix: "550", textSubstr: "5.7.1", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonBlockedIP}},

	// --- Hotmail / Outlook (B2B and B2C share reply text signatures) ---
	{provider: verdict.ProviderHotmailB2B, codePrefix: "550", textSubstr: "5.1.10", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{provider: verdict.ProviderHotmailB2B, codePrefix: "550", textSubstr: "recipient not found", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{provider: verdict.ProviderHotmailB2B, codePrefix: "450", textSubstr: "4.7.650", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonAntiSpoofingDetected}},
	{provider: verdict.ProviderHotmailB2B, codePrefix: "550", textSubstr: "5.7.511", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonBlockedIP}},
	{provider: verdict.ProviderHotmailB2B, codePrefix: "421", textSubstr: "4.7.500", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonRateLimited}},

	// --- Yahoo ---
	{provider: verdict.ProviderYahoo, codePrefix: "554", textSubstr: "554 5.1.1", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{provider: verdict.ProviderYahoo, codePrefix: "421", textSubstr: "temporarily deferred", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonRateLimited}},
	{provider: verdict.ProviderYahoo, codePrefix: "451", textSubstr: "captcha", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonNeedsCaptcha}},

	// --- Proton ---
	{provider: verdict.ProviderProton, codePrefix: "550", textSubstr: "no such user", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},

	// --- Generic: provider-agnostic policy/signal patterns ---
	{codePrefix: "550", textSubstr: "does not exist", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{codePrefix: "550", textSubstr: "user unknown", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{codePrefix: "550", textSubstr: "no such user", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{codePrefix: "550", textSubstr: "unknown user", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{codePrefix: "550", textSubstr: "mailbox unavailable", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{codePrefix: "550", textSubstr: "recipient rejected", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDoesNotExist}},
	{codePrefix: "552", textSubstr: "exceeded storage", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxFull}},
	{codePrefix: "552", textSubstr: "mailbox full", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxFull}},
	{codePrefix: "550", textSubstr: "mailbox disabled", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDisabled}},
	{codePrefix: "550", textSubstr: "account has been disabled", outcome: verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxDisabled}},
	{codePrefix: "550", textSubstr: "spamhaus", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonBlockedReputation}},
	{codePrefix: "550", textSubstr: "blocked", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonBlockedIP}},
	{codePrefix: "554", textSubstr: "reputation", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonBlockedReputation}},
	{codePrefix: "450", textSubstr: "spf", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonAntiSpoofingDetected}},
	{codePrefix: "450", textSubstr: "dmarc", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonAntiSpoofingDetected}},
	{codePrefix: "451", textSubstr: "too many", outcome: verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonRateLimited}},
}

// greylistTokens are matched case-insensitively against any 4xx reply text;
// a hit surfaces as Unknown(greylisted) after the one allowed retry,
// regardless of whether a more specific pattern also matched.
var greylistTokens = []string{"greylist", "greylisted", "please try later"}

// Classify canonicalizes (code, text, provider) into a SmtpOutcome per
// spec §4.5. observedAtRcpt reports whether the reply was read in answer to
// RCPT TO, because a non-matching 5xx/2xx defaults differently depending
// on whether it was seen at RCPT.
func Classify(code int, text string, tag verdict.ProviderTag, observedAtRcpt bool) verdict.SmtpOutcome {
	lowerText := strings.ToLower(text)

	if code >= 400 && code < 500 {
		for _, tok := range greylistTokens {
			if strings.Contains(lowerText, tok) {
				return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonGreylisted}
			}
		}
	}

	codeStr := strconv.Itoa(code)

	// Exact-provider patterns first.
	for _, p := range replyPatterns {
		if p.provider == "" || p.provider != tag {
			continue
		}
		if matches(p, codeStr, lowerText) {
			return p.outcome
		}
	}
	// Then the generic bucket, in declaration order.
	for _, p := range replyPatterns {
		if p.provider != "" {
			continue
		}
		if matches(p, codeStr, lowerText) {
			return p.outcome
		}
	}

	switch {
	case code >= 500 && code < 600:
		if observedAtRcpt {
			return verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonMailboxRejected}
		}
		return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonSMTPUnknown}
	case code >= 200 && code < 300:
		if observedAtRcpt {
			return verdict.SmtpOutcome{Kind: verdict.Deliverable}
		}
		return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonSMTPUnknown}
	default:
		return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonSMTPUnknown}
	}
}

func matches(p pattern, codeStr, lowerText string) bool {
	if p.codePrefix != "" && !strings.HasPrefix(codeStr, p.codePrefix) {
		return false
	}
	if p.textSubstr != "" && !strings.Contains(lowerText, strings.ToLower(p.textSubstr)) {
		return false
	}
	return p.codePrefix != "" || p.textSubstr != ""
}
