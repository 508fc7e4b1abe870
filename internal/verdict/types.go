// Package verdict defines the closed data model shared by every stage of the
// verification pipeline: the normalized address, MX record set, provider and
// method tags, the SMTP outcome taxonomy, and the final aggregate verdict.
package verdict

import "time"

// Address is the normalized form of a raw input string.
type Address struct {
	Input      string `json:"input"`
	Local      string `json:"local"`
	Domain     string `json:"domain"`
	Normalized string `json:"normalized"`
	Suggestion string `json:"suggestion,omitempty"`
}

// MXRecord is one entry in a domain's mail-exchanger set, ranked ascending by
// Preference; ties are broken lexicographically by Host.
type MXRecord struct {
	Preference uint16 `json:"preference"`
	Host       string `json:"host"`
}

// ProviderTag is the closed enum of mail-receiving operators the core knows
// how to route a verification strategy for.
type ProviderTag string

const (
	ProviderGmail      ProviderTag = "gmail"
	ProviderHotmailB2B ProviderTag = "hotmail_b2b"
	ProviderHotmailB2C ProviderTag = "hotmail_b2c"
	ProviderYahoo      ProviderTag = "yahoo"
	ProviderProton     ProviderTag = "proton"
	ProviderGeneric    ProviderTag = "generic"
)

// VerifMethod selects which adapter performs the deliverability probe for a
// given ProviderTag.
type VerifMethod string

const (
	MethodSMTP     VerifMethod = "smtp"
	MethodHeadless VerifMethod = "headless"
	MethodAPI      VerifMethod = "api"
	MethodSkip     VerifMethod = "skip"
)

// OutcomeKind is the sum-type discriminant for SmtpOutcome.
type OutcomeKind string

const (
	Deliverable   OutcomeKind = "deliverable"
	Undeliverable OutcomeKind = "undeliverable"
	Risky         OutcomeKind = "risky"
	Unknown       OutcomeKind = "unknown"
)

// Reason is the closed taxonomy from spec §7. New signals require an
// explicit addition here — callers must never invent ad hoc reason strings.
type Reason string

const (
	ReasonNone Reason = ""

	// Input errors.
	ReasonSyntaxInvalid Reason = "syntax_invalid"
	ReasonDomainInvalid Reason = "domain_invalid"

	// Transport transient.
	ReasonDNSTimeout     Reason = "dns_timeout"
	ReasonConnectTimeout Reason = "connect_timeout"
	ReasonReadTimeout    Reason = "read_timeout"
	ReasonProxyError     Reason = "proxy_error"
	ReasonTLSError       Reason = "tls_error"
	ReasonSMTPTransient  Reason = "smtp_transient"
	ReasonTimeout        Reason = "timeout"

	// SMTP categorical.
	ReasonMailboxDoesNotExist Reason = "mailbox_does_not_exist"
	ReasonMailboxFull         Reason = "mailbox_full"
	ReasonMailboxDisabled     Reason = "mailbox_disabled"
	ReasonDomainRejected      Reason = "domain_rejected"
	ReasonNoSuchHost          Reason = "no_such_host"
	ReasonMailboxRejected     Reason = "mailbox_rejected"

	// SMTP policy/signal.
	ReasonBlockedIP             Reason = "blocked_ip"
	ReasonBlockedReputation     Reason = "blocked_reputation"
	ReasonRateLimited           Reason = "rate_limited"
	ReasonGreylisted            Reason = "greylisted"
	ReasonAntiSpoofingDetected  Reason = "anti_spoofing_detected"
	ReasonNeedsCaptcha          Reason = "needs_captcha"
	ReasonCatchAll              Reason = "catch_all"
	ReasonBackendUnreachable    Reason = "backend_unreachable"
	ReasonSMTPUnknown           Reason = "smtp_unknown"

	// Core invariant violation.
	ReasonInternalError Reason = "internal_error"
)

// SmtpOutcome is the canonical result of a deliverability probe, whichever
// adapter produced it (SMTP, headless, or API).
type SmtpOutcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason Reason      `json:"reason,omitempty"`
}

func (o SmtpOutcome) String() string {
	if o.Reason == ReasonNone {
		return string(o.Kind)
	}
	return string(o.Kind) + "(" + string(o.Reason) + ")"
}

// CatchAllProbe is the companion probe result used to decide is_catch_all.
type CatchAllProbe struct {
	Attempted bool `json:"attempted"`
	Accepted  bool `json:"accepted"`
}

// Reachability is the four-valued final classification.
type Reachability string

const (
	ReachSafe    Reachability = "safe"
	ReachRisky   Reachability = "risky"
	ReachInvalid Reachability = "invalid"
	ReachUnknown Reachability = "unknown"
)

// SyntaxResult is the output of the Syntax Analyzer.
type SyntaxResult struct {
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized,omitempty"`
	Local      string `json:"local,omitempty"`
	Domain     string `json:"domain,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Reason     Reason `json:"reason,omitempty"`
}

// MXResult is the output of the MX Resolver.
type MXResult struct {
	Records []MXRecord `json:"records,omitempty"`
	Reason  Reason     `json:"reason,omitempty"`
}

// MiscSignals is the output of the Misc Signals component (§4.7).
type MiscSignals struct {
	IsDisposable   bool  `json:"is_disposable"`
	IsRoleAccount  bool  `json:"is_role_account"`
	IsFreeProvider bool  `json:"is_free_provider"`
	HasGravatar    *bool `json:"has_gravatar,omitempty"`
	BreachCount    *int  `json:"breach_count,omitempty"`
	APIExists      *bool `json:"api_exists,omitempty"`
	HasSPF         *bool `json:"has_spf,omitempty"`
	HasDMARC       *bool `json:"has_dmarc,omitempty"`
	HasGitHub      *bool `json:"has_github,omitempty"`
	DomainAgeDays  *int  `json:"domain_age_days,omitempty"`
}

// Debug carries diagnostic, non-authoritative detail about how the verdict
// was produced — provider tag, method used, MX host probed, backend name.
type Debug struct {
	BackendName string      `json:"backend_name,omitempty"`
	Provider    ProviderTag `json:"provider,omitempty"`
	Method      VerifMethod `json:"method,omitempty"`
	MXHost      string      `json:"mx_host,omitempty"`
	DurationMS  int64       `json:"duration_ms,omitempty"`
}

// Verdict is the final aggregate result of one address check.
type Verdict struct {
	Input        string       `json:"input"`
	Normalized   Address      `json:"normalized"`
	IsReachable  Reachability `json:"is_reachable"`
	Syntax       SyntaxResult `json:"syntax"`
	MX           MXResult     `json:"mx"`
	SMTP         SmtpOutcome  `json:"smtp"`
	IsCatchAll   bool         `json:"is_catch_all"`
	Misc         MiscSignals  `json:"misc"`
	Debug        Debug        `json:"debug"`
	CheckedAt    time.Time    `json:"checked_at"`
}

// Classify implements the is_reachable rule table from spec §4.8. Syntax
// invalidity must be checked by the caller first (it short-circuits before
// this table is ever consulted).
func Classify(smtp SmtpOutcome, isCatchAll, isDisposable bool) Reachability {
	switch smtp.Kind {
	case Deliverable:
		if isCatchAll || isDisposable {
			return ReachRisky
		}
		return ReachSafe
	case Undeliverable:
		return ReachInvalid
	case Risky:
		return ReachRisky
	default:
		return ReachUnknown
	}
}
