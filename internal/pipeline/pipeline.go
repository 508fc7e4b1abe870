// Package pipeline wires the per-address data flow named by spec §2:
// address → Syntax → MX → Provider Classifier → (SMTP Prober | Headless
// Adapter | API Adapter) in parallel with Misc Signals → Verdict Assembler.
//
// The fan-out/fan-in shape — a shared, mutex-protected result struct, a
// sync.WaitGroup, and a ctx.Done() select around the join — is grounded on
// the teacher's internal/validator/logic.go VerifyEmail, generalized from
// its fixed four-goroutine layout (domain infra / SMTP probes / API
// probes, joined by a mutex) into two branches: the MX→provider→probe
// chain (inherently sequential, provider dispatch needs MX first) and the
// independent Misc Signals collection.
package pipeline

import (
	"context"
	"sync"
	"time"

	"mailvetter/internal/apiadapter"
	"mailvetter/internal/cache"
	"mailvetter/internal/dnsresolve"
	"mailvetter/internal/headless"
	"mailvetter/internal/provider"
	"mailvetter/internal/signals"
	"mailvetter/internal/smtpprobe"
	"mailvetter/internal/syntax"
	"mailvetter/internal/verdict"
)

// Config wires every component a Pipeline needs.
type Config struct {
	BackendName   string
	MethodConfig  provider.MethodConfig
	Prober        *smtpprobe.Prober
	Headless      *headless.Adapter
	SignalsConfig signals.Config

	// MXCache memoizes MX Resolver results across addresses sharing a
	// domain within one bulk job. Nil disables memoization.
	MXCache cache.Store

	// API-adapter toggles; only consulted when MethodConfig routes a
	// provider to VerifMethod.api.
	CheckMicrosoft      bool
	CheckGoogleCalendar bool
	CheckAdobe          bool
}

// Pipeline runs the full per-address verification flow.
type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Check runs the whole pipeline for one raw address input.
func (p *Pipeline) Check(ctx context.Context, rawInput string) verdict.Verdict {
	start := time.Now()
	syn := syntax.Analyze(rawInput)

	v := verdict.Verdict{
		Input:     rawInput,
		Syntax:    syn,
		CheckedAt: truncatedNow(start),
		Debug:     verdict.Debug{BackendName: p.cfg.BackendName},
	}

	if !syn.Valid {
		v.IsReachable = verdict.ReachInvalid
		return v
	}

	addr := verdict.Address{
		Input:      rawInput,
		Local:      syn.Local,
		Domain:     syn.Domain,
		Normalized: syn.Normalized,
		Suggestion: syn.Suggestion,
	}
	v.Normalized = addr

	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		mxResult, tag, method, smtpOutcome, catchAll, mxHost, apiExists := p.resolveAndProbe(ctx, addr)

		mu.Lock()
		v.MX = mxResult
		v.SMTP = smtpOutcome
		v.IsCatchAll = catchAll.Attempted && catchAll.Accepted
		v.Debug.Provider = tag
		v.Debug.Method = method
		v.Debug.MXHost = mxHost
		if apiExists != nil {
			v.Misc.APIExists = apiExists
		}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		misc := signals.Collect(ctx, addr, p.cfg.SignalsConfig)
		mu.Lock()
		v.Misc.IsDisposable = misc.IsDisposable
		v.Misc.IsRoleAccount = misc.IsRoleAccount
		v.Misc.IsFreeProvider = misc.IsFreeProvider
		v.Misc.HasGravatar = misc.HasGravatar
		v.Misc.BreachCount = misc.BreachCount
		v.Misc.HasSPF = misc.HasSPF
		v.Misc.HasDMARC = misc.HasDMARC
		v.Misc.HasGitHub = misc.HasGitHub
		v.Misc.DomainAgeDays = misc.DomainAgeDays
		mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		mu.Lock()
		defer mu.Unlock()
		v.IsReachable = verdict.ReachUnknown
		v.SMTP = verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonTimeout}
		v.Debug.DurationMS = time.Since(start).Milliseconds()
		return v
	}

	v.IsReachable = verdict.Classify(v.SMTP, v.IsCatchAll, v.Misc.IsDisposable)
	v.Debug.DurationMS = time.Since(start).Milliseconds()
	return v
}

// resolveAndProbe runs MX resolution, provider classification, and the
// dispatched probe (SMTP, headless, or API) in sequence — each stage needs
// the previous one's output, so this inner chain does not itself fan out.
func (p *Pipeline) resolveAndProbe(ctx context.Context, addr verdict.Address) (
	mxResult verdict.MXResult,
	tag verdict.ProviderTag,
	method verdict.VerifMethod,
	outcome verdict.SmtpOutcome,
	catchAll verdict.CatchAllProbe,
	mxHost string,
	apiExists *bool,
) {
	records, reason := dnsresolve.CachedResolve(ctx, p.cfg.MXCache, addr.Domain)
	mxResult = verdict.MXResult{Records: records, Reason: reason}

	if reason != verdict.ReasonNone {
		outcome = verdict.SmtpOutcome{Kind: mxFailureKind(reason), Reason: reason}
		return
	}

	hosts := make([]string, 0, len(records))
	for _, r := range records {
		hosts = append(hosts, r.Host)
	}
	tag = provider.Classify(addr.Domain, hosts)
	method = p.cfg.MethodConfig.MethodFor(tag)

	switch method {
	case verdict.MethodHeadless:
		outcome = p.cfg.Headless.Check(ctx, addr.Normalized)
	case verdict.MethodAPI:
		exists := apiadapter.Collect(ctx, addr.Normalized, methodWantsMicrosoft(tag, p.cfg), p.cfg.CheckGoogleCalendar, p.cfg.CheckAdobe)
		apiExists = firstNonNil(exists.MicrosoftAccountExists, exists.GoogleCalendarExists, exists.AdobeAccountExists)
		outcome = verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonSMTPUnknown}
	case verdict.MethodSkip:
		outcome = verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonSMTPUnknown}
	default:
		outcome, catchAll, mxHost = p.cfg.Prober.Probe(ctx, records, addr.Normalized, addr.Domain, tag)
	}
	return
}

// mxFailureKind maps an MX Resolver failure reason to the OutcomeKind spec
// §4.2/§7 require: transient, retryable reasons (DNS timeout) surface as
// Unknown so a retry can reclassify them later; an authoritative no-such-host
// or invalid-domain reason surfaces as Undeliverable, since re-resolving
// won't change the outcome.
func mxFailureKind(reason verdict.Reason) verdict.OutcomeKind {
	switch reason {
	case verdict.ReasonDNSTimeout:
		return verdict.Unknown
	default:
		return verdict.Undeliverable
	}
}

func methodWantsMicrosoft(tag verdict.ProviderTag, cfg Config) bool {
	return cfg.CheckMicrosoft && (tag == verdict.ProviderHotmailB2B || tag == verdict.ProviderHotmailB2C)
}

func firstNonNil(bs ...*bool) *bool {
	for _, b := range bs {
		if b != nil {
			return b
		}
	}
	return nil
}

// truncatedNow strips monotonic reading so CheckedAt serializes identically
// across repeated marshal/unmarshal round trips.
func truncatedNow(t time.Time) time.Time {
	return t.Round(0)
}
