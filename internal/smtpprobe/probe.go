// Package smtpprobe implements the SMTP Prober and Reply Classifier
// (spec §4.4, §4.5): the state machine that drives one MX host through
// CONNECT → BANNER → EHLO → [STARTTLS → EHLO]? → MAIL FROM → RCPT TO →
// (CATCH_ALL RCPT TO)? → QUIT, and the declarative pattern tables in
// classify.go that turn a raw (code, text) reply into a SmtpOutcome.
//
// Grounded on the teacher's internal/lookup/smtp.go (CheckSMTP/CheckVRFY,
// the enterprise-gateway deadline extension, the proxy-or-direct dial
// switch) and DevyanshuNegi-email-validator/worker/smtp.go's
// checkCatchAll probe, rewritten to drive net/textproto directly so the
// Reply Classifier sees the real reply code and text rather than an
// opaque net/smtp error.
package smtpprobe

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"mailvetter/internal/proxy"
	"mailvetter/internal/verdict"
)

// strictGateways are enterprise mail security gateways known to tarpit
// fast command sequences; the prober paces its commands and extends its
// deadline when the MX host matches one, grounded on the teacher's
// isStrictEnterprise detection in CheckSMTP.
var strictGateways = []string{
	"mimecast.com", "pphosted.com", "barracudanetworks.com",
	"messagelabs.com", "iphmx.com", "trendmicro.com", "trendmicro.eu",
	"sophos.com", "mailcontrol.com", "mxlogic.net", "fireeye.com",
	"mx.cloudflare.net",
}

// Config configures a Prober. HelloName and FromEmail come from spec §6
// (hello_name, from_email).
type Config struct {
	HelloName      string
	FromEmail      string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	ProxyPool      *proxy.Pool
	MaxHostsTried  int // 0 means the default of 3 MX records, tried in preference order
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 12 * time.Second
	}
	if c.MaxHostsTried == 0 {
		c.MaxHostsTried = 3
	}
	if c.HelloName == "" {
		c.HelloName = "probe.local"
	}
	return c
}

// Prober drives the SMTP state machine across a domain's MX set.
type Prober struct {
	cfg Config
}

func NewProber(cfg Config) *Prober {
	return &Prober{cfg: cfg.withDefaults()}
}

// Probe runs the full state machine for targetAddr against mxRecords,
// ordered by preference, and reports the deliverability outcome plus the
// catch-all probe result (only attempted when the primary RCPT TO is
// accepted). tag selects provider-specific reply patterns.
func (p *Prober) Probe(ctx context.Context, mxRecords []verdict.MXRecord, targetAddr, domain string, tag verdict.ProviderTag) (verdict.SmtpOutcome, verdict.CatchAllProbe, string) {
	if len(mxRecords) == 0 {
		return verdict.SmtpOutcome{Kind: verdict.Undeliverable, Reason: verdict.ReasonNoSuchHost}, verdict.CatchAllProbe{}, ""
	}

	hostsToTry := mxRecords
	if p.cfg.MaxHostsTried > 0 && len(hostsToTry) > p.cfg.MaxHostsTried {
		hostsToTry = hostsToTry[:p.cfg.MaxHostsTried]
	}

	var lastOutcome verdict.SmtpOutcome
	for _, mx := range hostsToTry {
		host := strings.TrimSuffix(mx.Host, ".")
		outcome, catchAll, authoritative := p.probeHost(ctx, host, targetAddr, domain, tag)
		if authoritative {
			return outcome, catchAll, host
		}
		lastOutcome = outcome
	}

	if lastOutcome.Kind == "" {
		lastOutcome = verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonSMTPTransient}
	}
	return lastOutcome, verdict.CatchAllProbe{}, ""
}

// probeHost runs one MX host attempt, retrying once on a greylisted
// MAIL/RCPT reply before giving up on this host. authoritative reports
// whether the outcome should stop the whole MX iteration (a provider-level
// signal) as opposed to a host-local transient that warrants trying the
// next MX record.
func (p *Prober) probeHost(ctx context.Context, host, targetAddr, domain string, tag verdict.ProviderTag) (verdict.SmtpOutcome, verdict.CatchAllProbe, bool) {
	const maxGreylistRetries = 1
	for attempt := 0; attempt <= maxGreylistRetries; attempt++ {
		outcome, catchAll, authoritative := p.attempt(ctx, host, targetAddr, domain, tag)
		if outcome.Kind == verdict.Unknown && outcome.Reason == verdict.ReasonGreylisted && attempt < maxGreylistRetries {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonTimeout}, verdict.CatchAllProbe{}, true
			}
			continue
		}
		return outcome, catchAll, authoritative
	}
	return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonGreylisted}, verdict.CatchAllProbe{}, true
}

func (p *Prober) attempt(ctx context.Context, host, targetAddr, domain string, tag verdict.ProviderTag) (verdict.SmtpOutcome, verdict.CatchAllProbe, bool) {
	sess, isStrict, greetFailure, ok := p.dialGreet(ctx, host)
	if !ok {
		return greetFailure, verdict.CatchAllProbe{}, false
	}
	defer sess.close()

	pace := func() error {
		if !isStrict {
			return nil
		}
		select {
		case <-time.After(800 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if pace() != nil {
		return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonTimeout}, verdict.CatchAllProbe{}, false
	}
	mailReply, err := sess.mailFrom(p.cfg.FromEmail)
	if err != nil {
		return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonReadTimeout}, verdict.CatchAllProbe{}, false
	}
	if mailReply.code/100 != 2 {
		outcome := Classify(mailReply.code, mailReply.text, tag, false)
		return outcome, verdict.CatchAllProbe{}, outcome.Kind != verdict.Unknown || outcome.Reason != verdict.ReasonSMTPTransient
	}

	if pace() != nil {
		return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonTimeout}, verdict.CatchAllProbe{}, false
	}
	rcptReply, err := sess.rcptTo(targetAddr)
	if err != nil {
		return verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonReadTimeout}, verdict.CatchAllProbe{}, false
	}
	outcome := Classify(rcptReply.code, rcptReply.text, tag, true)

	catchAll := verdict.CatchAllProbe{}
	if outcome.Kind == verdict.Deliverable {
		catchAll = p.probeCatchAll(ctx, sess, host, domain)
	}

	sess.quit()

	authoritative := true
	if outcome.Kind == verdict.Unknown && outcome.Reason == verdict.ReasonSMTPTransient {
		authoritative = false
	}
	return outcome, catchAll, authoritative
}

// dialGreet opens a connection to host and drives it through
// CONNECT → BANNER → EHLO → [STARTTLS → EHLO]?, returning the live session
// ready for a MAIL FROM. Shared by attempt and probeCatchAll's fresh-session
// retry so both paths dial and greet identically.
func (p *Prober) dialGreet(ctx context.Context, host string) (*session, bool, verdict.SmtpOutcome, bool) {
	isStrict := isStrictGateway(host)
	deadlineOffset := p.cfg.CommandTimeout
	if isStrict {
		deadlineOffset += 4 * time.Second
	}

	addr := host + ":25"
	var descriptor *proxy.Descriptor
	if p.cfg.ProxyPool.Enabled() {
		descriptor = p.cfg.ProxyPool.Next()
	}

	conn, err := proxy.DialContext(ctx, "tcp", addr, p.cfg.ConnectTimeout, p.cfg.ProxyPool, descriptor)
	if err != nil {
		if descriptor != nil {
			return nil, isStrict, verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonProxyError}, false
		}
		return nil, isStrict, verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonConnectTimeout}, false
	}

	sess := newSession(conn)

	deadline := time.Now().Add(deadlineOffset)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	sess.setDeadline(deadline)

	pace := func() error {
		if !isStrict {
			return nil
		}
		select {
		case <-time.After(800 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	banner, err := sess.readBanner()
	if err != nil {
		sess.close()
		return nil, isStrict, verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonReadTimeout}, false
	}
	if banner.code/100 != 2 {
		sess.close()
		return nil, isStrict, verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonSMTPTransient}, false
	}

	if pace() != nil {
		sess.close()
		return nil, isStrict, verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonTimeout}, false
	}
	ehloReply, err := sess.ehlo(p.cfg.HelloName)
	if err != nil {
		sess.close()
		return nil, isStrict, verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonReadTimeout}, false
	}
	if ehloReply.code/100 != 2 {
		sess.close()
		return nil, isStrict, verdict.SmtpOutcome{Kind: verdict.Unknown, Reason: verdict.ReasonSMTPTransient}, false
	}

	if sess.supportsStartTLS() {
		_ = sess.startTLS(host, p.cfg.HelloName) // best-effort; a failed STARTTLS continues in plaintext
	}

	return sess, isStrict, verdict.SmtpOutcome{}, true
}

// probeCatchAll reuses the open session's transaction to test whether the
// server accepts a mailbox that cannot plausibly exist, reopening the
// MAIL FROM transaction first since most servers reset recipient state on
// a fresh MAIL FROM. Some servers instead close the connection or reject
// outright after the first RCPT rather than accepting a second one on the
// same session — when that happens, retry once in a brand-new session
// instead of giving up, per the teacher's note that pipelining a second
// RCPT isn't safe to assume. Grounded on
// DevyanshuNegi-email-validator/worker/smtp.go's checkCatchAll, adapted to
// share the already-open connection first and fall back to dialGreet for
// the retry.
func (p *Prober) probeCatchAll(ctx context.Context, sess *session, host, domain string) verdict.CatchAllProbe {
	probeAddr := randomLocalPart() + "@" + domain

	if mailReply, err := sess.mailFrom(""); err == nil && mailReply.code/100 == 2 {
		if reply, err := sess.rcptTo(probeAddr); err == nil {
			return verdict.CatchAllProbe{Attempted: true, Accepted: reply.code/100 == 2}
		}
	}

	return p.probeCatchAllFreshSession(ctx, host, domain)
}

// probeCatchAllFreshSession retries the catch-all probe on a second
// connection after the first session rejected or closed on the repeat RCPT.
func (p *Prober) probeCatchAllFreshSession(ctx context.Context, host, domain string) verdict.CatchAllProbe {
	freshSess, _, _, ok := p.dialGreet(ctx, host)
	if !ok {
		return verdict.CatchAllProbe{Attempted: false}
	}
	defer freshSess.close()

	probeAddr := randomLocalPart() + "@" + domain
	if _, err := freshSess.mailFrom(""); err != nil {
		return verdict.CatchAllProbe{Attempted: false}
	}
	reply, err := freshSess.rcptTo(probeAddr)
	if err != nil {
		return verdict.CatchAllProbe{Attempted: false}
	}
	return verdict.CatchAllProbe{Attempted: true, Accepted: reply.code/100 == 2}
}

func randomLocalPart() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 20)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			b[i] = alphabet[i%len(alphabet)]
			continue
		}
		b[i] = alphabet[n.Int64()]
	}
	return fmt.Sprintf("nonexistent-%s", b)
}

func isStrictGateway(host string) bool {
	h := strings.ToLower(host)
	for _, gw := range strictGateways {
		if strings.Contains(h, gw) {
			return true
		}
	}
	return false
}
