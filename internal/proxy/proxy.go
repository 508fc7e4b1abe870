// Package proxy manages the process-wide SOCKS5 proxy pool used exclusively
// by the SMTP Prober (spec §3 "Proxy descriptor", §4.4 "Proxy path", §4.9
// design note "Proxy-only-for-SMTP rule"). Headless and API adapters never
// dial through it — tunneling that traffic adds no deliverability signal
// and complicates failure attribution.
//
// Adapted from the teacher's internal/proxy package: the round-robin
// selection is kept (as Pool), generalized from an http.Transport proxy
// selector into the sole SOCKS5 dialer for raw TCP:25 connections. The
// target host name is handed to the proxy as-is; it is not resolved to an
// IP first.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	netproxy "golang.org/x/net/proxy"
)

// Descriptor is a single SOCKS5 proxy endpoint.
type Descriptor struct {
	Host string
	Port int
	User string
	Pass string
}

func (d Descriptor) url() *url.URL {
	u := &url.URL{
		Scheme: "socks5",
		Host:   net.JoinHostPort(d.Host, portString(d.Port)),
	}
	if d.User != "" {
		if d.Pass != "" {
			u.User = url.UserPassword(d.User, d.Pass)
		} else {
			u.User = url.User(d.User)
		}
	}
	return u
}

func portString(p int) string {
	return fmt.Sprintf("%d", p)
}

// Pool round-robins across a set of configured SOCKS5 proxies and bounds
// how many proxy dials may be in flight at once. A nil or empty Pool means
// "no proxy configured" — callers dial direct and never touch the
// semaphore.
type Pool struct {
	descriptors []Descriptor
	counter     uint64
	slots       chan struct{}
}

// NewPool constructs a Pool from the configured proxy descriptors, capping
// concurrent dials at maxConcurrent. maxConcurrent <= 0 defaults to one
// slot per configured descriptor (or 10 if that would be zero), matching
// the teacher's dynamic-limit default.
func NewPool(descriptors []Descriptor, maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = len(descriptors)
		if maxConcurrent == 0 {
			maxConcurrent = 10
		}
	}
	return &Pool{descriptors: descriptors, slots: make(chan struct{}, maxConcurrent)}
}

// Enabled reports whether any proxy is configured.
func (p *Pool) Enabled() bool {
	return p != nil && len(p.descriptors) > 0
}

// Next returns the next proxy in round-robin order, or nil if no proxy is
// configured.
func (p *Pool) Next() *Descriptor {
	if !p.Enabled() {
		return nil
	}
	n := atomic.AddUint64(&p.counter, 1)
	d := p.descriptors[(n-1)%uint64(len(p.descriptors))]
	return &d
}

// pooledConn releases its Pool slot exactly once, on the first Close.
type pooledConn struct {
	net.Conn
	release func()
	once    sync.Once
}

func (c *pooledConn) Close() error {
	c.once.Do(c.release)
	return c.Conn.Close()
}

// DialContext opens network/addr, tunneling through d if non-nil, or
// dialing direct otherwise. When p is non-nil and d is non-nil, DialContext
// blocks until p has a free slot before dialing, bounding total concurrent
// proxy connections independent of per-prober concurrency limits. A
// proxy-level failure (handshake, refused, auth) is returned as-is; the
// caller is responsible for mapping it to Unknown(proxy_error) without
// consuming an MX retry, per spec §4.4.
func DialContext(ctx context.Context, network, addr string, timeout time.Duration, p *Pool, d *Descriptor) (net.Conn, error) {
	direct := &net.Dialer{Timeout: timeout}

	if d == nil {
		return direct.DialContext(ctx, network, addr)
	}

	if p != nil && p.slots != nil {
		select {
		case p.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("proxy: timeout waiting for a free slot: %w", ctx.Err())
		}
	}
	release := func() {
		if p != nil && p.slots != nil {
			<-p.slots
		}
	}

	pURL := d.url()
	dialer, err := netproxy.FromURL(pURL, direct)
	if err != nil {
		release()
		return nil, fmt.Errorf("proxy: invalid descriptor: %w", err)
	}

	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		if cd, ok := dialer.(netproxy.ContextDialer); ok {
			conn, err := cd.DialContext(ctx, network, addr)
			done <- result{conn, err}
			return
		}
		conn, err := dialer.Dial(network, addr)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			release()
			return nil, fmt.Errorf("proxy: dial via %s failed: %w", pURL.Host, r.err)
		}
		return &pooledConn{Conn: r.conn, release: release}, nil
	case <-ctx.Done():
		release()
		return nil, fmt.Errorf("proxy: dial via %s cancelled: %w", pURL.Host, ctx.Err())
	}
}
