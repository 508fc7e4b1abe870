// Package throttle implements the Throttle & Proxy Policy's rate-limiting
// half (spec §3 "Throttle bucket", §4.9 "Throttle", §5 "Shared resources").
// A single process-wide Bucket composes up to four independent windows
// (second/minute/hour/day); acquiring a token blocks until every configured
// window has capacity, and blocked acquirers never hold a concurrency
// permit — the worker calls Acquire before taking its semaphore slot.
//
// Grounded on DevyanshuNegi-email-validator/worker/ratelimiter.go, which
// uses golang.org/x/time/rate for a global-plus-per-domain limiter; this
// generalizes the same primitive to the four fixed windows the spec names
// instead of per-domain buckets. There is no per-domain or per-queue
// bucket: the bulk worker shares one Bucket across every provider queue.
package throttle

import (
	"context"

	"golang.org/x/time/rate"
)

// Limits configures the four optional windows. A zero value for any field
// means that window is not enforced.
type Limits struct {
	PerSecond int
	PerMinute int
	PerHour   int
	PerDay    int
}

// Bucket is a leaky-bucket token source composed of up to four independent
// x/time/rate limiters, one per configured window. Token state is protected
// by x/time/rate's own internal mutex; fairness is FIFO because
// rate.Limiter.Wait queues reservations in arrival order.
type Bucket struct {
	windows []*rate.Limiter
}

// New constructs a Bucket from limits. Each non-zero window gets its own
// limiter sized so that, at steady state, no more than N events occur in
// any rolling window of that duration — burst equals N so a cold process
// can use its full budget immediately rather than ramping up.
func New(limits Limits) *Bucket {
	b := &Bucket{}
	if limits.PerSecond > 0 {
		b.windows = append(b.windows, rate.NewLimiter(rate.Limit(limits.PerSecond), limits.PerSecond))
	}
	if limits.PerMinute > 0 {
		b.windows = append(b.windows, rate.NewLimiter(rate.Limit(float64(limits.PerMinute)/60.0), limits.PerMinute))
	}
	if limits.PerHour > 0 {
		b.windows = append(b.windows, rate.NewLimiter(rate.Limit(float64(limits.PerHour)/3600.0), limits.PerHour))
	}
	if limits.PerDay > 0 {
		b.windows = append(b.windows, rate.NewLimiter(rate.Limit(float64(limits.PerDay)/86400.0), limits.PerDay))
	}
	return b
}

// Acquire blocks until every configured window has a token available, or
// ctx is cancelled. A Bucket with no configured windows never blocks.
func (b *Bucket) Acquire(ctx context.Context) error {
	if b == nil {
		return nil
	}
	for _, w := range b.windows {
		if err := w.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
