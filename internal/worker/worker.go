// Package worker implements the Bulk Worker (spec.md §4.9): it consumes
// jobs from the provider queues, requeues a job that arrived on the wrong
// queue (single redirect), enforces a shared throttle and a concurrency
// limit, dispatches to the verification pipeline, persists the result with
// bounded retry, and fans the result out to the configured webhook.
//
// The goroutine-pool-over-a-blocking-consume shape, the ctx.Err() shutdown
// checkpoint, and the per-job timeout are grounded on the teacher's
// internal/worker/runner.go Start/processTask; generalized from one Redis
// BLPop queue to five provider queues consumed concurrently, with a
// throttle.Bucket gate and a semaphore added ahead of dispatch per
// spec.md §4.9 (throttle blocks before the concurrency permit is taken).
package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"mailvetter/internal/pipeline"
	"mailvetter/internal/provider"
	"mailvetter/internal/queue"
	"mailvetter/internal/store"
	"mailvetter/internal/throttle"
	"mailvetter/internal/verdict"
	"mailvetter/internal/webhook"
)

// retryBackoff bounds the persistence retry loop: base 1s, doubling, capped
// at 60s, 5 attempts — spec.md §4.9 "persistence with bounded exponential
// backoff".
var retryBackoff = struct {
	base  time.Duration
	cap   time.Duration
	tries int
}{base: time.Second, cap: 60 * time.Second, tries: 5}

// Pool runs one goroutine per configured queue, each bounded by a shared
// concurrency semaphore and a shared throttle bucket.
type Pool struct {
	queues    []string
	consumer  queue.Consumer
	producer  queue.Producer
	pipeline  *pipeline.Pipeline
	store     *store.Store
	throttle  *throttle.Bucket
	webhook   *webhook.Notifier
	semaphore chan struct{}
}

// Config wires a Pool's dependencies.
type Config struct {
	Queues      []string
	Consumer    queue.Consumer
	Producer    queue.Producer
	Pipeline    *pipeline.Pipeline
	Store       *store.Store
	Throttle    *throttle.Bucket
	Webhook     *webhook.Notifier
	Concurrency int
}

func NewPool(cfg Config) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pool{
		queues:    cfg.Queues,
		consumer:  cfg.Consumer,
		producer:  cfg.Producer,
		pipeline:  cfg.Pipeline,
		store:     cfg.Store,
		throttle:  cfg.Throttle,
		webhook:   cfg.Webhook,
		semaphore: make(chan struct{}, concurrency),
	}
}

// Run launches one consumer goroutine per configured queue and blocks until
// every goroutine exits, which happens once ctx is cancelled and each
// queue's Deliveries channel drains and closes.
func (p *Pool) Run(ctx context.Context) {
	log.Printf("worker: starting pool across %d queues", len(p.queues))

	var wg sync.WaitGroup
	for _, q := range p.queues {
		wg.Add(1)
		go func(queueName string) {
			defer wg.Done()
			p.consumeQueue(ctx, queueName)
		}(q)
	}
	wg.Wait()
	log.Println("worker: all queue consumers exited")
}

func (p *Pool) consumeQueue(ctx context.Context, queueName string) {
	deliveries, err := p.consumer.Deliveries(ctx, queueName)
	if err != nil {
		log.Printf("worker: failed to subscribe to %s: %v", queueName, err)
		return
	}

	for d := range deliveries {
		p.handleDelivery(ctx, d)
	}
	log.Printf("worker: consumer for %s exiting", queueName)
}

// handleDelivery implements the requeue-on-mismatch, throttle-then-dispatch,
// persist-with-retry, webhook-fan-out sequence for one job.
func (p *Pool) handleDelivery(ctx context.Context, d queue.Delivery) {
	tag := inferProviderFromEmail(d.Message.Input)
	expectedQueue := queue.RouteFor(tag)

	// Single redirect: a job on the wrong queue gets requeued once. If it
	// arrives on the wrong queue a second time (Attempt already > 1 and
	// still mismatched), spec.md §4.9 says process it anyway to avoid an
	// infinite requeue loop.
	if expectedQueue != "" && expectedQueue != d.RoutingQueue && d.Message.Attempt <= 1 {
		redirected := d.Message
		redirected.Attempt = d.Message.Attempt + 1
		if err := p.producer.Publish(ctx, expectedQueue, redirected); err != nil {
			log.Printf("worker: failed to redirect %s to %s: %v — processing on current queue", d.Message.Input, expectedQueue, err)
		} else {
			_ = d.Ack()
			return
		}
	}

	if err := p.throttle.Acquire(ctx); err != nil {
		_ = p.requeue(ctx, d)
		return
	}

	select {
	case p.semaphore <- struct{}{}:
	case <-ctx.Done():
		_ = p.requeue(ctx, d)
		return
	}
	defer func() { <-p.semaphore }()

	jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	v := p.pipeline.Check(jobCtx, d.Message.Input)
	cancel()

	if err := p.persistWithRetry(ctx, d.Message.JobID, v); err != nil {
		log.Printf("worker: giving up persisting %s after retries: %v", d.Message.Input, err)
		if err := p.requeue(ctx, d); err != nil {
			log.Printf("worker: failed to requeue %s after persist failure: %v", d.Message.Input, err)
		}
		return
	}

	notifier := p.webhook
	if d.Message.Webhook != nil && d.Message.Webhook.URL != "" {
		notifier = webhook.New(d.Message.Webhook.URL)
	}
	notifier.Send(ctx, v)

	_ = d.Ack()
}

// requeue increments the message's Attempt and republishes it to the queue
// it arrived on before acking the original delivery. The broker's native
// Nack(requeue=true) redelivers the same message body unchanged — Attempt
// has to be bumped at the application level, or a job that keeps failing
// to persist would stay below MaxRedeliveries forever and nack-requeue in
// an endless loop instead of eventually being nack-dropped per spec.md §6.
func (p *Pool) requeue(ctx context.Context, d queue.Delivery) error {
	next := d.Message
	next.Attempt++
	if next.Attempt > queue.MaxRedeliveries {
		return d.NackDrop()
	}
	if err := p.producer.Publish(ctx, d.RoutingQueue, next); err != nil {
		if nackErr := d.NackRequeue(); nackErr != nil {
			return errors.Join(err, nackErr)
		}
		return err
	}
	return d.Ack()
}

// persistWithRetry retries SaveResult with exponential backoff capped at
// retryBackoff.cap, per spec.md §4.9 and §7 "transient infra failure ⇒
// bounded retry".
func (p *Pool) persistWithRetry(ctx context.Context, jobID string, v verdict.Verdict) error {
	delay := retryBackoff.base
	var lastErr error
	for attempt := 1; attempt <= retryBackoff.tries; attempt++ {
		if err := p.store.SaveResult(ctx, jobID, v); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == retryBackoff.tries {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > retryBackoff.cap {
			delay = retryBackoff.cap
		}
	}
	return lastErr
}

// inferProviderFromEmail extracts the domain from a raw address and
// classifies its provider without a DNS round trip — the requeue check is
// a quick heuristic gate, not authoritative; the pipeline's own MX
// resolution and provider.Classify remain the source of truth for SMTP
// dispatch.
func inferProviderFromEmail(email string) verdict.ProviderTag {
	at := -1
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			at = i
			break
		}
	}
	if at < 0 {
		return verdict.ProviderGeneric
	}
	return provider.Classify(email[at+1:], nil)
}
