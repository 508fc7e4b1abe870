package worker

import (
	"context"
	"errors"
	"testing"

	"mailvetter/internal/queue"
	"mailvetter/internal/verdict"
)

func TestInferProviderFromEmail(t *testing.T) {
	if got := inferProviderFromEmail("someone@gmail.com"); got != verdict.ProviderGmail {
		t.Errorf("expected gmail, got %s", got)
	}
	if got := inferProviderFromEmail("no-at-sign"); got != verdict.ProviderGeneric {
		t.Errorf("expected generic fallback for unparseable input, got %s", got)
	}
}

// fakeProducer records every published message so a test can inspect what
// the worker republished, and can be made to fail Publish on demand.
type fakeProducer struct {
	published []published
	failNext  bool
}

type published struct {
	queue string
	msg   queue.Message
}

func (f *fakeProducer) Publish(_ context.Context, queueName string, msg queue.Message) error {
	if f.failNext {
		return errors.New("publish failed")
	}
	f.published = append(f.published, published{queue: queueName, msg: msg})
	return nil
}

type deliveryOutcome struct {
	acked    bool
	requeued bool
	dropped  bool
}

func newTestDelivery(msg queue.Message, routingQueue string) (queue.Delivery, *deliveryOutcome) {
	out := &deliveryOutcome{}
	d := queue.NewDelivery(msg, routingQueue,
		func() error { out.acked = true; return nil },
		func() error { out.requeued = true; return nil },
		func() error { out.dropped = true; return nil },
	)
	return d, out
}

// TestRequeueIncrementsAttemptAndRepublishes verifies the fix for the bug
// where a give-up path that only nack-requeued (never bumping Attempt) left
// a perpetually-failing job below MaxRedeliveries forever: requeue must
// bump Attempt and republish the bumped message before acking the original
// delivery.
func TestRequeueIncrementsAttemptAndRepublishes(t *testing.T) {
	prod := &fakeProducer{}
	p := &Pool{producer: prod}

	msg := queue.Message{Input: "person@example.com", JobID: "job-1", Attempt: 1}
	d, out := newTestDelivery(msg, queue.QueueOther)

	if err := p.requeue(context.Background(), d); err != nil {
		t.Fatalf("requeue returned error: %v", err)
	}
	if !out.acked {
		t.Errorf("expected the original delivery to be acked after a successful republish")
	}
	if out.requeued || out.dropped {
		t.Errorf("expected neither NackRequeue nor NackDrop when republish succeeds, got %+v", out)
	}
	if len(prod.published) != 1 {
		t.Fatalf("expected exactly one republish, got %d", len(prod.published))
	}
	if prod.published[0].msg.Attempt != 2 {
		t.Errorf("expected republished Attempt to be bumped to 2, got %d", prod.published[0].msg.Attempt)
	}
	if prod.published[0].queue != queue.QueueOther {
		t.Errorf("expected republish onto the same routing queue, got %s", prod.published[0].queue)
	}
}

// TestRequeueDropsAfterMaxRedeliveries verifies a job already at
// MaxRedeliveries nack-drops instead of republishing again.
func TestRequeueDropsAfterMaxRedeliveries(t *testing.T) {
	prod := &fakeProducer{}
	p := &Pool{producer: prod}

	msg := queue.Message{Input: "person@example.com", JobID: "job-1", Attempt: queue.MaxRedeliveries}
	d, out := newTestDelivery(msg, queue.QueueOther)

	if err := p.requeue(context.Background(), d); err != nil {
		t.Fatalf("requeue returned error: %v", err)
	}
	if !out.dropped {
		t.Errorf("expected the delivery to be nack-dropped once Attempt exceeds MaxRedeliveries")
	}
	if len(prod.published) != 0 {
		t.Errorf("expected no republish once the message is dropped, got %d", len(prod.published))
	}
}

// TestRequeueFallsBackToNackRequeueOnPublishFailure verifies that if the
// bumped republish itself fails, the original delivery is nack-requeued
// (letting the broker redeliver it unchanged) rather than silently lost.
func TestRequeueFallsBackToNackRequeueOnPublishFailure(t *testing.T) {
	prod := &fakeProducer{failNext: true}
	p := &Pool{producer: prod}

	msg := queue.Message{Input: "person@example.com", JobID: "job-1", Attempt: 1}
	d, out := newTestDelivery(msg, queue.QueueOther)

	if err := p.requeue(context.Background(), d); err == nil {
		t.Fatalf("expected requeue to surface the publish error")
	}
	if !out.requeued {
		t.Errorf("expected a NackRequeue when the republish fails")
	}
	if out.acked || out.dropped {
		t.Errorf("expected neither Ack nor NackDrop on a failed republish, got %+v", out)
	}
}

// TestHandleDeliveryRedirectsMismatchedProviderOnFirstAttempt verifies the
// single-redirect rule: a job that lands on the wrong provider queue on its
// first attempt is republished onto the expected queue and acked, without
// ever reaching the throttle, pipeline, or store.
func TestHandleDeliveryRedirectsMismatchedProviderOnFirstAttempt(t *testing.T) {
	prod := &fakeProducer{}
	p := &Pool{producer: prod}

	msg := queue.Message{Input: "person@gmail.com", JobID: "job-1", Attempt: 1}
	d, out := newTestDelivery(msg, queue.QueueOther)

	p.handleDelivery(context.Background(), d)

	if !out.acked {
		t.Fatalf("expected the original delivery to be acked after a successful redirect")
	}
	if len(prod.published) != 1 {
		t.Fatalf("expected exactly one redirect publish, got %d", len(prod.published))
	}
	got := prod.published[0]
	if got.queue != queue.QueueGmail {
		t.Errorf("expected a gmail address misrouted onto %s to redirect to %s, got %s", queue.QueueOther, queue.QueueGmail, got.queue)
	}
	if got.msg.Attempt != 2 {
		t.Errorf("expected the redirected message's Attempt to be bumped to 2, got %d", got.msg.Attempt)
	}
}
