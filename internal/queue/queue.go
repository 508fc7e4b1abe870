// Package queue implements the Bulk Worker's job queue contract
// (spec.md §6 "Queue contract", REDESIGNED per spec.md §REDESIGN FLAGS).
//
// spec.md names worker.rabbitmq.url / AMQP, not the teacher's Redis BLPop
// (internal/queue/client.go). The consumer/producer surface is defined as
// an interface so the concrete broker stays swappable the way the teacher
// swaps proxy backends; the shipped implementation targets RabbitMQ via
// github.com/rabbitmq/amqp091-go, grounded in the go.mod of
// other_examples/.../gsoultan-Hermod and .../sadewadee-google-scraper,
// both of which pair amqp091-go with go-redis — the same split this repo
// uses (AMQP for job queues, Redis only for internal/cache memoization).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"mailvetter/internal/verdict"
)

// Queue names allowed by spec.md §6.
const (
	QueueGmail      = "check.gmail"
	QueueHotmailB2B = "check.hotmailb2b"
	QueueHotmailB2C = "check.hotmailb2c"
	QueueYahoo      = "check.yahoo"
	QueueOther      = "check.everything_else"
)

// RouteFor returns the queue name a job for a given ProviderTag belongs on.
// Used both by /upload to route a freshly ingested address and by the
// worker to detect and redirect a job that arrived on the wrong queue.
func RouteFor(tag verdict.ProviderTag) string {
	switch tag {
	case verdict.ProviderGmail:
		return QueueGmail
	case verdict.ProviderHotmailB2B:
		return QueueHotmailB2B
	case verdict.ProviderHotmailB2C:
		return QueueHotmailB2C
	case verdict.ProviderYahoo:
		return QueueYahoo
	default:
		return QueueOther
	}
}

// MaxRedeliveries bounds how many times a message may be nack-requeued
// before it is nack-dropped, per spec.md §6 "nack-drop on poisoned message
// after 3 redeliveries".
const MaxRedeliveries = 3

// Webhook is the optional per-job override of the worker-wide webhook URL.
type Webhook struct {
	URL string `json:"url"`
}

// Message is the job body carried on every queue, per spec.md §6. Attempt
// starts at 1 (spec.md §3 "Job (bulk)") and is incremented by the worker
// on each app-level requeue rather than relied on from the broker's own
// redelivered flag, since amqp091-go exposes only a redelivered bool, not
// a count — MaxRedeliveries is enforced against this field instead.
type Message struct {
	Input   string   `json:"input"`
	JobID   string   `json:"job_id"`
	Attempt int      `json:"attempt,omitempty"`
	Webhook *Webhook `json:"webhook,omitempty"`
}

// Delivery pairs a decoded Message with the ack/nack handle for the
// transport message it arrived on.
type Delivery struct {
	Message      Message
	RoutingQueue string
	ack          func() error
	nackRequeue  func() error
	nackDrop     func() error
}

func (d Delivery) Ack() error         { return d.ack() }
func (d Delivery) NackRequeue() error { return d.nackRequeue() }
func (d Delivery) NackDrop() error    { return d.nackDrop() }

// NewDelivery builds a Delivery from explicit ack/nack handles, letting a
// caller outside this package construct one against a fake broker instead
// of a real AMQP channel — used by the worker package's tests.
func NewDelivery(msg Message, routingQueue string, ack, nackRequeue, nackDrop func() error) Delivery {
	return Delivery{
		Message:      msg,
		RoutingQueue: routingQueue,
		ack:          ack,
		nackRequeue:  nackRequeue,
		nackDrop:     nackDrop,
	}
}

// Consumer receives Deliveries. Deliveries is a pull-based channel closed
// when ctx is cancelled or the underlying connection is lost.
type Consumer interface {
	Deliveries(ctx context.Context, queueName string) (<-chan Delivery, error)
}

// Producer publishes Messages onto a named queue, and is used both by the
// single-check HTTP surface's /upload handler and by the worker itself when
// requeuing a job to the correct provider queue.
type Producer interface {
	Publish(ctx context.Context, queueName string, msg Message) error
}

// AMQPBroker implements Consumer and Producer against a RabbitMQ node.
type AMQPBroker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to url, opens one channel, and declares every queue named
// in spec.md §6 durable so enqueued jobs survive a broker restart.
func Dial(url string) (*AMQPBroker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("queue: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: open channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: set qos: %w", err)
	}

	b := &AMQPBroker{conn: conn, ch: ch}
	for _, q := range []string{QueueGmail, QueueHotmailB2B, QueueHotmailB2C, QueueYahoo, QueueOther} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("queue: declare %s: %w", q, err)
		}
	}
	return b, nil
}

func (b *AMQPBroker) Close() error {
	chErr := b.ch.Close()
	connErr := b.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}

// Publish marshals msg and publishes it as a persistent message.
func (b *AMQPBroker) Publish(ctx context.Context, queueName string, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: marshal message: %w", err)
	}
	return b.ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	})
}

// Deliveries returns a channel of decoded Deliveries for queueName.
// Malformed message bodies are dropped (acked, not requeued — they can
// never be decoded successfully) and filtered out of the channel entirely;
// they are not logged.
func (b *AMQPBroker) Deliveries(ctx context.Context, queueName string) (<-chan Delivery, error) {
	raw, err := b.ch.ConsumeWithContext(ctx, queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: consume %s: %w", queueName, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case d, ok := <-raw:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					_ = d.Ack(false) // poisoned, undecodable — drop without requeue
					continue
				}
				if msg.Attempt == 0 {
					msg.Attempt = 1
				}
				delivery := Delivery{
					Message:      msg,
					RoutingQueue: queueName,
					ack:          func() error { return d.Ack(false) },
					nackRequeue:  func() error { return d.Nack(false, true) },
					nackDrop:     func() error { return d.Nack(false, false) },
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
