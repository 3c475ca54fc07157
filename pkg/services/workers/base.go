package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"satellite-catalog/pkg/metrics"
	"satellite-catalog/pkg/services/managers"

	"github.com/nats-io/nats.go"
)

const (
	fetchBatch   = 10
	fetchMaxWait = 2 * time.Second
)

// errMalformed marks payloads that will never succeed on redelivery.
var errMalformed = errors.New("malformed payload")

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
	Consumer() (stream, consumer, subject string)
}

type BaseWorker struct {
	name     string
	js       nats.JetStreamContext
	mu       sync.Mutex
	sub      *nats.Subscription
	consumer string
	stream   string
	subject  string
	log      *slog.Logger
}

func NewBaseWorker(name string, js nats.JetStreamContext, stream, consumer, subject string, log *slog.Logger) *BaseWorker {
	if log == nil {
		log = slog.Default()
	}
	return &BaseWorker{
		name:     name,
		js:       js,
		consumer: consumer,
		stream:   stream,
		subject:  subject,
		log:      log.With("worker", name),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Consumer() (stream, consumer, subject string) {
	return w.stream, w.consumer, w.subject
}

func (w *BaseWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sub != nil {
		return w.sub.Drain()
	}
	return nil
}

// processMessages pulls from the bound durable consumer until ctx is done.
// A nil handler result acks the message, a permanent failure terminates it
// and anything else naks it for redelivery.
func (w *BaseWorker) processMessages(ctx context.Context, handler func([]byte) error) error {
	sub, err := w.js.PullSubscribe(w.subject, w.consumer,
		nats.ManualAck(),
		nats.Bind(w.stream, w.consumer),
	)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()

	w.log.Info("worker started", "stream", w.stream, "consumer", w.consumer)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchMaxWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if errors.Is(err, nats.ErrSubscriptionClosed) || errors.Is(err, nats.ErrConnectionClosed) {
				return ctx.Err()
			}
			w.log.Warn("failed to fetch messages", "error", err)
			continue
		}

		for _, msg := range msgs {
			w.settle(msg, handler(msg.Data))
		}
	}
}

func (w *BaseWorker) settle(msg *nats.Msg, err error) {
	outcome := outcomeOf(err)
	metrics.IngestMessages.WithLabelValues(w.name, outcome).Inc()

	var ackErr error
	switch outcome {
	case "ok":
		ackErr = msg.Ack()
	case "rejected":
		w.log.Warn("rejecting message", "subject", msg.Subject, "error", err)
		ackErr = msg.Term()
	default:
		w.log.Error("failed to process message, will retry", "subject", msg.Subject, "error", err)
		ackErr = msg.Nak()
	}
	if ackErr != nil {
		w.log.Error("failed to acknowledge message", "error", ackErr)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errMalformed), errors.Is(err, managers.ErrMissingField):
		return "rejected"
	default:
		return "retry"
	}
}
