package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/klappy/translation-helps-core/errors"
)

// Fetcher is the slice of jetstream.Consumer the runner uses.
type Fetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

// Runner drives the router from a JetStream pull consumer: fetch a batch,
// process it, repeat until the context ends. Unacked messages redeliver on
// the consumer's ack-wait schedule.
type Runner struct {
	consumer  Fetcher
	router    *Router
	batchSize int
	maxWait   time.Duration
	logger    *slog.Logger
}

// NewRunner creates a Runner over consumer and router.
func NewRunner(consumer Fetcher, router *Router, batchSize int, maxWait time.Duration, logger *slog.Logger) (*Runner, error) {
	if consumer == nil || router == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Runner", "NewRunner", "consumer and router required")
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	if maxWait <= 0 {
		maxWait = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		consumer:  consumer,
		router:    router,
		batchSize: batchSize,
		maxWait:   maxWait,
		logger:    logger,
	}, nil
}

// Run blocks, processing batches until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := r.consumer.Fetch(r.batchSize, jetstream.FetchMaxWait(r.maxWait))
		if err != nil {
			r.logger.Warn("fetch failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		var msgs []Message
		for msg := range batch.Messages() {
			msgs = append(msgs, msg)
		}
		if len(msgs) == 0 {
			continue
		}

		if err := r.router.ProcessBatch(ctx, msgs); err != nil {
			r.logger.Warn("batch completed with failures", "error", err)
		}
	}
}
