package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/metric"
	"github.com/klappy/translation-helps-core/storage"
)

// Message is one delivered storage notification. jetstream.Msg satisfies
// this; tests use fakes.
type Message interface {
	Data() []byte
	Ack() error
}

// Router partitions a batch of storage notifications and dispatches each
// partition to its worker in one call.
type Router struct {
	unzip   *UnzipWorker
	indexer *IndexWorker
	refresh func(context.Context) error
	logger  *slog.Logger
	metrics *metric.Metrics
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithRefreshHook runs fn after every batch that completes without
// failures, e.g. to commit or refresh a search index.
func WithRefreshHook(fn func(context.Context) error) RouterOption {
	return func(r *Router) {
		r.refresh = fn
	}
}

// WithRouterLogger sets the structured logger
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRouterMetrics enables pipeline message metrics
func WithRouterMetrics(m *metric.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a Router over the two workers.
func NewRouter(unzip *UnzipWorker, indexer *IndexWorker, opts ...RouterOption) (*Router, error) {
	if unzip == nil || indexer == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Router", "NewRouter", "both workers required")
	}

	r := &Router{
		unzip:   unzip,
		indexer: indexer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ProcessBatch routes one batch of notifications. Each message is
// acknowledged only after its item succeeded; failed items stay unacked for
// redelivery. The returned error reports whether anything in the batch
// failed — the caller logs it and fetches the next batch either way.
func (r *Router) ProcessBatch(ctx context.Context, msgs []Message) error {
	var archiveKeys, fileKeys []string
	var archiveMsgs, fileMsgs []Message

	for _, msg := range msgs {
		var notification storage.Notification
		if err := json.Unmarshal(msg.Data(), &notification); err != nil {
			// Malformed payloads would redeliver forever; drop them.
			r.logger.Warn("dropping undecodable notification", "error", err)
			r.record("invalid", "dropped")
			r.ack(msg)
			continue
		}

		switch KindOfKey(notification.ObjectKey) {
		case KindArchive:
			archiveKeys = append(archiveKeys, notification.ObjectKey)
			archiveMsgs = append(archiveMsgs, msg)
		case KindExtractedFile:
			fileKeys = append(fileKeys, notification.ObjectKey)
			fileMsgs = append(fileMsgs, msg)
		case KindIgnored:
			r.record("ignored", "ok")
			r.ack(msg)
		}
	}

	var archiveResults, fileResults []error
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		archiveResults = r.unzip.ProcessArchives(groupCtx, archiveKeys)
		return nil
	})
	group.Go(func() error {
		fileResults = r.indexer.ProcessFiles(groupCtx, fileKeys)
		return nil
	})
	_ = group.Wait() // worker failures surface per-item, not per-group

	failed := 0
	failed += r.settle("archive", archiveMsgs, archiveKeys, archiveResults)
	failed += r.settle("extracted_file", fileMsgs, fileKeys, fileResults)

	if failed > 0 {
		err := errors.WrapTransient(errors.ErrStorageUnavailable, "Router", "ProcessBatch", "batch had failures")
		return errors.WithDetail(err, "failed", strconv.Itoa(failed))
	}

	if r.refresh != nil && len(archiveKeys)+len(fileKeys) > 0 {
		if err := r.refresh(ctx); err != nil {
			r.logger.Warn("refresh hook failed", "error", err)
		}
	}
	return nil
}

// settle acks successes and logs failures, returning the failure count.
func (r *Router) settle(kind string, msgs []Message, keys []string, results []error) int {
	failed := 0
	for i, err := range results {
		if err != nil {
			failed++
			r.record(kind, "error")
			r.logger.Error("pipeline item failed", "kind", kind, "key", keys[i], "error", err)
			continue
		}
		r.record(kind, "ok")
		r.ack(msgs[i])
	}
	return failed
}

func (r *Router) ack(msg Message) {
	if err := msg.Ack(); err != nil {
		r.logger.Warn("ack failed", "error", err)
	}
}

func (r *Router) record(kind, status string) {
	if r.metrics != nil {
		r.metrics.RecordPipelineMessage(kind, status)
	}
}
