package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/index"
	"github.com/klappy/translation-helps-core/metric"
	"github.com/klappy/translation-helps-core/pkg/retry"
	"github.com/klappy/translation-helps-core/pkg/worker"
	"github.com/klappy/translation-helps-core/storage"
)

// IndexWorker writes extracted files into the search index. Document IDs
// are deterministic, so redelivered notifications upsert rather than
// duplicate.
type IndexWorker struct {
	store   storage.Store
	idx     index.Index
	retry   retry.Config
	pool    *worker.Pool[indexTask]
	logger  *slog.Logger
	metrics *metric.Metrics
}

type indexTask struct {
	key  string
	done chan error
}

// NewIndexWorker creates an index worker with the given intra-batch
// concurrency. Start must be called before ProcessFiles.
func NewIndexWorker(store storage.Store, idx index.Index, concurrency int, logger *slog.Logger, metrics *metric.Metrics) (*IndexWorker, error) {
	if store == nil || idx == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "IndexWorker", "NewIndexWorker", "store and index required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &IndexWorker{
		store:   store,
		idx:     idx,
		retry:   retry.Config{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second, Multiplier: 2.0, AddJitter: true},
		logger:  logger,
		metrics: metrics,
	}
	w.pool = worker.NewPool(concurrency, concurrency*4, w.process)
	return w, nil
}

// Start launches the worker's pool
func (w *IndexWorker) Start(ctx context.Context) error {
	return w.pool.Start(ctx)
}

// Stop drains the worker's pool
func (w *IndexWorker) Stop(timeout time.Duration) error {
	return w.pool.Stop(timeout)
}

// ProcessFiles indexes the given extracted-file keys concurrently and
// returns one error slot per key, aligned by index.
func (w *IndexWorker) ProcessFiles(ctx context.Context, keys []string) []error {
	results := make([]error, len(keys))
	var wg sync.WaitGroup

	for i, key := range keys {
		task := indexTask{key: key, done: make(chan error, 1)}
		if err := w.pool.Submit(task); err != nil {
			results[i] = errors.WrapTransient(err, "IndexWorker", "ProcessFiles", "submit "+key)
			continue
		}
		wg.Add(1)
		go func(slot *error, done chan error) {
			defer wg.Done()
			select {
			case err := <-done:
				*slot = err
			case <-ctx.Done():
				*slot = ctx.Err()
			}
		}(&results[i], task.done)
	}

	wg.Wait()
	return results
}

func (w *IndexWorker) process(ctx context.Context, task indexTask) error {
	err := w.indexFile(ctx, task.key)
	task.done <- err
	return err
}

func (w *IndexWorker) indexFile(ctx context.Context, key string) error {
	data, err := w.store.Get(ctx, key)
	if err != nil {
		return errors.Wrap(err, "IndexWorker", "indexFile", "fetch file "+key)
	}

	resourceType := ResourceTypeOfKey(key)
	doc := index.Document{
		ID:           index.DocumentID(resourceType, key),
		Content:      string(data),
		Path:         key,
		ResourceType: resourceType,
		SourceKey:    key,
	}

	err = retry.Do(ctx, w.retry, func() error {
		upsertErr := w.idx.Upsert(ctx, doc)
		if upsertErr != nil && (errors.IsInvalid(upsertErr) || errors.IsFatal(upsertErr)) {
			return retry.NonRetryable(upsertErr)
		}
		return upsertErr
	})
	if err != nil {
		wrapped := errors.WrapTransient(errors.ErrIndexWriteFailed, "IndexWorker", "indexFile", "upsert document")
		return errors.WithDetail(wrapped, "key", key)
	}

	if w.metrics != nil {
		w.metrics.FilesIndexed.Inc()
	}
	w.logger.Debug("file indexed", "key", key, "doc", doc.ID, "bytes", len(data))
	return nil
}
