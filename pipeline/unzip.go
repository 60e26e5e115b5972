package pipeline

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	// Drop-in for archive/zip with a faster inflate; archives dominate
	// pipeline CPU time.
	"github.com/klauspost/compress/zip"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/metric"
	"github.com/klappy/translation-helps-core/pkg/worker"
	"github.com/klappy/translation-helps-core/storage"
)

// IndexingPolicy selects which archive entries are worth extracting.
type IndexingPolicy struct {
	Extensions      []string // lowercase, with dot; nil = default set
	ExcludePrefixes []string // entry-path prefixes to skip
}

// DefaultIndexingPolicy covers the three content formats the platform
// indexes.
func DefaultIndexingPolicy() IndexingPolicy {
	return IndexingPolicy{Extensions: []string{".usfm", ".tsv", ".md"}}
}

// ShouldExtract reports whether an archive entry path passes the policy.
func (p IndexingPolicy) ShouldExtract(entryPath string) bool {
	lower := strings.ToLower(entryPath)
	for _, prefix := range p.ExcludePrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return false
		}
	}
	for _, ext := range p.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// UnzipWorker unpacks stored archives. Each selected entry is written back
// to the store under "{archiveBase}/files/{entryPath}"; the store publishes
// a notification for every write, which is how extracted files reach the
// index worker.
type UnzipWorker struct {
	store   storage.Store
	policy  IndexingPolicy
	pool    *worker.Pool[unzipTask]
	logger  *slog.Logger
	metrics *metric.Metrics
}

type unzipTask struct {
	key  string
	done chan error
}

// NewUnzipWorker creates an unzip worker with the given intra-batch
// concurrency. Start must be called before ProcessArchives.
func NewUnzipWorker(store storage.Store, policy IndexingPolicy, concurrency int, logger *slog.Logger, metrics *metric.Metrics) (*UnzipWorker, error) {
	if store == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "UnzipWorker", "NewUnzipWorker", "store required")
	}
	if len(policy.Extensions) == 0 {
		policy = DefaultIndexingPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &UnzipWorker{
		store:   store,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
	w.pool = worker.NewPool(concurrency, concurrency*4, w.process)
	return w, nil
}

// Start launches the worker's pool
func (w *UnzipWorker) Start(ctx context.Context) error {
	return w.pool.Start(ctx)
}

// Stop drains the worker's pool
func (w *UnzipWorker) Stop(timeout time.Duration) error {
	return w.pool.Stop(timeout)
}

// ProcessArchives unpacks the given archive keys concurrently and returns
// one error slot per key, aligned by index. A nil slot means that archive
// was fully extracted.
func (w *UnzipWorker) ProcessArchives(ctx context.Context, keys []string) []error {
	results := make([]error, len(keys))
	var wg sync.WaitGroup

	for i, key := range keys {
		task := unzipTask{key: key, done: make(chan error, 1)}
		if err := w.pool.Submit(task); err != nil {
			results[i] = errors.WrapTransient(err, "UnzipWorker", "ProcessArchives", "submit "+key)
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

func (w *UnzipWorker) process(ctx context.Context, task unzipTask) error {
	err := w.extractArchive(ctx, task.key)
	task.done <- err
	return err
}

func (w *UnzipWorker) extractArchive(ctx context.Context, archiveKey string) error {
	data, err := w.store.Get(ctx, archiveKey)
	if err != nil {
		return errors.Wrap(err, "UnzipWorker", "extractArchive", "fetch archive "+archiveKey)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		wrapped := errors.WrapInvalid(errors.ErrExtractionFailed, "UnzipWorker", "extractArchive", "open archive")
		return errors.WithDetail(wrapped, "key", archiveKey)
	}

	base := ArchiveBase(archiveKey)
	extracted := 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		entryPath, ok := safeEntryPath(entry.Name)
		if !ok {
			w.logger.Warn("skipping unsafe archive entry", "archive", archiveKey, "entry", entry.Name)
			continue
		}
		if !w.policy.ShouldExtract(entryPath) {
			continue
		}

		content, err := readEntry(entry)
		if err != nil {
			wrapped := errors.WrapInvalid(errors.ErrExtractionFailed, "UnzipWorker", "extractArchive", "read entry")
			return errors.WithDetail(wrapped, "path", entryPath)
		}

		// The write publishes its own notification; indexing happens
		// when that notification comes back around.
		if err := w.store.Put(ctx, ExtractedFileKey(base, entryPath), content); err != nil {
			return errors.Wrap(err, "UnzipWorker", "extractArchive", "store extracted file "+entryPath)
		}
		extracted++
	}

	if w.metrics != nil {
		w.metrics.ArchivesExtracted.Inc()
	}
	w.logger.Info("archive extracted", "archive", archiveKey, "files", extracted)
	return nil
}

// safeEntryPath normalizes an archive entry name and rejects anything that
// would escape the archive's prefix.
func safeEntryPath(name string) (string, bool) {
	// Repository archives nest entries under a top directory; drop it so
	// extracted keys mirror ingredient paths.
	if idx := strings.Index(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == "" ||
		strings.HasPrefix(cleaned, "/") || strings.HasPrefix(cleaned, "..") {
		return "", false
	}
	return cleaned, true
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
