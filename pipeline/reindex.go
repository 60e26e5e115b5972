package pipeline

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/storage"
)

// Reindexer rebuilds the search index from already-stored extracted files.
// It exists for operational recovery: if the index is lost or a bad deploy
// skipped documents, a reindex walks storage instead of re-fetching anything
// from the origin.
type Reindexer struct {
	store   storage.Store
	indexer *IndexWorker
	logger  *slog.Logger
}

// NewReindexer creates a Reindexer over the store and index worker. The
// index worker must be started before Reindex is called.
func NewReindexer(store storage.Store, indexer *IndexWorker, logger *slog.Logger) (*Reindexer, error) {
	if store == nil || indexer == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Reindexer", "NewReindexer", "store and indexer required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reindexer{store: store, indexer: indexer, logger: logger}, nil
}

// Reindex lists every stored extracted file and re-submits it to the index
// worker. Document IDs are deterministic, so this upserts in place. Returns
// the number of files indexed successfully.
func (r *Reindexer) Reindex(ctx context.Context) (int, error) {
	keys, err := r.store.List(ctx, "")
	if err != nil {
		return 0, errors.Wrap(err, "Reindexer", "Reindex", "list stored objects")
	}

	var fileKeys []string
	for _, key := range keys {
		if KindOfKey(key) == KindExtractedFile {
			fileKeys = append(fileKeys, key)
		}
	}
	if len(fileKeys) == 0 {
		return 0, nil
	}

	results := r.indexer.ProcessFiles(ctx, fileKeys)
	indexed := 0
	failed := 0
	for i, itemErr := range results {
		if itemErr != nil {
			failed++
			r.logger.Error("reindex item failed", "key", fileKeys[i], "error", itemErr)
			continue
		}
		indexed++
	}

	r.logger.Info("reindex complete", "indexed", indexed, "failed", failed)
	if failed > 0 {
		err := errors.WrapTransient(errors.ErrIndexWriteFailed, "Reindexer", "Reindex", "reindex had failures")
		return indexed, errors.WithDetail(err, "failed", strconv.Itoa(failed))
	}
	return indexed, nil
}
