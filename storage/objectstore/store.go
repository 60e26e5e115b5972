// Package objectstore implements storage.Store over a NATS JetStream
// object-store bucket. Every successful Put publishes a storage.Notification
// to the storage event stream, which drives the extraction pipeline.
package objectstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/storage"
)

// Publisher publishes storage notifications. Satisfied by natsclient.Client.
type Publisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// Store is a storage.Store backed by a JetStream object-store bucket.
type Store struct {
	bucket    jetstream.ObjectStore
	publisher Publisher
	subject   string
	logger    *slog.Logger
	now       func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithNotifications publishes a storage.Notification on subject after every
// successful Put. Without this option the store is silent.
func WithNotifications(publisher Publisher, subject string) Option {
	return func(s *Store) {
		s.publisher = publisher
		s.subject = subject
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store over an existing object-store bucket.
func New(bucket jetstream.ObjectStore, opts ...Option) (*Store, error) {
	if bucket == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "New", "bucket required")
	}

	s := &Store{
		bucket: bucket,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put implements storage.Store. The notification publish is part of the
// operation: an unannounced write would never reach the pipeline, so a
// publish failure fails the Put and the caller retries the whole thing.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Store", "Put", "empty key")
	}

	if _, err := s.bucket.PutBytes(ctx, key, data); err != nil {
		return errors.WrapTransient(err, "Store", "Put", "write object "+key)
	}

	if s.publisher == nil {
		return nil
	}

	notification := storage.Notification{
		ID:        uuid.NewString(),
		ObjectKey: key,
		EventTime: s.now().UTC(),
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return errors.Wrap(err, "Store", "Put", "encode notification")
	}
	if err := s.publisher.PublishToStream(ctx, s.subject, payload); err != nil {
		return errors.WrapTransient(err, "Store", "Put", "publish notification for "+key)
	}

	s.logger.Debug("object stored", "key", key, "bytes", len(data), "notification", notification.ID)
	return nil
}

// Get implements storage.Store
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "Store", "Get", "object "+key)
		}
		return nil, errors.WrapTransient(err, "Store", "Get", "read object "+key)
	}
	return data, nil
}

// List implements storage.Store
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	infos, err := s.bucket.List(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoObjectsFound) {
			return []string{}, nil
		}
		return nil, errors.WrapTransient(err, "Store", "List", "list objects")
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Deleted {
			continue
		}
		if prefix == "" || strings.HasPrefix(info.Name, prefix) {
			keys = append(keys, info.Name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete implements storage.Store
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrObjectNotFound) {
		return errors.WrapTransient(err, "Store", "Delete", "delete object "+key)
	}
	return nil
}
