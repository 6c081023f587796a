package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"puerto-real/internal/apperr"
	"puerto-real/internal/logger"
	"puerto-real/internal/metrics"
	"puerto-real/internal/remote"
)

// storeCall wraps one round trip to the remote store with metrics.
type storeCall struct {
	store   remote.Store
	metrics *metrics.StoreMetrics
}

func (c storeCall) create(ctx context.Context, collection string, doc remote.Document) (string, error) {
	started := time.Now()
	id, err := c.store.Create(ctx, collection, doc)
	c.metrics.Observe(collection, "create", started, err)
	return id, err
}

func (c storeCall) update(ctx context.Context, collection, id string, data json.RawMessage) error {
	started := time.Now()
	err := c.store.Update(ctx, collection, id, data)
	c.metrics.Observe(collection, "update", started, err)
	return err
}

func (c storeCall) delete(ctx context.Context, collection, id string) error {
	started := time.Now()
	err := c.store.Delete(ctx, collection, id)
	c.metrics.Observe(collection, "delete", started, err)
	return err
}

// remoteFailure turns a store error into the domain error shown to users.
func remoteFailure(err error, message string) error {
	switch {
	case errors.Is(err, remote.ErrNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, message)
	case errors.Is(err, remote.ErrExists):
		return apperr.Wrap(apperr.CodeDuplicateID, err, message)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.CodeRemote, err, "connection error, please try again later")
	}
	return apperr.Wrap(apperr.CodeRemote, err, message)
}

func encodeRecord(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not encode record")
	}
	return data, nil
}

// decodeSnapshot decodes every document of a snapshot, logging and skipping
// the ones that do not decode.
func decodeSnapshot[T any](ctx context.Context, log *logger.Logger, collection string, docs []remote.Document, decode func(remote.Document) (T, error)) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode(doc)
		if err != nil {
			logCtx := log.WithFields(ctx, map[string]any{"collection": collection, "document_id": doc.ID})
			log.Warn(logCtx, fmt.Sprintf("skipping invalid document: %v", err))
			continue
		}
		out = append(out, v)
	}
	return out
}

// localCollection is the last known content of a watched collection.
// Snapshots replace it wholesale; acknowledged writes patch it in place.
type localCollection[T any] struct {
	mu    sync.RWMutex
	items []T
	id    func(T) string
	less  func(a, b T) int
}

func newLocalCollection[T any](id func(T) string, less func(a, b T) int) *localCollection[T] {
	return &localCollection[T]{id: id, less: less}
}

func (c *localCollection[T]) all() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

func (c *localCollection[T]) replaceAll(items []T) {
	items = slices.Clone(items)
	slices.SortStableFunc(items, c.less)
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

func (c *localCollection[T]) upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.id(item)
	if i := slices.IndexFunc(c.items, func(v T) bool { return c.id(v) == id }); i >= 0 {
		c.items[i] = item
	} else {
		c.items = append(c.items, item)
	}
	slices.SortStableFunc(c.items, c.less)
}

func (c *localCollection[T]) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.DeleteFunc(c.items, func(v T) bool { return c.id(v) == id })
}

func (c *localCollection[T]) find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := slices.IndexFunc(c.items, match); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}
