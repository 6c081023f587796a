// Package remote holds the document-store collaborator the domain services
// persist to and subscribe from.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned by Update and Delete when no document has the id.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Create when the caller-supplied id is taken.
	ErrExists = errors.New("document already exists")
)

// Document is one record of a collection. Data is a JSON object.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// Store is the CRUD + subscribe surface of a document database.
type Store interface {
	// Subscribe delivers the full current collection right away and again
	// after every change, until the returned handle is called or ctx ends.
	Subscribe(ctx context.Context, collection string, onChange func([]Document)) (Unsubscribe, error)

	// List returns a one-shot snapshot of the collection.
	List(ctx context.Context, collection string) ([]Document, error)

	// Create stores doc and returns its id. A caller-supplied doc.ID is kept;
	// an empty one is allocated by the store.
	Create(ctx context.Context, collection string, doc Document) (string, error)

	// Update merges the top-level fields of data into the stored document.
	Update(ctx context.Context, collection, id string, data json.RawMessage) error

	Delete(ctx context.Context, collection, id string) error
}

// Sequencer hands out monotonically increasing numbers shared by every
// client of the store.
type Sequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// mergeFields overlays patch's top-level keys on base. Both must be JSON objects.
func mergeFields(base, patch json.RawMessage) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, fmt.Errorf("decode stored document: %w", err)
		}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, fmt.Errorf("decode update fields: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func validateObject(data json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("document data must be a JSON object: %w", err)
	}
	return nil
}

func sortByID(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ Sequencer = (*MemoryStore)(nil)
	_ Store     = (*PostgresStore)(nil)
	_ Sequencer = (*PostgresStore)(nil)
	_ Store     = (*RedisStore)(nil)
	_ Sequencer = (*RedisStore)(nil)
)
