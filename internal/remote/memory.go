package remote

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps collections in process. Subscribers are notified
// synchronously in registration order. Deliveries for one collection are
// serialized and each takes its snapshot under the delivery lock, so the
// last snapshot a subscriber sees is always the current state. A callback
// must not write to the collection it watches.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
	sequences   map[string]int64
	subscribers map[string]map[int]func([]Document)
	delivery    map[string]*sync.Mutex
	nextSubID   int

	// failWith, when set, is returned by every write.
	failWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]json.RawMessage),
		sequences:   make(map[string]int64),
		subscribers: make(map[string]map[int]func([]Document)),
		delivery:    make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, onChange func([]Document)) (Unsubscribe, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	deliver := s.deliveryLock(collection)
	deliver.Lock()
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	if s.subscribers[collection] == nil {
		s.subscribers[collection] = make(map[int]func([]Document))
	}
	s.subscribers[collection][id] = onChange
	snapshot := s.snapshotLocked(collection)
	s.mu.Unlock()

	onChange(snapshot)
	deliver.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers[collection], id)
			s.mu.Unlock()
			close(stop)
		})
	}
	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				unsubscribe()
			case <-stop:
			}
		}()
	}
	return unsubscribe, nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(collection), nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if err := s.checkWrite(ctx); err != nil {
		return "", err
	}
	if err := validateObject(doc.Data); err != nil {
		return "", err
	}
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]json.RawMessage)
	}
	if _, exists := s.collections[collection][id]; exists {
		s.mu.Unlock()
		return "", ErrExists
	}
	s.collections[collection][id] = append(json.RawMessage(nil), doc.Data...)
	s.mu.Unlock()

	s.notify(collection)
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := s.checkWrite(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	current, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	merged, err := mergeFields(current, data)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.collections[collection][id] = merged
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.checkWrite(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) NextSequence(ctx context.Context, name string) (int64, error) {
	if err := s.checkWrite(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[name]++
	return s.sequences[name], nil
}

func (s *MemoryStore) checkWrite(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failWith
}

// SetFailure makes every write return err until cleared with nil. Tests use
// it to simulate an unreachable backend.
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	s.failWith = err
	s.mu.Unlock()
}

func (s *MemoryStore) deliveryLock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.delivery[collection]
	if !ok {
		m = &sync.Mutex{}
		s.delivery[collection] = m
	}
	return m
}

func (s *MemoryStore) notify(collection string) {
	deliver := s.deliveryLock(collection)
	deliver.Lock()
	defer deliver.Unlock()

	s.mu.RLock()
	snapshot := s.snapshotLocked(collection)
	ids := make([]int, 0, len(s.subscribers[collection]))
	for id := range s.subscribers[collection] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func([]Document), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subscribers[collection][id])
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(cloneDocs(snapshot))
	}
}

func (s *MemoryStore) snapshotLocked(collection string) []Document {
	docs := make([]Document, 0, len(s.collections[collection]))
	for id, data := range s.collections[collection] {
		docs = append(docs, Document{ID: id, Data: append(json.RawMessage(nil), data...)})
	}
	sortByID(docs)
	return docs
}

func cloneDocs(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Data: append(json.RawMessage(nil), d.Data...)}
	}
	return out
}
