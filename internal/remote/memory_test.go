package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Create(ctx, "products", Document{Data: json.RawMessage(`{"name":"Malbec","stock":10}`)})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	keptID, err := s.Create(ctx, "products", Document{ID: "fixed", Data: json.RawMessage(`{"name":"Corks"}`)})
	require.NoError(t, err)
	assert.Equal(t, "fixed", keptID)

	_, err = s.Create(ctx, "products", Document{ID: "fixed", Data: json.RawMessage(`{"name":"Again"}`)})
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, s.Update(ctx, "products", id, json.RawMessage(`{"stock":4}`)))

	docs, err := s.List(ctx, "products")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var got map[string]any
	for _, d := range docs {
		if d.ID == id {
			require.NoError(t, json.Unmarshal(d.Data, &got))
		}
	}
	assert.Equal(t, "Malbec", got["name"])
	assert.Equal(t, float64(4), got["stock"])

	require.NoError(t, s.Delete(ctx, "products", id))
	assert.ErrorIs(t, s.Delete(ctx, "products", id), ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "products", id, json.RawMessage(`{}`)), ErrNotFound)
}

func TestMemoryStore_CreateRejectsNonObject(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Create(context.Background(), "products", Document{Data: json.RawMessage(`[1,2]`)})
	assert.Error(t, err)
}

func TestMemoryStore_SubscribeDeliversFullSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Create(ctx, "products", Document{ID: "a", Data: json.RawMessage(`{"name":"A"}`)})
	require.NoError(t, err)

	var snapshots [][]Document
	unsubscribe, err := s.Subscribe(ctx, "products", func(docs []Document) {
		snapshots = append(snapshots, docs)
	})
	require.NoError(t, err)

	_, err = s.Create(ctx, "products", Document{ID: "b", Data: json.RawMessage(`{"name":"B"}`)})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "products", "a"))

	require.Len(t, snapshots, 3)
	assert.Len(t, snapshots[0], 1, "initial snapshot")
	assert.Len(t, snapshots[1], 2)
	require.Len(t, snapshots[2], 1)
	assert.Equal(t, "b", snapshots[2][0].ID)

	unsubscribe()
	unsubscribe()
	_, err = s.Create(ctx, "products", Document{ID: "c", Data: json.RawMessage(`{"name":"C"}`)})
	require.NoError(t, err)
	assert.Len(t, snapshots, 3, "no delivery after unsubscribe")
}

func TestMemoryStore_OtherCollectionsDoNotNotify(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	calls := 0
	_, err := s.Subscribe(ctx, "purchases", func([]Document) { calls++ })
	require.NoError(t, err)

	_, err = s.Create(ctx, "products", Document{Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMemoryStore_SimulatedFailure(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	offline := errors.New("network request failed")
	s.SetFailure(offline)

	_, err := s.Create(ctx, "purchases", Document{Data: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, offline)
	_, err = s.NextSequence(ctx, "purchases")
	assert.ErrorIs(t, err, offline)

	s.SetFailure(nil)
	n, err := s.NextSequence(ctx, "purchases")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.NextSequence(ctx, "purchases")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMergeFields(t *testing.T) {
	merged, err := mergeFields(json.RawMessage(`{"a":1,"b":2}`), json.RawMessage(`{"b":3,"c":4}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":3,"c":4}`, string(merged))

	_, err = mergeFields(json.RawMessage(`{}`), json.RawMessage(`"nope"`))
	assert.Error(t, err)
}

func TestMemoryStore_ConcurrentWritesDeliverLatestSnapshotLast(t *testing.T) {
	ctx := context.Background()
	const writers = 16

	for round := 0; round < 200; round++ {
		s := NewMemoryStore()
		var (
			mu   sync.Mutex
			last []Document
		)
		_, err := s.Subscribe(ctx, "purchases", func(docs []Document) {
			mu.Lock()
			last = docs
			mu.Unlock()
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Create(ctx, "purchases", Document{
					ID:   fmt.Sprintf("p-%02d", i),
					Data: json.RawMessage(`{"code":"x"}`),
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		mu.Lock()
		got := len(last)
		mu.Unlock()
		require.Equal(t, writers, got, "round %d: last delivered snapshot is stale", round)
	}
}

func TestMemoryStore_UnsubscribeReleasesContextWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemoryStore()

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		unsubscribe, err := s.Subscribe(ctx, "purchases", func([]Document) {})
		require.NoError(t, err)
		unsubscribe()
	}
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, time.Second, 10*time.Millisecond)
}
