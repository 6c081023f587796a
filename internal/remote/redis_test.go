package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHook answers commands locally and records how they were sent.
type recordingHook struct {
	mu        sync.Mutex
	pipelines [][]string
	singles   []string
	fail      error
}

func (h *recordingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("no dialing in unit tests")
	}
}

func (h *recordingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		h.singles = append(h.singles, cmd.Name())
		h.mu.Unlock()
		return h.fail
	}
}

func (h *recordingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
			switch c := cmd.(type) {
			case *redis.BoolCmd:
				c.SetVal(true)
			case *redis.IntCmd:
				c.SetVal(1)
			}
		}
		h.mu.Lock()
		h.pipelines = append(h.pipelines, names)
		h.mu.Unlock()
		return h.fail
	}
}

func newRecordedRedisStore(t *testing.T) (*RedisStore, *recordingHook) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	hook := &recordingHook{}
	client.AddHook(hook)
	return NewRedisStore(client, nil), hook
}

func TestRedisStore_WritesPublishInSameTransaction(t *testing.T) {
	ctx := context.Background()
	s, hook := newRecordedRedisStore(t)

	id, err := s.Create(ctx, "purchases", Document{ID: "p1", Data: json.RawMessage(`{"code":"COMPRA-001"}`)})
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	require.NoError(t, s.Delete(ctx, "purchases", "p1"))

	require.Len(t, hook.pipelines, 2)
	assert.Subset(t, hook.pipelines[0], []string{"multi", "hsetnx", "publish", "exec"})
	assert.Subset(t, hook.pipelines[1], []string{"multi", "hdel", "publish", "exec"})
	assert.NotContains(t, hook.singles, "publish", "no change message outside the transaction")
}

func TestRedisStore_FailedTransactionReportsOnce(t *testing.T) {
	ctx := context.Background()
	s, hook := newRecordedRedisStore(t)
	hook.fail = errors.New("connection reset")

	_, err := s.Create(ctx, "purchases", Document{ID: "p1", Data: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.ErrorIs(t, err, hook.fail)

	err = s.Delete(ctx, "purchases", "p1")
	require.Error(t, err)

	assert.Len(t, hook.pipelines, 2)
	assert.Empty(t, hook.singles)
}
