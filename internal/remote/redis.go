package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"puerto-real/internal/config"
	"puerto-real/internal/logger"
)

const (
	keyNamespace     = "puerto"
	maxUpdateRetries = 5
)

// RedisStore keeps each collection in one hash (id -> JSON) and announces
// changes on a per-collection pub/sub channel.
type RedisStore struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisClient builds a pooled client from config and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func NewRedisStore(client *redis.Client, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStore{client: client, log: log}
}

func collectionKey(collection string) string {
	return keyNamespace + ":docs:" + collection
}

func changeChannel(collection string) string {
	return keyNamespace + ":changes:" + collection
}

func sequenceKey(name string) string {
	return keyNamespace + ":seq:" + name
}

func (s *RedisStore) List(ctx context.Context, collection string) ([]Document, error) {
	entries, err := s.client.HGetAll(ctx, collectionKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", collection, err)
	}
	docs := make([]Document, 0, len(entries))
	for id, data := range entries {
		docs = append(docs, Document{ID: id, Data: json.RawMessage(data)})
	}
	sortByID(docs)
	return docs, nil
}

func (s *RedisStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if err := validateObject(doc.Data); err != nil {
		return "", err
	}
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	// The write and its change message commit together in one MULTI.
	var created *redis.BoolCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.HSetNX(ctx, collectionKey(collection), id, []byte(doc.Data))
		s.publish(ctx, pipe, collection)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("hsetnx %s/%s: %w", collection, id, err)
	}
	if !created.Val() {
		return "", ErrExists
	}
	return id, nil
}

// Update reads, merges and writes back under WATCH, retrying when another
// client touched the hash in between.
func (s *RedisStore) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := validateObject(data); err != nil {
		return err
	}
	key := collectionKey(collection)

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, id).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("hget %s/%s: %w", collection, id, err)
		}
		merged, err := mergeFields(current, data)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, []byte(merged))
			s.publish(ctx, pipe, collection)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s/%s: too much contention", collection, id)
}

func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, collectionKey(collection), id)
		s.publish(ctx, pipe, collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("hdel %s/%s: %w", collection, id, err)
	}
	if removed.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) NextSequence(ctx context.Context, name string) (int64, error) {
	next, err := s.client.Incr(ctx, sequenceKey(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", name, err)
	}
	return next, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, collection string, onChange func([]Document)) (Unsubscribe, error) {
	pubsub := s.client.Subscribe(ctx, changeChannel(collection))
	// Wait for the subscription to be confirmed so no change between the
	// initial snapshot and the first message is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	initial, err := s.List(ctx, collection)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	onChange(initial)

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	messages := pubsub.Channel()
	go func() {
		defer close(done)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				docs, err := s.List(subCtx, collection)
				if err != nil {
					s.log.Error(subCtx, "reload "+collection+" after change message", err)
					continue
				}
				onChange(docs)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

// publish queues the change message on pipe. A message for a write that
// turned out to be a no-op only makes subscribers reload.
func (s *RedisStore) publish(ctx context.Context, pipe redis.Pipeliner, collection string) {
	pipe.Publish(ctx, changeChannel(collection), collection)
}
