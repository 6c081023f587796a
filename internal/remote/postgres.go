package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"puerto-real/internal/logger"
)

// ChangeChannel is the NOTIFY channel every write publishes the collection
// name on.
const ChangeChannel = "puerto_documents"

// PostgresStore keeps collections as JSONB rows of the documents table
// (see internal/db/migrations).
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, log *logger.Logger) *PostgresStore {
	if log == nil {
		log = logger.Nop()
	}
	return &PostgresStore{pool: pool, log: log}
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, data
		FROM documents
		WHERE collection = $1
		ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var data []byte
		if err := rows.Scan(&d.ID, &data); err != nil {
			return nil, fmt.Errorf("scan %s document: %w", collection, err)
		}
		d.Data = json.RawMessage(data)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return docs, nil
}

func (s *PostgresStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if err := validateObject(doc.Data); err != nil {
		return "", err
	}
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO documents (collection, id, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (collection, id) DO NOTHING`, collection, id, []byte(doc.Data))
		if err != nil {
			return fmt.Errorf("insert %s/%s: %w", collection, id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrExists
		}
		return notifyTx(ctx, tx, collection)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := validateObject(data); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// jsonb || jsonb overlays the top-level keys of the right operand.
		tag, err := tx.Exec(ctx, `
			UPDATE documents
			SET data = data || $3::jsonb, updated_at = NOW()
			WHERE collection = $1 AND id = $2`, collection, id, []byte(data))
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return notifyTx(ctx, tx, collection)
	})
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return notifyTx(ctx, tx, collection)
	})
}

// NextSequence increments the named counter in document_sequences.
func (s *PostgresStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var next int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (name, value)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = document_sequences.value + 1
		RETURNING value`, name).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return next, nil
}

// Subscribe holds one pooled connection in LISTEN mode for the lifetime of
// the subscription and re-reads the collection on every matching NOTIFY.
func (s *PostgresStore) Subscribe(ctx context.Context, collection string, onChange func([]Document)) (Unsubscribe, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	initial, err := s.List(ctx, collection)
	if err != nil {
		conn.Release()
		return nil, err
	}
	onChange(initial)

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if !conn.Conn().IsClosed() {
				_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			}
			conn.Release()
		}()
		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.log.Error(subCtx, "postgres change feed stopped", err)
				}
				return
			}
			if n.Payload != collection {
				continue
			}
			docs, err := s.List(subCtx, collection)
			if err != nil {
				s.log.Error(subCtx, "reload "+collection+" after notification", err)
				continue
			}
			onChange(docs)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func notifyTx(ctx context.Context, tx pgx.Tx, collection string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, collection); err != nil {
		return fmt.Errorf("notify %s: %w", collection, err)
	}
	return nil
}
