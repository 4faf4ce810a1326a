package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend keeps documents as rows of the documents table
// (see internal/db/migrations). A commit is a single serializable
// transaction, so multi-document writes are truly atomic here.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Load(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := b.pool.QueryRow(ctx, `SELECT body FROM documents WHERE name=$1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return body, nil
}

func (b *PostgresBackend) Commit(ctx context.Context, docs map[string][]byte) error {
	return b.withTx(ctx, func(tx pgx.Tx) error {
		for name, data := range docs {
			_, err := tx.Exec(ctx,
				`INSERT INTO documents(name, body, updated_at)
				 VALUES($1, $2::jsonb, now())
				 ON CONFLICT (name) DO UPDATE
				 SET body = EXCLUDED.body,
				     updated_at = now()`,
				name, string(data),
			)
			if err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
		}
		return nil
	})
}

func (b *PostgresBackend) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
