package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meow-stack/stageflow/internal/stageerr"
)

// PGStore implements Store on top of a pgx connection pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects a pool to dsn and verifies it with a ping.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, stageerr.ResourceFatal("store: failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, stageerr.ResourceFatal("store: initial ping failed", err)
	}
	return &PGStore{pool: pool}, nil
}

// Pool exposes the underlying pool for callers (e.g. migrations) that need
// it directly.
func (s *PGStore) Pool() *pgxpool.Pool { return s.pool }

func (s *PGStore) QueryForObject(ctx context.Context, sql string, params []any, mapper RowMapper[any]) (any, bool, error) {
	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, false, stageerr.Wrap(stageerr.CodeResourceFatal, "store: query failed", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}
	v, err := mapper(rows.Scan)
	if err != nil {
		return nil, false, stageerr.Wrap(stageerr.CodeResourceFatal, "store: row mapping failed", err)
	}
	return v, true, rows.Err()
}

func (s *PGStore) QueryForList(ctx context.Context, sql string, params []any, mapper RowMapper[any]) ([]any, error) {
	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, stageerr.Wrap(stageerr.CodeResourceFatal, "store: query failed", err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		v, err := mapper(rows.Scan)
		if err != nil {
			return nil, stageerr.Wrap(stageerr.CodeResourceFatal, "store: row mapping failed", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, sql string, params []any) (int64, error) {
	tag, err := s.pool.Exec(ctx, sql, params...)
	if err != nil {
		return 0, stageerr.Wrap(stageerr.CodeResourceFatal, "store: update failed", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) BatchUpdate(ctx context.Context, sql string, paramRows [][]any) ([]int64, error) {
	batch := &pgx.Batch{}
	for _, params := range paramRows {
		batch.Queue(sql, params...)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	counts := make([]int64, 0, len(paramRows))
	for range paramRows {
		tag, err := results.Exec()
		if err != nil {
			return nil, stageerr.Wrap(stageerr.CodeResourceFatal, "store: batch update failed", err)
		}
		counts = append(counts, tag.RowsAffected())
	}
	return counts, nil
}

// ExecuteInTransaction rolls back on any error fn returns and on panic,
// re-panicking after the rollback so the caller's stack trace survives.
func (s *PGStore) ExecuteInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return stageerr.Wrap(stageerr.CodeResourceFatal, "store: failed to begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(txContext(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return stageerr.Wrap(stageerr.CodeResourceFatal, "store: commit failed", err)
	}
	committed = true
	return nil
}

func (s *PGStore) IsHealthy(ctx context.Context) bool {
	return s.pool.Ping(ctx) == nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

type txKey struct{}

func txContext(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext retrieves the transaction started by ExecuteInTransaction,
// for callers inside fn that need to issue statements on it directly.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}
