// Package pgstore is the Postgres-backed Durable Store (spec.md §4.1),
// proving the Store contract is backend-agnostic. Grounded on the
// teacher's common/mpostgres connection pattern, simplified to a single
// pgxpool.Pool (the teacher's primary/replica dbresolver split has no
// use case here — every payrail write already funnels through one
// per-key advisory lock) with Masterminds/squirrel building every query.
//
// Every key (e.g. "ledger/payments.jsonl", "vault/tokens/tok_xyz.json")
// maps to one row in the payrail_store table; JSONL semantics are
// layered on top by storing newline-joined JSON objects in a single
// text column, append-only.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brackwater/payrail/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS payrail_store (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	kind  TEXT NOT NULL
);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is a Postgres-backed implementation of store.Store. Its write
// methods lock the key's row with `SELECT ... FOR UPDATE` inside an
// explicit transaction, one per call; its read methods are single
// SELECTs outside any transaction and take no lock.
type Store struct {
	pool *pgxpool.Pool
}

// Connect dials dsn, ensures the backing table exists, and returns a
// ready Store.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) withRowLock(ctx context.Context, key string, fn func(tx pgx.Tx, existing string, found bool) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	sqlStr, args, err := psql.Select("value").From("payrail_store").Where(sq.Eq{"key": key}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return err
	}

	var existing string

	found := true

	if err := tx.QueryRow(ctx, sqlStr, args...).Scan(&existing); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		found = false
	}

	if err := fn(tx, existing, found); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) upsert(ctx context.Context, tx pgx.Tx, key, value, kind string) error {
	sqlStr, args, err := psql.Insert("payrail_store").
		Columns("key", "value", "kind").
		Values(key, value, kind).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, kind = EXCLUDED.kind").
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, sqlStr, args...)

	return err
}

// ReadJSON implements store.Store.
func (s *Store) ReadJSON(ctx context.Context, key string, out any) error {
	sqlStr, args, err := psql.Select("value").From("payrail_store").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return err
	}

	var raw string

	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return store.ErrCorrupt
	}

	return nil
}

// WriteJSON implements store.Store.
func (s *Store) WriteJSON(ctx context.Context, key string, value any) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.withRowLock(ctx, key, func(tx pgx.Tx, _ string, _ bool) error {
		return s.upsert(ctx, tx, key, string(buf), "json")
	})
}

// AppendJSONL implements store.Store.
func (s *Store) AppendJSONL(ctx context.Context, key string, record any) error {
	buf, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return s.withRowLock(ctx, key, func(tx pgx.Tx, existing string, found bool) error {
		next := string(buf)
		if found && existing != "" {
			next = existing + "\n" + next
		}

		return s.upsert(ctx, tx, key, next, "jsonl")
	})
}

// ReadJSONL implements store.Store.
func (s *Store) ReadJSONL(ctx context.Context, key string) ([]json.RawMessage, error) {
	sqlStr, args, err := psql.Select("value").From("payrail_store").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, err
	}

	var raw string

	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var out []json.RawMessage

	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !json.Valid([]byte(line)) {
			continue
		}

		out = append(out, json.RawMessage(line))
	}

	return out, nil
}

type csvBlob struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// WriteCSV implements store.Store, storing the parsed rows as JSON
// rather than literal CSV text since the row is already a Go value by
// the time it reaches the Store boundary.
func (s *Store) WriteCSV(ctx context.Context, key string, headers []string, rows []map[string]string) error {
	buf, err := json.Marshal(csvBlob{Headers: headers, Rows: rows})
	if err != nil {
		return err
	}

	return s.withRowLock(ctx, key, func(tx pgx.Tx, _ string, _ bool) error {
		return s.upsert(ctx, tx, key, string(buf), "csv")
	})
}

// ReadCSV implements store.Store.
func (s *Store) ReadCSV(ctx context.Context, key string) ([]map[string]string, error) {
	sqlStr, args, err := psql.Select("value").From("payrail_store").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, err
	}

	var raw string

	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []map[string]string{}, nil
	}

	if err != nil {
		return nil, err
	}

	var blob csvBlob
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return nil, store.ErrCorrupt
	}

	return blob.Rows, nil
}
