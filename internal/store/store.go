// Package store defines the Durable Store capability (spec.md §4.1): the
// sole arbiter of concurrent mutation for every other component. Two
// implementations exist: filestore (default, file-per-key JSON/JSONL/CSV
// under per-key advisory locks) and pgstore (Postgres-backed, proving the
// contract is backend-agnostic).
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by ReadJSON when the key does not exist.
// ReadJSONL and ReadCSV return an empty result and no error for a missing
// key.
var ErrNotFound = errors.New("store: key not found")

// ErrCorrupt is returned by ReadJSON when the stored blob cannot be
// unmarshaled. ReadJSONL never returns it: malformed lines are skipped and
// logged instead, per spec.md §4.1.
var ErrCorrupt = errors.New("store: corrupt record")

// Store is the Durable Store capability. filestore holds a lock scoped to
// key for the full duration of every method; pgstore locks the key's row
// only in its write methods, and its reads take no lock.
type Store interface {
	// ReadJSON unmarshals the JSON blob at key into out. If the key does
	// not exist, out is left as the zero value and ErrNotFound is
	// returned so callers can apply their own default.
	ReadJSON(ctx context.Context, key string, out any) error

	// WriteJSON atomically replaces the blob at key with the JSON
	// encoding of value (temp-file-then-rename under the lock).
	WriteJSON(ctx context.Context, key string, value any) error

	// AppendJSONL appends one JSON-encoded line to the key's stream.
	AppendJSONL(ctx context.Context, key string, record any) error

	// ReadJSONL returns every well-formed line of the key's stream, in
	// file order, as raw JSON so callers unmarshal into their own entry
	// type. Malformed lines are skipped (filestore also logs them), per
	// spec.md §4.1.
	ReadJSONL(ctx context.Context, key string) ([]json.RawMessage, error)

	// WriteCSV atomically replaces the CSV at key with headers followed
	// by one row per map in rows (missing fields render as "").
	WriteCSV(ctx context.Context, key string, headers []string, rows []map[string]string) error

	// ReadCSV returns the parsed rows of the CSV at key as header->value
	// maps. Returns an empty slice, not an error, if the key is absent.
	ReadCSV(ctx context.Context, key string) ([]map[string]string, error)
}
