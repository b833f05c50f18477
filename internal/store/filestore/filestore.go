// Package filestore is the default Durable Store backend: one JSON or
// JSONL file per logical key under DATA_DIR, each write crash-atomic via
// temp-file-then-rename, each operation serialized by a per-key lock.
// Grounded on the original implementation's shared/file_store.py.
package filestore

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store"
)

// Store is the file-backed Durable Store implementation.
type Store struct {
	root   string
	locks  *keyLocks
	logger mlog.Logger
}

// New returns a Store rooted at dataDir. dataDir is created if absent.
func New(dataDir string, logger mlog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	if logger == nil {
		logger = &mlog.GoLogger{Level: mlog.InfoLevel}
	}

	return &Store{root: dataDir, locks: newKeyLocks(), logger: logger}, nil
}

func (s *Store) resolve(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// withLock acquires the in-process mutex, then the cross-process flock on
// the resolved path, running fn while both are held.
func (s *Store) withLock(key string, fn func(path string) error) error {
	unlock := s.locks.lock(key)
	defer unlock()

	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	fl, err := acquireFileLock(path)
	if err != nil {
		return err
	}
	defer fl.release()

	return fn(path)
}

// ReadJSON implements store.Store.
func (s *Store) ReadJSON(_ context.Context, key string, out any) error {
	return s.withLock(key, func(path string) error {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		if len(strings.TrimSpace(string(data))) == 0 {
			return store.ErrNotFound
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		}

		return nil
	})
}

// WriteJSON implements store.Store.
func (s *Store) WriteJSON(_ context.Context, key string, value any) error {
	return s.withLock(key, func(path string) error {
		return atomicWrite(path, func(f *os.File) error {
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			return enc.Encode(value)
		})
	})
}

// AppendJSONL implements store.Store.
func (s *Store) AppendJSONL(_ context.Context, key string, record any) error {
	return s.withLock(key, func(path string) error {
		line, err := json.Marshal(record)
		if err != nil {
			return err
		}

		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := f.Write(append(line, '\n')); err != nil {
			return err
		}

		return f.Sync()
	})
}

// ReadJSONL implements store.Store. Partial/malformed lines are skipped
// and logged, never surfaced as an error, per spec.md §4.1.
func (s *Store) ReadJSONL(_ context.Context, key string) ([]json.RawMessage, error) {
	var out []json.RawMessage

	err := s.withLock(key, func(path string) error {
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var probe json.RawMessage
			if err := json.Unmarshal([]byte(line), &probe); err != nil {
				s.logger.Warnf("filestore: skipping corrupt jsonl record in %s: %v", key, err)
				continue
			}

			out = append(out, probe)
		}

		return scanner.Err()
	})

	return out, err
}

// WriteCSV implements store.Store.
func (s *Store) WriteCSV(_ context.Context, key string, headers []string, rows []map[string]string) error {
	return s.withLock(key, func(path string) error {
		return atomicWrite(path, func(f *os.File) error {
			w := csv.NewWriter(f)
			if err := w.Write(headers); err != nil {
				return err
			}

			for _, row := range rows {
				record := make([]string, len(headers))
				for i, h := range headers {
					record[i] = row[h]
				}

				if err := w.Write(record); err != nil {
					return err
				}
			}

			w.Flush()

			return w.Error()
		})
	})
}

// ReadCSV implements store.Store.
func (s *Store) ReadCSV(_ context.Context, key string) ([]map[string]string, error) {
	var out []map[string]string

	err := s.withLock(key, func(path string) error {
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		defer f.Close()

		r := csv.NewReader(f)

		headers, err := r.Read()
		if err != nil {
			return nil //nolint:nilerr // empty file: no header, no rows
		}

		for {
			record, err := r.Read()
			if err != nil {
				break
			}

			row := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(record) {
					row[h] = record[i]
				}
			}

			out = append(out, row)
		}

		return nil
	})

	return out, err
}

// atomicWrite writes via a temp sibling, fsyncs, then renames over path,
// matching spec.md §4.1's crash-atomicity requirement.
func atomicWrite(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := write(tmp); err != nil {
		cleanup()
		return err
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

var _ store.Store = (*Store)(nil)
