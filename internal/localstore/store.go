// Package localstore is the device's system of record: an encrypted key-value
// store holding wallets, transactions and sync watermarks.
//
// Reads never fail. A value that cannot be read or decoded is logged and treated
// as absent. Writes return an error and leave the stored value untouched, so a
// caller can retry on its next write.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	kv  KV
	now func() time.Time

	// mu serializes read-modify-write cycles on list keys.
	mu sync.Mutex
}

func New(kv KV) *Store {
	return &Store{kv: kv, now: record.Now}
}

// Open opens the SQLite database at dsn and wraps it with passphrase encryption.
func Open(ctx context.Context, dsn, passphrase string) (*Store, func() error, error) {
	db, err := OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	enc, err := NewEncryptedKV(ctx, db, passphrase)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return New(enc), db.Close, nil
}

// nextVersion returns the timestamp for a new local write. It is strictly after prev
// so that a write landing in the same millisecond as a push is never mistaken for
// the pushed version.
func (s *Store) nextVersion(prev *record.Meta) time.Time {
	now := s.now()

	if prev != nil && !now.After(prev.UpdatedAt) {
		return prev.UpdatedAt.Add(time.Millisecond)
	}

	return now
}

func readJSON[T any](ctx context.Context, kv KV, key string) (T, error) {
	var v T

	raw, err := kv.Get(ctx, key)
	if err != nil {
		return v, err
	}

	if raw == nil {
		return v, nil
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding %s: %w", key, err)
	}

	return v, nil
}

func writeJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	return kv.Set(ctx, key, raw)
}

// loadOrEmpty is the degraded read used by query operations.
func loadOrEmpty[T any](ctx context.Context, kv KV, key string) T {
	v, err := readJSON[T](ctx, kv, key)
	if err != nil {
		slog.Warn("reading local store", "key", key, "error", err)
	}

	return v
}

func find[E record.Syncable](list []E, id uuid.UUID) (int, E) {
	for i, e := range list {
		if e.SyncMeta().ID == id {
			return i, e
		}
	}

	var zero E

	return -1, zero
}

func active[E record.Syncable](list []E) []E {
	return slices.DeleteFunc(list, func(e E) bool { return e.SyncMeta().IsDeleted() })
}

func dirty[E record.Syncable](list []E) []E {
	return slices.DeleteFunc(list, func(e E) bool { return !e.SyncMeta().NeedsSync })
}

// markSynced clears the dirty flag of every record whose stored version is not newer
// than the acknowledged one. It reports how many flags were cleared.
func markSynced[E record.Syncable](list []E, versions map[uuid.UUID]time.Time) int {
	cleared := 0

	for _, e := range list {
		m := e.SyncMeta()

		version, ok := versions[m.ID]
		if !ok || !m.NeedsSync || m.UpdatedAt.After(version) {
			continue
		}

		m.NeedsSync = false
		cleared++
	}

	return cleared
}

// Wipe removes every stored key except the encryption salt.
func (s *Store) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.kv.Keys(ctx, "")
	if err != nil {
		return fmt.Errorf("listing keys: %w", err)
	}

	for _, key := range keys {
		if key == keySalt {
			continue
		}

		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
	}

	return nil
}
