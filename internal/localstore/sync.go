package localstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LastSyncTimestamp returns the pull watermark of walletID, or nil before the first pull.
func (s *Store) LastSyncTimestamp(ctx context.Context, walletID uuid.UUID) *time.Time {
	return loadOrEmpty[*time.Time](ctx, s.kv, lastSyncKey(walletID))
}

// SetLastSyncTimestamp advances the watermark. Values older than the stored one are ignored.
func (s *Store) SetLastSyncTimestamp(ctx context.Context, walletID uuid.UUID, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.LastSyncTimestamp(ctx, walletID); current != nil && !ts.After(*current) {
		return nil
	}

	return writeJSON(ctx, s.kv, lastSyncKey(walletID), ts.UTC())
}
