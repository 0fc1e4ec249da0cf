// Package record holds the fields every synchronized entity carries and the
// last-writer-wins rules used to reconcile two versions of the same entity.
package record

import (
	"time"

	"github.com/google/uuid"
)

// Meta is embedded by every persisted entity.
type Meta struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	NeedsSync bool       `json:"needsSync"`
	UserID    uuid.UUID  `json:"userId"`
	WalletID  uuid.UUID  `json:"walletId"`
}

// Syncable is satisfied by any struct embedding Meta.
type Syncable interface {
	SyncMeta() *Meta
}

// SyncMeta returns the embedded sync fields.
func (m *Meta) SyncMeta() *Meta { return m }

// IsDeleted reports whether the record is a tombstone.
func (m *Meta) IsDeleted() bool { return m.DeletedAt != nil }

// Touch stamps a local mutation: updatedAt moves to now and the record becomes dirty.
// createdAt is only set when it has never been assigned.
func (m *Meta) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}

	m.UpdatedAt = now
	m.NeedsSync = true
}

// Tombstone marks the record as soft-deleted at now.
func (m *Meta) Tombstone(now time.Time) {
	m.DeletedAt = &now
	m.UpdatedAt = now
	m.NeedsSync = true
}

// RemoteWins decides a merge between two versions of the same id.
// The greater updatedAt wins and ties go to the remote copy.
func RemoteWins(local, remote *Meta) bool {
	if local == nil {
		return true
	}

	return !remote.UpdatedAt.Before(local.UpdatedAt)
}

// StrictlyNewer reports whether a was updated after b. A nil b is always older.
func StrictlyNewer(a, b *Meta) bool {
	if b == nil {
		return true
	}

	return a.UpdatedAt.After(b.UpdatedAt)
}

// Now returns the current UTC time at millisecond precision so that timestamps
// survive JSON and Postgres round-trips unchanged. Versions are compared by equality
// when acknowledging pushes, so precision loss would leave records dirty forever.
func Now() time.Time {
	return Truncate(time.Now())
}

// Truncate normalizes t to the precision used for stored timestamps.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
