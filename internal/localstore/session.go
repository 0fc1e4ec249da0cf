package localstore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
)

func (s *Store) SaveSession(ctx context.Context, sess *auth.Session) error {
	if err := writeJSON(ctx, s.kv, keySession, sess); err != nil {
		return err
	}

	return writeJSON(ctx, s.kv, keyUser, sess.UserID)
}

// LoadSession returns the persisted session, or nil when logged out.
func (s *Store) LoadSession(ctx context.Context) *auth.Session {
	return loadOrEmpty[*auth.Session](ctx, s.kv, keySession)
}

// CurrentUserID returns the user of the last session, or uuid.Nil.
func (s *Store) CurrentUserID(ctx context.Context) uuid.UUID {
	return loadOrEmpty[uuid.UUID](ctx, s.kv, keyUser)
}

func (s *Store) ClearSession(ctx context.Context) error {
	return errors.Join(
		s.kv.Delete(ctx, keySession),
		s.kv.Delete(ctx, keyUser),
	)
}
