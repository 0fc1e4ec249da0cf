package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the client's persisted login.
type Session struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// NewSession builds a session from a token issued by the backend.
func NewSession(token string) (*Session, error) {
	claims, err := ParseUnverified(token)
	if err != nil {
		return nil, err
	}

	s := &Session{Token: token, UserID: uuid.MustParse(claims.UserID)}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	return s, nil
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type SessionLoader interface {
	LoadSession(ctx context.Context) *Session
}

// StoredTokenSource hands out the token of the persisted session.
type StoredTokenSource struct {
	sessions SessionLoader
	now      func() time.Time
}

func NewStoredTokenSource(sessions SessionLoader) *StoredTokenSource {
	return &StoredTokenSource{sessions: sessions, now: time.Now}
}

func (s *StoredTokenSource) Token(ctx context.Context) (string, error) {
	sess := s.sessions.LoadSession(ctx)
	if sess == nil || sess.Token == "" {
		return "", ErrNoSession
	}

	if sess.Expired(s.now()) {
		return "", ErrSessionExpired
	}

	return sess.Token, nil
}
