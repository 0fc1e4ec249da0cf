package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
)

var secret = []byte("test-secret")

func TestGenerateAndParseToken(t *testing.T) {
	userID := uuid.New()

	token, err := auth.GenerateToken(secret, "walletsync", userID, time.Hour)
	require.NoError(t, err)

	got, err := auth.ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestParseToken_Rejects(t *testing.T) {
	userID := uuid.New()

	expired, err := auth.GenerateToken(secret, "walletsync", userID, -time.Minute)
	require.NoError(t, err)

	other, err := auth.GenerateToken([]byte("other"), "walletsync", userID, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{UserID: userID.String()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Expired", expired},
		{"WrongSecret", other},
		{"NoneAlgorithm", unsigned},
		{"Garbage", "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ParseToken(secret, tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestNewSession(t *testing.T) {
	userID := uuid.New()

	token, err := auth.GenerateToken(secret, "walletsync", userID, time.Hour)
	require.NoError(t, err)

	s, err := auth.NewSession(token)
	require.NoError(t, err)

	assert.Equal(t, userID, s.UserID)
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(time.Now().Add(2*time.Hour)))

	_, err = auth.NewSession("garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

type fakeLoader struct{ s *auth.Session }

func (f fakeLoader) LoadSession(context.Context) *auth.Session { return f.s }

func TestStoredTokenSource(t *testing.T) {
	tests := []struct {
		name    string
		session *auth.Session
		want    string
		wantErr error
	}{
		{"NoSession", nil, "", auth.ErrNoSession},
		{"Expired", &auth.Session{Token: "t", ExpiresAt: time.Now().Add(-time.Second)}, "", auth.ErrSessionExpired},
		{"NoExpiry", &auth.Session{Token: "t"}, "t", nil},
		{"Valid", &auth.Session{Token: "t", ExpiresAt: time.Now().Add(time.Hour)}, "t", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.NewStoredTokenSource(fakeLoader{tt.session}).Token(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserIDContext(t *testing.T) {
	_, ok := auth.UserIDFrom(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	got, ok := auth.UserIDFrom(auth.WithUserID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
