package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet/store"
)

var walletColumns = []string{
	"id", "user_id", "name", "type", "currency", "icon", "color", "balance", "is_default", "members",
	"created_at", "updated_at", "deleted_at",
}

func newStore(t *testing.T) (*store.Store, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return store.New(mock), mock
}

func TestStore_GetWallet(t *testing.T) {
	s, mock := newStore(t)

	id := uuid.New()
	owner := uuid.New()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	members := []byte(`[{"userId":"` + owner.String() + `","role":"owner","joinedAt":"2026-01-01T00:00:00Z"}]`)

	mock.ExpectQuery(`SELECT .* FROM wallets WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(walletColumns).AddRow(
			id, owner, "Main", "personal", "EUR", "wallet", "#fff", "12.5000", true, members,
			ts, ts, nil,
		))

	w, err := s.GetWallet(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, w.ID)
	assert.Equal(t, id, w.WalletID)
	assert.Equal(t, owner, w.UserID)
	assert.Equal(t, wallet.TypePersonal, w.Type)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, w.IsDefault)
	assert.Nil(t, w.DeletedAt)
	require.Len(t, w.Members, 1)
	assert.Equal(t, wallet.RoleOwner, w.Members[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetWallet_NotFound(t *testing.T) {
	s, mock := newStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM wallets WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetWallet(context.Background(), id)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestStore_CreateWallet_Duplicate(t *testing.T) {
	s, mock := newStore(t)

	w := &wallet.Wallet{Meta: record.Meta{ID: uuid.New(), UserID: uuid.New()}, Name: "Main", Type: wallet.TypePersonal, Currency: "EUR"}

	mock.ExpectExec(`INSERT INTO wallets`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.CreateWallet(context.Background(), w)
	assert.ErrorIs(t, err, wallet.ErrAlreadyExists)
}

func TestStore_UpsertWallet_GuardsOwnerAndRecency(t *testing.T) {
	s, mock := newStore(t)

	w := &wallet.Wallet{Meta: record.Meta{ID: uuid.New(), UserID: uuid.New()}, Name: "Main", Type: wallet.TypePersonal, Currency: "EUR"}

	mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE SET .* WHERE wallets.user_id = EXCLUDED.user_id AND wallets.updated_at <= EXCLUDED.updated_at`).
		WithArgs(w.ID, w.UserID, "Main", "personal", "EUR", "", "", "0", false, []byte("[]"),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertWallet(context.Background(), w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListActiveWallets(t *testing.T) {
	s, mock := newStore(t)
	user := uuid.New()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM wallets`).
		WithArgs(user).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT .* FROM wallets WHERE .* AND deleted_at IS NULL\s+ORDER BY created_at ASC LIMIT \$2 OFFSET \$3`).
		WithArgs(user, 2, 0).
		WillReturnRows(pgxmock.NewRows(walletColumns).
			AddRow(uuid.New(), user, "A", "personal", "EUR", "", "", "0", true, []byte(`[]`), ts, ts, nil).
			AddRow(uuid.New(), user, "B", "business", "USD", "", "", "0", false, []byte(`[]`), ts, ts, nil))

	wallets, total, err := s.ListActiveWallets(context.Background(), user, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, wallets, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetDefault(t *testing.T) {
	user := uuid.New()
	id := uuid.New()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Commits", func(t *testing.T) {
		s, mock := newStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE wallets SET is_default = FALSE`).
			WithArgs(user, id, at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`UPDATE wallets SET is_default = TRUE`).
			WithArgs(user, id, at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, s.SetDefault(context.Background(), user, id, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBack", func(t *testing.T) {
		s, mock := newStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE wallets SET is_default = FALSE`).
			WithArgs(user, id, at).
			WillReturnError(errors.New("boom"))
		mock.ExpectRollback()

		assert.Error(t, s.SetDefault(context.Background(), user, id, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
