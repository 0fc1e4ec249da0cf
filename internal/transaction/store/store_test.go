package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction/store"
)

var transactionColumns = []string{
	"id", "user_id", "wallet_id", "amount", "type", "status", "category_id", "description", "notes", "date",
	"is_recurring", "recurrence", "recurrence_end_date", "parent_transaction_id",
	"attachments", "tags", "location", "metadata",
	"created_at", "updated_at", "deleted_at",
}

var ts = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*store.Store, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return store.New(mock), mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}

	return args
}

func row(id, walletID uuid.UUID, deletedAt *time.Time) []any {
	return []any{
		id, uuid.New(), walletID, "42.1000", "expense", "completed", "food", "Groceries", "", ts,
		false, "none", nil, nil,
		[]byte(`[]`), []byte(`["weekly"]`), []byte(`{"latitude":38.7,"longitude":-9.1}`), []byte(`{"source":"manual"}`),
		ts, ts, deletedAt,
	}
}

func newTx(walletID uuid.UUID) *transaction.Transaction {
	return &transaction.Transaction{
		Meta:       record.Meta{ID: uuid.New(), UserID: uuid.New(), WalletID: walletID, CreatedAt: ts, UpdatedAt: ts},
		Amount:     decimal.NewFromInt(10),
		Type:       transaction.TypeIncome,
		Status:     transaction.StatusCompleted,
		Recurrence: transaction.RecurrenceNone,
		Date:       ts,
	}
}

func TestStore_GetTransaction(t *testing.T) {
	s, mock := newStore(t)

	id := uuid.New()
	walletID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM transactions WHERE wallet_id = \$1 AND id = \$2 AND deleted_at IS NULL`).
		WithArgs(walletID, id).
		WillReturnRows(pgxmock.NewRows(transactionColumns).AddRow(row(id, walletID, nil)...))

	tx, err := s.GetTransaction(context.Background(), walletID, id)
	require.NoError(t, err)

	assert.Equal(t, id, tx.ID)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("42.1")))
	assert.Equal(t, transaction.TypeExpense, tx.Type)
	assert.Equal(t, []string{"weekly"}, tx.Tags)
	require.NotNil(t, tx.Location)
	assert.InDelta(t, 38.7, tx.Location.Latitude, 0.0001)
	assert.Equal(t, "manual", tx.Metadata["source"])
	assert.Nil(t, tx.ParentTransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetTransaction_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(`SELECT .* FROM transactions`).WithArgs(anyArgs(2)...).WillReturnError(pgx.ErrNoRows)

	_, err := s.GetTransaction(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

func TestStore_UpdateTransaction_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(`UPDATE transactions SET`).
		WithArgs(anyArgs(19)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateTransaction(context.Background(), newTx(uuid.New()))
	assert.ErrorIs(t, err, transaction.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteTransaction(t *testing.T) {
	s, mock := newStore(t)

	walletID, id := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE transactions SET deleted_at = \$3, updated_at = \$3`).
		WithArgs(walletID, id, ts).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.DeleteTransaction(context.Background(), walletID, id, ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListTransactions(t *testing.T) {
	s, mock := newStore(t)

	walletID := uuid.New()
	typ := transaction.TypeExpense
	start := ts.AddDate(0, -1, 0)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions WHERE wallet_id = \$1 AND deleted_at IS NULL AND type = \$2 AND date >= \$3`).
		WithArgs(walletID, "expense", start).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	mock.ExpectQuery(`ORDER BY date DESC, id LIMIT \$4 OFFSET \$5`).
		WithArgs(walletID, "expense", start, 2, 0).
		WillReturnRows(pgxmock.NewRows(transactionColumns).
			AddRow(row(uuid.New(), walletID, nil)...).
			AddRow(row(uuid.New(), walletID, nil)...))

	txs, total, err := s.ListTransactions(context.Background(), walletID,
		transaction.ListFilter{Type: &typ, StartDate: &start}, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	assert.Len(t, txs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertTransactions(t *testing.T) {
	walletID := uuid.New()

	t.Run("ReturnsOnlyWrittenIDs", func(t *testing.T) {
		s, mock := newStore(t)

		newer := newTx(walletID)
		stale := newTx(walletID)

		mock.ExpectBegin()
		mock.ExpectQuery(`ON CONFLICT \(id\) DO UPDATE SET .* WHERE transactions.wallet_id = EXCLUDED.wallet_id AND transactions.updated_at <= EXCLUDED.updated_at RETURNING id`).
			WithArgs(anyArgs(21)...).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(newer.ID))
		mock.ExpectQuery(`INSERT INTO transactions`).
			WithArgs(anyArgs(21)...).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectCommit()

		ids, err := s.UpsertTransactions(context.Background(), walletID, []*transaction.Transaction{newer, stale})
		require.NoError(t, err)

		assert.Equal(t, []uuid.UUID{newer.ID}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBackOnError", func(t *testing.T) {
		s, mock := newStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO transactions`).
			WithArgs(anyArgs(21)...).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := s.UpsertTransactions(context.Background(), walletID, []*transaction.Transaction{newTx(walletID)})
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ChangesSince(t *testing.T) {
	s, mock := newStore(t)

	walletID := uuid.New()
	since := ts.Add(-time.Hour)
	deletedAt := ts

	mock.ExpectQuery(`FROM transactions WHERE wallet_id = \$1 AND updated_at > \$2 ORDER BY updated_at ASC, id`).
		WithArgs(walletID, since).
		WillReturnRows(pgxmock.NewRows(transactionColumns).AddRow(row(uuid.New(), walletID, &deletedAt)...))

	txs, err := s.ChangesSince(context.Background(), walletID, &since)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.True(t, txs[0].IsDeleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ChangesSince_FullHistory(t *testing.T) {
	s, mock := newStore(t)

	walletID := uuid.New()

	mock.ExpectQuery(`FROM transactions WHERE wallet_id = \$1 ORDER BY updated_at ASC`).
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows(transactionColumns))

	txs, err := s.ChangesSince(context.Background(), walletID, nil)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
