package state_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/walletsync/internal/state"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

func expense(amount int64, date time.Time) *transaction.Transaction {
	return &transaction.Transaction{
		Amount: decimal.NewFromInt(amount),
		Type:   transaction.TypeExpense,
		Date:   date,
	}
}

func TestTransactionContext_RequiresLoadedWallet(t *testing.T) {
	tc := state.NewTransactionContext(newLocal(t), nil)

	err := tc.Create(context.Background(), expense(10, time.Now()))
	assert.ErrorIs(t, err, state.ErrNoWallet)
	assert.ErrorIs(t, tc.State().Err, state.ErrNoWallet)
}

func TestTransactionContext_Lifecycle(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	trigger := &countingTrigger{}
	walletID := uuid.New()

	tc := state.NewTransactionContext(local, trigger)
	tc.Load(ctx, walletID)

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	first := expense(50, jan)
	require.NoError(t, tc.Create(ctx, first))
	second := expense(20, feb)
	require.NoError(t, tc.Create(ctx, second))

	txs := tc.State().Transactions
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID, "newest first")
	assert.Equal(t, transaction.StatusCompleted, txs[1].Status)

	stored := local.GetTransaction(ctx, walletID, first.ID)
	require.NotNil(t, stored)
	assert.True(t, stored.NeedsSync)

	first.Description = "groceries"
	first.Date = feb.AddDate(0, 0, 1)
	require.NoError(t, tc.Update(ctx, first))
	assert.Equal(t, "groceries", tc.State().Transactions[0].Description)

	require.NoError(t, tc.Delete(ctx, second.ID))
	assert.Len(t, tc.State().Transactions, 1)
	assert.Nil(t, local.GetTransaction(ctx, walletID, second.ID))

	assert.Equal(t, int32(4), trigger.n.Load())

	assert.ErrorIs(t, tc.Update(ctx, expense(1, jan)), transaction.ErrNotFound)
	assert.ErrorIs(t, tc.Create(ctx, expense(-1, jan)), transaction.ErrInvalid)
}

func TestTransactionContext_Summary(t *testing.T) {
	ctx := context.Background()
	tc := state.NewTransactionContext(newLocal(t), nil)
	tc.Load(ctx, uuid.New())

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, tc.Create(ctx, expense(30, day)))
	require.NoError(t, tc.Create(ctx, &transaction.Transaction{
		Amount: decimal.NewFromInt(100),
		Type:   transaction.TypeIncome,
		Date:   day,
	}))

	sum, err := tc.Summary(day, day.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.True(t, sum.TotalIncome.Equal(decimal.NewFromInt(100)))
	assert.True(t, sum.TotalExpense.Equal(decimal.NewFromInt(30)))
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(70)))

	_, err = tc.Summary(day, day.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, transaction.ErrInvalid)
}

func TestTransactionContext_MaterializeRecurring(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	walletID := uuid.New()

	tc := state.NewTransactionContext(local, nil)
	tc.Load(ctx, walletID)

	rent := expense(900, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	rent.IsRecurring = true
	rent.Recurrence = transaction.RecurrenceMonthly
	rent.Tags = []string{"home"}
	require.NoError(t, tc.Create(ctx, rent))

	until := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)

	n, err := tc.MaterializeRecurring(ctx, until)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var dates []string

	for _, tx := range tc.State().Transactions {
		if tx.ParentTransactionID == nil {
			continue
		}

		assert.Equal(t, rent.ID, *tx.ParentTransactionID)
		assert.False(t, tx.IsRecurring)
		assert.Equal(t, []string{"home"}, tx.Tags)
		assert.True(t, tx.NeedsSync)
		dates = append(dates, tx.Date.Format(time.DateOnly))
	}

	assert.ElementsMatch(t, []string{"2026-02-28", "2026-03-31", "2026-04-30"}, dates)

	// a deleted instance is not recreated
	require.NoError(t, tc.Delete(ctx, tc.State().Transactions[0].ID))

	n, err = tc.MaterializeRecurring(ctx, until)
	require.NoError(t, err)
	assert.Zero(t, n)
}
