package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

var ErrNoWallet = errors.New("no wallet loaded")

type TransactionState struct {
	WalletID     uuid.UUID
	Transactions []*transaction.Transaction
	Loading      bool
	Err          error
}

// TransactionAction is one of the actions accepted by ReduceTransaction.
type TransactionAction interface {
	transactionAction()
}

type (
	SetTransactions struct {
		WalletID     uuid.UUID
		Transactions []*transaction.Transaction
	}
	AddTransaction    struct{ Transaction *transaction.Transaction }
	UpdateTransaction struct{ Transaction *transaction.Transaction }
	RemoveTransaction struct{ ID uuid.UUID }
)

func (SetLoading) transactionAction()        {}
func (SetError) transactionAction()          {}
func (SetTransactions) transactionAction()   {}
func (AddTransaction) transactionAction()    {}
func (UpdateTransaction) transactionAction() {}
func (RemoveTransaction) transactionAction() {}

// ReduceTransaction keeps Transactions ordered by date, newest first.
func ReduceTransaction(s TransactionState, a TransactionAction) TransactionState {
	switch a := a.(type) {
	case SetLoading:
		s.Loading = a.Loading
	case SetError:
		s.Err = a.Err
		s.Loading = false
	case SetTransactions:
		s.WalletID = a.WalletID
		s.Transactions = sortByDate(slices.Clone(a.Transactions))
		s.Loading = false
		s.Err = nil
	case AddTransaction:
		s.Transactions = sortByDate(append(slices.Clone(s.Transactions), a.Transaction))
	case UpdateTransaction:
		i := slices.IndexFunc(s.Transactions, func(tx *transaction.Transaction) bool { return tx.ID == a.Transaction.ID })
		if i < 0 {
			return s
		}

		s.Transactions = slices.Clone(s.Transactions)
		s.Transactions[i] = a.Transaction
		s.Transactions = sortByDate(s.Transactions)
	case RemoveTransaction:
		s.Transactions = slices.DeleteFunc(slices.Clone(s.Transactions), func(tx *transaction.Transaction) bool {
			return tx.ID == a.ID
		})
	}

	return s
}

func sortByDate(list []*transaction.Transaction) []*transaction.Transaction {
	slices.SortStableFunc(list, func(a, b *transaction.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}

		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return list
}

type TransactionLocal interface {
	SaveTransaction(ctx context.Context, walletID uuid.UUID, tx *transaction.Transaction) error
	GetTransaction(ctx context.Context, walletID, id uuid.UUID) *transaction.Transaction
	GetAllTransactions(ctx context.Context, walletID uuid.UUID, includeDeleted bool) []*transaction.Transaction
	SoftDeleteTransaction(ctx context.Context, walletID, id uuid.UUID) error
	CurrentUserID(ctx context.Context) uuid.UUID
}

// TransactionContext models the transactions of one wallet at a time.
type TransactionContext struct {
	store   *Store[TransactionState, TransactionAction]
	local   TransactionLocal
	trigger SyncTrigger
}

func NewTransactionContext(local TransactionLocal, trigger SyncTrigger) *TransactionContext {
	return &TransactionContext{
		store:   NewStore(ReduceTransaction, TransactionState{}),
		local:   local,
		trigger: trigger,
	}
}

func (c *TransactionContext) State() TransactionState { return c.store.State() }

func (c *TransactionContext) Subscribe(fn func(TransactionState)) func() {
	return c.store.Subscribe(fn)
}

// Load replaces the model with the active transactions of walletID.
func (c *TransactionContext) Load(ctx context.Context, walletID uuid.UUID) {
	c.store.Dispatch(SetLoading{Loading: true})
	c.store.Dispatch(SetTransactions{
		WalletID:     walletID,
		Transactions: c.local.GetAllTransactions(ctx, walletID, false),
	})
}

func (c *TransactionContext) walletID() (uuid.UUID, error) {
	id := c.State().WalletID
	if id == uuid.Nil {
		return uuid.Nil, c.fail(ErrNoWallet)
	}

	return id, nil
}

// Create stores tx in the loaded wallet. A missing id is generated client-side.
func (c *TransactionContext) Create(ctx context.Context, tx *transaction.Transaction) error {
	walletID, err := c.walletID()
	if err != nil {
		return err
	}

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	tx.Normalize()

	if err := tx.Validate(); err != nil {
		return c.fail(err)
	}

	tx.UserID = c.local.CurrentUserID(ctx)
	tx.DeletedAt = nil

	if err := c.local.SaveTransaction(ctx, walletID, tx); err != nil {
		return c.fail(fmt.Errorf("saving transaction: %w", err))
	}

	created := *tx
	c.store.Dispatch(AddTransaction{Transaction: &created})
	c.kick()

	return nil
}

func (c *TransactionContext) Update(ctx context.Context, tx *transaction.Transaction) error {
	walletID, err := c.walletID()
	if err != nil {
		return err
	}

	existing := c.local.GetTransaction(ctx, walletID, tx.ID)
	if existing == nil {
		return c.fail(transaction.ErrNotFound)
	}

	tx.Normalize()

	if err := tx.Validate(); err != nil {
		return c.fail(err)
	}

	tx.UserID = existing.UserID
	tx.DeletedAt = nil

	if err := c.local.SaveTransaction(ctx, walletID, tx); err != nil {
		return c.fail(fmt.Errorf("saving transaction: %w", err))
	}

	updated := *tx
	c.store.Dispatch(UpdateTransaction{Transaction: &updated})
	c.kick()

	return nil
}

func (c *TransactionContext) Delete(ctx context.Context, id uuid.UUID) error {
	walletID, err := c.walletID()
	if err != nil {
		return err
	}

	if err := c.local.SoftDeleteTransaction(ctx, walletID, id); err != nil {
		return c.fail(fmt.Errorf("deleting transaction: %w", err))
	}

	c.store.Dispatch(RemoveTransaction{ID: id})
	c.kick()

	return nil
}

// Summary aggregates the loaded transactions without touching the network.
func (c *TransactionContext) Summary(start, end time.Time) (*transaction.Summary, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", transaction.ErrInvalid)
	}

	st := c.State()

	return transaction.Summarize(st.WalletID, st.Transactions, start, end), nil
}

// MaterializeRecurring creates the instances of every recurring transaction due up to
// until. Instances link back through ParentTransactionID; dates that already have an
// instance, deleted or not, are skipped. It returns the number of instances created.
func (c *TransactionContext) MaterializeRecurring(ctx context.Context, until time.Time) (int, error) {
	walletID, err := c.walletID()
	if err != nil {
		return 0, err
	}

	all := c.local.GetAllTransactions(ctx, walletID, true)

	existing := make(map[uuid.UUID]map[int64]bool)

	for _, tx := range all {
		if tx.ParentTransactionID == nil {
			continue
		}

		parent := *tx.ParentTransactionID
		if existing[parent] == nil {
			existing[parent] = make(map[int64]bool)
		}

		existing[parent][tx.Date.UnixMilli()] = true
	}

	created := 0

	for _, tmpl := range all {
		if tmpl.IsDeleted() || tmpl.ParentTransactionID != nil {
			continue
		}

		for _, date := range transaction.Occurrences(tmpl, until) {
			if existing[tmpl.ID][date.UnixMilli()] {
				continue
			}

			inst := instanceOf(tmpl, date)
			inst.UserID = c.local.CurrentUserID(ctx)

			if err := c.local.SaveTransaction(ctx, walletID, inst); err != nil {
				return created, c.fail(fmt.Errorf("saving recurring instance: %w", err))
			}

			stored := *inst
			c.store.Dispatch(AddTransaction{Transaction: &stored})
			created++
		}
	}

	if created > 0 {
		c.kick()
	}

	return created, nil
}

func instanceOf(tmpl *transaction.Transaction, date time.Time) *transaction.Transaction {
	inst := *tmpl
	inst.Meta = record.Meta{ID: uuid.New()}
	inst.Date = date
	inst.IsRecurring = false
	inst.Recurrence = transaction.RecurrenceNone
	inst.RecurrenceEndDate = nil
	inst.ParentTransactionID = new(tmpl.ID)
	inst.Attachments = slices.Clone(tmpl.Attachments)
	inst.Tags = slices.Clone(tmpl.Tags)
	inst.Metadata = maps.Clone(tmpl.Metadata)

	return &inst
}

func (c *TransactionContext) fail(err error) error {
	c.store.Dispatch(SetError{Err: err})
	return err
}

func (c *TransactionContext) kick() {
	if c.trigger != nil {
		c.trigger.Trigger()
	}
}
