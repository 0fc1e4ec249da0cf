package remote

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

// Every method reports failures as *Error.

//go:generate mockgen -source=repository.go -destination=repository_mock.go -package=remote
type WalletRepository interface {
	Create(ctx context.Context, w *wallet.Wallet) (*wallet.Wallet, error)
	Update(ctx context.Context, id uuid.UUID, w *wallet.Wallet) (*wallet.Wallet, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error)
	// GetAll returns every wallet visible to the session, tombstones included.
	GetAll(ctx context.Context) ([]*wallet.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, page, perPage int) (*Page[*wallet.Wallet], error)
	SetDefault(ctx context.Context, id uuid.UUID) error
}

type TransactionFilter struct {
	Type       transaction.Type
	Status     transaction.Status
	CategoryID string
	StartDate  *time.Time
	EndDate    *time.Time
}

type TransactionRepository interface {
	Create(ctx context.Context, walletID uuid.UUID, tx *transaction.Transaction) (*transaction.Transaction, error)
	Update(ctx context.Context, walletID, id uuid.UUID, tx *transaction.Transaction) (*transaction.Transaction, error)
	Delete(ctx context.Context, walletID, id uuid.UUID) error
	GetByID(ctx context.Context, walletID, id uuid.UUID) (*transaction.Transaction, error)
	GetAll(ctx context.Context, walletID uuid.UUID, filter TransactionFilter, page, perPage int) (*Page[*transaction.Transaction], error)
	GetSummary(ctx context.Context, walletID uuid.UUID, start, end time.Time) (*transaction.Summary, error)

	// SyncToRemote upserts txs by id and returns the records the backend accepted.
	SyncToRemote(ctx context.Context, walletID uuid.UUID, txs []*transaction.Transaction) ([]*transaction.Transaction, error)
	// FetchFromRemote returns records updated after since (all when nil), oldest first.
	FetchFromRemote(ctx context.Context, walletID uuid.UUID, since *time.Time) ([]*transaction.Transaction, error)
}
