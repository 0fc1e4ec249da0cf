package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, walletID, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, walletID, id uuid.UUID, at time.Time) error

	// ListTransactions returns active transactions matching filter. A limit of zero means no limit.
	ListTransactions(ctx context.Context, walletID uuid.UUID, filter ListFilter, limit, offset int) ([]*Transaction, int, error)

	// UpsertTransactions applies txs with last-writer-wins and returns the ids that were written.
	UpsertTransactions(ctx context.Context, walletID uuid.UUID, txs []*Transaction) ([]uuid.UUID, error)
	ChangesSince(ctx context.Context, walletID uuid.UUID, since *time.Time) ([]*Transaction, error)
}

// WalletAccess decides whether a user may read or write a wallet's transactions.
type WalletAccess interface {
	Authorize(ctx context.Context, userID, walletID uuid.UUID, write bool) error
}

type Service struct {
	repo    Repository
	wallets WalletAccess
	now     func() time.Time
}

func NewService(repo Repository, wallets WalletAccess) *Service {
	return &Service{repo: repo, wallets: wallets, now: record.Now}
}

type ListFilter struct {
	Type       *Type
	Status     *Status
	CategoryID *string
	StartDate  *time.Time
	EndDate    *time.Time
}

type Page struct {
	Transactions []*Transaction
	Total        int
	Page         int
	HasMore      bool
}

func (s *Service) Create(ctx context.Context, userID, walletID uuid.UUID, tx *Transaction) error {
	if err := s.wallets.Authorize(ctx, userID, walletID, true); err != nil {
		return err
	}

	tx.Normalize()

	if err := tx.Validate(); err != nil {
		return err
	}

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	s.prepare(tx, userID, walletID)

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, userID, walletID, id uuid.UUID) (*Transaction, error) {
	if err := s.wallets.Authorize(ctx, userID, walletID, false); err != nil {
		return nil, err
	}

	return s.repo.GetTransaction(ctx, walletID, id)
}

// Update replaces an active transaction. The server stamps the new version.
func (s *Service) Update(ctx context.Context, userID, walletID, id uuid.UUID, tx *Transaction) error {
	if err := s.wallets.Authorize(ctx, userID, walletID, true); err != nil {
		return err
	}

	tx.Normalize()

	if err := tx.Validate(); err != nil {
		return err
	}

	existing, err := s.repo.GetTransaction(ctx, walletID, id)
	if err != nil {
		return err
	}

	tx.ID = id
	tx.CreatedAt = existing.CreatedAt
	tx.UpdatedAt = s.now()
	tx.DeletedAt = nil
	s.prepare(tx, existing.UserID, walletID)

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, userID, walletID, id uuid.UUID) error {
	if err := s.wallets.Authorize(ctx, userID, walletID, true); err != nil {
		return err
	}

	return s.repo.DeleteTransaction(ctx, walletID, id, s.now())
}

func (s *Service) List(ctx context.Context, userID, walletID uuid.UUID, filter ListFilter, page, perPage int) (*Page, error) {
	if err := s.wallets.Authorize(ctx, userID, walletID, false); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}

	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	txs, total, err := s.repo.ListTransactions(ctx, walletID, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return &Page{
		Transactions: txs,
		Total:        total,
		Page:         page,
		HasMore:      page*perPage < total,
	}, nil
}

func (s *Service) Summary(ctx context.Context, userID, walletID uuid.UUID, start, end time.Time) (*Summary, error) {
	if err := s.wallets.Authorize(ctx, userID, walletID, false); err != nil {
		return nil, err
	}

	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalid)
	}

	txs, _, err := s.repo.ListTransactions(ctx, walletID, ListFilter{StartDate: &start, EndDate: &end}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return Summarize(walletID, txs, start, end), nil
}

// Sync upserts a batch pushed by a client and returns the records that were accepted.
// Records losing to a newer stored version are left out; the client picks up the
// stored version on its next pull.
func (s *Service) Sync(ctx context.Context, userID, walletID uuid.UUID, txs []*Transaction) ([]*Transaction, error) {
	if err := s.wallets.Authorize(ctx, userID, walletID, true); err != nil {
		return nil, err
	}

	for _, tx := range txs {
		if tx.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: id is required", ErrInvalid)
		}

		if tx.UpdatedAt.IsZero() {
			return nil, fmt.Errorf("%w: updatedAt is required", ErrInvalid)
		}

		tx.Normalize()

		if err := tx.Validate(); err != nil {
			return nil, err
		}

		s.prepare(tx, userID, walletID)
	}

	if len(txs) == 0 {
		return []*Transaction{}, nil
	}

	ids, err := s.repo.UpsertTransactions(ctx, walletID, txs)
	if err != nil {
		return nil, fmt.Errorf("upserting transactions: %w", err)
	}

	written := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		written[id] = struct{}{}
	}

	acked := make([]*Transaction, 0, len(ids))

	for _, tx := range txs {
		if _, ok := written[tx.ID]; ok {
			acked = append(acked, tx)
		}
	}

	return acked, nil
}

// Changes returns every record of the wallet modified after since, tombstones included,
// oldest first. A nil since returns the full history.
func (s *Service) Changes(ctx context.Context, userID, walletID uuid.UUID, since *time.Time) ([]*Transaction, error) {
	if err := s.wallets.Authorize(ctx, userID, walletID, false); err != nil {
		return nil, err
	}

	txs, err := s.repo.ChangesSince(ctx, walletID, since)
	if err != nil {
		return nil, fmt.Errorf("fetching changes: %w", err)
	}

	return txs, nil
}

func (s *Service) prepare(tx *Transaction, author, walletID uuid.UUID) {
	now := s.now()

	tx.UserID = author
	tx.WalletID = walletID
	tx.NeedsSync = false

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}

	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = now
	}

	tx.CreatedAt = record.Truncate(tx.CreatedAt)
	tx.UpdatedAt = record.Truncate(tx.UpdatedAt)
}
