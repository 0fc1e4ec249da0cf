package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=wallet
type Repository interface {
	CreateWallet(ctx context.Context, w *Wallet) error
	UpsertWallet(ctx context.Context, w *Wallet) error
	GetWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)
	ListWallets(ctx context.Context, userID uuid.UUID) ([]*Wallet, error)
	ListActiveWallets(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Wallet, int, error)
	DeleteWallet(ctx context.Context, id uuid.UUID, at time.Time) error
	SetDefault(ctx context.Context, userID, id uuid.UUID, at time.Time) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: record.Now}
}

// Page is one page of wallets for a user.
type Page struct {
	Wallets []*Wallet
	Total   int
	Page    int
	HasMore bool
}

// Create stores a new wallet owned by userID. Ownership fields from the payload are ignored.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, w *Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	s.prepare(w, userID)

	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	return nil
}

// Update inserts or replaces the wallet with the given id. An existing wallet keeps its
// owner and may only be changed by its owner or an admin member.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, w *Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}

	w.ID = id
	owner := userID

	existing, err := s.repo.GetWallet(ctx, id)

	switch {
	case err == nil:
		if !existing.CanManage(userID) {
			return ErrForbidden
		}

		owner = existing.UserID
	case errors.Is(err, ErrNotFound):
	default:
		return fmt.Errorf("getting wallet: %w", err)
	}

	s.prepare(w, owner)

	if err := s.repo.UpsertWallet(ctx, w); err != nil {
		return fmt.Errorf("upserting wallet: %w", err)
	}

	return nil
}

// Delete tombstones the wallet. Only the owner may delete it.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return err
	}

	if !existing.CanRead(userID) {
		return ErrNotFound
	}

	if existing.UserID != userID {
		return ErrForbidden
	}

	return s.repo.DeleteWallet(ctx, id, s.now())
}

// Get returns an active wallet visible to userID.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Wallet, error) {
	w, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}

	if w.IsDeleted() || !w.CanRead(userID) {
		return nil, ErrNotFound
	}

	return w, nil
}

// List returns every wallet the user can see, tombstones included, so that
// deletions propagate to other devices.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Wallet, error) {
	return s.repo.ListWallets(ctx, userID)
}

// ListByUser pages through the active wallets of userID. A session may only list its own wallets.
func (s *Service) ListByUser(ctx context.Context, sessionUserID, userID uuid.UUID, page, perPage int) (*Page, error) {
	if sessionUserID != userID {
		return nil, ErrForbidden
	}

	if page < 1 {
		page = 1
	}

	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	wallets, total, err := s.repo.ListActiveWallets(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}

	return &Page{
		Wallets: wallets,
		Total:   total,
		Page:    page,
		HasMore: page*perPage < total,
	}, nil
}

// SetDefault flags id as the user's default wallet and clears the flag on the others.
func (s *Service) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if w.UserID != userID {
		return ErrForbidden
	}

	return s.repo.SetDefault(ctx, userID, id, s.now())
}

// Authorize checks that userID may read (or write, when write is set) the wallet's transactions.
func (s *Service) Authorize(ctx context.Context, userID, walletID uuid.UUID, write bool) error {
	w, err := s.Get(ctx, userID, walletID)
	if err != nil {
		return err
	}

	if write && !w.CanWrite(userID) {
		return ErrForbidden
	}

	return nil
}

func (s *Service) prepare(w *Wallet, owner uuid.UUID) {
	now := s.now()

	w.UserID = owner
	w.Normalize()
	w.NeedsSync = false

	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}

	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = now
	}

	w.CreatedAt = record.Truncate(w.CreatedAt)
	w.UpdatedAt = record.Truncate(w.UpdatedAt)
	w.EnsureOwnerMember(w.CreatedAt)
}
