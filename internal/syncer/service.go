// Package syncer reconciles the local store with the backend. It is the only
// component that reads dirty flags.
//
// A cycle pushes dirty records first and pulls remote changes second. Any failed
// network call leaves the local dirty flags untouched; the caller simply runs the
// cycle again later.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/remote"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

var ErrSyncInProgress = errors.New("sync already in progress")

// LocalStore is the part of the local store the sync service drives.
type LocalStore interface {
	GetAllWallets(ctx context.Context) []*wallet.Wallet
	GetWalletsNeedingSync(ctx context.Context) []*wallet.Wallet
	MarkWalletSynced(ctx context.Context, id uuid.UUID, version time.Time) error
	SaveRemoteWallets(ctx context.Context, wallets []*wallet.Wallet) (int, error)

	GetTransactionsNeedingSync(ctx context.Context, walletID uuid.UUID) []*transaction.Transaction
	MarkTransactionsSynced(ctx context.Context, walletID uuid.UUID, versions map[uuid.UUID]time.Time) (int, error)
	BulkSave(ctx context.Context, walletID uuid.UUID, records []*transaction.Transaction) (int, error)
	PurgeTombstones(ctx context.Context, walletID uuid.UUID, before time.Time) (int, error)

	LastSyncTimestamp(ctx context.Context, walletID uuid.UUID) *time.Time
	SetLastSyncTimestamp(ctx context.Context, walletID uuid.UUID, ts time.Time) error
}

// Report counts what one sync call moved.
type Report struct {
	Pushed       int
	Acknowledged int
	Pulled       int
	Applied      int
}

func (r *Report) add(o Report) {
	r.Pushed += o.Pushed
	r.Acknowledged += o.Acknowledged
	r.Pulled += o.Pulled
	r.Applied += o.Applied
}

type Status struct {
	PendingUploads int
	PendingDeletes int
	LastSyncAt     *time.Time
}

type Service struct {
	local        LocalStore
	wallets      remote.WalletRepository
	transactions remote.TransactionRepository

	retention time.Duration
	now       func() time.Time

	running atomic.Bool
}

type Option func(*Service)

// WithTombstoneRetention purges acknowledged tombstones older than d after each
// successful transaction sync. Zero keeps tombstones forever.
func WithTombstoneRetention(d time.Duration) Option {
	return func(s *Service) { s.retention = d }
}

func NewService(local LocalStore, wallets remote.WalletRepository, transactions remote.TransactionRepository, opts ...Option) *Service {
	s := &Service{
		local:        local,
		wallets:      wallets,
		transactions: transactions,
		now:          record.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SyncTransactions pushes the wallet's dirty transactions, then pulls changes newer
// than the wallet's watermark.
func (s *Service) SyncTransactions(ctx context.Context, walletID uuid.UUID) (Report, error) {
	var rep Report

	if dirty := s.local.GetTransactionsNeedingSync(ctx, walletID); len(dirty) > 0 {
		// versions are captured before the network call; edits made while the push is
		// in flight carry a newer updatedAt and stay dirty
		versions := make(map[uuid.UUID]time.Time, len(dirty))
		for _, tx := range dirty {
			versions[tx.ID] = tx.UpdatedAt
		}

		rep.Pushed = len(dirty)

		acked, err := s.transactions.SyncToRemote(ctx, walletID, dirty)
		if err != nil {
			return rep, fmt.Errorf("pushing transactions: %w", err)
		}

		ackVersions := make(map[uuid.UUID]time.Time, len(acked))

		for _, tx := range acked {
			if v, ok := versions[tx.ID]; ok {
				ackVersions[tx.ID] = v
			}
		}

		cleared, err := s.local.MarkTransactionsSynced(ctx, walletID, ackVersions)
		if err != nil {
			return rep, fmt.Errorf("marking transactions synced: %w", err)
		}

		rep.Acknowledged = cleared
	}

	since := s.local.LastSyncTimestamp(ctx, walletID)

	changes, err := s.transactions.FetchFromRemote(ctx, walletID, since)
	if err != nil {
		return rep, fmt.Errorf("pulling transactions: %w", err)
	}

	rep.Pulled = len(changes)

	if len(changes) > 0 {
		applied, err := s.local.BulkSave(ctx, walletID, changes)
		if err != nil {
			return rep, fmt.Errorf("saving pulled transactions: %w", err)
		}

		rep.Applied = applied

		watermark := changes[0].UpdatedAt
		for _, tx := range changes[1:] {
			if tx.UpdatedAt.After(watermark) {
				watermark = tx.UpdatedAt
			}
		}

		if err := s.local.SetLastSyncTimestamp(ctx, walletID, watermark); err != nil {
			return rep, fmt.Errorf("advancing watermark: %w", err)
		}
	}

	if s.retention > 0 {
		purged, err := s.local.PurgeTombstones(ctx, walletID, s.now().Add(-s.retention))
		if err != nil {
			slog.Warn("purging tombstones", "wallet_id", walletID, "error", err)
		} else if purged > 0 {
			slog.Debug("purged tombstones", "wallet_id", walletID, "count", purged)
		}
	}

	slog.Info("transactions synced", "wallet_id", walletID,
		"pushed", rep.Pushed, "acknowledged", rep.Acknowledged, "pulled", rep.Pulled, "applied", rep.Applied)

	return rep, nil
}

// SyncWallets pushes each dirty wallet (delete for tombstones, upsert otherwise) and
// then reconciles against the full remote wallet set.
func (s *Service) SyncWallets(ctx context.Context) (Report, error) {
	var (
		rep  Report
		errs []error
	)

	for _, w := range s.local.GetWalletsNeedingSync(ctx) {
		rep.Pushed++
		version := w.UpdatedAt

		var err error

		if w.IsDeleted() {
			err = s.wallets.Delete(ctx, w.ID)
			// never reached the backend, nothing to delete there
			if remote.CodeOf(err) == remote.CodeNotFound {
				err = nil
			}
		} else {
			_, err = s.wallets.Update(ctx, w.ID, w)
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("pushing wallet %s: %w", w.ID, err))
			continue
		}

		if err := s.local.MarkWalletSynced(ctx, w.ID, version); err != nil {
			errs = append(errs, fmt.Errorf("marking wallet %s synced: %w", w.ID, err))
			continue
		}

		rep.Acknowledged++
	}

	// a rejected push must not block the pull; the merge keeps local edits newer
	// than the remote copy, so the failed wallet stays dirty for the next cycle
	all, err := s.wallets.GetAll(ctx)
	if err != nil {
		return rep, errors.Join(append(errs, fmt.Errorf("pulling wallets: %w", err))...)
	}

	rep.Pulled = len(all)

	applied, err := s.local.SaveRemoteWallets(ctx, all)
	if err != nil {
		return rep, errors.Join(append(errs, fmt.Errorf("saving pulled wallets: %w", err))...)
	}

	rep.Applied = applied

	slog.Info("wallets synced",
		"pushed", rep.Pushed, "acknowledged", rep.Acknowledged, "pulled", rep.Pulled, "applied", rep.Applied)

	return rep, errors.Join(errs...)
}

// SyncAll syncs wallets and then the transactions of every active wallet, one wallet
// at a time. A failure in one step does not stop the others; all errors are joined.
// Overlapping calls fail fast with ErrSyncInProgress.
func (s *Service) SyncAll(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	var errs []error

	rep, err := s.SyncWallets(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("syncing wallets: %w", err))
	}

	for _, w := range s.local.GetAllWallets(ctx) {
		r, err := s.SyncTransactions(ctx, w.ID)
		rep.add(r)

		if err != nil {
			errs = append(errs, fmt.Errorf("syncing transactions of wallet %s: %w", w.ID, err))
		}
	}

	return rep, errors.Join(errs...)
}

// GetSyncStatus summarizes what is waiting to be pushed for walletID.
func (s *Service) GetSyncStatus(ctx context.Context, walletID uuid.UUID) Status {
	st := Status{LastSyncAt: s.local.LastSyncTimestamp(ctx, walletID)}

	for _, tx := range s.local.GetTransactionsNeedingSync(ctx, walletID) {
		if tx.IsDeleted() {
			st.PendingDeletes++
		} else {
			st.PendingUploads++
		}
	}

	return st
}
