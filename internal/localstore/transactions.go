package localstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
)

func (s *Store) transactions(ctx context.Context, walletID uuid.UUID) []*transaction.Transaction {
	return loadOrEmpty[[]*transaction.Transaction](ctx, s.kv, transactionsKey(walletID))
}

func (s *Store) loadTransactions(ctx context.Context, walletID uuid.UUID) ([]*transaction.Transaction, error) {
	list, err := readJSON[[]*transaction.Transaction](ctx, s.kv, transactionsKey(walletID))
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	return list, nil
}

// SaveTransaction upserts tx into walletID as a local mutation and marks it dirty.
// The saved record is always live, whatever DeletedAt the caller passed.
func (s *Store) SaveTransaction(ctx context.Context, walletID uuid.UUID, tx *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadTransactions(ctx, walletID)
	if err != nil {
		return err
	}

	tx.WalletID = walletID
	// tombstones come only from SoftDeleteTransaction and BulkSave
	tx.DeletedAt = nil

	i, existing := find(list, tx.ID)

	var prev *record.Meta
	if existing != nil {
		prev = &existing.Meta
		tx.CreatedAt = existing.CreatedAt
	} else {
		tx.CreatedAt = time.Time{}
	}

	tx.Touch(s.nextVersion(prev))

	stored := *tx
	if i >= 0 {
		list[i] = &stored
	} else {
		list = append(list, &stored)
	}

	return writeJSON(ctx, s.kv, transactionsKey(walletID), list)
}

// GetTransaction returns the transaction unless it is missing or soft-deleted.
func (s *Store) GetTransaction(ctx context.Context, walletID, id uuid.UUID) *transaction.Transaction {
	_, tx := find(s.transactions(ctx, walletID), id)
	if tx == nil || tx.IsDeleted() {
		return nil
	}

	return tx
}

func (s *Store) GetAllTransactions(ctx context.Context, walletID uuid.UUID, includeDeleted bool) []*transaction.Transaction {
	list := s.transactions(ctx, walletID)
	if includeDeleted {
		return list
	}

	return active(list)
}

func (s *Store) SoftDeleteTransaction(ctx context.Context, walletID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadTransactions(ctx, walletID)
	if err != nil {
		return err
	}

	_, tx := find(list, id)
	if tx == nil || tx.IsDeleted() {
		return ErrNotFound
	}

	tx.Tombstone(s.nextVersion(&tx.Meta))

	return writeJSON(ctx, s.kv, transactionsKey(walletID), list)
}

// GetTransactionsNeedingSync returns the dirty transactions of walletID, tombstones included.
func (s *Store) GetTransactionsNeedingSync(ctx context.Context, walletID uuid.UUID) []*transaction.Transaction {
	return dirty(s.transactions(ctx, walletID))
}

func (s *Store) MarkTransactionSynced(ctx context.Context, walletID, id uuid.UUID, version time.Time) error {
	_, err := s.MarkTransactionsSynced(ctx, walletID, map[uuid.UUID]time.Time{id: version})
	return err
}

// MarkTransactionsSynced clears the dirty flag of each listed transaction whose stored
// version is not newer than the acknowledged one. A record edited after it was read
// for push stays dirty.
func (s *Store) MarkTransactionsSynced(ctx context.Context, walletID uuid.UUID, versions map[uuid.UUID]time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadTransactions(ctx, walletID)
	if err != nil {
		return 0, err
	}

	cleared := markSynced(list, versions)
	if cleared == 0 {
		return 0, nil
	}

	return cleared, writeJSON(ctx, s.kv, transactionsKey(walletID), list)
}

// BulkSave merges records pulled from the backend with last-writer-wins; ties go to
// the remote copy. Written records are clean. It returns the number written.
func (s *Store) BulkSave(ctx context.Context, walletID uuid.UUID, records []*transaction.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadTransactions(ctx, walletID)
	if err != nil {
		return 0, err
	}

	applied := 0

	for _, r := range records {
		i, local := find(list, r.ID)

		var localMeta *record.Meta
		if local != nil {
			localMeta = &local.Meta
		}

		if !record.RemoteWins(localMeta, &r.Meta) {
			continue
		}

		tx := *r
		tx.WalletID = walletID
		tx.NeedsSync = false

		if i >= 0 {
			list[i] = &tx
		} else {
			list = append(list, &tx)
		}

		applied++
	}

	if applied == 0 {
		return 0, nil
	}

	return applied, writeJSON(ctx, s.kv, transactionsKey(walletID), list)
}

// PurgeTombstones physically removes acknowledged tombstones deleted before cutoff.
// Dirty tombstones are kept until their deletion has reached the backend.
func (s *Store) PurgeTombstones(ctx context.Context, walletID uuid.UUID, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadTransactions(ctx, walletID)
	if err != nil {
		return 0, err
	}

	n := len(list)
	list = slices.DeleteFunc(list, func(tx *transaction.Transaction) bool {
		return tx.IsDeleted() && !tx.NeedsSync && tx.DeletedAt.Before(before)
	})

	purged := n - len(list)
	if purged == 0 {
		return 0, nil
	}

	return purged, writeJSON(ctx, s.kv, transactionsKey(walletID), list)
}
