package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

func (s *Store) wallets(ctx context.Context) []*wallet.Wallet {
	return loadOrEmpty[[]*wallet.Wallet](ctx, s.kv, keyWallets)
}

// SaveWallet upserts w as a local mutation and marks it dirty.
func (s *Store) SaveWallet(ctx context.Context, w *wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := readJSON[[]*wallet.Wallet](ctx, s.kv, keyWallets)
	if err != nil {
		return fmt.Errorf("loading wallets: %w", err)
	}

	w.Normalize()
	w.DeletedAt = nil

	i, existing := find(list, w.ID)

	var prev *record.Meta
	if existing != nil {
		prev = &existing.Meta
		w.CreatedAt = existing.CreatedAt
	} else {
		w.CreatedAt = time.Time{}
	}

	w.Touch(s.nextVersion(prev))

	stored := *w
	if i >= 0 {
		list[i] = &stored
	} else {
		list = append(list, &stored)
	}

	return writeJSON(ctx, s.kv, keyWallets, list)
}

// GetWallet returns the wallet unless it is missing or soft-deleted.
func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) *wallet.Wallet {
	w := s.GetWalletIncludingDeleted(ctx, id)
	if w == nil || w.IsDeleted() {
		return nil
	}

	return w
}

func (s *Store) GetWalletIncludingDeleted(ctx context.Context, id uuid.UUID) *wallet.Wallet {
	_, w := find(s.wallets(ctx), id)
	return w
}

// GetAllWallets returns the active wallets in stored order.
func (s *Store) GetAllWallets(ctx context.Context) []*wallet.Wallet {
	return active(s.wallets(ctx))
}

func (s *Store) SoftDeleteWallet(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := readJSON[[]*wallet.Wallet](ctx, s.kv, keyWallets)
	if err != nil {
		return fmt.Errorf("loading wallets: %w", err)
	}

	_, w := find(list, id)
	if w == nil || w.IsDeleted() {
		return ErrNotFound
	}

	w.Tombstone(s.nextVersion(&w.Meta))

	return writeJSON(ctx, s.kv, keyWallets, list)
}

// GetWalletsNeedingSync returns dirty wallets, tombstones included.
func (s *Store) GetWalletsNeedingSync(ctx context.Context) []*wallet.Wallet {
	return dirty(s.wallets(ctx))
}

// MarkWalletSynced clears the dirty flag if the stored wallet is still at version.
func (s *Store) MarkWalletSynced(ctx context.Context, id uuid.UUID, version time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := readJSON[[]*wallet.Wallet](ctx, s.kv, keyWallets)
	if err != nil {
		return fmt.Errorf("loading wallets: %w", err)
	}

	if markSynced(list, map[uuid.UUID]time.Time{id: version}) == 0 {
		return nil
	}

	return writeJSON(ctx, s.kv, keyWallets, list)
}

// SaveRemoteWallets merges wallets fetched from the backend. A remote wallet replaces
// the local copy only when it is strictly newer or the wallet is unknown locally.
// It returns the number of wallets written.
func (s *Store) SaveRemoteWallets(ctx context.Context, remote []*wallet.Wallet) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := readJSON[[]*wallet.Wallet](ctx, s.kv, keyWallets)
	if err != nil {
		return 0, fmt.Errorf("loading wallets: %w", err)
	}

	applied := 0

	for _, r := range remote {
		i, local := find(list, r.ID)

		var localMeta *record.Meta
		if local != nil {
			localMeta = &local.Meta
		}

		if !record.StrictlyNewer(&r.Meta, localMeta) {
			continue
		}

		w := *r
		w.Normalize()
		w.NeedsSync = false

		if i >= 0 {
			list[i] = &w
		} else {
			list = append(list, &w)
		}

		applied++
	}

	if applied == 0 {
		return 0, nil
	}

	return applied, writeJSON(ctx, s.kv, keyWallets, list)
}

// CurrentWalletID returns the active wallet selection, or uuid.Nil when none is set.
func (s *Store) CurrentWalletID(ctx context.Context) uuid.UUID {
	return loadOrEmpty[uuid.UUID](ctx, s.kv, keyCurrentWallet)
}

// SetCurrentWalletID stores the selection. uuid.Nil clears it.
func (s *Store) SetCurrentWalletID(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return s.kv.Delete(ctx, keyCurrentWallet)
	}

	return writeJSON(ctx, s.kv, keyCurrentWallet, id)
}
