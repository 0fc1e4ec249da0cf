package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/walletsync/internal/remote"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

type WalletState struct {
	Wallets []*wallet.Wallet
	Current *wallet.Wallet
	Loading bool
	Err     error
}

// WalletAction is one of the actions accepted by ReduceWallet.
type WalletAction interface {
	walletAction()
}

type (
	SetLoading struct{ Loading bool }
	SetError   struct{ Err error }

	SetWallets struct {
		Wallets   []*wallet.Wallet
		CurrentID uuid.UUID
	}
	AddWallet    struct{ Wallet *wallet.Wallet }
	UpdateWallet struct{ Wallet *wallet.Wallet }
	RemoveWallet struct{ ID uuid.UUID }
	SetCurrent   struct{ ID uuid.UUID }
)

func (SetLoading) walletAction()   {}
func (SetError) walletAction()     {}
func (SetWallets) walletAction()   {}
func (AddWallet) walletAction()    {}
func (UpdateWallet) walletAction() {}
func (RemoveWallet) walletAction() {}
func (SetCurrent) walletAction()   {}

// ReduceWallet is the wallet state machine. Current always points into Wallets or is nil.
func ReduceWallet(s WalletState, a WalletAction) WalletState {
	switch a := a.(type) {
	case SetLoading:
		s.Loading = a.Loading
	case SetError:
		s.Err = a.Err
		s.Loading = false
	case SetWallets:
		s.Wallets = slices.Clone(a.Wallets)
		s.Current = findWallet(s.Wallets, a.CurrentID)
		s.Loading = false
		s.Err = nil
	case AddWallet:
		s.Wallets = append(slices.Clone(s.Wallets), a.Wallet)
	case UpdateWallet:
		i := slices.IndexFunc(s.Wallets, func(w *wallet.Wallet) bool { return w.ID == a.Wallet.ID })
		if i < 0 {
			return s
		}

		s.Wallets = slices.Clone(s.Wallets)
		s.Wallets[i] = a.Wallet

		if s.Current != nil && s.Current.ID == a.Wallet.ID {
			s.Current = a.Wallet
		}
	case RemoveWallet:
		s.Wallets = slices.DeleteFunc(slices.Clone(s.Wallets), func(w *wallet.Wallet) bool { return w.ID == a.ID })

		if s.Current != nil && s.Current.ID == a.ID {
			s.Current = nil
		}
	case SetCurrent:
		s.Current = findWallet(s.Wallets, a.ID)
	}

	return s
}

func findWallet(list []*wallet.Wallet, id uuid.UUID) *wallet.Wallet {
	for _, w := range list {
		if w.ID == id {
			return w
		}
	}

	return nil
}

// pickCurrent is the fallback selection: the most recently flagged default, else
// the first wallet, else none.
func pickCurrent(list []*wallet.Wallet) *wallet.Wallet {
	var pick *wallet.Wallet

	for _, w := range list {
		if w.IsDefault && (pick == nil || w.UpdatedAt.After(pick.UpdatedAt)) {
			pick = w
		}
	}

	if pick == nil && len(list) > 0 {
		pick = list[0]
	}

	return pick
}

// WalletLocal is the part of the local store the wallet context writes through.
type WalletLocal interface {
	GetAllWallets(ctx context.Context) []*wallet.Wallet
	GetWallet(ctx context.Context, id uuid.UUID) *wallet.Wallet
	SaveWallet(ctx context.Context, w *wallet.Wallet) error
	SoftDeleteWallet(ctx context.Context, id uuid.UUID) error
	MarkWalletSynced(ctx context.Context, id uuid.UUID, version time.Time) error
	CurrentWalletID(ctx context.Context) uuid.UUID
	SetCurrentWalletID(ctx context.Context, id uuid.UUID) error
	CurrentUserID(ctx context.Context) uuid.UUID
}

// SyncTrigger is kicked after every local mutation.
type SyncTrigger interface {
	Trigger()
}

type WalletContext struct {
	store   *Store[WalletState, WalletAction]
	local   WalletLocal
	remote  remote.WalletRepository
	trigger SyncTrigger

	pending sync.WaitGroup
}

// NewWalletContext builds a wallet context. remoteRepo and trigger may be nil, in
// which case the context works purely against the local store.
func NewWalletContext(local WalletLocal, remoteRepo remote.WalletRepository, trigger SyncTrigger) *WalletContext {
	return &WalletContext{
		store:   NewStore(ReduceWallet, WalletState{}),
		local:   local,
		remote:  remoteRepo,
		trigger: trigger,
	}
}

func (c *WalletContext) State() WalletState { return c.store.State() }

func (c *WalletContext) Subscribe(fn func(WalletState)) func() { return c.store.Subscribe(fn) }

// Load projects the local wallets into the model. When the stored current wallet no
// longer exists, a new one is selected and persisted.
func (c *WalletContext) Load(ctx context.Context) {
	c.store.Dispatch(SetLoading{Loading: true})
	c.reload(ctx)
}

// Refresh reloads the model from the local store, typically after a sync run.
func (c *WalletContext) Refresh(ctx context.Context) {
	c.reload(ctx)
}

func (c *WalletContext) reload(ctx context.Context) {
	wallets := c.local.GetAllWallets(ctx)

	currentID := c.local.CurrentWalletID(ctx)
	if findWallet(wallets, currentID) == nil {
		currentID = uuid.Nil
		if pick := pickCurrent(wallets); pick != nil {
			currentID = pick.ID
		}

		if err := c.local.SetCurrentWalletID(ctx, currentID); err != nil {
			slog.Warn("persisting current wallet", "error", err)
		}
	}

	c.store.Dispatch(SetWallets{Wallets: wallets, CurrentID: currentID})
}

// CreateWallet stores w locally with a client-side id and returns immediately. The
// first wallet becomes the default and the current one. When a remote repository is
// configured the wallet is also created remotely in the background.
func (c *WalletContext) CreateWallet(ctx context.Context, w *wallet.Wallet) (*wallet.Wallet, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	if w.Type == "" {
		w.Type = wallet.TypePersonal
	}

	if err := w.Validate(); err != nil {
		return nil, c.fail(err)
	}

	w.UserID = c.local.CurrentUserID(ctx)
	w.DeletedAt = nil

	// the store, not the model, decides: the model may not be loaded yet
	first := len(c.local.GetAllWallets(ctx)) == 0
	if first {
		w.IsDefault = true
	}

	if w.IsDefault && !first {
		if err := c.clearDefaults(ctx, w.ID); err != nil {
			return nil, c.fail(err)
		}
	}

	if err := c.local.SaveWallet(ctx, w); err != nil {
		return nil, c.fail(fmt.Errorf("saving wallet: %w", err))
	}

	created := *w
	c.store.Dispatch(AddWallet{Wallet: &created})

	if first || c.local.GetWallet(ctx, c.local.CurrentWalletID(ctx)) == nil {
		if err := c.local.SetCurrentWalletID(ctx, created.ID); err != nil {
			slog.Warn("persisting current wallet", "wallet_id", created.ID, "error", err)
		}

		c.store.Dispatch(SetCurrent{ID: created.ID})
	}

	if c.remote != nil {
		c.createRemote(context.WithoutCancel(ctx), created)
	} else {
		c.kick()
	}

	return &created, nil
}

func (c *WalletContext) createRemote(ctx context.Context, w wallet.Wallet) {
	version := w.UpdatedAt

	c.pending.Go(func() {
		if _, err := c.remote.Create(ctx, &w); err != nil {
			// the sync service pushes it later
			slog.Warn("creating wallet remotely", "wallet_id", w.ID, "error", err)
			return
		}

		if err := c.local.MarkWalletSynced(ctx, w.ID, version); err != nil {
			slog.Warn("marking wallet synced", "wallet_id", w.ID, "error", err)
		}
	})
}

// Wait blocks until background remote calls started by the context have finished.
func (c *WalletContext) Wait() {
	c.pending.Wait()
}

func (c *WalletContext) UpdateWallet(ctx context.Context, w *wallet.Wallet) error {
	existing := c.local.GetWallet(ctx, w.ID)
	if existing == nil {
		return c.fail(wallet.ErrNotFound)
	}

	if err := c.authorize(ctx, existing); err != nil {
		return err
	}

	if err := w.Validate(); err != nil {
		return c.fail(err)
	}

	w.UserID = existing.UserID
	w.DeletedAt = nil

	if w.IsDefault && !existing.IsDefault {
		if err := c.clearDefaults(ctx, w.ID); err != nil {
			return c.fail(err)
		}
	}

	if err := c.local.SaveWallet(ctx, w); err != nil {
		return c.fail(fmt.Errorf("saving wallet: %w", err))
	}

	updated := *w
	c.store.Dispatch(UpdateWallet{Wallet: &updated})
	c.kick()

	return nil
}

// SetDefault flags id as the default wallet and clears the flag everywhere else.
func (c *WalletContext) SetDefault(ctx context.Context, id uuid.UUID) error {
	target := c.local.GetWallet(ctx, id)
	if target == nil {
		return c.fail(wallet.ErrNotFound)
	}

	if err := c.clearDefaults(ctx, id); err != nil {
		return c.fail(err)
	}

	if !target.IsDefault {
		target.IsDefault = true

		if err := c.local.SaveWallet(ctx, target); err != nil {
			return c.fail(fmt.Errorf("saving wallet: %w", err))
		}

		c.store.Dispatch(UpdateWallet{Wallet: target})
	}

	c.kick()

	return nil
}

func (c *WalletContext) clearDefaults(ctx context.Context, keep uuid.UUID) error {
	for _, w := range c.local.GetAllWallets(ctx) {
		if w.ID == keep || !w.IsDefault {
			continue
		}

		w.IsDefault = false

		if err := c.local.SaveWallet(ctx, w); err != nil {
			return fmt.Errorf("clearing default on wallet %s: %w", w.ID, err)
		}

		c.store.Dispatch(UpdateWallet{Wallet: w})
	}

	return nil
}

// SwitchWallet changes the active wallet. It never touches the network.
func (c *WalletContext) SwitchWallet(ctx context.Context, id uuid.UUID) error {
	if c.local.GetWallet(ctx, id) == nil {
		return c.fail(wallet.ErrNotFound)
	}

	if err := c.local.SetCurrentWalletID(ctx, id); err != nil {
		return c.fail(fmt.Errorf("saving current wallet: %w", err))
	}

	c.store.Dispatch(SetCurrent{ID: id})

	return nil
}

// DeleteWallet tombstones the wallet. If it was current, another one is selected.
func (c *WalletContext) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	if existing := c.local.GetWallet(ctx, id); existing != nil {
		if err := c.authorize(ctx, existing); err != nil {
			return err
		}
	}

	if err := c.local.SoftDeleteWallet(ctx, id); err != nil {
		return c.fail(fmt.Errorf("deleting wallet: %w", err))
	}

	wasCurrent := c.State().Current != nil && c.State().Current.ID == id

	c.store.Dispatch(RemoveWallet{ID: id})

	if wasCurrent {
		next := uuid.Nil
		if pick := pickCurrent(c.State().Wallets); pick != nil {
			next = pick.ID
		}

		if err := c.local.SetCurrentWalletID(ctx, next); err != nil {
			slog.Warn("persisting current wallet", "error", err)
		}

		c.store.Dispatch(SetCurrent{ID: next})
	}

	c.kick()

	return nil
}

// authorize rejects changes the backend would refuse forever: only the owner or an
// admin member may change a shared wallet.
func (c *WalletContext) authorize(ctx context.Context, w *wallet.Wallet) error {
	if !w.CanManage(c.local.CurrentUserID(ctx)) {
		return c.fail(wallet.ErrForbidden)
	}

	return nil
}

func (c *WalletContext) fail(err error) error {
	c.store.Dispatch(SetError{Err: err})
	return err
}

func (c *WalletContext) kick() {
	if c.trigger != nil {
		c.trigger.Trigger()
	}
}
