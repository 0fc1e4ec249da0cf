package state_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
	"github.com/MrJamesThe3rd/walletsync/internal/localstore"
	"github.com/MrJamesThe3rd/walletsync/internal/record"
	"github.com/MrJamesThe3rd/walletsync/internal/remote"
	"github.com/MrJamesThe3rd/walletsync/internal/state"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) Trigger() { c.n.Add(1) }

func newLocal(t *testing.T) *localstore.Store {
	t.Helper()

	kv, err := localstore.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	return localstore.New(kv)
}

func walletAt(name string, isDefault bool, updated time.Time) *wallet.Wallet {
	return &wallet.Wallet{
		Meta:      record.Meta{ID: uuid.New(), CreatedAt: updated, UpdatedAt: updated},
		Name:      name,
		Type:      wallet.TypePersonal,
		Currency:  "EUR",
		IsDefault: isDefault,
	}
}

func TestReduceWallet(t *testing.T) {
	a := walletAt("A", true, time.Time{})
	b := walletAt("B", false, time.Time{})

	tests := []struct {
		name    string
		initial state.WalletState
		action  state.WalletAction
		check   func(t *testing.T, s state.WalletState)
	}{
		{
			name:    "set wallets selects current",
			initial: state.WalletState{Loading: true},
			action:  state.SetWallets{Wallets: []*wallet.Wallet{a, b}, CurrentID: b.ID},
			check: func(t *testing.T, s state.WalletState) {
				assert.Len(t, s.Wallets, 2)
				assert.Equal(t, b, s.Current)
				assert.False(t, s.Loading)
			},
		},
		{
			name:    "unknown current id clears selection",
			initial: state.WalletState{Wallets: []*wallet.Wallet{a}, Current: a},
			action:  state.SetCurrent{ID: uuid.New()},
			check: func(t *testing.T, s state.WalletState) {
				assert.Nil(t, s.Current)
			},
		},
		{
			name:    "remove current wallet",
			initial: state.WalletState{Wallets: []*wallet.Wallet{a, b}, Current: a},
			action:  state.RemoveWallet{ID: a.ID},
			check: func(t *testing.T, s state.WalletState) {
				assert.Equal(t, []*wallet.Wallet{b}, s.Wallets)
				assert.Nil(t, s.Current)
			},
		},
		{
			name:    "update replaces current",
			initial: state.WalletState{Wallets: []*wallet.Wallet{a}, Current: a},
			action:  state.UpdateWallet{Wallet: &wallet.Wallet{Meta: a.Meta, Name: "A2"}},
			check: func(t *testing.T, s state.WalletState) {
				assert.Equal(t, "A2", s.Current.Name)
				assert.Equal(t, "A2", s.Wallets[0].Name)
			},
		},
		{
			name:    "update of unknown wallet is ignored",
			initial: state.WalletState{Wallets: []*wallet.Wallet{a}},
			action:  state.UpdateWallet{Wallet: b},
			check: func(t *testing.T, s state.WalletState) {
				assert.Equal(t, []*wallet.Wallet{a}, s.Wallets)
			},
		},
		{
			name:    "error stops loading",
			initial: state.WalletState{Loading: true},
			action:  state.SetError{Err: wallet.ErrNotFound},
			check: func(t *testing.T, s state.WalletState) {
				assert.False(t, s.Loading)
				assert.ErrorIs(t, s.Err, wallet.ErrNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]*wallet.Wallet(nil), tt.initial.Wallets...)

			tt.check(t, state.ReduceWallet(tt.initial, tt.action))
			assert.Equal(t, before, tt.initial.Wallets, "reducer must not modify its input")
		})
	}
}

func TestWalletContext_CreateFirstWallet(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	trigger := &countingTrigger{}

	wc := state.NewWalletContext(local, nil, trigger)
	wc.Load(ctx)

	w, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "Main", Currency: "EUR"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.True(t, w.IsDefault)
	assert.Equal(t, wallet.TypePersonal, w.Type)

	st := wc.State()
	require.NotNil(t, st.Current)
	assert.Equal(t, w.ID, st.Current.ID)
	assert.Equal(t, w.ID, local.CurrentWalletID(ctx))

	stored := local.GetAllWallets(ctx)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].NeedsSync)
	assert.Equal(t, int32(1), trigger.n.Load())

	second, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "Side", Currency: "EUR"})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
	assert.Equal(t, w.ID, wc.State().Current.ID, "current wallet is kept")
}

func TestWalletContext_CreateWallet_RemoteInBackground(t *testing.T) {
	t.Run("Acknowledged", func(t *testing.T) {
		ctx := context.Background()
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		local := newLocal(t)
		repo := remote.NewMockWalletRepository(ctrl)

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, w *wallet.Wallet) (*wallet.Wallet, error) { return w, nil })

		wc := state.NewWalletContext(local, repo, nil)
		w, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "Main", Currency: "EUR"})
		require.NoError(t, err)

		wc.Wait()

		assert.False(t, local.GetWallet(ctx, w.ID).NeedsSync)
	})

	t.Run("Offline", func(t *testing.T) {
		ctx := context.Background()
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		local := newLocal(t)
		repo := remote.NewMockWalletRepository(ctrl)

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, remote.NewError(remote.CodeNetwork, "offline"))

		wc := state.NewWalletContext(local, repo, nil)
		w, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "Main", Currency: "EUR"})
		require.NoError(t, err, "the caller never waits on the network")

		wc.Wait()

		assert.True(t, local.GetWallet(ctx, w.ID).NeedsSync)
		assert.Len(t, wc.State().Wallets, 1)
	})
}

func TestWalletContext_SetDefaultKeepsSingleDefault(t *testing.T) {
	ctx := context.Background()
	wc := state.NewWalletContext(newLocal(t), nil, nil)

	a, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "A", Currency: "EUR"})
	require.NoError(t, err)
	b, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "B", Currency: "EUR"})
	require.NoError(t, err)
	c, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "C", Currency: "EUR", IsDefault: true})
	require.NoError(t, err)

	require.NoError(t, wc.SetDefault(ctx, b.ID))

	defaults := map[uuid.UUID]bool{}
	for _, w := range wc.State().Wallets {
		defaults[w.ID] = w.IsDefault
	}

	assert.Equal(t, map[uuid.UUID]bool{a.ID: false, b.ID: true, c.ID: false}, defaults)
	assert.ErrorIs(t, wc.SetDefault(ctx, uuid.New()), wallet.ErrNotFound)
}

func TestWalletContext_SwitchWallet(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	wc := state.NewWalletContext(local, nil, nil)

	_, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "A", Currency: "EUR"})
	require.NoError(t, err)
	b, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "B", Currency: "EUR"})
	require.NoError(t, err)

	dirtyBefore := len(local.GetWalletsNeedingSync(ctx))

	require.NoError(t, wc.SwitchWallet(ctx, b.ID))
	assert.Equal(t, b.ID, wc.State().Current.ID)
	assert.Equal(t, b.ID, local.CurrentWalletID(ctx))
	assert.Len(t, local.GetWalletsNeedingSync(ctx), dirtyBefore, "switching is not a wallet mutation")

	err = wc.SwitchWallet(ctx, uuid.New())
	assert.ErrorIs(t, err, wallet.ErrNotFound)
	assert.ErrorIs(t, wc.State().Err, wallet.ErrNotFound)
}

func TestWalletContext_DeleteReselectsCurrent(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := walletAt("Older default", true, base)
	newer := walletAt("Newer default", true, base.Add(time.Hour))
	plain := walletAt("Plain", false, base.Add(2*time.Hour))

	_, err := local.SaveRemoteWallets(ctx, []*wallet.Wallet{older, newer, plain})
	require.NoError(t, err)
	require.NoError(t, local.SetCurrentWalletID(ctx, plain.ID))

	wc := state.NewWalletContext(local, nil, nil)
	wc.Load(ctx)
	require.Equal(t, plain.ID, wc.State().Current.ID)

	require.NoError(t, wc.DeleteWallet(ctx, plain.ID))
	assert.Equal(t, newer.ID, wc.State().Current.ID)

	require.NoError(t, wc.DeleteWallet(ctx, newer.ID))
	assert.Equal(t, older.ID, wc.State().Current.ID)
	assert.Equal(t, older.ID, local.CurrentWalletID(ctx))

	require.NoError(t, wc.DeleteWallet(ctx, older.ID))
	assert.Nil(t, wc.State().Current)
	assert.Equal(t, uuid.Nil, local.CurrentWalletID(ctx))

	assert.ErrorIs(t, wc.DeleteWallet(ctx, older.ID), localstore.ErrNotFound)
}

func TestWalletContext_LoadRepairsStaleSelection(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)

	w := walletAt("Only", false, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err := local.SaveRemoteWallets(ctx, []*wallet.Wallet{w})
	require.NoError(t, err)
	require.NoError(t, local.SetCurrentWalletID(ctx, uuid.New()))

	wc := state.NewWalletContext(local, nil, nil)

	var notified []state.WalletState
	defer wc.Subscribe(func(s state.WalletState) { notified = append(notified, s) })()

	wc.Load(ctx)

	require.NotNil(t, wc.State().Current)
	assert.Equal(t, w.ID, wc.State().Current.ID)
	assert.Equal(t, w.ID, local.CurrentWalletID(ctx))

	require.Len(t, notified, 2)
	assert.True(t, notified[0].Loading)
	assert.False(t, notified[1].Loading)
}

func TestWalletContext_CreateWithoutLoadKeepsExistingDefault(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)

	existing := &wallet.Wallet{Name: "Main", Type: wallet.TypePersonal, Currency: "EUR", IsDefault: true}
	existing.ID = uuid.New()
	require.NoError(t, local.SaveWallet(ctx, existing))

	wc := state.NewWalletContext(local, nil, nil)

	created, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "Side", Currency: "EUR"})
	require.NoError(t, err)
	assert.False(t, created.IsDefault)

	var defaults []uuid.UUID
	for _, w := range local.GetAllWallets(ctx) {
		if w.IsDefault {
			defaults = append(defaults, w.ID)
		}
	}

	assert.Equal(t, []uuid.UUID{existing.ID}, defaults)
}

func TestWalletContext_RejectsInvalidWallets(t *testing.T) {
	tests := []struct {
		name  string
		input *wallet.Wallet
	}{
		{name: "MissingName", input: &wallet.Wallet{Currency: "EUR"}},
		{name: "BlankName", input: &wallet.Wallet{Name: "  ", Currency: "EUR"}},
		{name: "BadCurrency", input: &wallet.Wallet{Name: "Main", Currency: "EU"}},
		{name: "UnknownType", input: &wallet.Wallet{Name: "Main", Type: "crypto", Currency: "EUR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			local := newLocal(t)
			trigger := &countingTrigger{}
			wc := state.NewWalletContext(local, nil, trigger)

			_, err := wc.CreateWallet(ctx, tt.input)
			assert.ErrorIs(t, err, wallet.ErrInvalid)
			assert.ErrorIs(t, wc.State().Err, wallet.ErrInvalid)

			assert.Empty(t, local.GetAllWallets(ctx))
			assert.Empty(t, local.GetWalletsNeedingSync(ctx))
			assert.Zero(t, trigger.n.Load())
		})
	}

	t.Run("Update", func(t *testing.T) {
		ctx := context.Background()
		local := newLocal(t)
		wc := state.NewWalletContext(local, nil, nil)

		w, err := wc.CreateWallet(ctx, &wallet.Wallet{Name: "Main", Currency: "EUR"})
		require.NoError(t, err)

		edit := *w
		edit.Currency = "euro"

		assert.ErrorIs(t, wc.UpdateWallet(ctx, &edit), wallet.ErrInvalid)
		assert.Equal(t, "EUR", local.GetWallet(ctx, w.ID).Currency)
	})
}

func TestWalletContext_SharedWalletPermissions(t *testing.T) {
	owner, admin, viewer := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name    string
		userID  uuid.UUID
		wantErr error
	}{
		{name: "Viewer", userID: viewer, wantErr: wallet.ErrForbidden},
		{name: "Stranger", userID: uuid.New(), wantErr: wallet.ErrForbidden},
		{name: "Admin", userID: admin},
		{name: "Owner", userID: owner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			local := newLocal(t)

			shared := walletAt("Household", true, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
			shared.Type = wallet.TypeShared
			shared.UserID = owner
			shared.Members = []wallet.Member{
				{UserID: owner, Role: wallet.RoleOwner},
				{UserID: admin, Role: wallet.RoleAdmin},
				{UserID: viewer, Role: wallet.RoleViewer},
			}

			_, err := local.SaveRemoteWallets(ctx, []*wallet.Wallet{shared})
			require.NoError(t, err)
			require.NoError(t, local.SaveSession(ctx, &auth.Session{Token: "tok", UserID: tt.userID}))

			wc := state.NewWalletContext(local, nil, nil)
			wc.Load(ctx)

			edit := *local.GetWallet(ctx, shared.ID)
			edit.Name = "Renamed"

			err = wc.UpdateWallet(ctx, &edit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, wc.DeleteWallet(ctx, shared.ID), tt.wantErr)

				assert.Equal(t, "Household", local.GetWallet(ctx, shared.ID).Name)
				assert.Empty(t, local.GetWalletsNeedingSync(ctx), "a refused edit never enters the sync queue")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Renamed", local.GetWallet(ctx, shared.ID).Name)
			require.NoError(t, wc.DeleteWallet(ctx, shared.ID))
			assert.Nil(t, local.GetWallet(ctx, shared.ID))
		})
	}
}
