// Command walletsync is the offline-first client. Every command works against the
// encrypted local store; sync and watch exchange changes with the backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/walletsync/internal/auth"
	"github.com/MrJamesThe3rd/walletsync/internal/config"
	"github.com/MrJamesThe3rd/walletsync/internal/localstore"
	"github.com/MrJamesThe3rd/walletsync/internal/remote"
	"github.com/MrJamesThe3rd/walletsync/internal/state"
	"github.com/MrJamesThe3rd/walletsync/internal/syncer"
)

type app struct {
	cfg   *config.Client
	store *localstore.Store
	close func() error

	wallets      remote.WalletRepository
	transactions remote.TransactionRepository
	sync         *syncer.Service

	walletCtx *state.WalletContext
	txCtx     *state.TransactionContext
}

func main() {
	a := &app{}

	err := rootCmd(a).Execute()
	if cerr := a.shutdown(); cerr != nil {
		slog.Warn("closing local store", "error", cerr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(a *app) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "walletsync",
		Short:         "Offline-first wallet and transaction tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file path (YAML)")

	cmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		walletCmd(a),
		txCmd(a),
		syncCmd(a),
		statusCmd(a),
		watchCmd(a),
	)

	return cmd
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "walletsync", "config.yaml")
	}

	return ""
}

func (a *app) open(ctx context.Context, configPath string) error {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if cfg.Passphrase == "" {
		return errors.New("WALLETSYNC_PASSPHRASE is required to unlock the local store")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	store, closeStore, err := localstore.Open(ctx, cfg.DatabasePath(), cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}

	client := remote.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.RequestTimeout}, auth.NewStoredTokenSource(store))

	a.cfg = cfg
	a.store = store
	a.close = closeStore
	a.wallets = remote.NewWalletRepository(client)
	a.transactions = remote.NewTransactionRepository(client)
	a.sync = syncer.NewService(store, a.wallets, a.transactions, syncer.WithTombstoneRetention(cfg.TombstoneRetention))
	a.walletCtx = state.NewWalletContext(store, a.wallets, nil)
	a.txCtx = state.NewTransactionContext(store, nil)

	a.walletCtx.Load(ctx)

	return nil
}

// shutdown waits for background remote calls and closes the store. It is safe to
// call when open failed or never ran.
func (a *app) shutdown() error {
	if a.walletCtx != nil {
		a.walletCtx.Wait()
	}

	if a.close == nil {
		return nil
	}

	closeStore := a.close
	a.close = nil

	return closeStore()
}

// currentWallet loads the transactions of the selected wallet into the transaction context.
func (a *app) currentWallet(ctx context.Context) error {
	st := a.walletCtx.State()
	if st.Current == nil {
		return errors.New("no wallet selected; create one with 'walletsync wallet create'")
	}

	a.txCtx.Load(ctx, st.Current.ID)

	return nil
}

func (a *app) currency() string {
	if w := a.walletCtx.State().Current; w != nil {
		return w.Currency
	}

	return ""
}
