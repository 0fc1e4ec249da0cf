package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/walletsync/cmd/walletsync/internal/view"
	"github.com/MrJamesThe3rd/walletsync/internal/auth"
	"github.com/MrJamesThe3rd/walletsync/internal/state"
	"github.com/MrJamesThe3rd/walletsync/internal/syncer"
)

func loginCmd(a *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the session token used to reach the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := auth.NewSession(token)
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}

			if sess.Expired(time.Now()) {
				return auth.ErrSessionExpired
			}

			if err := a.store.SaveSession(cmd.Context(), sess); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", sess.UserID)

			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "bearer token issued by the backend")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	var wipe bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the session; --wipe also erases local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if wipe {
				return a.store.Wipe(cmd.Context())
			}

			return a.store.ClearSession(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&wipe, "wipe", false, "erase all local wallets and transactions")

	return cmd
}

func syncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull remote ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.SyncTimeout)
			defer cancel()

			rep, err := a.sync.SyncAll(ctx)
			view.Report(cmd.OutOrStdout(), rep)

			return err
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what is waiting to be synced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sess := a.store.LoadSession(ctx)

			switch {
			case sess == nil:
				fmt.Fprintln(out, "session:  logged out")
			case sess.Expired(time.Now()):
				fmt.Fprintf(out, "session:  %s (expired)\n", sess.UserID)
			default:
				fmt.Fprintf(out, "session:  %s\n", sess.UserID)
			}

			pendingWallets := len(a.store.GetWalletsNeedingSync(ctx))
			fmt.Fprintf(out, "wallets:  %d pending\n", pendingWallets)

			wallets := a.walletCtx.State().Wallets
			if len(wallets) == 0 {
				return nil
			}

			rows := make([]view.WalletStatus, 0, len(wallets))
			for _, w := range wallets {
				rows = append(rows, view.WalletStatus{Name: w.Name, Status: a.sync.GetSyncStatus(ctx, w.ID)})
			}

			return view.Status(out, rows, time.Now())
		},
	}
}

// watchCmd keeps syncing on an interval and after local changes until interrupted.
func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Sync continuously until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := syncer.NewScheduler(a.sync, a.cfg.SyncInterval, a.cfg.SyncTimeout)
			sched.OnResult = func(rep syncer.Report, err error) {
				if err != nil {
					slog.Warn("sync failed", "error", err)
				} else {
					slog.Info("synced", "pushed", rep.Pushed, "acknowledged", rep.Acknowledged, "pulled", rep.Pulled, "applied", rep.Applied)
				}

				a.walletCtx.Refresh(ctx)
			}

			unsubscribe := a.walletCtx.Subscribe(func(st state.WalletState) {
				if st.Err != nil {
					slog.Warn("wallet state", "error", st.Err)
				}
			})
			defer unsubscribe()

			slog.Info("watching", "interval", a.cfg.SyncInterval, "api", a.cfg.APIURL)

			if err := sched.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}
}
