package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/walletsync/internal/config"
	"github.com/MrJamesThe3rd/walletsync/internal/database"
	walletsyncHttp "github.com/MrJamesThe3rd/walletsync/internal/http"
	txHandler "github.com/MrJamesThe3rd/walletsync/internal/http/transaction"
	walletHandler "github.com/MrJamesThe3rd/walletsync/internal/http/wallet"
	"github.com/MrJamesThe3rd/walletsync/internal/metrics"
	"github.com/MrJamesThe3rd/walletsync/internal/transaction"
	txStore "github.com/MrJamesThe3rd/walletsync/internal/transaction/store"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
	walletStore "github.com/MrJamesThe3rd/walletsync/internal/wallet/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, cfg.ConnectionString()); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		walletService      = wallet.NewService(walletStore.New(db))
		transactionService = transaction.NewService(txStore.New(db), walletService)
		m                  = metrics.New()
	)

	router := walletsyncHttp.New(
		walletHandler.NewHandler(walletService),
		txHandler.NewHandler(transactionService, m),
		walletsyncHttp.Options{
			JWTSecret:      []byte(cfg.Auth.JWTSecret),
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Metrics:        m,
		},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           http.TimeoutHandler(router, cfg.Server.Timeout, ""),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
