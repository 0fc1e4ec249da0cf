package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/walletsync/internal/http/respond"
	"github.com/MrJamesThe3rd/walletsync/internal/http/transaction"
	"github.com/MrJamesThe3rd/walletsync/internal/http/wallet"
	"github.com/MrJamesThe3rd/walletsync/internal/metrics"
	"github.com/MrJamesThe3rd/walletsync/internal/remote"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

func New(
	walletsV1 *wallet.Handler,
	transactionsV1 *transaction.Handler,
	opts Options,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, remote.NewError(remote.CodeNotFound, "route not found"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(opts.JWTSecret))

		r.Route("/wallets", func(r chi.Router) {
			r.With(middleware.AllowContentType("application/json")).Group(walletsV1.Routes)

			r.Route("/{walletId}/transactions", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				transactionsV1.Routes(r)
			})
		})

		r.Route("/users", walletsV1.UserRoutes)
	})

	return router
}
