package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/paycore/internal/api/handlers"
	"github.com/baharkarakas/paycore/internal/auth"
	"github.com/baharkarakas/paycore/internal/config"
	"github.com/baharkarakas/paycore/internal/events"
	"github.com/baharkarakas/paycore/internal/metrics"
	"github.com/baharkarakas/paycore/internal/middleware"
	"github.com/baharkarakas/paycore/internal/plans"
	"github.com/baharkarakas/paycore/internal/services"
)

type RouterDeps struct {
	Cfg        config.Config
	Accounts   *services.AccountService
	Ledger     *services.LedgerService
	Settlement *services.SettlementService
	Catalog    *plans.Catalog
	Hub        *events.Hub
	Tokens     *auth.TokenManager
}

func NewRouter(d RouterDeps) http.Handler {
	cfg := d.Cfg
	txh := handlers.NewTransactionHandler(d.Ledger, cfg.PublicURL, cfg.CheckoutTTL)
	payh := handlers.NewPaymentHandler(d.Settlement, cfg.SettleTimeout)
	evh := handlers.NewEventsHandler(d.Ledger, d.Hub)
	mh := handlers.NewMerchantHandler(d.Accounts, d.Ledger, cfg.PublicURL)
	ph := handlers.NewPlansHandler(d.Catalog)
	ah := handlers.NewAuthHandler(d.Tokens, d.Accounts, cfg.Env)
	am := middleware.NewAuthMiddleware(d.Tokens, cfg.Env)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// ---------- server-to-server ----------
		r.With(middleware.APIKey(cfg.AdminSecret)).Post("/external/transaction", txh.CreateExternal)

		// ---------- hosted checkout ----------
		r.Post("/pay", payh.Gateway)

		r.Route("/v1", func(r chi.Router) {
			r.Post("/process-payment", payh.Wallet)

			r.Get("/transactions/{id}", txh.Get)
			r.Get("/transactions/{id}/events", evh.Stream)
			r.Post("/transactions/{id}/expire", txh.Expire)

			r.Get("/plans", ph.List)

			// ---------- auth ----------
			r.Post("/auth/login", ah.Login)
			r.Post("/auth/refresh", ah.Refresh)

			// ---------- merchant dashboard ----------
			r.Route("/merchants/me", func(r chi.Router) {
				r.Use(am.Auth, middleware.RequireRole(middleware.RoleMerchant))
				r.Get("/", mh.Me)
				r.Put("/webhook", mh.SetWebhook)
				r.Get("/transactions", mh.Transactions)
				r.Post("/transactions/{id}/cancel", mh.Cancel)
				r.Post("/subscription", mh.Subscribe)
			})
		})
	})

	return r
}
