package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/paycore/internal/api"
	"github.com/baharkarakas/paycore/internal/app"
	"github.com/baharkarakas/paycore/internal/auth"
	"github.com/baharkarakas/paycore/internal/config"
	"github.com/baharkarakas/paycore/internal/events"
	"github.com/baharkarakas/paycore/internal/logger"
	"github.com/baharkarakas/paycore/internal/metrics"
	"github.com/baharkarakas/paycore/internal/notify"
	"github.com/baharkarakas/paycore/internal/plans"
	"github.com/baharkarakas/paycore/internal/scheduler"
	"github.com/baharkarakas/paycore/internal/services"
	"github.com/baharkarakas/paycore/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AdminSecret == "" {
		log.Warn("ADMIN_SECRET is empty, external transaction creation is disabled")
	}

	repos, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	wp := worker.NewPool(cfg.WorkerCount, 256)
	defer wp.Stop()

	catalog := plans.Default()
	hub := events.NewHub()
	hooks := notify.NewWebhooks(repos.Merchants, wp, cfg.WebhookSecret, cfg.WebhookTimeout, log)
	notifier := services.Notifiers{hub, hooks}

	accounts := services.NewAccountService(repos, log)
	ledger := services.NewLedgerService(repos, catalog, notifier, cfg.SettleMaxRetries, log)
	settlement := services.NewSettlementService(repos, notifier, cfg.SettleMaxRetries, log)

	sweeper, err := scheduler.NewExpiry(cfg.ExpirySchedule, ledger, cfg.CheckoutTTL, log)
	if err != nil {
		log.Error("expiry schedule", "spec", cfg.ExpirySchedule, "err", err)
		os.Exit(1)
	}
	sweeper.Start()

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:        cfg,
		Accounts:   accounts,
		Ledger:     ledger,
		Settlement: settlement,
		Catalog:    catalog,
		Hub:        hub,
		Tokens:     auth.NewTokenManager(cfg.JWTIssuer, cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "store", cfg.Store, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	sweeper.Stop(shutdownCtx)
}
