package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prism/internal/directory"
	directoryhandler "prism/internal/directory/handler"
	"prism/internal/platform/config"
	"prism/internal/platform/health"
	"prism/internal/platform/logger"
	"prism/internal/platform/metrics"
	"prism/internal/platform/middleware"
	tenanthandler "prism/internal/tenant/handler"
	tenantservice "prism/internal/tenant/service"
	tenantstore "prism/internal/tenant/store"
	"prism/pkg/secrets"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing prism",
		"addr", cfg.Addr,
		"tenants_file", cfg.TenantsFile,
	)

	keyMaterial, err := secrets.ResolveKey(cfg.SecretKey, cfg.KeyFile)
	if err != nil {
		log.Error("could not resolve cipher key", "error", err)
		os.Exit(1)
	}
	cipher, err := secrets.NewCipher(keyMaterial)
	if err != nil {
		log.Error("could not initialize cipher", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	store := tenantstore.NewFileStore(cfg.TenantsFile, cipher, log,
		tenantstore.WithMigrationObserver(m.IncrementSecretMigrations))
	tenants := tenantservice.New(store, cipher, log, tenantservice.WithMetrics(m))

	tokenClient := directory.NewTokenClient(cfg.TokenBaseURL, cfg.GraphScope, cfg.FetchTimeout, log, m)
	graphClient := directory.NewGraphClient(cfg.GraphBaseURL, cfg.FetchTimeout, log)
	aggregator := directory.NewService(tenants, tenants, tokenClient, graphClient, log,
		directory.WithMetrics(m))

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ContentTypeJSON)

	tenanthandler.New(tenants, log).Register(r)
	directoryhandler.New(aggregator, tenants, log).Register(r)
	health.New().Register(r)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
