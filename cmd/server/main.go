package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"rentalsign/internal/aggregate"
	contracthandler "rentalsign/internal/contract/handler"
	contractservice "rentalsign/internal/contract/service"
	contractpostgres "rentalsign/internal/contract/store/postgres"
	"rentalsign/internal/esign"
	"rentalsign/internal/generate"
	httpapi "rentalsign/internal/http"
	"rentalsign/internal/platform/config"
	"rentalsign/internal/platform/httpserver"
	"rentalsign/internal/platform/logger"
	"rentalsign/internal/platform/metrics"
	"rentalsign/internal/platform/postgres"
	platformredis "rentalsign/internal/platform/redis"
	"rentalsign/internal/render"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	generator, err := generate.NewGemini(ctx, cfg.Gemini)
	if err != nil {
		log.Error("gemini client unavailable", "error", err)
		os.Exit(1)
	}
	defer generator.Close()

	tokens, err := esign.NewTokenSource(
		cfg.ESign.OAuthHost, cfg.ESign.IntegrationKey, cfg.ESign.UserID,
		cfg.ESign.PrivateKeyPEM, cfg.ESign.TokenExpiry, redisClient,
	)
	if err != nil {
		log.Error("esign signing key invalid", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	svc := contractservice.New(
		aggregate.New(cfg.Upstreams, log),
		generator,
		render.NewPDFRenderer(),
		esign.New(cfg.ESign, tokens, log),
		contractpostgres.New(db),
		m,
		log,
		contractservice.Options{
			WebhookURL:       cfg.ESign.WebhookURL,
			DefaultReturnURL: cfg.ESign.ReturnURL,
		},
	)

	router := httpapi.NewRouter(contracthandler.New(svc, log), log)
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting rentalsign", "addr", cfg.Server.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
