// The worker consumes envelope signing events from Kafka and reconciles them
// into the contract store. It runs independently of the HTTP server and is
// supervised with restart-and-backoff so a broker hiccup never kills the
// reconciliation feed for good.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	contractservice "rentalsign/internal/contract/service"
	contractpostgres "rentalsign/internal/contract/store/postgres"
	"rentalsign/internal/platform/config"
	"rentalsign/internal/platform/logger"
	"rentalsign/internal/platform/metrics"
	"rentalsign/internal/platform/postgres"
	"rentalsign/internal/worker"
)

const (
	initialBackoff = time.Second
	maxBackoff     = time.Minute
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The worker only reconciles, so the pipeline collaborators stay nil;
	// Reconcile touches none of them.
	svc := contractservice.New(nil, nil, nil, nil,
		contractpostgres.New(db), metrics.New(), log, contractservice.Options{})

	backoff := initialBackoff
	for {
		consumer, err := worker.New(cfg.Kafka, svc, log)
		if err == nil {
			log.Info("signing-event consumer started",
				"topic", cfg.Kafka.Topic, "group", cfg.Kafka.Group)
			err = consumer.Run(ctx)
			consumer.Close()
			backoff = initialBackoff
		}

		if ctx.Err() != nil {
			log.Info("worker stopped")
			return
		}
		log.Error("consumer exited, restarting", "error", err, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
