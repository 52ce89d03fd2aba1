// Package worker consumes envelope signing events from Kafka and feeds them
// through the same reconciliation entry point the HTTP webhook uses. However
// many asynchronous sources exist, the state-mutation surface stays single.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"rentalsign/internal/contract"
	"rentalsign/internal/contract/service"
	"rentalsign/internal/platform/config"
	dErrors "rentalsign/pkg/domain-errors"
)

// Reconciler is the single mutation surface for signing events.
type Reconciler interface {
	Reconcile(ctx context.Context, ev contract.SigningEvent) (*service.ReconcileResult, error)
}

// Consumer reads signing events from a topic and applies them.
type Consumer struct {
	client     *kgo.Client
	reconciler Reconciler
	logger     *slog.Logger
}

// New connects the consumer group.
func New(cfg config.Kafka, reconciler Reconciler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(cfg.Group),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Consumer{client: client, reconciler: reconciler, logger: logger}, nil
}

// Run polls until ctx is cancelled. Per-record problems are logged and
// skipped; reconciliation relies on provider/topic redelivery semantics, so
// a malformed record must not wedge the partition.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			c.handle(ctx, rec)
		})
	}
}

// Close tears down the Kafka client.
func (c *Consumer) Close() {
	c.client.Close()
}

// envelopeEventRecord matches the webhook notification shape so both feeds
// speak the same dialect.
type envelopeEventRecord struct {
	EnvelopeID            string `json:"envelopeId"`
	Status                string `json:"status"`
	StatusChangedDateTime string `json:"statusChangedDateTime"`
}

func (c *Consumer) handle(ctx context.Context, rec *kgo.Record) {
	ev, err := decodeEvent(rec.Value)
	if err != nil {
		c.logger.WarnContext(ctx, "skipping undecodable signing event",
			"topic", rec.Topic, "offset", rec.Offset, "error", err)
		return
	}

	_, err = c.reconciler.Reconcile(ctx, ev)
	switch {
	case err == nil:
	case dErrors.Is(err, dErrors.CodeNotFound):
		// Not yet submitted from this service's perspective; redelivery will
		// land once the submission flow commits.
		c.logger.InfoContext(ctx, "signing event references unknown envelope",
			"envelope_id", ev.EnvelopeID, "offset", rec.Offset)
	case dErrors.Is(err, dErrors.CodeWebhookMalformed):
		c.logger.WarnContext(ctx, "skipping malformed signing event",
			"topic", rec.Topic, "offset", rec.Offset, "error", err)
	default:
		c.logger.ErrorContext(ctx, "signing event reconciliation failed",
			"envelope_id", ev.EnvelopeID, "offset", rec.Offset, "error", err)
	}
}

// decodeEvent parses one record payload into a signing event.
func decodeEvent(payload []byte) (contract.SigningEvent, error) {
	var raw envelopeEventRecord
	if err := json.Unmarshal(payload, &raw); err != nil {
		return contract.SigningEvent{}, err
	}
	if raw.EnvelopeID == "" || raw.Status == "" {
		return contract.SigningEvent{}, errors.New("missing envelope id or status")
	}
	ev := contract.SigningEvent{
		EnvelopeID: raw.EnvelopeID,
		RawStatus:  raw.Status,
	}
	if raw.StatusChangedDateTime != "" {
		if ts, err := time.Parse(time.RFC3339, raw.StatusChangedDateTime); err == nil {
			ev.OccurredAt = ts
		}
	}
	return ev, nil
}
