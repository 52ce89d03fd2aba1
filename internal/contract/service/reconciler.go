package service

import (
	"context"
	"errors"

	"rentalsign/internal/contract"
	dErrors "rentalsign/pkg/domain-errors"
	"rentalsign/pkg/requestcontext"
)

// ReconcileResult reports what a signing event did to the record.
type ReconcileResult struct {
	Contract *contract.Contract
	// Applied is false for no-op deliveries: replays, events against a
	// terminal contract, and unrecognized status tokens.
	Applied bool
}

// Reconcile applies one envelope notification to the contract it references.
// It is the single mutation surface for every asynchronous source (HTTP
// webhook, message consumer) and is safe under arbitrary replay and ordering;
// the store serializes concurrent applications per contract.
//
// Error contract: webhook_malformed for structurally broken events,
// not_found when the envelope resolves to no record (the provider treats the
// delivery as complete either way), nil for everything else.
func (s *Service) Reconcile(ctx context.Context, ev contract.SigningEvent) (*ReconcileResult, error) {
	if ev.EnvelopeID == "" || ev.RawStatus == "" {
		return nil, dErrors.New(dErrors.CodeWebhookMalformed, "envelope id and status are required")
	}

	ev.Status = contract.ParseStatus(ev.RawStatus)
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = requestcontext.Now(ctx)
	}

	if ev.Status == contract.StatusUnrecognized {
		// Accepted but ignored: unmodeled notification classes must not
		// trigger provider-side retry storms. Count them so an unexpected
		// volume is visible.
		s.metrics.WebhookUnrecognized.Inc()
		c, err := s.store.GetByEnvelope(ctx, ev.EnvelopeID)
		if errors.Is(err, contract.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no contract for envelope")
		}
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "resolve envelope", err)
		}
		s.logger.InfoContext(ctx, "ignoring unrecognized envelope status",
			"envelope_id", ev.EnvelopeID, "status", ev.RawStatus)
		return &ReconcileResult{Contract: c, Applied: false}, nil
	}

	c, applied, err := s.store.ApplyEvent(ctx, ev)
	if errors.Is(err, contract.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no contract for envelope")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "apply signing event", err)
	}

	s.metrics.WebhookEvents.WithLabelValues(string(ev.Status)).Inc()
	if applied {
		s.logger.InfoContext(ctx, "signing event applied",
			"envelope_id", ev.EnvelopeID, "status", ev.Status, "contract_id", c.ID)
	} else {
		s.logger.DebugContext(ctx, "signing event was a no-op",
			"envelope_id", ev.EnvelopeID, "status", ev.Status, "contract_id", c.ID)
	}
	return &ReconcileResult{Contract: c, Applied: applied}, nil
}
