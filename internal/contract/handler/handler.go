// Package handler exposes the contract API over HTTP: the generation
// pipeline, the provider webhook, and read access to contract records.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rentalsign/internal/contract"
	"rentalsign/internal/contract/service"
	dErrors "rentalsign/pkg/domain-errors"
	"rentalsign/pkg/platform/httputil"
	"rentalsign/pkg/requestcontext"
)

// Service defines the operations the handler needs from the contract service.
type Service interface {
	GenerateContract(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error)
	Reconcile(ctx context.Context, ev contract.SigningEvent) (*service.ReconcileResult, error)
	List(ctx context.Context, f contract.Filter) ([]*contract.Contract, error)
	Get(ctx context.Context, id uuid.UUID) (*contract.Contract, error)
}

// Handler wires contract endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a contract handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts contract endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/contracts/generate", h.HandleGenerate)
	r.Post("/contracts/esign/webhook", h.HandleWebhook)
	r.Get("/contracts", h.HandleList)
	r.Get("/contracts/{contractID}", h.HandleGet)
}

// HandleGenerate handles POST /contracts/generate requests. Contracts are
// only ever created through this pipeline, never via direct writes.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeJSON[GenerateContractRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.GenerateContract(ctx, service.GenerateRequest{
		OwnerID:      req.OwnerID,
		ClientID:     req.ClientID,
		EquipmentIDs: req.EquipmentIDs,
		RequestID:    req.RequestID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		TotalPrice:   req.TotalPrice,
		Details:      req.Status,
		SignerEmail:  req.SignerEmail,
		SignerName:   req.SignerName,
		ReturnURL:    req.ReturnURL,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "contract generation failed",
			"request_id", requestID,
			"owner", req.OwnerID,
			"client", req.ClientID,
			"error", err,
		)
		// A signing-url failure still carries the assigned ids so the
		// caller can retry URL retrieval without re-submitting.
		if dErrors.Is(err, dErrors.CodeSigningURLUnavailable) && result != nil {
			httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"error":       string(dErrors.CodeSigningURLUnavailable),
				"envelope_id": result.EnvelopeID,
				"contract_id": result.ContractID.String(),
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "contract generated",
		"request_id", requestID,
		"contract_id", result.ContractID,
		"envelope_id", result.EnvelopeID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, GenerateContractResponse{
		Message:    result.Message,
		EnvelopeID: result.EnvelopeID,
		ContractID: result.ContractID.String(),
		SigningURL: result.SigningURL,
	})
}

// HandleWebhook handles envelope-event notifications from the signature
// provider. Once the envelope resolves, the provider always receives a
// success acknowledgment; only malformed events and unknown envelopes get a
// non-2xx, and the provider treats both as delivered.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[WebhookRequest](w, r, h.logger)
	if !ok {
		return
	}

	ev := contract.SigningEvent{
		EnvelopeID: req.EnvelopeID,
		RawStatus:  req.Status,
	}
	if req.StatusChangedDateTime != "" {
		if ts, err := time.Parse(time.RFC3339, req.StatusChangedDateTime); err == nil {
			ev.OccurredAt = ts
		}
		// An unparseable timestamp falls back to reconciliation time rather
		// than rejecting an otherwise valid event.
	}

	result, err := h.service.Reconcile(ctx, ev)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook not applied",
			"request_id", requestID,
			"envelope_id", req.EnvelopeID,
			"status", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "webhook processed",
		"request_id", requestID,
		"envelope_id", req.EnvelopeID,
		"status", req.Status,
		"applied", result.Applied,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Webhook processed successfully",
	})
}

// HandleList handles GET /contracts with owner_name / client_name filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := contract.Filter{
		OwnerName:  r.URL.Query().Get("owner_name"),
		ClientName: r.URL.Query().Get("client_name"),
	}

	records, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "contract listing failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]ContractResponse, 0, len(records))
	for _, c := range records {
		out = append(out, FromContract(c))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /contracts/{contractID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "contractID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid contract id"))
		return
	}

	c, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromContract(c))
}
