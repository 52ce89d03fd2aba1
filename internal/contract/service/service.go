// Package service orchestrates the contract generation pipeline and the
// webhook reconciliation path. Both mutate contracts only through the store,
// which serializes per-contract writes.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentalsign/internal/aggregate"
	"rentalsign/internal/contract"
	"rentalsign/internal/esign"
	"rentalsign/internal/generate"
	"rentalsign/internal/platform/metrics"
	dErrors "rentalsign/pkg/domain-errors"
	"rentalsign/pkg/requestcontext"
)

// Aggregator assembles external records; it never fails, only degrades.
type Aggregator interface {
	Fetch(ctx context.Context, ownerID, clientID string, equipmentIDs []string, requestID string) *aggregate.Context
}

// Renderer matches render.Renderer; redeclared here so the service package
// states its own dependency surface.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// Options carry the pipeline's fixed endpoints.
type Options struct {
	WebhookURL       string
	DefaultReturnURL string
}

// Service runs the generation pipeline and reconciles signing events.
type Service struct {
	aggregator Aggregator
	generator  generate.Generator
	renderer   Renderer
	gateway    esign.Gateway
	store      contract.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
	opts       Options
}

func New(
	aggregator Aggregator,
	generator generate.Generator,
	renderer Renderer,
	gateway esign.Gateway,
	store contract.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) *Service {
	return &Service{
		aggregator: aggregator,
		generator:  generator,
		renderer:   renderer,
		gateway:    gateway,
		store:      store,
		metrics:    m,
		logger:     logger,
		opts:       opts,
	}
}

// GenerateRequest is the caller's input to the pipeline.
type GenerateRequest struct {
	OwnerID      string
	ClientID     string
	EquipmentIDs []string
	RequestID    string
	StartDate    string
	EndDate      string
	TotalPrice   string
	Details      string
	SignerEmail  string
	SignerName   string
	ReturnURL    string
}

// GenerateResult is the success payload. On signing_url_unavailable the
// result still carries the contract and envelope ids so the caller can retry
// URL retrieval without re-submitting.
type GenerateResult struct {
	Message    string
	ContractID uuid.UUID
	EnvelopeID string
	SigningURL string
}

// GenerateContract runs the full pipeline: aggregate, generate, create the
// draft, render, submit the envelope, persist the envelope id (commit point),
// then fetch the signing URL. Each external side effect is independently
// committed or abandoned; partial failure leaves the contract in the last
// successfully-reached state.
func (s *Service) GenerateContract(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	requestID := requestcontext.RequestID(ctx)

	actx := s.aggregator.Fetch(ctx, req.OwnerID, req.ClientID, req.EquipmentIDs, req.RequestID)

	signer := esign.Signer{Email: req.SignerEmail, Name: req.SignerName}
	if signer.Name == "" && actx.Client != nil {
		signer.Name = actx.Client.FirstName
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.opts.DefaultReturnURL
	}
	// Precondition: everything the signature gateway needs must be present
	// before any provider interaction is attempted.
	if signer.Email == "" || signer.Name == "" || req.OwnerID == "" || req.ClientID == "" {
		return nil, dErrors.New(dErrors.CodeMissingFields,
			"signer email, signer name, owner and client references are required")
	}

	terms := generate.Terms{
		OwnerName:    req.OwnerID,
		ClientName:   req.ClientID,
		EquipmentRef: joinIDs(req.EquipmentIDs),
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		TotalValue:   req.TotalPrice,
		Status:       req.Details,
	}

	prompt := generate.BuildPrompt(terms, actx)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.metrics.PipelineFailures.WithLabelValues("generate").Inc()
		return nil, err
	}

	c, err := s.createDraft(ctx, terms, actx, text)
	if err != nil {
		s.metrics.PipelineFailures.WithLabelValues("persist").Inc()
		return nil, err
	}
	s.logger.InfoContext(ctx, "draft contract created",
		"request_id", requestID, "contract_id", c.ID)

	pdf, err := s.renderer.Render(ctx, text)
	if err != nil {
		s.metrics.PipelineFailures.WithLabelValues("render").Inc()
		return nil, err
	}

	envelopeID, err := s.gateway.CreateEnvelope(ctx, pdf, signer, s.opts.WebhookURL)
	if err != nil {
		s.metrics.PipelineFailures.WithLabelValues("submit").Inc()
		return nil, err
	}

	// Commit point: the envelope id and the sent_for_signing advance land in
	// one atomic store write.
	if err := s.store.SetEnvelope(ctx, c.ID, envelopeID); err != nil {
		s.metrics.PipelineFailures.WithLabelValues("persist").Inc()
		return nil, dErrors.Wrap(dErrors.CodeInternal, "persist envelope id", err)
	}
	s.metrics.ContractsGenerated.Inc()
	s.logger.InfoContext(ctx, "contract sent for signing",
		"request_id", requestID, "contract_id", c.ID, "envelope_id", envelopeID)

	result := &GenerateResult{
		Message:    "Contract sent for signature",
		ContractID: c.ID,
		EnvelopeID: envelopeID,
	}

	signingURL, err := s.gateway.RecipientViewURL(ctx, envelopeID, signer, returnURL)
	if err != nil {
		// The envelope exists and the contract is valid; only the view URL
		// is missing. Surface a distinguishable error with the ids attached.
		s.metrics.PipelineFailures.WithLabelValues("signing_url").Inc()
		s.logger.WarnContext(ctx, "signing url retrieval failed",
			"request_id", requestID, "contract_id", c.ID,
			"envelope_id", envelopeID, "error", err)
		return result, err
	}
	result.SigningURL = signingURL
	return result, nil
}

// createDraft materializes the draft record with the effective dates and
// total resolved from the rental request.
func (s *Service) createDraft(ctx context.Context, terms generate.Terms, actx *aggregate.Context, text string) (*contract.Contract, error) {
	start, end := generate.EffectiveDates(terms, actx.Request)
	total := decimal.Zero
	if raw := generate.EffectiveTotal(terms, actx.Request); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "total value is not a number")
		}
		total = parsed
	}

	c, err := contract.New(terms.OwnerName, terms.ClientName, terms.EquipmentRef, start, end, total, text)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeBadRequest, "invalid contract terms", err)
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create draft contract", err)
	}
	return c, nil
}

// List returns contracts filtered by owner/client name.
func (s *Service) List(ctx context.Context, f contract.Filter) ([]*contract.Contract, error) {
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list contracts", err)
	}
	return out, nil
}

// Get returns one contract by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		if err == contract.ErrNotFound {
			return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "get contract", err)
	}
	return c, nil
}

func joinIDs(ids []string) string {
	switch len(ids) {
	case 0:
		return ""
	case 1:
		return ids[0]
	}
	out := ids[0]
	for _, id := range ids[1:] {
		out += "," + id
	}
	return out
}
