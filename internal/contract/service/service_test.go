package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"rentalsign/internal/aggregate"
	"rentalsign/internal/contract"
	"rentalsign/internal/esign"
	"rentalsign/internal/platform/metrics"
	dErrors "rentalsign/pkg/domain-errors"
)

// Stub collaborators. Each records its calls so tests can assert which
// pipeline stages were reached.

type stubAggregator struct {
	ctx   *aggregate.Context
	calls int
}

func (a *stubAggregator) Fetch(_ context.Context, _, _ string, _ []string, _ string) *aggregate.Context {
	a.calls++
	if a.ctx == nil {
		return &aggregate.Context{}
	}
	return a.ctx
}

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.calls++
	return g.text, g.err
}

type stubRenderer struct {
	pdf   []byte
	err   error
	calls int
}

func (r *stubRenderer) Render(_ context.Context, _ string) ([]byte, error) {
	r.calls++
	return r.pdf, r.err
}

type stubGateway struct {
	envelopeID  string
	createErr   error
	signingURL  string
	viewErr     error
	createCalls int
	viewCalls   int
	lastSigner  esign.Signer
	lastWebhook string
	lastReturn  string
}

func (g *stubGateway) CreateEnvelope(_ context.Context, _ []byte, signer esign.Signer, webhookURL string) (string, error) {
	g.createCalls++
	g.lastSigner = signer
	g.lastWebhook = webhookURL
	return g.envelopeID, g.createErr
}

func (g *stubGateway) RecipientViewURL(_ context.Context, _ string, signer esign.Signer, returnURL string) (string, error) {
	g.viewCalls++
	g.lastSigner = signer
	g.lastReturn = returnURL
	return g.signingURL, g.viewErr
}

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *contract.InMemoryStore
	aggregator *stubAggregator
	generator  *stubGenerator
	renderer   *stubRenderer
	gateway    *stubGateway
	metrics    *metrics.Metrics
	svc        *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = contract.NewInMemoryStore()
	s.aggregator = &stubAggregator{ctx: &aggregate.Context{
		Client:  &aggregate.Profile{FirstName: "Youssef", LastName: "Ben Ali"},
		Request: &aggregate.RentalRequest{ID: 7, TotalPrice: "150"},
	}}
	s.generator = &stubGenerator{text: "<html>contract</html>"}
	s.renderer = &stubRenderer{pdf: []byte("%PDF-1.7")}
	s.gateway = &stubGateway{envelopeID: "env-1", signingURL: "https://sign.example/view"}
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.svc = New(s.aggregator, s.generator, s.renderer, s.gateway, s.store, s.metrics,
		slog.New(slog.DiscardHandler),
		Options{WebhookURL: "https://contracts.example/contracts/esign/webhook", DefaultReturnURL: "https://app.example/done"})
}

func (s *ServiceSuite) validRequest() GenerateRequest {
	return GenerateRequest{
		OwnerID:      "Amal Rentals",
		ClientID:     "Youssef Ben Ali",
		EquipmentIDs: []string{"10"},
		RequestID:    "7",
		StartDate:    "2026-03-01",
		EndDate:      "2026-03-08",
		TotalPrice:   "100",
		SignerEmail:  "youssef@example.tn",
		SignerName:   "Youssef",
	}
}

func (s *ServiceSuite) TestGenerateContractHappyPath() {
	result, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().NoError(err)

	s.Equal("Contract sent for signature", result.Message)
	s.Equal("env-1", result.EnvelopeID)
	s.Equal("https://sign.example/view", result.SigningURL)

	stored, err := s.store.GetByID(s.ctx, result.ContractID)
	s.Require().NoError(err)
	s.Equal(contract.StatusSentForSigning, stored.Status)
	s.Equal("env-1", stored.EnvelopeID)
	// The request-level total takes precedence over the caller's value.
	s.Equal("150.00", stored.TotalValue.StringFixed(2))
	s.Equal("<html>contract</html>", stored.ContractText)

	s.Equal("https://contracts.example/contracts/esign/webhook", s.gateway.lastWebhook)
	s.Equal("https://app.example/done", s.gateway.lastReturn)
	s.InDelta(1, testutil.ToFloat64(s.metrics.ContractsGenerated), 0)
}

func (s *ServiceSuite) TestGenerateContractPartialAggregation() {
	// Owner profile absent; the pipeline still runs to completion on the data
	// it has.
	s.aggregator.ctx = &aggregate.Context{
		Client:    &aggregate.Profile{FirstName: "Amal"},
		Equipment: []*aggregate.Equipment{{Name: "Drill"}},
		Request:   &aggregate.RentalRequest{ID: 42, Status: "active", Quantity: 2, TotalPrice: "150.00"},
	}
	req := s.validRequest()
	req.SignerName = ""

	result, err := s.svc.GenerateContract(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("env-1", result.EnvelopeID)
	s.Equal("Amal", s.gateway.lastSigner.Name)

	stored, err := s.store.GetByID(s.ctx, result.ContractID)
	s.Require().NoError(err)
	s.Equal(contract.StatusSentForSigning, stored.Status)
	s.Equal("env-1", stored.EnvelopeID)
	s.Equal("150.00", stored.TotalValue.StringFixed(2))
}

func (s *ServiceSuite) TestGenerateContractSignerNameDefaultsFromProfile() {
	req := s.validRequest()
	req.SignerName = ""

	_, err := s.svc.GenerateContract(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("Youssef", s.gateway.lastSigner.Name)
}

func (s *ServiceSuite) TestGenerateContractMissingFields() {
	cases := map[string]func(*GenerateRequest){
		"no signer email": func(r *GenerateRequest) { r.SignerEmail = "" },
		"no owner":        func(r *GenerateRequest) { r.OwnerID = "" },
		"no client":       func(r *GenerateRequest) { r.ClientID = "" },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			req := s.validRequest()
			mutate(&req)

			_, err := s.svc.GenerateContract(s.ctx, req)
			s.Require().Error(err)
			s.True(dErrors.Is(err, dErrors.CodeMissingFields))
			// Precondition failures never reach the generator or provider.
			s.Zero(s.generator.calls)
			s.Zero(s.gateway.createCalls)
		})
	}

	s.Run("no signer name and no client profile", func() {
		s.aggregator.ctx = &aggregate.Context{}
		req := s.validRequest()
		req.SignerName = ""

		_, err := s.svc.GenerateContract(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeMissingFields))
	})
}

func (s *ServiceSuite) TestGenerateContractGenerationFailure() {
	s.generator.err = dErrors.New(dErrors.CodeGenerationFailed, "empty response")

	_, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeGenerationFailed))

	// Nothing was persisted or submitted.
	all, listErr := s.store.List(s.ctx, contract.Filter{})
	s.Require().NoError(listErr)
	s.Empty(all)
	s.Zero(s.renderer.calls)
	s.Zero(s.gateway.createCalls)
	s.InDelta(1, testutil.ToFloat64(s.metrics.PipelineFailures.WithLabelValues("generate")), 0)
}

func (s *ServiceSuite) TestGenerateContractRenderFailureKeepsDraft() {
	s.renderer.err = dErrors.New(dErrors.CodeRenderFailed, "converter exited")

	_, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeRenderFailed))

	// The draft exists but never left the building.
	all, listErr := s.store.List(s.ctx, contract.Filter{})
	s.Require().NoError(listErr)
	s.Require().Len(all, 1)
	s.Equal(contract.StatusDraft, all[0].Status)
	s.Empty(all[0].EnvelopeID)
	s.Zero(s.gateway.createCalls)
}

func (s *ServiceSuite) TestGenerateContractSubmissionFailureLeavesDraft() {
	s.gateway.createErr = dErrors.New(dErrors.CodeSubmissionFailed, "provider rejected envelope")

	_, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeSubmissionFailed))

	all, listErr := s.store.List(s.ctx, contract.Filter{})
	s.Require().NoError(listErr)
	s.Require().Len(all, 1)
	s.Equal(contract.StatusDraft, all[0].Status)
	s.Empty(all[0].EnvelopeID)
	s.Zero(s.gateway.viewCalls)
}

func (s *ServiceSuite) TestGenerateContractSigningURLFailureStillCommits() {
	s.gateway.viewErr = dErrors.New(dErrors.CodeSigningURLUnavailable, "view url unavailable")

	result, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeSigningURLUnavailable))

	// The result still carries both ids so the caller can recover.
	s.Require().NotNil(result)
	s.Equal("env-1", result.EnvelopeID)
	s.Empty(result.SigningURL)

	stored, getErr := s.store.GetByID(s.ctx, result.ContractID)
	s.Require().NoError(getErr)
	s.Equal(contract.StatusSentForSigning, stored.Status)
	s.Equal("env-1", stored.EnvelopeID)
}

func (s *ServiceSuite) TestGenerateContractBadTotal() {
	req := s.validRequest()
	req.TotalPrice = "not-a-number"
	s.aggregator.ctx = &aggregate.Context{Client: &aggregate.Profile{FirstName: "Youssef"}}

	_, err := s.svc.GenerateContract(s.ctx, req)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestGetAndList() {
	result, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().NoError(err)

	got, err := s.svc.Get(s.ctx, result.ContractID)
	s.Require().NoError(err)
	s.Equal(result.ContractID, got.ID)

	_, err = s.svc.Get(s.ctx, uuid.New())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	listed, err := s.svc.List(s.ctx, contract.Filter{OwnerName: "Amal Rentals"})
	s.Require().NoError(err)
	s.Len(listed, 1)

	empty, err := s.svc.List(s.ctx, contract.Filter{OwnerName: "Nobody"})
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *ServiceSuite) TestReconcile() {
	_, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().NoError(err)
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	s.Run("completed event lands", func() {
		res, err := s.svc.Reconcile(s.ctx, contract.SigningEvent{
			EnvelopeID: "env-1", RawStatus: "completed", OccurredAt: base,
		})
		s.Require().NoError(err)
		s.True(res.Applied)
		s.Equal(contract.StatusCompleted, res.Contract.Status)
	})

	s.Run("replay is observed but applies nothing", func() {
		res, err := s.svc.Reconcile(s.ctx, contract.SigningEvent{
			EnvelopeID: "env-1", RawStatus: "completed", OccurredAt: base,
		})
		s.Require().NoError(err)
		s.False(res.Applied)
	})

	s.Run("late sent event cannot overturn completed", func() {
		res, err := s.svc.Reconcile(s.ctx, contract.SigningEvent{
			EnvelopeID: "env-1", RawStatus: "sent", OccurredAt: base.Add(time.Hour),
		})
		s.Require().NoError(err)
		s.False(res.Applied)
		s.Equal(contract.StatusCompleted, res.Contract.Status)
	})
}

func (s *ServiceSuite) TestReconcileMalformed() {
	_, err := s.svc.Reconcile(s.ctx, contract.SigningEvent{RawStatus: "sent"})
	s.True(dErrors.Is(err, dErrors.CodeWebhookMalformed))

	_, err = s.svc.Reconcile(s.ctx, contract.SigningEvent{EnvelopeID: "env-1"})
	s.True(dErrors.Is(err, dErrors.CodeWebhookMalformed))
}

func (s *ServiceSuite) TestReconcileUnknownEnvelope() {
	_, err := s.svc.Reconcile(s.ctx, contract.SigningEvent{EnvelopeID: "env-ghost", RawStatus: "sent"})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestReconcileUnrecognizedStatus() {
	result, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().NoError(err)

	res, err := s.svc.Reconcile(s.ctx, contract.SigningEvent{EnvelopeID: "env-1", RawStatus: "voided"})
	s.Require().NoError(err)
	s.False(res.Applied)
	s.Equal(result.ContractID, res.Contract.ID)
	// The record is untouched.
	s.Equal(contract.StatusSentForSigning, res.Contract.Status)
	s.InDelta(1, testutil.ToFloat64(s.metrics.WebhookUnrecognized), 0)

	// Unrecognized status against an unknown envelope is still not_found.
	_, err = s.svc.Reconcile(s.ctx, contract.SigningEvent{EnvelopeID: "env-ghost", RawStatus: "voided"})
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestReconcileDefaultsTimestamp() {
	_, err := s.svc.GenerateContract(s.ctx, s.validRequest())
	s.Require().NoError(err)

	before := time.Now().UTC()
	res, err := s.svc.Reconcile(s.ctx, contract.SigningEvent{EnvelopeID: "env-1", RawStatus: "sent"})
	s.Require().NoError(err)
	s.True(res.Applied)
	s.Require().NotNil(res.Contract.SentAt)
	s.False(res.Contract.SentAt.Before(before.Add(-time.Second)))
}
