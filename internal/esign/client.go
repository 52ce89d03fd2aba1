// Package esign integrates with the e-signature provider: JWT-grant
// authentication, envelope submission with webhook subscription, and
// embedded-signing view URLs.
package esign

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"rentalsign/internal/platform/config"
	dErrors "rentalsign/pkg/domain-errors"
)

// Recipient ids are fixed: every envelope carries exactly one document and
// one embedded signer.
const (
	documentID   = "1"
	recipientID  = "1"
	clientUserID = "1"
)

// Gateway is the caller-facing surface. The pipeline service depends on this
// interface so tests can substitute a stub provider.
type Gateway interface {
	CreateEnvelope(ctx context.Context, pdf []byte, signer Signer, webhookURL string) (string, error)
	RecipientViewURL(ctx context.Context, envelopeID string, signer Signer, returnURL string) (string, error)
}

// Client talks to the provider's REST API.
type Client struct {
	basePath   string
	accountID  string
	tokens     *TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds the provider client. Token acquisition is deferred to the first
// call so a cold cache does not block startup.
func New(cfg config.ESign, tokens *TokenSource, logger *slog.Logger) *Client {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		basePath:   cfg.BasePath,
		accountID:  cfg.AccountID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateEnvelope submits the artifact as a one-document, one-signer envelope
// with a webhook subscription for sent/completed/declined, already in "sent"
// status. Returns the provider-assigned envelope id.
func (c *Client) CreateEnvelope(ctx context.Context, pdf []byte, signer Signer, webhookURL string) (string, error) {
	def := envelopeDefinition{
		EmailSubject: "Please Sign the Rental Contract",
		Documents: []document{{
			DocumentBase64: base64.StdEncoding.EncodeToString(pdf),
			Name:           "Rental Contract",
			FileExtension:  "pdf",
			DocumentID:     documentID,
		}},
		Recipients: recipients{Signers: []recipientSigner{{
			Email:        signer.Email,
			Name:         signer.Name,
			RecipientID:  recipientID,
			RoutingOrder: "1",
			ClientUserID: clientUserID,
			Tabs: tabs{SignHereTabs: []signHereTab{{
				DocumentID:  documentID,
				PageNumber:  "1",
				RecipientID: recipientID,
				TabLabel:    "SignHereTab",
				XPosition:   "100",
				YPosition:   "150",
			}}},
		}}},
		Status: "sent",
	}
	if webhookURL != "" {
		def.EventNotification = &eventNotification{
			URL:                   webhookURL,
			LoggingEnabled:        "true",
			RequireAcknowledgment: "true",
			EnvelopeEvents: []envelopeEvent{
				{EnvelopeEventStatusCode: "sent"},
				{EnvelopeEventStatusCode: "completed"},
				{EnvelopeEventStatusCode: "declined"},
			},
		}
	}

	endpoint := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes", c.basePath, c.accountID)
	var summary envelopeSummary
	if err := c.post(ctx, endpoint, def, &summary, dErrors.CodeSubmissionFailed); err != nil {
		return "", err
	}
	if summary.EnvelopeID == "" {
		return "", dErrors.New(dErrors.CodeSubmissionFailed, "provider returned no envelope id")
	}
	c.logger.InfoContext(ctx, "envelope created", "envelope_id", summary.EnvelopeID)
	return summary.EnvelopeID, nil
}

// RecipientViewURL requests the embedded signing view for an existing
// envelope. This is an independent call: failures here never invalidate the
// envelope, and callers may retry URL retrieval without re-submitting.
func (c *Client) RecipientViewURL(ctx context.Context, envelopeID string, signer Signer, returnURL string) (string, error) {
	if envelopeID == "" || returnURL == "" {
		return "", dErrors.New(dErrors.CodeSigningURLUnavailable, "envelope id and return url are required")
	}
	req := recipientViewRequest{
		AuthenticationMethod: "none",
		ClientUserID:         clientUserID,
		RecipientID:          recipientID,
		ReturnURL:            returnURL,
		UserName:             signer.Name,
		Email:                signer.Email,
	}
	endpoint := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes/%s/views/recipient",
		c.basePath, c.accountID, envelopeID)
	var view recipientViewResponse
	if err := c.post(ctx, endpoint, req, &view, dErrors.CodeSigningURLUnavailable); err != nil {
		// At this point the envelope exists, so even a token-acquisition
		// failure must surface as a retryable signing-url failure.
		if dErrors.Is(err, dErrors.CodeAuthFailed) {
			return "", dErrors.Wrap(dErrors.CodeSigningURLUnavailable, "provider authentication failed", err)
		}
		return "", err
	}
	if view.URL == "" {
		return "", dErrors.New(dErrors.CodeSigningURLUnavailable, "provider returned no signing url")
	}
	return view.URL, nil
}

// post authenticates, sends one JSON request, and decodes the response.
// Non-2xx statuses map to the caller's failure code; auth problems keep
// their own auth_failed code.
func (c *Client) post(ctx context.Context, endpoint string, payload, out any, failCode dErrors.Code) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(failCode, "encode provider request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(failCode, "build provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(failCode, "provider call failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "provider returned error",
			"status", resp.StatusCode, "endpoint", endpoint)
		return dErrors.New(failCode, fmt.Sprintf("provider returned status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return dErrors.Wrap(failCode, "provider response unreadable", err)
	}
	return nil
}
