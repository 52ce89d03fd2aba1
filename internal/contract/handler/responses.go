package handler

import (
	"time"

	"rentalsign/internal/contract"
)

// GenerateContractResponse is the success payload for a pipeline run.
type GenerateContractResponse struct {
	Message    string `json:"message"`
	EnvelopeID string `json:"envelope_id"`
	ContractID string `json:"contract_id"`
	SigningURL string `json:"signing_url"`
}

// ContractResponse is the read-model representation of a contract record.
type ContractResponse struct {
	ID           string  `json:"id"`
	OwnerName    string  `json:"owner_name"`
	ClientName   string  `json:"client_name"`
	Equipment    string  `json:"equipment"`
	StartDate    string  `json:"start_date,omitempty"`
	EndDate      string  `json:"end_date,omitempty"`
	Status       string  `json:"status"`
	TotalValue   string  `json:"total_value"`
	EnvelopeID   string  `json:"envelope_id,omitempty"`
	ContractText string  `json:"contract_text,omitempty"`
	SentAt       *string `json:"sent_at,omitempty"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	DeclinedAt   *string `json:"declined_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// FromContract maps the domain record to its API shape.
func FromContract(c *contract.Contract) ContractResponse {
	return ContractResponse{
		ID:           c.ID.String(),
		OwnerName:    c.OwnerName,
		ClientName:   c.ClientName,
		Equipment:    c.Equipment,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		Status:       string(c.Status),
		TotalValue:   c.TotalValue.StringFixed(2),
		EnvelopeID:   c.EnvelopeID,
		ContractText: c.ContractText,
		SentAt:       formatTime(c.SentAt),
		CompletedAt:  formatTime(c.CompletedAt),
		DeclinedAt:   formatTime(c.DeclinedAt),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}
