// Package contract holds the durable contract record, its lifecycle state
// machine, and the store interface that serializes mutations to it.
package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates the contract lifecycle states. Unknown provider tokens
// parse to StatusUnrecognized, which is counted but never stored.
type Status string

const (
	StatusDraft          Status = "draft"
	StatusSentForSigning Status = "sent_for_signing"
	StatusSent           Status = "sent"
	StatusCompleted      Status = "completed"
	StatusDeclined       Status = "declined"

	// StatusUnrecognized is the parse result for tokens outside the model.
	// It is a reconciler-side classification, not a persistable state.
	StatusUnrecognized Status = "unrecognized"
)

// ParseStatus maps a provider status token onto the closed enumeration,
// case-insensitively.
func ParseStatus(token string) Status {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "sent":
		return StatusSent
	case "completed":
		return StatusCompleted
	case "declined":
		return StatusDeclined
	default:
		return StatusUnrecognized
	}
}

// Terminal reports whether s accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDeclined
}

// Contract is the durable unit of work.
type Contract struct {
	ID           uuid.UUID
	OwnerName    string
	ClientName   string
	Equipment    string
	StartDate    string
	EndDate      string
	Status       Status
	TotalValue   decimal.Decimal
	ContractText string
	EnvelopeID   string
	SentAt       *time.Time
	CompletedAt  *time.Time
	DeclinedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New builds a draft contract, enforcing the record invariants.
func New(ownerName, clientName, equipment, startDate, endDate string, totalValue decimal.Decimal, text string) (*Contract, error) {
	if totalValue.IsNegative() {
		return nil, fmt.Errorf("total value must be non-negative, got %s", totalValue)
	}
	if startDate != "" && endDate != "" && startDate > endDate {
		return nil, fmt.Errorf("start date %s is after end date %s", startDate, endDate)
	}
	now := time.Now().UTC()
	return &Contract{
		ID:           uuid.New(),
		OwnerName:    ownerName,
		ClientName:   clientName,
		Equipment:    equipment,
		StartDate:    startDate,
		EndDate:      endDate,
		Status:       StatusDraft,
		TotalValue:   totalValue,
		ContractText: text,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SigningEvent is one inbound envelope notification. It is consumed to mutate
// a Contract and then discarded; it is never persisted on its own.
type SigningEvent struct {
	EnvelopeID string
	Status     Status
	RawStatus  string
	OccurredAt time.Time
}

// Apply folds one signing event into the contract and reports whether any
// field changed. The decision is pure; stores call it under their own
// per-contract serialization.
//
// Rules: terminal states absorb every later event; a sent event updates the
// sent timestamp last-write but never demotes completed/declined; the event
// timestamp governs only the field for its own status.
func (c *Contract) Apply(ev SigningEvent) bool {
	if c.Status.Terminal() {
		return false
	}
	ts := ev.OccurredAt
	switch ev.Status {
	case StatusSent:
		if c.Status == StatusSent && c.SentAt != nil && c.SentAt.Equal(ts) {
			return false
		}
		c.Status = StatusSent
		c.SentAt = &ts
	case StatusCompleted:
		c.Status = StatusCompleted
		c.CompletedAt = &ts
	case StatusDeclined:
		c.Status = StatusDeclined
		c.DeclinedAt = &ts
	default:
		return false
	}
	c.UpdatedAt = time.Now().UTC()
	return true
}
