package contract

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Store errors shared by all implementations.
var (
	// ErrNotFound is returned when no contract matches the lookup key.
	ErrNotFound = errors.New("contract not found")
	// ErrEnvelopeAssigned guards the write-once envelope invariant.
	ErrEnvelopeAssigned = errors.New("envelope id already assigned")
)

// Filter narrows a contract listing.
type Filter struct {
	OwnerName  string
	ClientName string
}

// Store persists contracts. Implementations must serialize mutations to a
// single contract (row lock or equivalent) so a stale read-modify-write can
// never resurrect an overturned status, and must make the envelope-id +
// sent_for_signing write atomic with respect to concurrent readers.
type Store interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	GetByEnvelope(ctx context.Context, envelopeID string) (*Contract, error)
	List(ctx context.Context, f Filter) ([]*Contract, error)

	// SetEnvelope records the provider envelope id and advances the contract
	// to sent_for_signing in one atomic write. Returns ErrEnvelopeAssigned if
	// an envelope id is already present.
	SetEnvelope(ctx context.Context, id uuid.UUID, envelopeID string) error

	// ApplyEvent folds a signing event into the contract referenced by its
	// envelope id, idempotently. The returned bool reports whether the record
	// changed. Returns ErrNotFound when the envelope resolves to nothing.
	ApplyEvent(ctx context.Context, ev SigningEvent) (*Contract, bool, error)
}
