package contract

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore is a mutex-guarded Store used by unit tests and local runs
// without Postgres. The single lock gives the same per-contract serialization
// the SQL store gets from row locking.
type InMemoryStore struct {
	mu        sync.RWMutex
	contracts map[uuid.UUID]*Contract
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{contracts: make(map[uuid.UUID]*Contract)}
}

func (s *InMemoryStore) Create(_ context.Context, c *Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := *c
	s.contracts[c.ID] = &cloned
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *c
	return &cloned, nil
}

func (s *InMemoryStore) GetByEnvelope(_ context.Context, envelopeID string) (*Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.findByEnvelopeLocked(envelopeID)
	if c == nil {
		return nil, ErrNotFound
	}
	cloned := *c
	return &cloned, nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]*Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		if f.OwnerName != "" && c.OwnerName != f.OwnerName {
			continue
		}
		if f.ClientName != "" && c.ClientName != f.ClientName {
			continue
		}
		cloned := *c
		out = append(out, &cloned)
	}
	return out, nil
}

func (s *InMemoryStore) SetEnvelope(_ context.Context, id uuid.UUID, envelopeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return ErrNotFound
	}
	if c.EnvelopeID != "" {
		return ErrEnvelopeAssigned
	}
	c.EnvelopeID = envelopeID
	c.Status = StatusSentForSigning
	return nil
}

func (s *InMemoryStore) ApplyEvent(_ context.Context, ev SigningEvent) (*Contract, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.findByEnvelopeLocked(ev.EnvelopeID)
	if c == nil {
		return nil, false, ErrNotFound
	}
	changed := c.Apply(ev)
	cloned := *c
	return &cloned, changed, nil
}

func (s *InMemoryStore) findByEnvelopeLocked(envelopeID string) *Contract {
	if envelopeID == "" {
		return nil
	}
	for _, c := range s.contracts {
		if c.EnvelopeID == envelopeID {
			return c
		}
	}
	return nil
}
