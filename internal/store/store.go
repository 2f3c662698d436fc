// Package store provides persistence backends for LeadPipe.
//
// Prospect records are stored as opaque JSON documents keyed by phone number.
// Receipts and responses form an append-only audit trail. Backends exist for
// SQLite, PostgreSQL, Redis and an in-memory map used by tests.
package store

import (
	"sync"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// Store is the persistence contract shared by every backend.
type Store interface {
	// SaveProspect inserts or replaces a prospect record wholesale.
	SaveProspect(p *models.ProspectState) error
	// GetProspect returns the record for a phone number, or nil when none
	// exists. A missing prospect is not an error.
	GetProspect(phone string) (*models.ProspectState, error)
	// ListActiveProspects returns every prospect whose conversation state is
	// not terminal.
	ListActiveProspects() ([]*models.ProspectState, error)
	// DeleteProspect removes a record. Deleting a missing record is a no-op.
	DeleteProspect(phone string) error

	AddResponse(r models.Response) error
	GetResponses() ([]models.Response, error)
	AddReceipt(r models.Receipt) error
	GetReceipts() ([]models.Receipt, error)

	Close() error
}

// InMemoryStore keeps everything in process memory. It backs unit tests and
// the default no-DSN configuration.
type InMemoryStore struct {
	mu        sync.RWMutex
	prospects map[string]*models.ProspectState
	responses []models.Response
	receipts  []models.Receipt
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{prospects: make(map[string]*models.ProspectState)}
}

func (s *InMemoryStore) SaveProspect(p *models.ProspectState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prospects[p.PhoneNumber] = p.Clone()
	return nil
}

func (s *InMemoryStore) GetProspect(phone string) (*models.ProspectState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prospects[phone]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) ListActiveProspects() ([]*models.ProspectState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*models.ProspectState
	for _, p := range s.prospects {
		if !p.ConversationState.IsTerminal() {
			active = append(active, p.Clone())
		}
	}
	return active, nil
}

func (s *InMemoryStore) DeleteProspect(phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prospects, phone)
	return nil
}

func (s *InMemoryStore) AddResponse(r models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return nil
}

func (s *InMemoryStore) GetResponses() ([]models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Response(nil), s.responses...), nil
}

func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Receipt(nil), s.receipts...), nil
}

func (s *InMemoryStore) Close() error { return nil }
