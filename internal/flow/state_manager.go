// Package flow provides concrete implementations of state management.
package flow

import (
	"context"
	"log/slog"

	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/store"
)

// StateManager owns prospect record persistence for the engine.
type StateManager interface {
	// GetOrCreate loads the record for a phone number, creating a fresh
	// new-state record for an unseen sender.
	GetOrCreate(ctx context.Context, phone string) (*models.ProspectState, error)
	// Save replaces the stored record wholesale.
	Save(ctx context.Context, p *models.ProspectState) error
	// ListActive returns every record whose conversation is not terminal.
	ListActive(ctx context.Context) ([]*models.ProspectState, error)
}

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// GetOrCreate loads the prospect for a phone number, creating one on first
// contact. The new record is not persisted until the first Save.
func (sm *StoreBasedStateManager) GetOrCreate(ctx context.Context, phone string) (*models.ProspectState, error) {
	p, err := sm.store.GetProspect(phone)
	if err != nil {
		slog.Error("StateManager GetOrCreate load error", "error", err, "phone", phone)
		return nil, err
	}
	if p == nil {
		slog.Debug("StateManager GetOrCreate new prospect", "phone", phone)
		return models.NewProspectState(phone), nil
	}
	slog.Debug("StateManager GetOrCreate found", "phone", phone, "state", p.ConversationState)
	return p, nil
}

// Save replaces the stored record wholesale.
func (sm *StoreBasedStateManager) Save(ctx context.Context, p *models.ProspectState) error {
	if err := sm.store.SaveProspect(p); err != nil {
		slog.Error("StateManager Save error", "error", err, "phone", p.PhoneNumber, "state", p.ConversationState)
		return err
	}
	slog.Debug("StateManager Save succeeded", "phone", p.PhoneNumber, "state", p.ConversationState)
	return nil
}

// ListActive returns every non-terminal prospect record.
func (sm *StoreBasedStateManager) ListActive(ctx context.Context) ([]*models.ProspectState, error) {
	active, err := sm.store.ListActiveProspects()
	if err != nil {
		slog.Error("StateManager ListActive error", "error", err)
		return nil, err
	}
	return active, nil
}
