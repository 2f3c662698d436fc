// Package recovery restores conversation bookkeeping after a process
// restart. Prospect state lives in the store, so recovery is a scan that
// surfaces what is in flight and flags conversations that stalled while
// the process was down.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/store"
)

// DefaultStaleAfter marks a conversation as stalled when its last
// interaction is older than this at startup.
const DefaultStaleAfter = 24 * time.Hour

// Summary describes what the startup scan found.
type Summary struct {
	Active  int
	ByState map[models.ConversationState]int
	Stale   []string // phone numbers of stalled conversations
}

// Manager performs the startup recovery scan.
type Manager struct {
	st         store.Store
	staleAfter time.Duration
	nowFunc    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithStaleAfter overrides the staleness window.
func WithStaleAfter(d time.Duration) Option {
	return func(m *Manager) { m.staleAfter = d }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.nowFunc = now }
}

// NewManager creates a recovery manager over the given store.
func NewManager(st store.Store, opts ...Option) *Manager {
	m := &Manager{
		st:         st,
		staleAfter: DefaultStaleAfter,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recover scans the store for non-terminal conversations and logs a
// per-state summary. Conversations whose last interaction predates the
// staleness window are reported so the nurture sweep picks them up; no
// state is mutated here.
func (m *Manager) Recover(ctx context.Context) (Summary, error) {
	slog.Info("Recovery starting startup scan")

	prospects, err := m.st.ListActiveProspects()
	if err != nil {
		slog.Error("Recovery failed to list active prospects", "error", err)
		return Summary{}, fmt.Errorf("failed to list active prospects: %w", err)
	}

	summary := Summary{
		Active:  len(prospects),
		ByState: make(map[models.ConversationState]int),
	}
	cutoff := m.nowFunc().Add(-m.staleAfter)

	for _, p := range prospects {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.ByState[p.ConversationState]++
		if p.LastInteraction.Before(cutoff) {
			summary.Stale = append(summary.Stale, p.PhoneNumber)
			slog.Warn("Recovery found stalled conversation", "phone", p.PhoneNumber, "state", p.ConversationState, "last_interaction", p.LastInteraction)
		}
	}

	for state, count := range summary.ByState {
		slog.Info("Recovery active conversations", "state", state, "count", count)
	}
	slog.Info("Recovery scan complete", "active", summary.Active, "stale", len(summary.Stale))
	return summary, nil
}
