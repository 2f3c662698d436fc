package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/store"
)

func TestRecoverSummarizesActiveConversations(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	fresh := models.NewProspectState("51900000001")
	fresh.ConversationState = models.StateInitialQualification
	fresh.LastInteraction = now.Add(-time.Hour)
	if err := st.SaveProspect(fresh); err != nil {
		t.Fatal(err)
	}

	stale := models.NewProspectState("51900000002")
	stale.ConversationState = models.StateFollowUp
	stale.LastInteraction = now.Add(-48 * time.Hour)
	if err := st.SaveProspect(stale); err != nil {
		t.Fatal(err)
	}

	done := models.NewProspectState("51900000003")
	done.ConversationState = models.StateCompleted
	if err := st.SaveProspect(done); err != nil {
		t.Fatal(err)
	}

	m := NewManager(st, WithClock(func() time.Time { return now }))
	summary, err := m.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}

	if summary.Active != 2 {
		t.Errorf("Active = %d, want 2 (terminal states excluded)", summary.Active)
	}
	if summary.ByState[models.StateInitialQualification] != 1 || summary.ByState[models.StateFollowUp] != 1 {
		t.Errorf("ByState = %v", summary.ByState)
	}
	if len(summary.Stale) != 1 || summary.Stale[0] != "51900000002" {
		t.Errorf("Stale = %v, want only the 48h-old follow-up", summary.Stale)
	}
}

func TestRecoverEmptyStore(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	summary, err := m.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if summary.Active != 0 || len(summary.Stale) != 0 {
		t.Errorf("unexpected summary on empty store: %+v", summary)
	}
}

func TestRecoverCustomStaleWindow(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	p := models.NewProspectState("51900000004")
	p.ConversationState = models.StateFollowUp
	p.LastInteraction = now.Add(-2 * time.Hour)
	if err := st.SaveProspect(p); err != nil {
		t.Fatal(err)
	}

	m := NewManager(st, WithClock(func() time.Time { return now }), WithStaleAfter(time.Hour))
	summary, err := m.Recover(context.Background())
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if len(summary.Stale) != 1 {
		t.Errorf("Stale = %v, want the 2h-old prospect with a 1h window", summary.Stale)
	}
}
