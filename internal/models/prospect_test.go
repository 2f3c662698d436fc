package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAddEmailValidation(t *testing.T) {
	p := NewProspectState("51900000001")

	if err := p.AddEmail("a@b.com"); err != nil {
		t.Fatalf("expected valid email to be accepted, got %v", err)
	}
	if err := p.AddEmail("not-an-email"); err != ErrInvalidEmail {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if err := p.AddEmail("a@b.com"); err != nil {
		t.Errorf("duplicate email should be a no-op, got %v", err)
	}
	if len(p.Emails) != 1 {
		t.Errorf("expected 1 email, got %d", len(p.Emails))
	}
	if p.PrimaryEmail() != "a@b.com" {
		t.Errorf("expected primary email a@b.com, got %q", p.PrimaryEmail())
	}
}

func TestSlotLifecycle(t *testing.T) {
	p := NewProspectState("51900000001")
	slot := Slot{Date: "lunes 08/09", Time: "10:00", DateTime: time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC)}

	if err := p.ConfirmSlot(); err != ErrNoSuggestedSlot {
		t.Errorf("expected ErrNoSuggestedSlot, got %v", err)
	}

	if err := p.SuggestSlot(slot); err != nil {
		t.Fatalf("SuggestSlot failed: %v", err)
	}
	if err := p.ConfirmSlot(); err != nil {
		t.Fatalf("ConfirmSlot failed: %v", err)
	}
	if p.SuggestedSlot != nil {
		t.Error("accepting a slot must clear the pending suggestion")
	}
	if p.SelectedSlot == nil || !p.SelectedSlot.SameInstant(slot) {
		t.Error("accepted slot not recorded as selected")
	}
}

func TestRejectSlotDeduplication(t *testing.T) {
	p := NewProspectState("51900000001")
	slot := Slot{Time: "10:00", DateTime: time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC)}

	if err := p.SuggestSlot(slot); err != nil {
		t.Fatalf("SuggestSlot failed: %v", err)
	}
	p.RejectSlot()
	if p.SuggestedSlot != nil {
		t.Error("rejecting a slot must clear the pending suggestion")
	}
	if !p.WasRejected(slot) {
		t.Error("rejected slot should be remembered")
	}
	other := Slot{Time: "15:00", DateTime: time.Date(2026, 9, 8, 15, 0, 0, 0, time.UTC)}
	if p.WasRejected(other) {
		t.Error("unrelated slot reported as rejected")
	}
}

func TestSuggestSlotAfterAppointmentCreated(t *testing.T) {
	p := NewProspectState("51900000001")
	p.AppointmentCreated = true

	err := p.SuggestSlot(Slot{Time: "10:00", DateTime: time.Now()})
	if err != ErrAppointmentFinal {
		t.Errorf("expected ErrAppointmentFinal once appointment exists, got %v", err)
	}
}

func TestHasIdentitySentinels(t *testing.T) {
	cases := []struct {
		name, company string
		want          bool
	}{
		{"Juan Pérez", "Transportes ABC", true},
		{"", "Transportes ABC", false},
		{"Juan Pérez", "", false},
		{UnknownSentinel, "Transportes ABC", false},
		{"Juan Pérez", UnknownSentinel, false},
		{"Juan Pérez", "Desconocida", false},
	}
	for _, tc := range cases {
		p := &ProspectState{Name: tc.name, Company: tc.company}
		if got := p.HasIdentity(); got != tc.want {
			t.Errorf("HasIdentity(%q, %q) = %v, want %v", tc.name, tc.company, got, tc.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := NewProspectState("51900000001")
	p.RecordAnswer("¿Cuántos vehículos opera?", "20 camiones")
	if err := p.AddEmail("a@b.com"); err != nil {
		t.Fatalf("AddEmail failed: %v", err)
	}
	p.InterestAnalysis = &InterestAnalysis{InterestScore: 8}

	cp := p.Clone()
	cp.RecordAnswer("otra", "respuesta")
	cp.Emails[0] = "x@y.com"
	cp.InterestAnalysis.InterestScore = 2

	if len(p.QualificationAnswers) != 1 {
		t.Error("clone mutation leaked into original answers")
	}
	if p.Emails[0] != "a@b.com" {
		t.Error("clone mutation leaked into original emails")
	}
	if p.InterestAnalysis.InterestScore != 8 {
		t.Error("clone mutation leaked into original analysis")
	}
}

func TestProspectStateJSONRoundTrip(t *testing.T) {
	p := NewProspectState("51900000001")
	p.Name = "María López"
	p.Company = "Transportes ABC"
	p.ConversationState = StateInitialQualification
	p.RecordAnswer("¿Cuántos vehículos opera?", "25")

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var got ProspectState
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.Name != p.Name || got.ConversationState != p.ConversationState {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if len(got.QualificationAnswers) != 1 || got.QualificationAnswers[0].Answer != "25" {
		t.Errorf("round trip lost answers: %+v", got.QualificationAnswers)
	}
}

func TestNormalizedBody(t *testing.T) {
	m := Message{From: "51900000001", Type: MessageTypeImage}
	if m.NormalizedBody() != MediaPlaceholder {
		t.Errorf("expected media placeholder, got %q", m.NormalizedBody())
	}
	m = Message{From: "51900000001", Type: MessageTypeText, Body: "Hola"}
	if m.NormalizedBody() != "Hola" {
		t.Errorf("expected raw body, got %q", m.NormalizedBody())
	}
}
