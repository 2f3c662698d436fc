package handoff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

func schedulingProspect() (*models.ProspectState, models.Slot) {
	p := models.NewProspectState("51900000001")
	p.Name = "Juan Pérez"
	p.Company = "Transportes ABC"
	p.Emails = []string{"juan@transportesabc.com"}
	slot := models.Slot{
		Date:     "lunes 07/09",
		Time:     "10:00",
		DateTime: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
	}
	return p, slot
}

func TestCreateAppointmentPayloadShape(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"Hangout_Link": "https://meet.google.com/abc-defg-hij"})
	}))
	defer srv.Close()

	client, err := NewClient(
		WithWebhookURL(srv.URL),
		WithVendorContact("Equipo VigiaLabs", "ventas@vigialabs.com"),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	p, slot := schedulingProspect()
	appt, err := client.CreateAppointment(context.Background(), p, slot)
	if err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}

	// The automation filters on exact field names and casing.
	for _, field := range []string{"Titulo", "Empresa", "Participantes", "Telefono", "Fecha_de_Inicio", "Fecha_Fin", "Plataforma Reunion"} {
		if _, ok := got[field]; !ok {
			t.Errorf("payload missing field %q", field)
		}
	}

	var platform string
	json.Unmarshal(got["Plataforma Reunion"], &platform)
	if platform != "Google Meet" {
		t.Errorf("Plataforma Reunion = %q, want \"Google Meet\"", platform)
	}

	var start, end string
	json.Unmarshal(got["Fecha_de_Inicio"], &start)
	json.Unmarshal(got["Fecha_Fin"], &end)
	if start != "2026-09-07T10:00:00" {
		t.Errorf("Fecha_de_Inicio = %q", start)
	}
	if end != "2026-09-07T10:30:00" {
		t.Errorf("Fecha_Fin = %q, want 30 minutes after start", end)
	}

	var attendees []struct {
		Nombre string `json:"nombre"`
		Email  string `json:"email"`
	}
	json.Unmarshal(got["Participantes"], &attendees)
	if len(attendees) != 2 {
		t.Fatalf("expected vendor + prospect attendees, got %+v", attendees)
	}
	if attendees[1].Nombre != "Juan Pérez" || attendees[1].Email != "juan@transportesabc.com" {
		t.Errorf("prospect attendee mismatch: %+v", attendees[1])
	}

	if appt.MeetLink != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("meet link not extracted: %+v", appt)
	}
	if appt.ID == "" {
		t.Error("appointment ID not generated")
	}
	if appt.Date != slot.Date || appt.Time != slot.Time {
		t.Errorf("appointment does not mirror the slot: %+v", appt)
	}
}

func TestCreateAppointmentErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with an error field still counts as failure.
		json.NewEncoder(w).Encode(map[string]string{"error": "calendar unavailable"})
	}))
	defer srv.Close()

	client, err := NewClient(WithWebhookURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	p, slot := schedulingProspect()
	if _, err := client.CreateAppointment(context.Background(), p, slot); err == nil {
		t.Error("expected error when reply carries an error field")
	}
}

func TestCreateAppointmentNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(WithWebhookURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	p, slot := schedulingProspect()
	if _, err := client.CreateAppointment(context.Background(), p, slot); err == nil {
		t.Error("expected error on non-2xx status")
	}
}

func TestCreateAppointmentNonJSONSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Accepted"))
	}))
	defer srv.Close()

	client, err := NewClient(WithWebhookURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	p, slot := schedulingProspect()
	appt, err := client.CreateAppointment(context.Background(), p, slot)
	if err != nil {
		t.Fatalf("bare 2xx body should succeed: %v", err)
	}
	if appt.MeetLink != "" {
		t.Errorf("no meet link expected, got %q", appt.MeetLink)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Error("expected error when webhook URL missing")
	}
}
