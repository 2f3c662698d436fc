package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/twiliowhatsapp"
	"github.com/VigiaLabs/LeadPipe/internal/whatsapp"
)

func TestCanonicalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"51900000001", "51900000001", false},
		{"+51 900 000 001", "51900000001", false},
		{"whatsapp:+51900000001", "51900000001", false},
		{"(51) 900-000-001", "51900000001", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true},
	}

	for _, tc := range cases {
		got, err := canonicalizePhone(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("canonicalizePhone(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("canonicalizePhone(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("canonicalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWhatsAppServiceSendEmitsReceipt(t *testing.T) {
	mock := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mock)

	if err := svc.SendMessage(context.Background(), "+51 900 000 001", "Hola"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(sent))
	}
	if sent[0].To != "51900000001" {
		t.Errorf("recipient not canonicalized: %q", sent[0].To)
	}

	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "51900000001" || receipt.Status != models.StatusTypeSent {
			t.Errorf("unexpected receipt: %+v", receipt)
		}
	case <-time.After(time.Second):
		t.Fatal("no sent receipt emitted")
	}
}

func TestWhatsAppServiceRejectsInvalidRecipient(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.SendMessage(context.Background(), "not-a-number", "Hola"); err == nil {
		t.Fatal("expected validation error for non-numeric recipient")
	}
}

func postTwilioForm(t *testing.T, svc *TwilioService, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/twilio/inbound", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	svc.TwilioWebhookHandler(rec, req)
	return rec
}

func TestTwilioWebhookEmitsResponse(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())

	rec := postTwilioForm(t, svc, url.Values{
		"From": {"whatsapp:+51900000001"},
		"Body": {"Hola, quiero información"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	select {
	case resp := <-svc.Responses():
		if resp.From != "51900000001" {
			t.Errorf("From = %q, want canonical digits", resp.From)
		}
		if resp.Body != "Hola, quiero información" {
			t.Errorf("Body = %q", resp.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("no response emitted")
	}
}

func TestTwilioWebhookMediaBecomesPlaceholder(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())

	rec := postTwilioForm(t, svc, url.Values{
		"From":      {"whatsapp:+51900000001"},
		"NumMedia":  {"1"},
		"MediaUrl0": {"https://api.twilio.com/media/123"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	select {
	case resp := <-svc.Responses():
		if resp.Body != models.MediaPlaceholder {
			t.Errorf("Body = %q, want media placeholder", resp.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("no response emitted")
	}
}

func TestTwilioWebhookRejectsEmpty(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())

	rec := postTwilioForm(t, svc, url.Values{"From": {"whatsapp:+51900000001"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", rec.Code)
	}

	rec = postTwilioForm(t, svc, url.Values{"Body": {"hola"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing sender status = %d, want 400", rec.Code)
	}
}

func TestTwilioServiceStoppedRejectsSend(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "51900000001", "Hola"); err != ErrServiceStopped {
		t.Errorf("SendMessage after Stop = %v, want ErrServiceStopped", err)
	}
}

func TestHumanizedDelayBounds(t *testing.T) {
	short := "Hola"
	long := strings.Repeat("texto largo ", 100)

	for i := 0; i < 20; i++ {
		d := HumanizedDelay(short)
		if d < delayBase || d >= delayBase+time.Duration(len([]rune(short)))*delayPerRune+delayJitter {
			t.Fatalf("short delay out of range: %v", d)
		}
		if dl := HumanizedDelay(long); dl >= delayCap+delayJitter {
			t.Fatalf("long delay exceeds cap: %v", dl)
		}
	}

	if NoDelay("anything") != 0 {
		t.Error("NoDelay should be zero")
	}
}
