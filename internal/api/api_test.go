package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VigiaLabs/LeadPipe/internal/messaging"
	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/store"
	"github.com/VigiaLabs/LeadPipe/internal/whatsapp"
)

func testServer(t *testing.T) (*Server, *store.InMemoryStore, *whatsapp.MockClient) {
	t.Helper()
	st := store.NewInMemoryStore()
	mock := whatsapp.NewMockClient()
	return NewServer(st, messaging.NewWhatsAppService(mock)), st, mock
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthHandler(t *testing.T) {
	server, st, _ := testServer(t)

	p := models.NewProspectState("51900000001")
	p.ConversationState = models.StateGreeting
	if err := st.SaveProspect(p); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	server.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "healthy" {
		t.Errorf("status = %v", health["status"])
	}
	if health["active_conversations"] != float64(1) {
		t.Errorf("active_conversations = %v, want 1", health["active_conversations"])
	}

	rec = httptest.NewRecorder()
	server.healthHandler(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health status = %d, want 405", rec.Code)
	}
}

func TestProspectsHandlerListsActive(t *testing.T) {
	server, st, _ := testServer(t)

	active := models.NewProspectState("51900000001")
	active.ConversationState = models.StateInvitation
	active.Name = "Juan Pérez"
	active.Company = "Transportes ABC"
	if err := st.SaveProspect(active); err != nil {
		t.Fatal(err)
	}

	closed := models.NewProspectState("51900000002")
	closed.ConversationState = models.StateClosed
	if err := st.SaveProspect(closed); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	server.prospectsHandler(rec, httptest.NewRequest(http.MethodGet, "/prospects", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeResponse(t, rec)
	if resp.Status != models.APIStatusOK {
		t.Errorf("envelope status = %q", resp.Status)
	}
	list, ok := resp.Result.([]interface{})
	if !ok {
		t.Fatalf("result is not a list: %T", resp.Result)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 active prospect, got %d", len(list))
	}
	entry := list[0].(map[string]interface{})
	if entry["phone_number"] != "51900000001" || entry["company"] != "Transportes ABC" {
		t.Errorf("unexpected summary: %v", entry)
	}
}

func TestProspectHandlerLookup(t *testing.T) {
	server, st, _ := testServer(t)

	p := models.NewProspectState("51900000001")
	p.ConversationState = models.StateEmailCollection
	p.Emails = []string{"juan@transportesabc.pe"}
	if err := st.SaveProspect(p); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	server.prospectHandler(rec, httptest.NewRequest(http.MethodGet, "/prospects/%2B51%20900%20000%20001", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (canonicalized lookup)", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.prospectHandler(rec, httptest.NewRequest(http.MethodGet, "/prospects/51999999999", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown prospect status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.prospectHandler(rec, httptest.NewRequest(http.MethodGet, "/prospects/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid phone status = %d, want 400", rec.Code)
	}
}

func TestSendHandler(t *testing.T) {
	server, _, mock := testServer(t)

	body := `{"to":"+51 900 000 001","body":"Hola desde VigiaLabs"}`
	rec := httptest.NewRecorder()
	server.sendHandler(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	sent := mock.Sent()
	if len(sent) != 1 || sent[0].To != "51900000001" {
		t.Fatalf("unexpected outbound messages: %v", sent)
	}

	rec = httptest.NewRecorder()
	server.sendHandler(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.sendHandler(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(`{"to":"abc","body":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid recipient status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.sendHandler(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(`{"to":"51900000001"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.sendHandler(rec, httptest.NewRequest(http.MethodGet, "/send", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /send status = %d, want 405", rec.Code)
	}
}
