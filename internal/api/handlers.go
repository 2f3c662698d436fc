// Package api provides the HTTP handlers for LeadPipe operator endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// prospectSummary is the list-view projection of a prospect.
type prospectSummary struct {
	PhoneNumber       string                   `json:"phone_number"`
	ConversationState models.ConversationState `json:"conversation_state"`
	Name              string                   `json:"name,omitempty"`
	Company           string                   `json:"company,omitempty"`
	ProspectType      models.ProspectType      `json:"prospect_type,omitempty"`
	LastInteraction   time.Time                `json:"last_interaction"`
}

// sendRequest is the payload for operator-initiated outreach.
type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// healthHandler provides a health check endpoint (GET /health).
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if prospects, err := s.st.ListActiveProspects(); err != nil {
		slog.Warn("Server.healthHandler: failed to count active prospects", "error", err)
		healthData["status"] = "degraded"
		statusCode = http.StatusServiceUnavailable
	} else {
		healthData["active_conversations"] = len(prospects)
	}

	writeJSONResponse(w, statusCode, healthData)
}

// prospectsHandler lists active conversations (GET /prospects).
func (s *Server) prospectsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.prospectsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	prospects, err := s.st.ListActiveProspects()
	if err != nil {
		slog.Error("Server.prospectsHandler: failed to list prospects", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch prospects"))
		return
	}

	summaries := make([]prospectSummary, 0, len(prospects))
	for _, p := range prospects {
		summaries = append(summaries, prospectSummary{
			PhoneNumber:       p.PhoneNumber,
			ConversationState: p.ConversationState,
			Name:              p.Name,
			Company:           p.Company,
			ProspectType:      p.ProspectType,
			LastInteraction:   p.LastInteraction,
		})
	}

	slog.Debug("Server.prospectsHandler: prospects fetched", "count", len(summaries))
	writeJSONResponse(w, http.StatusOK, models.Success(summaries))
}

// prospectHandler returns the full record for one prospect
// (GET /prospects/{phone}).
func (s *Server) prospectHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.prospectHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	phone := strings.TrimPrefix(r.URL.Path, "/prospects/")
	if phone == "" || strings.Contains(phone, "/") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown prospect endpoint"))
		return
	}

	canonical, err := s.msgService.ValidateAndCanonicalizeRecipient(phone)
	if err != nil {
		slog.Warn("Server.prospectHandler: invalid phone", "error", err, "phone", phone)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	prospect, err := s.st.GetProspect(canonical)
	if err != nil {
		slog.Error("Server.prospectHandler: lookup failed", "error", err, "phone", canonical)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch prospect"))
		return
	}
	if prospect == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Prospect not found"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(prospect))
}

// sendHandler sends an operator-initiated message (POST /send).
func (s *Server) sendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sendHandler: processing send request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.sendHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.sendHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	canonicalTo, err := s.msgService.ValidateAndCanonicalizeRecipient(req.To)
	if err != nil {
		slog.Warn("Server.sendHandler: recipient validation failed", "error", err, "original_to", req.To)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if req.Body == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: body"))
		return
	}
	if len(req.Body) > models.MaxMessageBodyLength {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Message body exceeds maximum length"))
		return
	}

	if err := s.msgService.SendMessage(context.Background(), canonicalTo, req.Body); err != nil {
		slog.Error("Server.sendHandler: failed to send message", "error", err, "to", canonicalTo)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send message"))
		return
	}

	slog.Info("Server.sendHandler: message sent successfully", "to", canonicalTo)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message sent successfully", nil))
}
