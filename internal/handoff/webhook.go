// Package handoff formats confirmed appointments and posts them to the
// external automation webhook that owns calendar creation. The core only
// shapes the payload; everything after the POST belongs to the automation.
package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

const (
	// DefaultTimeout bounds the webhook call.
	DefaultTimeout = 15 * time.Second
	// DefaultMeetingDuration is the demo length used to derive Fecha_Fin.
	DefaultMeetingDuration = 30 * time.Minute
	// meetingPlatform is the literal the receiving automation filters on.
	meetingPlatform = "Google Meet"
	// webhookTimeFormat is the naive local datetime the automation expects.
	// The receiving scenario parses this exact layout; do not switch to
	// RFC 3339 with a zone suffix.
	webhookTimeFormat = "2006-01-02T15:04:05"
)

// AppointmentCreator is the seam consumed by the conversation flow.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, p *models.ProspectState, slot models.Slot) (*models.Appointment, error)
}

// participant mirrors the automation's attendee shape. Field names and
// casing are part of the contract.
type participant struct {
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
}

// webhookPayload is the exact document the automation filters on.
type webhookPayload struct {
	Titulo            string        `json:"Titulo"`
	Empresa           string        `json:"Empresa"`
	Participantes     []participant `json:"Participantes"`
	Telefono          string        `json:"Telefono"`
	FechaDeInicio     string        `json:"Fecha_de_Inicio"`
	FechaFin          string        `json:"Fecha_Fin"`
	PlataformaReunion string        `json:"Plataforma Reunion"`
}

// webhookResult is the subset of the automation's reply we care about.
type webhookResult struct {
	Error       string `json:"error"`
	HangoutLink string `json:"Hangout_Link"`
}

// Opts holds configuration options for the webhook client.
type Opts struct {
	WebhookURL      string
	VendorName      string
	VendorEmail     string
	Timeout         time.Duration
	MeetingDuration time.Duration
	HTTPClient      *http.Client
}

// Option defines a configuration option for the webhook client.
type Option func(*Opts)

// WithWebhookURL sets the automation webhook endpoint.
func WithWebhookURL(url string) Option {
	return func(o *Opts) { o.WebhookURL = url }
}

// WithVendorContact sets the vendor-side attendee added to every meeting.
func WithVendorContact(name, email string) Option {
	return func(o *Opts) {
		o.VendorName = name
		o.VendorEmail = email
	}
}

// WithTimeout overrides the webhook call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithMeetingDuration overrides the demo meeting length.
func WithMeetingDuration(d time.Duration) Option {
	return func(o *Opts) { o.MeetingDuration = d }
}

// WithHTTPClient injects an HTTP client, used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client posts appointment payloads to the automation webhook.
type Client struct {
	url             string
	vendorName      string
	vendorEmail     string
	meetingDuration time.Duration
	http            *http.Client
}

// NewClient creates a webhook client. The webhook URL is required; everything
// else has defaults.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Timeout:         DefaultTimeout,
		MeetingDuration: DefaultMeetingDuration,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("webhook URL not set")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	slog.Debug("Handoff NewClient created", "url", cfg.WebhookURL, "timeout", cfg.Timeout)
	return &Client{
		url:             cfg.WebhookURL,
		vendorName:      cfg.VendorName,
		vendorEmail:     cfg.VendorEmail,
		meetingDuration: cfg.MeetingDuration,
		http:            httpClient,
	}, nil
}

// CreateAppointment shapes the payload for a confirmed slot and posts it.
// A non-2xx status, an `error` field in the reply, or any transport failure
// is returned as an error; the caller decides how to recover.
func (c *Client) CreateAppointment(ctx context.Context, p *models.ProspectState, slot models.Slot) (*models.Appointment, error) {
	start := slot.DateTime
	end := start.Add(c.meetingDuration)

	payload := webhookPayload{
		Titulo:            fmt.Sprintf("Demo VigiaLabs - %s", displayName(p)),
		Empresa:           displayCompany(p),
		Telefono:          p.PhoneNumber,
		FechaDeInicio:     start.Format(webhookTimeFormat),
		FechaFin:          end.Format(webhookTimeFormat),
		PlataformaReunion: meetingPlatform,
	}
	if c.vendorEmail != "" {
		payload.Participantes = append(payload.Participantes, participant{Nombre: c.vendorName, Email: c.vendorEmail})
	}
	payload.Participantes = append(payload.Participantes, participant{Nombre: displayName(p), Email: p.PrimaryEmail()})

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("Handoff CreateAppointment posting", "phone", p.PhoneNumber, "start", payload.FechaDeInicio)
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Handoff CreateAppointment request failed", "error", err, "phone", p.PhoneNumber)
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		slog.Error("Handoff CreateAppointment read failed", "error", err, "phone", p.PhoneNumber)
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Handoff CreateAppointment rejected", "status", resp.StatusCode, "phone", p.PhoneNumber)
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	// The automation replies with JSON on success, but a bare "Accepted"
	// body also counts as success with no meet link.
	var result webhookResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			slog.Warn("Handoff CreateAppointment non-JSON reply", "phone", p.PhoneNumber)
		}
	}
	if result.Error != "" {
		slog.Error("Handoff CreateAppointment automation error", "error", result.Error, "phone", p.PhoneNumber)
		return nil, fmt.Errorf("webhook reported error: %s", result.Error)
	}

	appt := &models.Appointment{
		ID:       uuid.New().String(),
		Date:     slot.Date,
		Time:     slot.Time,
		DateTime: start.Format(time.RFC3339),
		MeetLink: result.HangoutLink,
	}
	slog.Info("Handoff CreateAppointment succeeded", "phone", p.PhoneNumber, "appointmentID", appt.ID, "meetLink", appt.MeetLink != "")
	return appt, nil
}

func displayName(p *models.ProspectState) string {
	if p.Name == "" {
		return models.UnknownSentinel
	}
	return p.Name
}

func displayCompany(p *models.ProspectState) string {
	if p.Company == "" {
		return models.UnknownSentinel
	}
	return p.Company
}
