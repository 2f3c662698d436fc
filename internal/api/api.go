// Package api provides HTTP handlers and the main server logic for LeadPipe.
//
// Run wires together the store, the NLU oracle, the scheduling heuristic,
// the appointment handoff client, the conversation engine and a WhatsApp
// transport, then serves the operator HTTP endpoints until shutdown.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/flow"
	"github.com/VigiaLabs/LeadPipe/internal/handoff"
	"github.com/VigiaLabs/LeadPipe/internal/messaging"
	"github.com/VigiaLabs/LeadPipe/internal/nlu"
	"github.com/VigiaLabs/LeadPipe/internal/recovery"
	"github.com/VigiaLabs/LeadPipe/internal/schedule"
	"github.com/VigiaLabs/LeadPipe/internal/store"
	"github.com/VigiaLabs/LeadPipe/internal/twiliowhatsapp"
	"github.com/VigiaLabs/LeadPipe/internal/whatsapp"
)

// DefaultAddr is the default API listen address.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Opts holds configuration for the API server and service wiring.
type Opts struct {
	Addr              string
	WebhookURL        string
	VendorName        string
	VendorEmail       string
	Timezone          string
	SweepCron         string
	UseTwilio         bool
	CalendarCreds     bool
	DisableHumanDelay bool
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithWebhookURL sets the Make.com appointment webhook URL.
func WithWebhookURL(url string) Option {
	return func(o *Opts) { o.WebhookURL = url }
}

// WithVendorContact sets the sales contact attached to every appointment.
func WithVendorContact(name, email string) Option {
	return func(o *Opts) {
		o.VendorName = name
		o.VendorEmail = email
	}
}

// WithTimezone sets the business timezone (IANA name).
func WithTimezone(tz string) Option {
	return func(o *Opts) { o.Timezone = tz }
}

// WithSweepCron overrides the nurture sweep schedule.
func WithSweepCron(expr string) Option {
	return func(o *Opts) { o.SweepCron = expr }
}

// WithTwilioTransport selects the Twilio transport instead of whatsmeow.
func WithTwilioTransport() Option {
	return func(o *Opts) { o.UseTwilio = true }
}

// WithCalendarCredentials marks that real calendar credentials exist.
func WithCalendarCredentials() Option {
	return func(o *Opts) { o.CalendarCreds = true }
}

// WithoutHumanDelay disables the humanized typing delay on replies.
func WithoutHumanDelay() Option {
	return func(o *Opts) { o.DisableHumanDelay = true }
}

// Server carries the dependencies the HTTP handlers need.
type Server struct {
	st         store.Store
	msgService messaging.Service
}

// NewServer creates a Server for the HTTP handlers. Exposed for tests.
func NewServer(st store.Store, msgService messaging.Service) *Server {
	return &Server{st: st, msgService: msgService}
}

// Run bootstraps every LeadPipe module and serves the API until SIGINT or
// SIGTERM. It blocks for the lifetime of the process.
func Run(waOpts []whatsapp.Option, storeOpts []store.Option, nluOpts []nlu.Option, apiOpts []Option) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.WebhookURL == "" {
		return fmt.Errorf("appointment webhook URL must be configured")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.NewStore(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("Server failed to close store", "error", cerr)
		}
	}()

	var oracle nlu.ClientInterface
	if client, nerr := nlu.NewClient(nluOpts...); nerr != nil {
		slog.Warn("Server running with heuristics-only oracle", "reason", nerr)
		oracle = nlu.NewFallbackClient()
	} else {
		oracle = client
	}

	var slotOpts []schedule.Option
	if cfg.Timezone != "" {
		slotOpts = append(slotOpts, schedule.WithTimezone(cfg.Timezone))
	}
	if cfg.CalendarCreds {
		slotOpts = append(slotOpts, schedule.WithCalendarCredentials())
	}
	slots, err := schedule.NewHeuristic(slotOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize slot heuristic: %w", err)
	}

	bookerOpts := []handoff.Option{handoff.WithWebhookURL(cfg.WebhookURL)}
	if cfg.VendorName != "" || cfg.VendorEmail != "" {
		bookerOpts = append(bookerOpts, handoff.WithVendorContact(cfg.VendorName, cfg.VendorEmail))
	}
	booker, err := handoff.NewClient(bookerOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize handoff client: %w", err)
	}

	var engineOpts []flow.Option
	if cfg.Timezone != "" {
		loc, lerr := time.LoadLocation(cfg.Timezone)
		if lerr != nil {
			return fmt.Errorf("failed to load timezone %s: %w", cfg.Timezone, lerr)
		}
		engineOpts = append(engineOpts, flow.WithLocation(loc))
	}
	engine := flow.NewEngine(flow.NewStoreBasedStateManager(st), oracle, slots, booker, engineOpts...)

	msgService, twilioSvc, err := buildTransport(cfg, waOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging transport: %w", err)
	}

	if _, rerr := recovery.NewManager(st).Recover(ctx); rerr != nil {
		slog.Error("Server startup recovery failed", "error", rerr)
	}

	var dispatchOpts []messaging.DispatcherOption
	if cfg.DisableHumanDelay {
		dispatchOpts = append(dispatchOpts, messaging.WithDelayFunc(messaging.NoDelay))
	}
	dispatcher := messaging.NewDispatcher(msgService, engine, st, dispatchOpts...)

	if err := msgService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	defer func() {
		if serr := msgService.Stop(); serr != nil {
			slog.Error("Server failed to stop messaging service", "error", serr)
		}
	}()
	dispatcher.Start(ctx)

	sweeper := schedule.NewSweeper(st, msgService)
	if err := sweeper.Start(ctx, cfg.SweepCron); err != nil {
		return fmt.Errorf("failed to start nurture sweep: %w", err)
	}
	defer sweeper.Stop()

	server := NewServer(st, msgService)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.healthHandler)
	mux.HandleFunc("/prospects", server.prospectsHandler)
	mux.HandleFunc("/prospects/", server.prospectHandler)
	mux.HandleFunc("/send", server.sendHandler)
	if twilioSvc != nil {
		mux.HandleFunc("/twilio/inbound", twilioSvc.TwilioWebhookHandler)
	}

	httpServer := &http.Server{Addr: cfg.Addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("LeadPipe API listening", "addr", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Server shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server graceful shutdown failed", "error", err)
		}
	}

	return nil
}

// buildTransport constructs the configured messaging transport. The second
// return value is non-nil only for Twilio, whose inbound webhook handler
// must be mounted on the HTTP mux.
func buildTransport(cfg Opts, waOpts []whatsapp.Option) (messaging.Service, *messaging.TwilioService, error) {
	if cfg.UseTwilio {
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, err
		}
		svc := messaging.NewTwilioService(client)
		return svc, svc, nil
	}

	client, err := whatsapp.NewClient(waOpts...)
	if err != nil {
		return nil, nil, err
	}
	return messaging.NewWhatsAppService(client), nil, nil
}
