// Nurture sweep: a cron job that re-engages prospects parked in follow-up.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// DefaultSweepCron runs the sweep at 09:30 on business days.
const DefaultSweepCron = "30 9 * * 1-5"

// DefaultSweepAge is how stale a follow-up conversation must be before the
// sweep nudges it.
const DefaultSweepAge = 72 * time.Hour

// NudgeMessage is the re-engagement text sent by the sweep.
const NudgeMessage = "¡Hola de nuevo! 👋 Quedamos en conversar sobre el monitoreo de fatiga para su flota. ¿Le gustaría retomar y agendar una demostración?"

// Sender is the minimal outbound-message dependency of the sweep.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// ProspectStore exposes the listing the sweep iterates and the save needed
// to record which prospects have been nudged.
type ProspectStore interface {
	ListActiveProspects() ([]*models.ProspectState, error)
	SaveProspect(p *models.ProspectState) error
}

// Sweeper schedules and runs the periodic nurture sweep.
type Sweeper struct {
	cron    *cron.Cron
	st      ProspectStore
	sender  Sender
	maxAge  time.Duration
	nowFunc func() time.Time
}

// NewSweeper creates a sweeper with the default staleness window.
func NewSweeper(st ProspectStore, sender Sender) *Sweeper {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Sweeper{
		cron:    c,
		st:      st,
		sender:  sender,
		maxAge:  DefaultSweepAge,
		nowFunc: time.Now,
	}
}

// Start registers the sweep on the given cron expression and starts the
// scheduler. An invalid expression is returned as an error.
func (s *Sweeper) Start(ctx context.Context, expr string) error {
	if expr == "" {
		expr = DefaultSweepCron
	}
	if _, err := s.cron.AddFunc(expr, func() { s.Sweep(ctx) }); err != nil {
		slog.Error("Sweeper failed to register cron job", "error", err, "expr", expr)
		return err
	}
	s.cron.Start()
	slog.Info("Sweeper started", "expr", expr, "max_age", s.maxAge)
	return nil
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	slog.Info("Sweeper stopped")
}

// Sweep runs one pass: every follow-up/nurturing prospect whose last
// interaction is older than the staleness window gets one nudge message.
// The nudge time is persisted so a prospect who stays silent is not nudged
// again until a full staleness window has passed. Send failures are logged
// and skipped; the next pass retries naturally.
func (s *Sweeper) Sweep(ctx context.Context) {
	prospects, err := s.st.ListActiveProspects()
	if err != nil {
		slog.Error("Sweeper failed to list prospects", "error", err)
		return
	}

	cutoff := s.nowFunc().Add(-s.maxAge)
	nudged := 0
	for _, p := range prospects {
		if p.ConversationState != models.StateFollowUp && p.ConversationState != models.StateNurturing {
			continue
		}
		if p.LastInteraction.After(cutoff) || p.LastNudge.After(cutoff) {
			continue
		}
		if err := s.sender.SendMessage(ctx, p.PhoneNumber, NudgeMessage); err != nil {
			slog.Error("Sweeper nudge send failed", "error", err, "phone", p.PhoneNumber)
			continue
		}
		p.LastNudge = s.nowFunc()
		if err := s.st.SaveProspect(p); err != nil {
			slog.Error("Sweeper failed to record nudge", "error", err, "phone", p.PhoneNumber)
		}
		nudged++
	}
	slog.Info("Sweeper pass complete", "candidates", len(prospects), "nudged", nudged)
}
