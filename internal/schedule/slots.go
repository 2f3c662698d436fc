// Package schedule computes meeting slot candidates under business-hour
// constraints.
//
// There is no true calendar conflict-checking here: the heuristic proposes
// the nearest bookable instant, and when no calendar credentials are
// configured it falls back to deterministic simulated slots. Callers branch
// display text on Slot.IsSimulated, never availability logic.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/extract"
	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// DefaultTimezone is the business timezone used when none is configured.
const DefaultTimezone = "America/Lima"

// Simulated slot hours proposed on consecutive business days.
var simulatedHours = []int{10, 15}

// SlotFinder is the scheduling dependency injected into the flow engine.
type SlotFinder interface {
	// NearestSlot returns the closest bookable slot starting dayOffset days
	// from now.
	NearestSlot(ctx context.Context, dayOffset int) (models.Slot, error)

	// AlternativeSlots returns up to n bookable slots strictly after the
	// given slot, each on a distinct datetime.
	AlternativeSlots(ctx context.Context, after models.Slot, n int) ([]models.Slot, error)
}

// Opts holds configuration options for the slot heuristic.
type Opts struct {
	Timezone    string
	HasCalendar bool             // true when real calendar credentials exist
	Now         func() time.Time // injectable clock for tests
}

// Option defines a configuration option for the slot heuristic.
type Option func(*Opts)

// WithTimezone sets the business timezone (IANA name).
func WithTimezone(tz string) Option {
	return func(o *Opts) { o.Timezone = tz }
}

// WithCalendarCredentials marks that real calendar credentials are
// configured, disabling the simulated-slot fallback.
func WithCalendarCredentials() Option {
	return func(o *Opts) { o.HasCalendar = true }
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// Heuristic implements SlotFinder with the clamping algorithm.
type Heuristic struct {
	loc       *time.Location
	now       func() time.Time
	simulated bool
}

// NewHeuristic builds the slot heuristic, applying any provided options.
func NewHeuristic(opts ...Option) (*Heuristic, error) {
	cfg := Opts{Timezone: DefaultTimezone, Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", cfg.Timezone, err)
	}

	h := &Heuristic{loc: loc, now: cfg.Now, simulated: !cfg.HasCalendar}
	slog.Debug("schedule heuristic created", "timezone", cfg.Timezone, "simulated", h.simulated)
	return h, nil
}

// NearestSlot computes the closest bookable slot dayOffset days out.
func (h *Heuristic) NearestSlot(ctx context.Context, dayOffset int) (models.Slot, error) {
	now := h.now().In(h.loc)

	if h.simulated {
		// Two simulated slots per business day; the offset indexes into them.
		slots := h.simulatedSlots(now, 2*dayOffset+1)
		return slots[len(slots)-1], nil
	}

	t := clampToBusinessHours(now.AddDate(0, 0, dayOffset), now)
	return h.slotFor(t, now), nil
}

// AlternativeSlots walks forward from the given slot proposing the next
// bookable instants, never repeating a datetime.
func (h *Heuristic) AlternativeSlots(ctx context.Context, after models.Slot, n int) ([]models.Slot, error) {
	now := h.now().In(h.loc)
	var out []models.Slot

	if h.simulated {
		for _, s := range h.simulatedSlots(now, n+4) {
			if s.SameInstant(after) || containsInstant(out, s) || !s.DateTime.After(after.DateTime) {
				continue
			}
			out = append(out, s)
			if len(out) == n {
				break
			}
		}
		return out, nil
	}

	cursor := after.DateTime.In(h.loc)
	if cursor.IsZero() || cursor.Before(now) {
		cursor = now
	}

	for len(out) < n {
		cursor = cursor.Add(time.Hour)
		candidate := clampToBusinessHours(cursor, now)
		slot := h.slotFor(candidate, now)
		if slot.SameInstant(after) || containsInstant(out, slot) {
			cursor = candidate
			continue
		}
		out = append(out, slot)
		cursor = candidate
	}
	return out, nil
}

// simulatedSlots generates deterministic 10:00/15:00 proposals on the next
// business days.
func (h *Heuristic) simulatedSlots(now time.Time, n int) []models.Slot {
	var out []models.Slot
	day := now
	for len(out) < n {
		day = day.AddDate(0, 0, 1)
		if isWeekend(day) {
			continue
		}
		for _, hour := range simulatedHours {
			t := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, h.loc)
			s := h.slotFor(t, now)
			s.IsSimulated = true
			out = append(out, s)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func (h *Heuristic) slotFor(t, now time.Time) models.Slot {
	return models.Slot{
		Date:       FormatDate(t),
		Time:       t.Format("15:04"),
		DateTime:   t,
		IsToday:    sameDay(t, now),
		IsTomorrow: sameDay(t, now.AddDate(0, 0, 1)),
	}
}

// clampToBusinessHours applies the clamping rules: weekends roll to Monday
// 09:00, early mornings clamp to 09:00, lunch clamps to 14:00, and evenings
// roll to the next business day 09:00.
func clampToBusinessHours(t, now time.Time) time.Time {
	// Round up to the next full hour for tidy proposals.
	if t.Minute() != 0 || t.Second() != 0 {
		t = t.Truncate(time.Hour).Add(time.Hour)
	}

	for {
		switch {
		case isWeekend(t):
			t = nextDayAt(t, extract.OpeningHour)
		case t.Hour() < extract.OpeningHour:
			t = time.Date(t.Year(), t.Month(), t.Day(), extract.OpeningHour, 0, 0, 0, t.Location())
		case t.Hour() == extract.LunchHour:
			t = time.Date(t.Year(), t.Month(), t.Day(), extract.LunchHour+1, 0, 0, 0, t.Location())
		case t.Hour() >= extract.ClosingHour:
			t = nextDayAt(t, extract.OpeningHour)
		case !t.After(now):
			t = t.Add(time.Hour)
		default:
			return t
		}
	}
}

func nextDayAt(t time.Time, hour int) time.Time {
	n := t.AddDate(0, 0, 1)
	return time.Date(n.Year(), n.Month(), n.Day(), hour, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func containsInstant(slots []models.Slot, s models.Slot) bool {
	for _, existing := range slots {
		if existing.SameInstant(s) {
			return true
		}
	}
	return false
}

var spanishWeekdays = map[time.Weekday]string{
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miércoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sábado",
	time.Sunday:    "domingo",
}

// FormatDate renders a slot date the way the bot speaks: "lunes 07/09".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %02d/%02d", spanishWeekdays[t.Weekday()], t.Day(), int(t.Month()))
}
