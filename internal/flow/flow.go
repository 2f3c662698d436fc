// Package flow implements the conversation state machine. Each inbound
// message is dispatched to the handler for the prospect's current state;
// the handler mutates a working copy of the record and returns the reply
// text. State is persisted wholesale after every successful dispatch.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/handoff"
	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/nlu"
	"github.com/VigiaLabs/LeadPipe/internal/schedule"
)

// handlerFunc processes one inbound message for one state. It mutates the
// working copy in place and returns the reply text. A returned error aborts
// the dispatch: the incoming state is preserved and the user sees a generic
// apology.
type handlerFunc func(ctx context.Context, body string, p *models.ProspectState) (string, error)

// Opts holds configuration options for the engine.
type Opts struct {
	Now      func() time.Time
	Location *time.Location // business timezone for datetime parsing
}

// Option defines a configuration option for the engine.
type Option func(*Opts)

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// WithLocation sets the business timezone used to interpret datetimes the
// prospect proposes in free text.
func WithLocation(loc *time.Location) Option {
	return func(o *Opts) { o.Location = loc }
}

// Engine is the conversation state machine. All collaborators are injected;
// handlers never reach for globals.
type Engine struct {
	states   StateManager
	oracle   nlu.ClientInterface
	slots    schedule.SlotFinder
	booker   handoff.AppointmentCreator
	handlers map[models.ConversationState]handlerFunc
	now      func() time.Time
	loc      *time.Location
}

// NewEngine wires the state machine with its collaborators.
func NewEngine(states StateManager, oracle nlu.ClientInterface, slots schedule.SlotFinder, booker handoff.AppointmentCreator, opts ...Option) *Engine {
	cfg := Opts{Now: time.Now, Location: time.Local}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		states: states,
		oracle: oracle,
		slots:  slots,
		booker: booker,
		now:    cfg.Now,
		loc:    cfg.Location,
	}
	e.handlers = map[models.ConversationState]handlerFunc{
		models.StateNew:                   e.handleNewContact,
		models.StateGreeting:              e.handleGreeting,
		models.StateInitialQualification:  e.handleQualification,
		models.StateDeepQualification:     e.handleQualification,
		models.StateQualified:             e.handleQualified,
		models.StateInvitation:            e.handleInvitation,
		models.StateCheckout:              e.handleCheckout,
		models.StateAppointmentScheduling: e.handleAppointmentScheduling,
		models.StateEmailCollection:       e.handleEmailCollection,
		models.StateFollowUp:              e.handleFollowUp,
		models.StateNurturing:             e.handleFollowUp,
		models.StateClosed:                e.handleClosedConversation,
		models.StateCompleted:             e.handleCompletedConversation,
	}
	slog.Debug("Engine created", "states", len(e.handlers))
	return e
}

// HandleMessage applies one inbound message and returns the reply text.
// It never propagates handler failures to the transport: any internal error
// becomes a polite apology and the prior state survives with LastError set.
func (e *Engine) HandleMessage(ctx context.Context, msg models.Message) string {
	body := msg.NormalizedBody()
	slog.Debug("Engine HandleMessage", "from", msg.From, "type", msg.Type)

	prior, err := e.states.GetOrCreate(ctx, msg.From)
	if err != nil {
		slog.Error("Engine HandleMessage state load failed", "error", err, "from", msg.From)
		return msgApology
	}

	work := prior.Clone()
	handler, ok := e.handlers[work.ConversationState]
	if !ok {
		// Corrupt or legacy state value. Recoverable: reset to greeting.
		slog.Error("Engine HandleMessage unknown state, resetting",
			"state", work.ConversationState, "from", msg.From, "error", models.ErrUnknownState)
		work = models.NewProspectState(msg.From)
		handler = e.handleNewContact
	}

	return e.dispatch(ctx, handler, body, prior, work)
}

// dispatch runs one handler inside the failure boundary. Panics and errors
// both collapse to the apology path with the incoming state preserved.
func (e *Engine) dispatch(ctx context.Context, handler handlerFunc, body string, prior, work *models.ProspectState) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Engine dispatch handler panic", "panic", r, "phone", prior.PhoneNumber, "state", prior.ConversationState)
			e.preserveWithError(ctx, prior, fmt.Sprintf("panic: %v", r))
			reply = msgApology
		}
	}()

	// Handlers that swallow a recoverable failure set LastError themselves.
	work.LastError = ""
	reply, err := handler(ctx, body, work)
	if err != nil {
		slog.Error("Engine dispatch handler failed", "error", err, "phone", prior.PhoneNumber, "state", prior.ConversationState)
		e.preserveWithError(ctx, prior, err.Error())
		return msgApology
	}

	work.Touch()
	if err := e.states.Save(ctx, work); err != nil {
		// The reply is still correct; the next message re-derives state.
		slog.Error("Engine dispatch save failed", "error", err, "phone", work.PhoneNumber)
	}
	if prior.ConversationState != work.ConversationState {
		slog.Info("Engine transition", "phone", work.PhoneNumber, "from", prior.ConversationState, "to", work.ConversationState)
	}
	return reply
}

// preserveWithError writes back the incoming state annotated with the
// failure, so the conversation resumes where it was on the next message.
func (e *Engine) preserveWithError(ctx context.Context, prior *models.ProspectState, cause string) {
	preserved := prior.Clone()
	preserved.LastError = cause
	preserved.Touch()
	if err := e.states.Save(ctx, preserved); err != nil {
		slog.Error("Engine preserveWithError save failed", "error", err, "phone", prior.PhoneNumber)
	}
}
