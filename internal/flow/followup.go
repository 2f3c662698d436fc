package flow

import (
	"context"
	"log/slog"

	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/nlu"
)

// handleFollowUp keeps the door open after a booked meeting or a stalled
// invitation. A booked prospect is thanked and completed; anyone else can
// re-open the demo conversation with a positive reply.
func (e *Engine) handleFollowUp(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	if p.AppointmentCreated {
		p.ConversationState = models.StateCompleted
		return msgCompletedThanks, nil
	}

	intent := e.oracle.DetectIntent(ctx, body)
	switch intent.Intent {
	case nlu.IntentAccept, nlu.IntentAlternativeTime:
		slog.Info("FollowUp re-opening invitation", "phone", p.PhoneNumber)
		p.ConversationState = models.StateInvitation
		p.InvitationStep = models.InvitationStepInitial
		return msgFollowUpReoffer, nil

	case nlu.IntentReject:
		p.ConversationState = models.StateClosed
		return msgFollowUpGoodbye, nil

	default:
		return msgFollowUpNudge, nil
	}
}

// handleClosedConversation resurrects a closed record: the prospect starts
// over from the greeting with a fresh state.
func (e *Engine) handleClosedConversation(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	slog.Info("Closed conversation resurrected", "phone", p.PhoneNumber)
	*p = *models.NewProspectState(p.PhoneNumber)
	return e.handleNewContact(ctx, body, p)
}

// handleCompletedConversation acknowledges messages after a booked meeting
// without advancing anywhere.
func (e *Engine) handleCompletedConversation(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	return msgCompletedThanks, nil
}
