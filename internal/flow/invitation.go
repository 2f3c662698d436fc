package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VigiaLabs/LeadPipe/internal/extract"
	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/nlu"
	"github.com/VigiaLabs/LeadPipe/internal/schedule"
)

// handleInvitation reacts to the prospect's answer to the meeting offer.
// Intent detection goes through the oracle first; its keyword fallback kicks
// in transparently when the oracle is unavailable.
func (e *Engine) handleInvitation(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	if p.AppointmentCreated {
		return msgAppointmentFinal, nil
	}

	intent := e.oracle.DetectIntent(ctx, body)
	slog.Debug("Invitation intent", "phone", p.PhoneNumber, "intent", intent.Intent, "confidence", intent.Confidence)

	switch intent.Intent {
	case nlu.IntentPriceRequest:
		return msgPriceDeflect, nil

	case nlu.IntentAccept:
		return e.proposeNearestSlot(ctx, p)

	case nlu.IntentAlternativeTime:
		return e.considerProposedTime(ctx, body, p)

	case nlu.IntentReject:
		p.ConversationState = models.StateFollowUp
		p.InvitationStep = models.InvitationStepFollowUp
		return msgInviteRejected, nil

	default:
		return msgInviteUnclear, nil
	}
}

// proposeNearestSlot suggests the closest bookable slot and moves the
// conversation into scheduling confirmation.
func (e *Engine) proposeNearestSlot(ctx context.Context, p *models.ProspectState) (string, error) {
	slot, err := e.slots.NearestSlot(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("failed to compute nearest slot: %w", err)
	}
	if err := p.SuggestSlot(slot); err != nil {
		return "", err
	}
	p.ConversationState = models.StateAppointmentScheduling
	p.InvitationStep = models.InvitationStepDemoScheduling
	return fmt.Sprintf(msgSlotProposal, slot.Date, slot.Time), nil
}

// considerProposedTime validates a datetime the prospect proposed in free
// text against business hours before accepting it as the pending slot.
func (e *Engine) considerProposedTime(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	now := e.now().In(e.loc)
	t, ok := extract.ExtractDateTime(body, now, e.loc)
	if !ok {
		// They want another time but did not name one.
		return e.proposeNearestSlot(ctx, p)
	}

	if !extract.WithinBusinessHours(t, now) {
		slot, err := e.slots.NearestSlot(ctx, 0)
		if err != nil {
			return "", fmt.Errorf("failed to compute nearest slot: %w", err)
		}
		if err := p.SuggestSlot(slot); err != nil {
			return "", err
		}
		p.ConversationState = models.StateAppointmentScheduling
		p.InvitationStep = models.InvitationStepDemoScheduling
		return fmt.Sprintf(msgSlotOutOfHours, slot.Date, slot.Time), nil
	}

	slot := e.slotAt(t, now)
	if err := p.SuggestSlot(slot); err != nil {
		return "", err
	}
	p.ConversationState = models.StateAppointmentScheduling
	p.InvitationStep = models.InvitationStepDemoScheduling
	return fmt.Sprintf(msgSlotConfirmAsk, slot.Date, slot.Time), nil
}

// slotAt builds a slot record for an explicitly proposed instant.
func (e *Engine) slotAt(t, now time.Time) models.Slot {
	return models.Slot{
		Date:       schedule.FormatDate(t),
		Time:       t.Format("15:04"),
		DateTime:   t,
		IsToday:    t.Year() == now.Year() && t.YearDay() == now.YearDay(),
		IsTomorrow: t.Year() == now.AddDate(0, 0, 1).Year() && t.YearDay() == now.AddDate(0, 0, 1).YearDay(),
	}
}
