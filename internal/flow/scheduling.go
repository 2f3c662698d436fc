package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VigiaLabs/LeadPipe/internal/extract"
	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/nlu"
)

// handleAppointmentScheduling confirms or replaces the pending slot
// suggestion. Accepting moves to email collection; rejecting offers up to
// MaxAlternativeSlots alternatives, never repeating a datetime the prospect
// already turned down.
func (e *Engine) handleAppointmentScheduling(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	if p.AppointmentCreated {
		p.ConversationState = models.StateFollowUp
		return msgAppointmentFinal, nil
	}
	if p.SuggestedSlot == nil {
		// Lost the pending suggestion (e.g. restored record); start over.
		return e.proposeNearestSlot(ctx, p)
	}

	intent := e.oracle.DetectIntent(ctx, body)
	slog.Debug("Scheduling intent", "phone", p.PhoneNumber, "intent", intent.Intent, "slot", p.SuggestedSlot.DateTime)

	switch intent.Intent {
	case nlu.IntentAccept:
		if err := p.ConfirmSlot(); err != nil {
			return "", err
		}
		p.ConversationState = models.StateEmailCollection
		p.InvitationStep = models.InvitationStepContactInfo
		return msgEmailRequest, nil

	case nlu.IntentReject:
		return e.offerAlternatives(ctx, p)

	case nlu.IntentAlternativeTime:
		return e.reconsiderProposedTime(ctx, body, p)

	case nlu.IntentPriceRequest:
		return msgPriceDeflect, nil

	default:
		return fmt.Sprintf(msgSlotConfirmAsk, p.SuggestedSlot.Date, p.SuggestedSlot.Time), nil
	}
}

// offerAlternatives reacts to a rejected suggestion with fresh candidates.
// Once the prospect has burned through the alternatives budget the
// conversation falls back to follow-up instead of looping on slots.
func (e *Engine) offerAlternatives(ctx context.Context, p *models.ProspectState) (string, error) {
	rejected := *p.SuggestedSlot
	p.RejectSlot()

	if len(p.RejectedSlots) > models.MaxAlternativeSlots {
		slog.Info("Scheduling alternatives exhausted", "phone", p.PhoneNumber, "rejected", len(p.RejectedSlots))
		p.ConversationState = models.StateFollowUp
		p.InvitationStep = models.InvitationStepFollowUp
		return msgInviteRejected, nil
	}

	// Over-fetch so rejected datetimes can be filtered out.
	candidates, err := e.slots.AlternativeSlots(ctx, rejected, models.MaxAlternativeSlots+len(p.RejectedSlots))
	if err != nil {
		return "", fmt.Errorf("failed to compute alternative slots: %w", err)
	}
	var usable []models.Slot
	for _, s := range candidates {
		if p.WasRejected(s) {
			continue
		}
		usable = append(usable, s)
		if len(usable) == models.MaxAlternativeSlots {
			break
		}
	}

	if len(usable) == 0 {
		p.ConversationState = models.StateFollowUp
		p.InvitationStep = models.InvitationStepFollowUp
		return msgInviteRejected, nil
	}
	if err := p.SuggestSlot(usable[0]); err != nil {
		return "", err
	}
	if len(usable) == 1 {
		return fmt.Sprintf(msgSlotSingleAlt, usable[0].Date, usable[0].Time), nil
	}
	return fmt.Sprintf(msgSlotAlternatives, usable[0].Date, usable[0].Time, usable[1].Date, usable[1].Time), nil
}

// reconsiderProposedTime swaps the pending suggestion for a datetime the
// prospect proposed, if it survives business-hours validation.
func (e *Engine) reconsiderProposedTime(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	now := e.now().In(e.loc)
	t, ok := extract.ExtractDateTime(body, now, e.loc)
	if !ok {
		return fmt.Sprintf(msgSlotConfirmAsk, p.SuggestedSlot.Date, p.SuggestedSlot.Time), nil
	}
	if !extract.WithinBusinessHours(t, now) {
		return fmt.Sprintf(msgSlotOutOfHours, p.SuggestedSlot.Date, p.SuggestedSlot.Time), nil
	}

	slot := e.slotAt(t, now)
	if p.WasRejected(slot) {
		return fmt.Sprintf(msgSlotConfirmAsk, p.SuggestedSlot.Date, p.SuggestedSlot.Time), nil
	}
	if err := p.SuggestSlot(slot); err != nil {
		return "", err
	}
	return fmt.Sprintf(msgSlotConfirmAsk, slot.Date, slot.Time), nil
}

// handleEmailCollection gathers the contact address and hands the
// appointment off to the automation webhook. A webhook failure is not
// fatal: the state stays put so the next message retries the handoff.
func (e *Engine) handleEmailCollection(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	for _, email := range extract.ExtractEmails(body) {
		p.AddEmail(email)
	}
	if len(p.Emails) == 0 {
		return msgEmailRetry, nil
	}
	if p.SelectedSlot == nil {
		return "", models.ErrNoSuggestedSlot
	}
	if p.AppointmentCreated {
		p.ConversationState = models.StateFollowUp
		return msgAppointmentFinal, nil
	}

	appt, err := e.booker.CreateAppointment(ctx, p, *p.SelectedSlot)
	if err != nil {
		// Idempotent retry point: keep state and slot, ask to reconfirm.
		slog.Error("Scheduling handoff failed", "error", err, "phone", p.PhoneNumber)
		p.LastError = err.Error()
		return msgWebhookRetry, nil
	}

	p.AppointmentDetails = appt
	p.AppointmentCreated = true
	p.ConversationState = models.StateFollowUp
	p.InvitationStep = models.InvitationStepFollowUp

	reply := fmt.Sprintf(msgBookingConfirm, appt.Date, appt.Time, p.PrimaryEmail())
	if appt.MeetLink != "" {
		reply += fmt.Sprintf(msgBookingMeetLink, appt.MeetLink)
	}
	slog.Info("Scheduling appointment booked", "phone", p.PhoneNumber, "appointmentID", appt.ID)
	return reply, nil
}
