package flow

import (
	"context"
	"log/slog"

	"github.com/VigiaLabs/LeadPipe/internal/extract"
	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// Checkout answers are recorded under these keys so the record keeps the
// full exchange even though no scoring runs on them.
const (
	checkoutQuestionInterest = "¿Te interesa recibir información sobre el monitoreo de fatiga?"
	checkoutQuestionFleet    = "¿Cuántos vehículos tiene la operación donde trabajas?"
	checkoutQuestionDoubts   = "¿Hay algo puntual que te gustaría saber?"
	checkoutQuestionSource   = "¿Cómo te enteraste de nosotros?"
)

// handleCheckout walks the low-value close-out script. Every path ends in a
// polite disengagement; this flow never promises a demo.
func (e *Engine) handleCheckout(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	switch p.CheckoutStep {
	case models.CheckoutStepInitial:
		p.RecordAnswer(checkoutQuestionInterest, body)
		p.CheckoutStep = models.CheckoutStepSecondQualification
		return msgCheckoutInfo, nil

	case models.CheckoutStepSecondQualification:
		p.RecordAnswer(checkoutQuestionFleet, body)
		if p.FleetSizeRaw == "" {
			p.FleetSizeRaw = body
			if _, category, ok := extract.ParseFleetSize(body); ok {
				p.FleetSizeCategory = category
			}
		}
		p.CheckoutStep = models.CheckoutStepInfoOffer
		return msgCheckoutOffer, nil

	case models.CheckoutStepInfoOffer:
		p.RecordAnswer(checkoutQuestionDoubts, body)
		p.CheckoutStep = models.CheckoutStepFeedback
		return msgCheckoutFeedback, nil

	case models.CheckoutStepFeedback:
		p.RecordAnswer(checkoutQuestionSource, body)
		p.CheckoutStep = models.CheckoutStepFinal
		p.ConversationState = models.StateClosed
		slog.Info("Checkout completed", "phone", p.PhoneNumber)
		return msgCheckoutFarewell, nil

	default:
		p.ConversationState = models.StateClosed
		return msgCheckoutFarewell, nil
	}
}
