package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/VigiaLabs/LeadPipe/internal/extract"
	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/scoring"
)

// Keyword sets for attribute-bearing qualification answers.
var (
	decisionKeywords = []string{"yo", "yo mismo", "yo misma", "yo decido", "mi decisión", "mi decision", "gerente", "dueño", "dueña", "propietario"}
	urgencyKeywords  = []string{"urgente", "pronto", "ya", "inmediato", "cuanto antes", "esta semana", "este mes", "lo antes posible"}
)

// handleQualification walks the fixed question script. Each answer passes
// through the relevance assessor: an irrelevant answer with shouldContinue
// false re-asks the same question verbatim without storing anything.
func (e *Engine) handleQualification(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	script, ok := questionScripts[p.ProspectType]
	if !ok {
		return "", fmt.Errorf("no question script for prospect type %q", p.ProspectType)
	}
	if p.QualificationStep >= len(script) {
		// Answers already complete; route again rather than over-asking.
		return e.routeQualified(ctx, p), nil
	}

	question := script[p.QualificationStep]
	assessment := e.oracle.AssessRelevance(ctx, question, body)
	if !assessment.IsRelevant && !assessment.ShouldContinue {
		slog.Debug("Qualification re-asking", "phone", p.PhoneNumber, "step", p.QualificationStep)
		if assessment.SuggestedResponse != "" {
			return assessment.SuggestedResponse + "\n\n" + question, nil
		}
		return question, nil
	}

	p.RecordAnswer(question, body)
	e.absorbAnswer(p, p.QualificationStep, body)
	p.QualificationStep++

	if p.QualificationStep < len(script) {
		return script[p.QualificationStep], nil
	}
	return e.routeQualified(ctx, p), nil
}

// absorbAnswer folds an answer into the prospect attributes when the
// question index carries one.
func (e *Engine) absorbAnswer(p *models.ProspectState, step int, answer string) {
	roles := scriptRoles[p.ProspectType]
	lower := strings.ToLower(answer)

	switch step {
	case roles.fleetIdx:
		p.FleetSizeRaw = answer
		if _, category, ok := extract.ParseFleetSize(answer); ok {
			p.FleetSizeCategory = category
		}
	case roles.decisionIdx:
		for _, kw := range decisionKeywords {
			if matchKeyword(lower, kw) {
				p.IsDecisionMaker = true
				break
			}
		}
	case roles.urgencyIdx:
		for _, kw := range urgencyKeywords {
			if matchKeyword(lower, kw) {
				p.HasUrgency = true
				break
			}
		}
	}
}

// matchKeyword matches multi-word keywords as substrings and single words
// on word boundaries, so "yo" never fires inside "proyecto".
func matchKeyword(lower, kw string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(lower, kw)
	}
	for _, f := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == ';' || r == '!' || r == '?'
	}) {
		if f == kw {
			return true
		}
	}
	return false
}

// routeQualified closes the question script: score the prospect, run the
// interest analysis and branch to invitation, follow-up or checkout.
func (e *Engine) routeQualified(ctx context.Context, p *models.ProspectState) string {
	eval := scoring.Evaluate(p)
	analysis := e.oracle.AnalyzeInterest(ctx, p)
	p.InterestAnalysis = &analysis

	slog.Info("Qualification routed", "phone", p.PhoneNumber, "tier", eval.ProspectValue,
		"shouldInvite", eval.ShouldInvite, "shouldOffer", analysis.ShouldOfferAppointment)

	if !eval.ShouldInvite {
		// Low-value path: informative close-out, never a demo promise.
		p.ConversationState = models.StateCheckout
		p.CheckoutStep = models.CheckoutStepInitial
		return msgCheckoutIntro
	}
	if analysis.ShouldOfferAppointment {
		p.ConversationState = models.StateInvitation
		p.InvitationStep = models.InvitationStepInitial
		return msgMeetingOffer
	}
	p.ConversationState = models.StateFollowUp
	return msgFollowUpNudge
}

// handleQualified covers records parked in the transitional qualified state
// (e.g. restored by recovery): re-run routing on the next message.
func (e *Engine) handleQualified(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	return e.routeQualified(ctx, p), nil
}
