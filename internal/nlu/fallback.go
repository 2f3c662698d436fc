// Deterministic fallbacks used when the oracle is unavailable. Each mirrors
// the shape of its oracle counterpart and marks its reasoning as reduced
// confidence so transcripts stay auditable.
package nlu

import (
	"context"
	"strings"

	"github.com/VigiaLabs/LeadPipe/internal/extract"
	"github.com/VigiaLabs/LeadPipe/internal/models"
	"github.com/VigiaLabs/LeadPipe/internal/scoring"
)

const fallbackReasoning = "evaluación heurística local (confianza reducida)"

// fallbackInterest derives an interest score from the value evaluation plus
// positive signals in the recorded answers.
func fallbackInterest(p *models.ProspectState) models.InterestAnalysis {
	eval := scoring.Evaluate(p)

	score := 3
	switch eval.ProspectValue {
	case models.ValueTierAlto:
		score = 8
	case models.ValueTierMedio:
		score = 6
	}
	for _, qa := range p.QualificationAnswers {
		signals := extract.DetectIntentSignals(qa.Answer)
		if signals.Positive && score < 10 {
			score++
		}
	}
	if score > 10 {
		score = 10
	}

	return models.InterestAnalysis{
		HighInterest:           score >= 6,
		InterestScore:          score,
		ShouldOfferAppointment: eval.ShouldInvite,
		Reasoning:              fallbackReasoning,
	}
}

// fallbackRelevance is deliberately permissive: without the oracle the flow
// keeps moving and only empty or media-placeholder answers are re-asked.
func fallbackRelevance(question, answer string) RelevanceAssessment {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" || trimmed == models.MediaPlaceholder {
		return RelevanceAssessment{
			IsRelevant:     false,
			ShouldContinue: false,
			Reasoning:      fallbackReasoning,
		}
	}
	return RelevanceAssessment{
		IsRelevant:     true,
		ShouldContinue: true,
		Reasoning:      fallbackReasoning,
	}
}

// fallbackIntent classifies via the keyword sets, price first, then explicit
// time proposals, then accept/reject. Positive beats the broad negative
// match so "no sé, tal vez sí" leans unclear instead of reject.
func fallbackIntent(message string) IntentClassification {
	signals := extract.DetectIntentSignals(message)

	switch {
	case signals.PriceRequest:
		return IntentClassification{Intent: IntentPriceRequest, Confidence: 0.6, Reasoning: fallbackReasoning}
	case proposesTime(message):
		return IntentClassification{Intent: IntentAlternativeTime, Confidence: 0.6, Reasoning: fallbackReasoning}
	case signals.Positive && signals.Negative:
		return IntentClassification{Intent: IntentUnclear, Confidence: 0.3, Reasoning: fallbackReasoning}
	case signals.Positive:
		return IntentClassification{Intent: IntentAccept, Confidence: 0.6, Reasoning: fallbackReasoning}
	case signals.Negative:
		return IntentClassification{Intent: IntentReject, Confidence: 0.5, Reasoning: fallbackReasoning}
	default:
		return IntentClassification{Intent: IntentUnclear, Confidence: 0.2, Reasoning: fallbackReasoning}
	}
}

func proposesTime(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range []string{"a las", "mañana", "manana", "lunes", "martes", "miércoles", "miercoles", "jueves", "viernes", ":"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// FallbackClient is an oracle implementation that never calls out: every
// classification uses the deterministic heuristics. It serves keyless
// deployments and tests.
type FallbackClient struct{}

// NewFallbackClient creates a heuristics-only oracle.
func NewFallbackClient() *FallbackClient {
	return &FallbackClient{}
}

func (f *FallbackClient) AnalyzeInterest(ctx context.Context, p *models.ProspectState) models.InterestAnalysis {
	return fallbackInterest(p)
}

func (f *FallbackClient) AssessRelevance(ctx context.Context, question, answer string) RelevanceAssessment {
	return fallbackRelevance(question, answer)
}

func (f *FallbackClient) DetectIntent(ctx context.Context, message string) IntentClassification {
	return fallbackIntent(message)
}
