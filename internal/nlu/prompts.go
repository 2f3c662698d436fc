package nlu

import (
	"fmt"
	"strings"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// System prompts demand a raw JSON object so replies parse without
// post-processing beyond fence stripping.

const interestSystemPrompt = `Eres un analista de ventas B2B para un sistema de monitoreo de fatiga vehicular.
Evalúa el interés de compra del prospecto según sus respuestas de calificación.
Responde ÚNICAMENTE con un objeto JSON con este esquema exacto:
{"high_interest": bool, "interest_score": int (1-10), "should_offer_appointment": bool, "reasoning": string}`

const relevanceSystemPrompt = `Evalúas si la respuesta de un prospecto responde de verdad a la pregunta de calificación que se le hizo.
Responde ÚNICAMENTE con un objeto JSON con este esquema exacto:
{"is_relevant": bool, "should_continue": bool, "suggested_response": string, "reasoning": string}
"should_continue" es false solo cuando la respuesta está tan fuera de tema que conviene repetir la pregunta.`

const intentSystemPrompt = `Clasificas la respuesta de un prospecto durante la propuesta de una reunión de demostración.
Responde ÚNICAMENTE con un objeto JSON con este esquema exacto:
{"intent": "accept"|"reject"|"price_request"|"alternative_time"|"unclear", "confidence": number (0-1), "reasoning": string}
Cuidado con negaciones dentro de respuestas positivas ("no sé, tal vez sí" no es un rechazo).`

// buildInterestPrompt renders the prospect's qualification transcript.
func buildInterestPrompt(p *models.ProspectState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prospecto: %s de %s\n", orUnknown(p.Name), orUnknown(p.Company))
	if p.FleetSizeRaw != "" {
		fmt.Fprintf(&b, "Tamaño de flota declarado: %s\n", p.FleetSizeRaw)
	}
	if p.ProspectType != "" {
		fmt.Fprintf(&b, "Tipo de prospecto: %s\n", p.ProspectType)
	}
	b.WriteString("Respuestas de calificación:\n")
	for _, qa := range p.QualificationAnswers {
		fmt.Fprintf(&b, "- %s → %s\n", qa.Question, qa.Answer)
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return models.UnknownSentinel
	}
	return s
}
