package flow

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/VigiaLabs/LeadPipe/internal/extract"
	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// handleNewContact answers the very first message from an unseen number with
// the fixed welcome template and parks the conversation in greeting.
func (e *Engine) handleNewContact(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	p.ConversationState = models.StateGreeting
	p.GreetingAttempts = 0
	slog.Debug("Greeting handleNewContact welcomed", "phone", p.PhoneNumber)
	return msgWelcome, nil
}

// handleGreeting tries to resolve name and company from the reply. Both
// resolved moves to qualification; a partial result asks a targeted
// follow-up reusing whatever is known. After MaxGreetingAttempts failed
// rounds the missing fields are filled with the unknown sentinel and the
// conversation advances anyway.
func (e *Engine) handleGreeting(ctx context.Context, body string, p *models.ProspectState) (string, error) {
	entities := extract.Extract(body)

	// Fields are set once and never reverted by later extraction noise.
	if p.Name == "" && entities.Name != "" {
		p.Name = entities.Name
	}
	if entities.IsIndependent {
		p.IsIndependent = true
		p.Company = extract.IndependentCompany
	} else if p.Company == "" && entities.Company != "" {
		p.Company = entities.Company
	}
	for _, email := range entities.Emails {
		p.AddEmail(email)
	}

	// Replies to the targeted follow-ups are usually bare values with no
	// pattern for the extractor to hook on; take them at face value.
	if p.Name != "" && p.Company == "" && entities.Company == "" && !entities.IsIndependent {
		p.Company = bareValue(body, 3)
	} else if p.Name == "" && p.Company != "" && entities.Name == "" {
		p.Name = bareValue(body, 2)
	}

	hasName := p.Name != ""
	hasCompany := p.Company != ""

	if hasName && hasCompany {
		return e.startQualification(ctx, p), nil
	}

	p.GreetingAttempts++
	if p.GreetingAttempts >= models.MaxGreetingAttempts {
		// Bounded retry: force-advance with sentinels instead of looping.
		if !hasName {
			p.Name = models.UnknownSentinel
		}
		if !hasCompany {
			p.Company = models.UnknownSentinel
		}
		slog.Info("Greeting handleGreeting forced advance", "phone", p.PhoneNumber, "attempts", p.GreetingAttempts)
		return e.startQualification(ctx, p), nil
	}

	if hasName {
		return askCompany(p.Name), nil
	}
	return msgAskName, nil
}

// startQualification classifies the prospect, selects the question script
// and emits the first question.
func (e *Engine) startQualification(ctx context.Context, p *models.ProspectState) string {
	p.ProspectType = classifyProspect(p)
	p.ConversationState = models.StateInitialQualification
	p.QualificationStep = 0

	script := questionScripts[p.ProspectType]
	slog.Info("Greeting startQualification", "phone", p.PhoneNumber, "type", p.ProspectType, "questions", len(script))
	return qualificationIntro(p, script[0])
}

// bareValue accepts a short capitalized reply as a literal name or company
// value. Questions, long sentences and lowercase chatter are rejected.
func bareValue(body string, maxTokens int) string {
	trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(body), ".!"))
	if trimmed == "" || strings.ContainsAny(trimmed, "?¿") {
		return ""
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 || len(fields) > maxTokens {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(fields[0])
	if !unicode.IsUpper(first) {
		return ""
	}
	return strings.Join(fields, " ")
}

// classifyProspect buckets the prospect by what the greeting resolved:
// a concrete company reads as someone speaking for an operation, an
// independent driver gets the lighter script, and unresolved identities are
// treated as curious until qualification says otherwise.
func classifyProspect(p *models.ProspectState) models.ProspectType {
	switch {
	case p.IsIndependent:
		return models.ProspectTypeCurioso
	case p.HasIdentity():
		return models.ProspectTypeEncargado
	case p.Company != "" && p.Company != models.UnknownSentinel:
		return models.ProspectTypeInfluencer
	default:
		return models.ProspectTypeCurioso
	}
}
