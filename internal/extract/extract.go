// Package extract implements the heuristic entity extractor for inbound
// Spanish prospect messages.
//
// Extraction is a best-effort text classifier, not a parser: each concern is
// an ordered rule list where the first match wins, and empty results mean the
// caller should re-prompt. Expect false negatives on free-form text; the
// rules are tuned for the phrasings the sales funnel actually sees.
package extract

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// IndependentCompany is the company sentinel recorded for owner-operators.
const IndependentCompany = "Independiente"

// Token caps keep a match from swallowing trailing clauses.
const (
	maxNameTokens    = 2
	maxCompanyTokens = 3
)

// IntentSignals summarizes the coarse keyword read of a message.
type IntentSignals struct {
	Positive     bool `json:"positive"`
	Negative     bool `json:"negative"`
	PriceRequest bool `json:"price_request"`
}

// Entities is the result of running all extraction rules over one message.
type Entities struct {
	Name          string        `json:"name,omitempty"`
	Company       string        `json:"company,omitempty"`
	IsIndependent bool          `json:"is_independent"`
	Emails        []string      `json:"emails,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	Intent        IntentSignals `json:"intent"`
}

// nameRule is one entry in the ordered name/company rule list. Precedence is
// positional: earlier rules win.
type nameRule struct {
	name       string
	re         *regexp.Regexp
	nameIdx    int // capture group for the person name, 0 if none
	companyIdx int // capture group for the company, 0 if none
}

var (
	// venidaPrefix guards against "vengo de empresa X" leaking into the
	// name field; it must run before any generic name rule.
	venidaPrefix = regexp.MustCompile(`(?i)^\s*(?:hola[\s,!.]*)?vengo\s+de\b`)

	// nameRules in precedence order: literal "X de Y" beats "me llamo/soy X"
	// beats "trabajo en/para Y" beats the generic "de Y" tail match.
	nameRules = []nameRule{
		{
			name:       "nombre_de_empresa",
			re:         regexp.MustCompile(`^\s*(?i:hola[\s,!.]*)?([A-ZÁÉÍÓÚÑ][\p{L}]*(?:\s+[A-ZÁÉÍÓÚÑ][\p{L}]*)?)\s+de\s+(?i:la\s+empresa\s+)?(\p{L}[\p{L}\p{N}\s&.\-]*)$`),
			nameIdx:    1,
			companyIdx: 2,
		},
		{
			name:    "me_llamo",
			re:      regexp.MustCompile(`(?i)(?:me\s+llamo|mi\s+nombre\s+es|soy)\s+([\p{L}]+(?:\s+[\p{L}]+)?)`),
			nameIdx: 1,
		},
		{
			name:       "trabajo_en",
			re:         regexp.MustCompile(`(?i)(?:trabajo\s+(?:en|para)|vengo\s+de)\s+(?:la\s+empresa\s+)?(\p{L}[\p{L}\p{N}\s&.\-]*)`),
			companyIdx: 1,
		},
		{
			name:       "de_empresa_tail",
			re:         regexp.MustCompile(`\bde\s+(?i:la\s+empresa\s+)?([A-ZÁÉÍÓÚÑ][\p{L}\p{N}&.\-]*(?:\s+[A-ZÁÉÍÓÚÑ0-9][\p{L}\p{N}&.\-]*){0,2})`),
			companyIdx: 1,
		},
	}

	independentKeywords = []string{"independiente", "autónomo", "autonomo", "freelance", "por mi cuenta"}

	phonePattern = regexp.MustCompile(`\+?\d[\d\s.\-]{6,}\d`)

	positiveKeywords = []string{"sí", "si", "claro", "ok", "dale", "perfecto", "de acuerdo", "me interesa", "por supuesto", "excelente", "está bien", "esta bien"}
	priceKeywords    = []string{"precio", "costo", "cuánto", "cuanto", "tarifa", "cotización", "cotizacion", "cuesta"}
	// Negative detection is intentionally a broad "no" word match; it can
	// false-positive on phrases like "no se si puedo". Callers that need
	// finer judgement go through the NLU oracle first.
	negativeKeywords = []string{"no", "luego", "después", "despues", "otro día", "otro dia", "más adelante", "mas adelante"}
)

// Extract runs every rule list over the message and returns whatever matched.
// Empty fields are expected output, not errors.
func Extract(text string) Entities {
	e := Entities{
		Emails: ExtractEmails(text),
		Phone:  ExtractPhone(text),
		Intent: DetectIntentSignals(text),
	}

	if IsIndependent(text) {
		e.IsIndependent = true
		e.Company = IndependentCompany
		// Independent drivers short-circuit company search, but name rules
		// still run so "soy Juan, trabajo por mi cuenta" keeps the name.
		e.Name = extractNameOnly(text)
		return e
	}

	e.Name, e.Company = extractNameCompany(text)
	return e
}

// IsIndependent reports whether the message declares an owner-operator.
func IsIndependent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range independentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractEmails returns all addresses in order of appearance. The first one
// is treated as the primary contact by callers.
func ExtractEmails(text string) []string {
	return models.EmailPattern().FindAllString(text, -1)
}

// ExtractPhone returns the first permissive phone-looking token, or "".
// Best effort only; no country-format validation.
func ExtractPhone(text string) string {
	return strings.TrimSpace(phonePattern.FindString(text))
}

// DetectIntentSignals runs the coarse keyword sets over the message.
func DetectIntentSignals(text string) IntentSignals {
	lower := strings.ToLower(text)
	var s IntentSignals
	for _, kw := range priceKeywords {
		if strings.Contains(lower, kw) {
			s.PriceRequest = true
			break
		}
	}
	for _, kw := range positiveKeywords {
		if containsWord(lower, kw) {
			s.Positive = true
			break
		}
	}
	for _, kw := range negativeKeywords {
		if containsWord(lower, kw) {
			s.Negative = true
			break
		}
	}
	return s
}

// ParseFleetSize reads a declared fleet size ("20 camiones", "flota grande")
// into a count and category bucket. ok is false when nothing matched.
func ParseFleetSize(text string) (count int, category models.FleetCategory, ok bool) {
	lower := strings.ToLower(text)

	if num := regexp.MustCompile(`\d+`).FindString(lower); num != "" {
		n, err := strconv.Atoi(num)
		if err == nil {
			return n, fleetCategoryFor(n), true
		}
	}

	switch {
	case strings.Contains(lower, "grande"):
		return 0, models.FleetCategoryGrande, true
	case strings.Contains(lower, "mediana"):
		return 0, models.FleetCategoryMediana, true
	case strings.Contains(lower, "pequeña"), strings.Contains(lower, "pequena"), strings.Contains(lower, "chica"):
		return 0, models.FleetCategoryPequena, true
	}
	return 0, "", false
}

func fleetCategoryFor(n int) models.FleetCategory {
	switch {
	case n >= 20:
		return models.FleetCategoryGrande
	case n >= 5:
		return models.FleetCategoryMediana
	default:
		return models.FleetCategoryPequena
	}
}

func extractNameCompany(text string) (name, company string) {
	guarded := venidaPrefix.MatchString(text)

	for _, rule := range nameRules {
		// The "vengo de" prefix means the message introduces a company, so
		// name-capturing rules are skipped to keep the verb out of the name.
		if guarded && rule.nameIdx > 0 && rule.companyIdx == 0 {
			continue
		}
		if guarded && rule.name == "nombre_de_empresa" {
			continue
		}

		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if name == "" && rule.nameIdx > 0 {
			name = capTokens(cleanCapture(m[rule.nameIdx]), maxNameTokens)
		}
		if company == "" && rule.companyIdx > 0 {
			company = capTokens(cleanCapture(m[rule.companyIdx]), maxCompanyTokens)
		}
		if name != "" && company != "" {
			slog.Debug("extract rule matched", "rule", rule.name, "has_name", true, "has_company", true)
			return name, company
		}
	}
	return name, company
}

func extractNameOnly(text string) string {
	for _, rule := range nameRules {
		if rule.nameIdx == 0 {
			continue
		}
		if m := rule.re.FindStringSubmatch(text); m != nil {
			if n := capTokens(cleanCapture(m[rule.nameIdx]), maxNameTokens); n != "" && !isStopName(n) {
				return n
			}
		}
	}
	return ""
}

// cleanCapture trims a capture and cuts it at clause separators so trailing
// sentences don't ride along.
func cleanCapture(s string) string {
	s = strings.TrimSpace(s)
	for _, sep := range []string{",", ".", ";", " y ", " Y ", " que ", " para "} {
		if idx := strings.Index(s, sep); idx > 0 {
			s = s[:idx]
		}
	}
	s = strings.TrimSpace(s)
	// Drop dangling connectives left at a capture boundary.
	fields := strings.Fields(s)
	for len(fields) > 0 {
		switch strings.ToLower(fields[len(fields)-1]) {
		case "y", "que", "para", "de", "la", "el":
			fields = fields[:len(fields)-1]
		default:
			return strings.Join(fields, " ")
		}
	}
	return ""
}

func capTokens(s string, max int) string {
	fields := strings.Fields(s)
	if len(fields) > max {
		fields = fields[:max]
	}
	return strings.Join(fields, " ")
}

// isStopName filters captures that are grammar, not names.
func isStopName(s string) bool {
	switch strings.ToLower(s) {
	case "independiente", "autónomo", "autonomo", "transportista", "conductor", "chofer":
		return true
	}
	return false
}

// containsWord reports whether lower contains kw as a whole word (single-word
// keywords) or as a substring (multi-word phrases).
func containsWord(lower, kw string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(lower, kw)
	}
	for _, f := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != 'á' && r != 'é' && r != 'í' && r != 'ó' && r != 'ú' && r != 'ñ'
	}) {
		if f == kw {
			return true
		}
	}
	return false
}
