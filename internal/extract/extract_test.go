package extract

import (
	"testing"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

func TestExtractNameAndCompany(t *testing.T) {
	cases := []struct {
		text        string
		wantName    string
		wantCompany string
	}{
		{"María López de Transportes ABC", "María López", "Transportes ABC"},
		{"Juan Pérez de Transportes ABC", "Juan Pérez", "Transportes ABC"},
		{"Hola, me llamo Carlos Díaz", "Carlos Díaz", ""},
		{"mi nombre es Ana", "Ana", ""},
		{"soy Pedro y trabajo en Logística Andina", "Pedro", "Logística Andina"},
		{"trabajo para la empresa Rutas Norte", "", "Rutas Norte"},
		{"buenas tardes", "", ""},
	}
	for _, tc := range cases {
		e := Extract(tc.text)
		if e.Name != tc.wantName {
			t.Errorf("Extract(%q).Name = %q, want %q", tc.text, e.Name, tc.wantName)
		}
		if e.Company != tc.wantCompany {
			t.Errorf("Extract(%q).Company = %q, want %q", tc.text, e.Company, tc.wantCompany)
		}
	}
}

func TestVengoDePrefixGuard(t *testing.T) {
	// "vengo de empresa X" must never leak the verb into the name field.
	e := Extract("Vengo de la empresa Transporte Sur")
	if e.Name != "" {
		t.Errorf("expected empty name for vengo-de message, got %q", e.Name)
	}
	if e.Company != "Transporte Sur" {
		t.Errorf("expected company Transporte Sur, got %q", e.Company)
	}
}

func TestIndependentDetection(t *testing.T) {
	cases := []string{
		"Soy independiente",
		"soy autónomo",
		"trabajo por mi cuenta",
		"hago freelance con mi camión",
	}
	for _, text := range cases {
		e := Extract(text)
		if !e.IsIndependent {
			t.Errorf("Extract(%q).IsIndependent = false, want true", text)
		}
		if e.Company != IndependentCompany {
			t.Errorf("Extract(%q).Company = %q, want %q", text, e.Company, IndependentCompany)
		}
	}
}

func TestIndependentKeepsName(t *testing.T) {
	e := Extract("me llamo Jorge, soy independiente")
	if e.Name != "Jorge" {
		t.Errorf("expected name Jorge, got %q", e.Name)
	}
	if !e.IsIndependent {
		t.Error("expected independent flag")
	}
}

func TestExtractEmails(t *testing.T) {
	emails := ExtractEmails("mi correo es a@b.com y también ventas@empresa.pe")
	if len(emails) != 2 {
		t.Fatalf("expected 2 emails, got %v", emails)
	}
	if emails[0] != "a@b.com" {
		t.Errorf("primary email should be first in appearance order, got %q", emails[0])
	}

	if got := ExtractEmails("no tengo correo"); len(got) != 0 {
		t.Errorf("expected no emails, got %v", got)
	}
}

func TestExtractPhone(t *testing.T) {
	if got := ExtractPhone("mi número es +51 987 654 321"); got == "" {
		t.Error("expected a phone match")
	}
	if got := ExtractPhone("sin números aquí"); got != "" {
		t.Errorf("expected no phone, got %q", got)
	}
}

func TestDetectIntentSignals(t *testing.T) {
	cases := []struct {
		text string
		want IntentSignals
	}{
		{"sí, me interesa", IntentSignals{Positive: true}},
		{"¿cuánto cuesta el servicio?", IntentSignals{PriceRequest: true}},
		{"no gracias", IntentSignals{Negative: true}},
		// Known heuristic weakness: the broad "no" match fires inside
		// hedged answers. The flow resolves these through the oracle.
		{"no se si puedo", IntentSignals{Negative: true}},
	}
	for _, tc := range cases {
		got := DetectIntentSignals(tc.text)
		if got.Positive != tc.want.Positive || got.Negative != tc.want.Negative || got.PriceRequest != tc.want.PriceRequest {
			t.Errorf("DetectIntentSignals(%q) = %+v, want %+v", tc.text, got, tc.want)
		}
	}
}

func TestParseFleetSize(t *testing.T) {
	cases := []struct {
		text     string
		count    int
		category models.FleetCategory
		ok       bool
	}{
		{"tenemos 25 camiones", 25, models.FleetCategoryGrande, true},
		{"5 camiones", 5, models.FleetCategoryMediana, true},
		{"solo 3 unidades", 3, models.FleetCategoryPequena, true},
		{"una flota grande", 0, models.FleetCategoryGrande, true},
		{"flota pequeña", 0, models.FleetCategoryPequena, true},
		{"no manejo flota", 0, "", false},
	}
	for _, tc := range cases {
		count, category, ok := ParseFleetSize(tc.text)
		if ok != tc.ok || count != tc.count || category != tc.category {
			t.Errorf("ParseFleetSize(%q) = (%d, %q, %v), want (%d, %q, %v)",
				tc.text, count, category, ok, tc.count, tc.category, tc.ok)
		}
	}
}
