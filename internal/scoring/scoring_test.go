package scoring

import (
	"testing"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

func prospect(name, company, fleetRaw string, category models.FleetCategory, decisionMaker, urgency bool) *models.ProspectState {
	return &models.ProspectState{
		PhoneNumber:       "51900000001",
		Name:              name,
		Company:           company,
		FleetSizeRaw:      fleetRaw,
		FleetSizeCategory: category,
		IsDecisionMaker:   decisionMaker,
		HasUrgency:        urgency,
	}
}

func TestEvaluateTiers(t *testing.T) {
	cases := []struct {
		name       string
		p          *models.ProspectState
		wantTier   models.ValueTier
		wantInvite bool
	}{
		{
			name:       "large fleet with identity is ALTO",
			p:          prospect("Juan Pérez", "Transportes ABC", "25 camiones", "", false, false),
			wantTier:   models.ValueTierAlto,
			wantInvite: true,
		},
		{
			name:       "grande category with identity is ALTO",
			p:          prospect("Juan Pérez", "Transportes ABC", "", models.FleetCategoryGrande, false, false),
			wantTier:   models.ValueTierAlto,
			wantInvite: true,
		},
		{
			name:       "decision maker with identity is MEDIO",
			p:          prospect("Juan Pérez", "Transportes ABC", "8 camiones", "", true, false),
			wantTier:   models.ValueTierMedio,
			wantInvite: true,
		},
		{
			name:       "urgency with identity is MEDIO",
			p:          prospect("Juan Pérez", "Transportes ABC", "", "", false, true),
			wantTier:   models.ValueTierMedio,
			wantInvite: true,
		},
		{
			name:       "small fleet no flags is BAJO",
			p:          prospect("Juan Pérez", "Transportes ABC", "5 camiones", "", false, false),
			wantTier:   models.ValueTierBajo,
			wantInvite: false,
		},
		{
			name:       "large fleet without identity is BAJO",
			p:          prospect("", "", "30 camiones", "", true, true),
			wantTier:   models.ValueTierBajo,
			wantInvite: false,
		},
		{
			name:       "sentinel name blocks identity",
			p:          prospect(models.UnknownSentinel, "Transportes ABC", "30", "", false, false),
			wantTier:   models.ValueTierBajo,
			wantInvite: false,
		},
	}
	for _, tc := range cases {
		got := Evaluate(tc.p)
		if got.ProspectValue != tc.wantTier {
			t.Errorf("%s: tier = %s, want %s", tc.name, got.ProspectValue, tc.wantTier)
		}
		if got.ShouldInvite != tc.wantInvite {
			t.Errorf("%s: shouldInvite = %v, want %v", tc.name, got.ShouldInvite, tc.wantInvite)
		}
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	p := prospect("Juan Pérez", "Transportes ABC", "20 camiones", "", true, true)
	first := Evaluate(p)
	second := Evaluate(p)
	if first != second {
		t.Errorf("Evaluate is not idempotent: %+v vs %+v", first, second)
	}
}

func TestNumericFleetSizeBoundary(t *testing.T) {
	cases := []struct {
		raw  string
		want models.ValueTier
	}{
		{"19 camiones", models.ValueTierBajo},
		{"20 camiones", models.ValueTierAlto},
	}
	for _, tc := range cases {
		p := prospect("Juan Pérez", "Transportes ABC", tc.raw, "", false, false)
		if got := Evaluate(p).ProspectValue; got != tc.want {
			t.Errorf("fleet %q: tier = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
