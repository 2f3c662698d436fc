// Package scoring buckets a prospect into a value tier from the attributes
// accumulated during qualification.
//
// Evaluate is pure: no external calls, no state mutation, and repeated calls
// on the same record yield the same tier.
package scoring

import (
	"strconv"
	"strings"

	"github.com/VigiaLabs/LeadPipe/internal/models"
)

// LargeFleetThreshold is the vehicle count at which a fleet counts as large.
const LargeFleetThreshold = 20

// Evaluation is the routing decision derived from a prospect record.
type Evaluation struct {
	HasIdentity        bool             `json:"has_identity"`
	HasLargeFleet      bool             `json:"has_large_fleet"`
	IsDecisionMaker    bool             `json:"is_decision_maker"`
	HasUrgency         bool             `json:"has_urgency"`
	ProspectValue      models.ValueTier `json:"prospect_value"`
	InvitationPriority int              `json:"invitation_priority"` // 1 = highest
	ShouldInvite       bool             `json:"should_invite"`
}

// Evaluate maps the prospect's accumulated attributes to a value tier.
//
// Tier rules:
//   - ALTO  when identity is complete AND the fleet is large.
//   - MEDIO when identity is complete AND any of large fleet, decision-maker,
//     or urgency holds (excluding the ALTO case).
//   - BAJO  otherwise. BAJO prospects are never invited.
func Evaluate(p *models.ProspectState) Evaluation {
	e := Evaluation{
		HasIdentity:     p.HasIdentity(),
		HasLargeFleet:   hasLargeFleet(p),
		IsDecisionMaker: p.IsDecisionMaker,
		HasUrgency:      p.HasUrgency,
	}

	switch {
	case e.HasLargeFleet && e.HasIdentity:
		e.ProspectValue = models.ValueTierAlto
		e.InvitationPriority = 1
	case e.HasIdentity && (e.HasLargeFleet || e.IsDecisionMaker || e.HasUrgency):
		e.ProspectValue = models.ValueTierMedio
		e.InvitationPriority = 2
	default:
		e.ProspectValue = models.ValueTierBajo
		e.InvitationPriority = 3
	}

	e.ShouldInvite = e.ProspectValue != models.ValueTierBajo
	return e
}

func hasLargeFleet(p *models.ProspectState) bool {
	if p.FleetSizeCategory == models.FleetCategoryGrande {
		return true
	}
	if n, ok := numericFleetSize(p.FleetSizeRaw); ok && n >= LargeFleetThreshold {
		return true
	}
	return false
}

// numericFleetSize pulls the first integer out of the raw declared size.
func numericFleetSize(raw string) (int, bool) {
	start := -1
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw[start:end]))
	if err != nil {
		return 0, false
	}
	return n, true
}
