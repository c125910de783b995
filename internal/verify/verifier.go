package verify

import (
	"fmt"
	"math"
	"sort"

	"github.com/covera-health/covera/internal/model"
)

// Complexity buckets procedures by how much infrastructure they demand.
type Complexity int

const (
	ComplexityLow Complexity = iota
	ComplexityMedium
	ComplexityHigh
)

func (c Complexity) String() string {
	switch c {
	case ComplexityLow:
		return "low"
	case ComplexityHigh:
		return "high"
	default:
		return "medium"
	}
}

// procedureComplexity categorizes the canonical vocabulary. Procedures
// outside the table default to medium.
var procedureComplexity = map[string]Complexity{
	"lab":                ComplexityLow,
	"emergency_care":     ComplexityMedium,
	"maternity":          ComplexityMedium,
	"appendectomy":       ComplexityMedium,
	"cataract_surgery":   ComplexityMedium,
	"surgery":            ComplexityHigh,
	"c_section":          ComplexityHigh,
	"icu":                ComplexityHigh,
	"cardiology":         ComplexityHigh,
	"dialysis":           ComplexityHigh,
	"orthopedic_surgery": ComplexityHigh,
	"ct":                 ComplexityHigh,
}

// requiredEquipment maps a procedure to any-of equipment groups; every
// group must be satisfied by at least one member.
var requiredEquipment = map[string][][]string{
	"c_section":          {{"anesthesia_machine"}, {"operating_room"}},
	"surgery":            {{"operating_room"}},
	"orthopedic_surgery": {{"operating_room"}},
	"icu":                {{"ventilator", "monitors"}},
	"ct":                 {{"ct"}},
	"cataract_surgery":   {{"operating_microscope"}},
	"maternity":          {{"ultrasound", "incubator"}},
}

// ComplexityOf returns the complexity category for a canonical procedure.
func ComplexityOf(procedure string) Complexity {
	if c, ok := procedureComplexity[procedure]; ok {
		return c
	}
	return ComplexityMedium
}

// RequiredEquipmentFor returns the prerequisite groups for a procedure.
func RequiredEquipmentFor(procedure string) [][]string {
	return requiredEquipment[procedure]
}

// Verifier rates each capability claim against the facility's declared
// infrastructure. It never drops a claim; it only annotates confidence,
// status and the signals explaining both.
type Verifier struct {
	cfg model.VerifyConfig
}

// NewVerifier creates a verifier with the given policy.
func NewVerifier(cfg model.VerifyConfig) *Verifier {
	return &Verifier{cfg: cfg}
}

// VerifyFacility scores every claim of one facility. history carries prior
// revisions per claim key for the consistency component. The returned
// claims preserve input order.
func (v *Verifier) VerifyFacility(f *model.Facility, claims []model.CapabilityClaim, history map[string][]model.CapabilityClaim) []model.CapabilityClaim {
	breadth := declaredBreadth(claims)
	ceiling := v.cfg.PlausibleBreadth(f.Beds)
	overCeiling := float64(breadth) > ceiling

	out := make([]model.CapabilityClaim, len(claims))
	for i, claim := range claims {
		out[i] = v.scoreClaim(f, claim, history[claim.Key()], breadth, ceiling, overCeiling)
	}
	return out
}

func (v *Verifier) scoreClaim(f *model.Facility, claim model.CapabilityClaim, prior []model.CapabilityClaim, breadth int, ceiling float64, overCeiling bool) model.CapabilityClaim {
	var signals []model.Signal
	confidence := 0.5 // declared baseline

	// 1. Infrastructure adequacy for the procedure's complexity category.
	adequacy, adequacySignal := v.scoreAdequacy(f, claim.Procedure)
	confidence += adequacy
	signals = append(signals, adequacySignal)

	// 2. Prerequisite equipment.
	equipScore, missing, equipSignal := v.scoreEquipment(f, claim.Procedure)
	confidence += equipScore
	signals = append(signals, equipSignal)

	// 3. Consistency across ingestion revisions.
	consistency, consistencySignal := scoreConsistency(prior)
	confidence += consistency
	signals = append(signals, consistencySignal)

	// A claim whose prerequisite equipment is absent stays claimed but
	// unverified, capped with the other uncorroborated claims.
	if len(missing) > 0 {
		confidence = math.Min(confidence, v.cfg.SuspectedCeiling)
	}

	// Constraint caps: referral phrasing means the capability lives
	// elsewhere; hedges make it conditional.
	if hasConstraint(claim, "referral_only") {
		confidence = math.Min(confidence, v.cfg.SuspectedCeiling)
	} else if hasAnyConstraint(claim, "staffing_dependent", "temporary", "maintenance_dependent") {
		confidence = math.Min(confidence, v.cfg.ConditionalCeiling)
	}

	status := model.StatusUnverified
	if overCeiling {
		// Declared breadth exceeds what a facility of this size plausibly
		// sustains; every claim is suspected and capped below the ceiling.
		status = model.StatusSuspected
		confidence = math.Min(confidence, v.cfg.SuspectedCap)
		signals = append(signals, model.Signal{
			Type:        "plausibility_ceiling",
			Severity:    model.SeverityCritical,
			Description: fmt.Sprintf("Declared breadth %d exceeds plausible ceiling %.1f for %d beds", breadth, ceiling, f.Beds),
			Data: map[string]interface{}{
				"breadth":         breadth,
				"ceiling":         ceiling,
				"beds":            f.Beds,
				"formula":         "breadth_base + breadth_per_bed * beds",
				"breadth_base":    v.cfg.BreadthBase,
				"breadth_per_bed": v.cfg.BreadthPerBed,
			},
		})
	} else if confidence >= v.cfg.VerifiedFloor && len(missing) == 0 {
		status = model.StatusVerified
	}

	claim.Confidence = clamp01(confidence)
	claim.Status = status
	claim.Signals = signals
	return claim
}

// adequacyThreshold is the bed/staff floor per complexity category, with a
// partial-credit floor below it.
type adequacyThreshold struct {
	fullBeds, fullStaff       int
	partialBeds, partialStaff int
}

var adequacyThresholds = map[Complexity]adequacyThreshold{
	ComplexityHigh:   {fullBeds: 50, fullStaff: 20, partialBeds: 20, partialStaff: 8},
	ComplexityMedium: {fullBeds: 10, fullStaff: 4, partialBeds: 5, partialStaff: 2},
	ComplexityLow:    {},
}

func (v *Verifier) scoreAdequacy(f *model.Facility, procedure string) (float64, model.Signal) {
	complexity := ComplexityOf(procedure)
	th := adequacyThresholds[complexity]

	var score float64
	var verdict string
	switch {
	case f.Beds >= th.fullBeds && f.StaffCount >= th.fullStaff:
		score, verdict = 0.25, "adequate"
	case f.Beds >= th.partialBeds && f.StaffCount >= th.partialStaff:
		score, verdict = 0.10, "partial"
	default:
		score, verdict = 0, "inadequate"
	}

	severity := model.SeverityInfo
	if verdict == "inadequate" && complexity == ComplexityHigh {
		severity = model.SeverityWarning
	}
	return score, model.Signal{
		Type:        "infrastructure_adequacy",
		Severity:    severity,
		Description: fmt.Sprintf("%s infrastructure for %s-complexity %s", verdict, complexity, procedure),
		Data: map[string]interface{}{
			"beds":        f.Beds,
			"staff":       f.StaffCount,
			"complexity":  complexity.String(),
			"full_beds":   th.fullBeds,
			"full_staff":  th.fullStaff,
			"score":       score,
			"formula":     "0.25 if beds/staff >= full thresholds, 0.10 if >= partial, else 0",
		},
	}
}

func (v *Verifier) scoreEquipment(f *model.Facility, procedure string) (float64, []string, model.Signal) {
	groups := requiredEquipment[procedure]
	if len(groups) == 0 {
		return 0.15, nil, model.Signal{
			Type:        "equipment_prerequisites",
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("no equipment prerequisites for %s", procedure),
			Data:        map[string]interface{}{"score": 0.15},
		}
	}

	var missing []string
	for _, group := range groups {
		satisfied := false
		for _, name := range group {
			if f.HasEquipment(name) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			missing = append(missing, group[0])
		}
	}
	sort.Strings(missing)

	if len(missing) == 0 {
		return 0.25, nil, model.Signal{
			Type:        "equipment_prerequisites",
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("all prerequisite equipment present for %s", procedure),
			Data:        map[string]interface{}{"required_groups": len(groups), "score": 0.25},
		}
	}
	return 0, missing, model.Signal{
		Type:        "equipment_prerequisites",
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("missing prerequisite equipment for %s: %v", procedure, missing),
		Data: map[string]interface{}{
			"required_groups": len(groups),
			"missing":         missing,
			"score":           0,
		},
	}
}

func scoreConsistency(prior []model.CapabilityClaim) (float64, model.Signal) {
	consistent := len(prior) >= 2
	for _, p := range prior {
		if !p.Declared {
			consistent = false
			break
		}
	}

	score := 0.0
	desc := "first appearance of this claim"
	if consistent {
		score = 0.10
		desc = fmt.Sprintf("claim stable across %d ingestion revisions", len(prior))
	}
	return score, model.Signal{
		Type:        "revision_consistency",
		Severity:    model.SeverityInfo,
		Description: desc,
		Data: map[string]interface{}{
			"revisions": len(prior),
			"score":     score,
		},
	}
}

func declaredBreadth(claims []model.CapabilityClaim) int {
	seen := map[string]bool{}
	for _, c := range claims {
		if c.Declared {
			seen[c.Procedure] = true
		}
	}
	return len(seen)
}

func hasConstraint(c model.CapabilityClaim, tag string) bool {
	for _, t := range c.Constraints {
		if t == tag {
			return true
		}
	}
	return false
}

func hasAnyConstraint(c model.CapabilityClaim, tags ...string) bool {
	for _, t := range tags {
		if hasConstraint(c, t) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
