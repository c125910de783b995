package verify

import (
	"testing"

	"github.com/covera-health/covera/internal/model"
)

func testConfig() model.VerifyConfig {
	return model.DefaultConfig().Verify
}

func claimsFor(facilityID string, procedures ...string) []model.CapabilityClaim {
	var out []model.CapabilityClaim
	for _, p := range procedures {
		out = append(out, model.CapabilityClaim{FacilityID: facilityID, Procedure: p, Declared: true})
	}
	return out
}

func TestVerify_WellEquippedHospitalIsVerified(t *testing.T) {
	v := NewVerifier(testConfig())
	f := &model.Facility{
		ID: "f1", Name: "Regional Referral Hospital", Region: "Coast",
		Beds: 300, StaffCount: 120,
		Equipment: []string{"anesthesia_machine", "operating_room", "ventilator", "ct"},
	}
	scored := v.VerifyFacility(f, claimsFor("f1", "c_section", "surgery", "cardiology"), nil)

	for _, c := range scored {
		if c.Status != model.StatusVerified {
			t.Errorf("%s: expected verified, got %s (confidence %.2f)", c.Procedure, c.Status, c.Confidence)
		}
		if c.Confidence < testConfig().VerifiedFloor {
			t.Errorf("%s: confidence %.2f below verified floor", c.Procedure, c.Confidence)
		}
		if c.Confidence > 1 {
			t.Errorf("%s: confidence %.2f above 1", c.Procedure, c.Confidence)
		}
	}
}

func TestVerify_MissingEquipmentStaysUnverified(t *testing.T) {
	v := NewVerifier(testConfig())
	f := &model.Facility{
		ID: "f1", Name: "District Hospital", Region: "Coast",
		Beds: 120, StaffCount: 60,
		Equipment: []string{"operating_room"}, // no anesthesia machine
	}
	scored := v.VerifyFacility(f, claimsFor("f1", "c_section"), nil)

	c := scored[0]
	if c.Status != model.StatusUnverified {
		t.Fatalf("expected unverified, got %s", c.Status)
	}
	if c.Confidence > testConfig().SuspectedCeiling {
		t.Errorf("unverified confidence %.2f exceeds ceiling %.2f", c.Confidence, testConfig().SuspectedCeiling)
	}

	found := false
	for _, s := range c.Signals {
		if s.Type == "equipment_prerequisites" && s.Severity == model.SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Error("expected an equipment_prerequisites warning signal")
	}
}

func TestVerify_ReferralConstraintCapsConfidence(t *testing.T) {
	v := NewVerifier(testConfig())
	f := &model.Facility{ID: "f1", Name: "Clinic", Region: "Coast", Beds: 200, StaffCount: 80}
	claims := []model.CapabilityClaim{{
		FacilityID: "f1", Procedure: "cardiology", Declared: true,
		Constraints: []string{"referral_only"},
	}}
	scored := v.VerifyFacility(f, claims, nil)

	if got := scored[0].Confidence; got > testConfig().SuspectedCeiling {
		t.Errorf("referral_only claim confidence %.2f exceeds %.2f", got, testConfig().SuspectedCeiling)
	}
	if scored[0].Status == model.StatusVerified {
		t.Error("referral_only claim must not verify")
	}
}

func TestVerify_HedgedConstraintCapsAtConditionalCeiling(t *testing.T) {
	v := NewVerifier(testConfig())
	f := &model.Facility{
		ID: "f1", Name: "Hospital", Region: "Coast", Beds: 200, StaffCount: 80,
		Equipment: []string{"ventilator", "monitors"},
	}
	claims := []model.CapabilityClaim{{
		FacilityID: "f1", Procedure: "icu", Declared: true,
		Constraints: []string{"staffing_dependent"},
	}}
	scored := v.VerifyFacility(f, claims, nil)

	if got := scored[0].Confidence; got > testConfig().ConditionalCeiling {
		t.Errorf("hedged claim confidence %.2f exceeds %.2f", got, testConfig().ConditionalCeiling)
	}
}

// A tiny facility declaring a huge procedure roster is flagged as suspected,
// while a large hospital with a wide roster and a small clinic with a modest
// one pass untouched.
func TestVerify_BreadthPlausibilityCeiling(t *testing.T) {
	cfg := testConfig()
	v := NewVerifier(cfg)

	wide := make([]string, 40)
	for i := range wide {
		wide[i] = "specialty_" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}

	cases := []struct {
		name      string
		beds      int
		staff     int
		breadth   int
		suspected bool
	}{
		{"large hospital, wide roster", 500, 200, 20, false},
		{"two-bed clinic, forty procedures", 2, 3, 40, true},
		{"small hospital, modest roster", 50, 25, 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &model.Facility{ID: "f", Name: tc.name, Region: "Coast", Beds: tc.beds, StaffCount: tc.staff}
			scored := v.VerifyFacility(f, claimsFor("f", wide[:tc.breadth]...), nil)

			for _, c := range scored {
				if tc.suspected {
					if c.Status != model.StatusSuspected {
						t.Fatalf("%s: expected suspected, got %s", c.Procedure, c.Status)
					}
					if c.Confidence >= cfg.SuspectedCeiling {
						t.Errorf("suspected confidence %.2f not below ceiling %.2f", c.Confidence, cfg.SuspectedCeiling)
					}
				} else if c.Status == model.StatusSuspected {
					t.Fatalf("%s: unexpectedly suspected", c.Procedure)
				}
			}
		})
	}
}

func TestVerify_SuspectedClaimsCarryCeilingSignal(t *testing.T) {
	v := NewVerifier(testConfig())
	f := &model.Facility{ID: "f1", Name: "Clinic", Region: "Coast", Beds: 2, StaffCount: 2}
	procedures := make([]string, 20)
	for i := range procedures {
		procedures[i] = "proc_" + string(rune('a'+i))
	}
	scored := v.VerifyFacility(f, claimsFor("f1", procedures...), nil)

	for _, c := range scored {
		found := false
		for _, s := range c.Signals {
			if s.Type == "plausibility_ceiling" && s.Severity == model.SeverityCritical {
				found = true
				if _, ok := s.Data["formula"]; !ok {
					t.Error("ceiling signal must carry its formula")
				}
			}
		}
		if !found {
			t.Fatalf("%s: suspected claim missing plausibility_ceiling signal", c.Procedure)
		}
	}
}

func TestVerify_ConsistencyBonusAfterStableRevisions(t *testing.T) {
	v := NewVerifier(testConfig())
	f := &model.Facility{
		ID: "f1", Name: "Hospital", Region: "Coast", Beds: 30, StaffCount: 10,
		Equipment: []string{"operating_room", "anesthesia_machine"},
	}
	claims := claimsFor("f1", "surgery")

	fresh := v.VerifyFacility(f, claims, nil)
	prior := map[string][]model.CapabilityClaim{
		"f1/surgery": {
			{FacilityID: "f1", Procedure: "surgery", Declared: true, Revision: 1},
			{FacilityID: "f1", Procedure: "surgery", Declared: true, Revision: 2},
		},
	}
	stable := v.VerifyFacility(f, claims, prior)

	if stable[0].Confidence <= fresh[0].Confidence {
		t.Errorf("stable claim %.2f should outscore first appearance %.2f",
			stable[0].Confidence, fresh[0].Confidence)
	}
}

func TestVerify_EverySignalCarriesScore(t *testing.T) {
	v := NewVerifier(testConfig())
	f := &model.Facility{ID: "f1", Name: "Hospital", Region: "Coast", Beds: 30, StaffCount: 10}
	scored := v.VerifyFacility(f, claimsFor("f1", "maternity", "lab"), nil)

	for _, c := range scored {
		if len(c.Signals) == 0 {
			t.Fatalf("%s: no signals", c.Procedure)
		}
		for _, s := range c.Signals {
			if s.Type == "plausibility_ceiling" {
				continue
			}
			if _, ok := s.Data["score"]; !ok {
				t.Errorf("%s signal %s missing score data", c.Procedure, s.Type)
			}
		}
	}
}

func TestComplexityOf_DefaultsToMedium(t *testing.T) {
	if got := ComplexityOf("icu"); got != ComplexityHigh {
		t.Errorf("icu: got %s", got)
	}
	if got := ComplexityOf("lab"); got != ComplexityLow {
		t.Errorf("lab: got %s", got)
	}
	if got := ComplexityOf("unknown_specialty"); got != ComplexityMedium {
		t.Errorf("unknown: got %s", got)
	}
}
