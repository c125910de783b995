package analyze

import (
	"math"
	"testing"

	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

func testAnalyzer() *Analyzer {
	cfg := model.DefaultConfig()
	return NewAnalyzer(cfg.Analyze, cfg.Verify)
}

func buildSnapshot(facilities []*model.Facility, claims map[string][]model.CapabilityClaim) *snapshot.Snapshot {
	snap := snapshot.Empty()
	for _, f := range facilities {
		snap.Facilities[f.ID] = f
		snap.Order = append(snap.Order, f.ID)
	}
	for id, cs := range claims {
		snap.Claims[id] = cs
	}
	snap.Geo = snapshot.BuildGeoIndex(snap.Facilities, snap.Order)
	return snap
}

func declaredClaims(facilityID string, status model.ClaimStatus, procedures ...string) []model.CapabilityClaim {
	var out []model.CapabilityClaim
	for _, p := range procedures {
		out = append(out, model.CapabilityClaim{FacilityID: facilityID, Procedure: p, Declared: true, Status: status})
	}
	return out
}

func syntheticProcedures(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "proc_" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	return out
}

func TestPlausibilityOutliers_FlagsOnlyTheImplausibleFacility(t *testing.T) {
	a := testAnalyzer()
	procs := syntheticProcedures(40)

	facilities := []*model.Facility{
		{ID: "a", Name: "Regional Hospital", Region: "Coast", Beds: 500, StaffCount: 200},
		{ID: "b", Name: "Tiny Clinic", Region: "Coast", Beds: 2, StaffCount: 3},
		{ID: "c", Name: "District Hospital", Region: "Coast", Beds: 50, StaffCount: 25},
	}
	claims := map[string][]model.CapabilityClaim{
		"a": declaredClaims("a", model.StatusVerified, procs[:20]...),
		"b": declaredClaims("b", model.StatusSuspected, procs[:40]...),
		"c": declaredClaims("c", model.StatusVerified, procs[:5]...),
	}

	out := a.PlausibilityOutliers(buildSnapshot(facilities, claims))
	if len(out) != 1 {
		t.Fatalf("expected exactly one outlier, got %d: %+v", len(out), out)
	}
	o := out[0]
	if o.FacilityID != "b" {
		t.Fatalf("expected the tiny clinic, got %s", o.FacilityID)
	}
	if o.Breadth != 40 || o.Region != "Coast" {
		t.Errorf("outlier detail: %+v", o)
	}
	if o.Ratio <= 0 {
		t.Error("ratio must be populated")
	}
}

func TestPlausibilityOutliers_EmptySnapshot(t *testing.T) {
	a := testAnalyzer()
	if out := a.PlausibilityOutliers(snapshot.Empty()); len(out) != 0 {
		t.Errorf("expected none, got %v", out)
	}
}

func TestCorrelations_PerfectlyCoupledFeatures(t *testing.T) {
	a := testAnalyzer()

	// Staff is exactly beds/5 across the board, so the beds/staff_count
	// coefficient is 1 up to float error.
	var facilities []*model.Facility
	claims := map[string][]model.CapabilityClaim{}
	for i, beds := range []int{20, 60, 120, 240, 400} {
		id := string(rune('a' + i))
		facilities = append(facilities, &model.Facility{
			ID: id, Name: "F" + id, Region: "Coast", Beds: beds, StaffCount: beds / 5,
		})
		claims[id] = declaredClaims(id, model.StatusVerified, "lab")
	}

	report := a.Correlations(buildSnapshot(facilities, claims))
	if !report.Sufficient || report.SampleSize != 5 {
		t.Fatalf("report: %+v", report)
	}

	var bedsStaff *model.CorrelationPair
	for i := range report.Pairs {
		p := &report.Pairs[i]
		if p.FeatureA == "beds" && p.FeatureB == "staff_count" {
			bedsStaff = p
		}
	}
	if bedsStaff == nil {
		t.Fatal("beds/staff_count pair missing")
	}
	if math.Abs(bedsStaff.Coefficient-1.0) > 1e-9 {
		t.Errorf("coefficient %.6f, want 1.0", bedsStaff.Coefficient)
	}
	if bedsStaff.CounterIntuitive {
		t.Error("a strong positive must not be counter-intuitive")
	}
}

func TestCorrelations_CounterIntuitivePair(t *testing.T) {
	a := testAnalyzer()

	// Equipment shrinking as beds grow contradicts the expected direction.
	var facilities []*model.Facility
	claims := map[string][]model.CapabilityClaim{}
	equipment := [][]string{
		{"oxygen", "xray", "ct", "ventilator", "monitors"},
		{"oxygen", "xray", "ct", "ventilator"},
		{"oxygen", "xray", "ct"},
		{"oxygen", "xray"},
		{"oxygen"},
	}
	for i, beds := range []int{10, 50, 100, 200, 400} {
		id := string(rune('a' + i))
		facilities = append(facilities, &model.Facility{
			ID: id, Name: "F" + id, Region: "Coast", Beds: beds, StaffCount: beds / 4,
			Equipment: equipment[i],
		})
		claims[id] = declaredClaims(id, model.StatusVerified, "lab")
	}

	report := a.Correlations(buildSnapshot(facilities, claims))
	found := false
	for _, p := range report.Pairs {
		if p.FeatureA == "beds" && p.FeatureB == "equipment_count" {
			found = true
			if p.Coefficient >= 0 {
				t.Errorf("expected a negative coefficient, got %.3f", p.Coefficient)
			}
			if !p.CounterIntuitive {
				t.Error("strong negative against expectation must be flagged")
			}
		}
	}
	if !found {
		t.Fatal("beds/equipment_count pair missing")
	}
}

func TestCorrelations_InsufficientSamples(t *testing.T) {
	a := testAnalyzer()
	facilities := []*model.Facility{
		{ID: "a", Name: "Fa", Region: "Coast", Beds: 10, StaffCount: 5},
		{ID: "b", Name: "Fb", Region: "Coast", Beds: 20, StaffCount: 10},
	}
	claims := map[string][]model.CapabilityClaim{
		"a": declaredClaims("a", model.StatusVerified, "lab"),
		"b": declaredClaims("b", model.StatusVerified, "lab"),
	}

	report := a.Correlations(buildSnapshot(facilities, claims))
	if report.Sufficient {
		t.Error("two facilities must not be sufficient")
	}
	if len(report.Pairs) != 0 {
		t.Errorf("no pairs expected, got %d", len(report.Pairs))
	}
	if report.SampleSize != 2 {
		t.Errorf("sample size: %d", report.SampleSize)
	}
}

func TestBottlenecks_FlagsThinlyProvidedProcedures(t *testing.T) {
	a := testAnalyzer()
	facilities := []*model.Facility{
		{ID: "a", Name: "Fa", Region: "Coast"},
		{ID: "b", Name: "Fb", Region: "Coast"},
		{ID: "c", Name: "Fc", Region: "Coast"},
	}
	claims := map[string][]model.CapabilityClaim{
		"a": append(declaredClaims("a", model.StatusVerified, "lab", "dialysis"),
			declaredClaims("a", model.StatusUnverified, "ct")...),
		"b": declaredClaims("b", model.StatusVerified, "lab"),
		"c": declaredClaims("c", model.StatusVerified, "lab"),
	}

	out := a.Bottlenecks(buildSnapshot(facilities, claims))

	byProc := map[string]model.BottleneckProcedure{}
	for _, b := range out {
		byProc[b.Procedure] = b
	}
	if _, ok := byProc["lab"]; ok {
		t.Error("lab has three verified providers and is not a bottleneck")
	}
	d, ok := byProc["dialysis"]
	if !ok || d.Providers != 1 || len(d.FacilityIDs) != 1 {
		t.Fatalf("dialysis: %+v", d)
	}
	// An unverified-only procedure has zero verified providers.
	ct, ok := byProc["ct"]
	if !ok || ct.Providers != 0 {
		t.Fatalf("ct: %+v", ct)
	}
	// Thinnest coverage sorts first.
	if len(out) >= 2 && out[0].Providers > out[1].Providers {
		t.Error("bottlenecks must sort by provider count ascending")
	}
}

func TestDeserts_RemoteCellIsFlagged(t *testing.T) {
	a := testAnalyzer()

	loc := func(lat, lon float64) *model.Coordinates { return &model.Coordinates{Lat: lat, Lon: lon} }
	facilities := []*model.Facility{
		// Served cluster: a verified provider sits among them.
		{ID: "a", Name: "Fa", Region: "Coast", Coordinates: loc(0.0, 36.0)},
		{ID: "b", Name: "Fb", Region: "Coast", Coordinates: loc(0.05, 36.05)},
		// Remote cluster roughly 400 km east, no provider nearby.
		{ID: "c", Name: "Fc", Region: "East", Coordinates: loc(0.0, 39.6)},
		{ID: "d", Name: "Fd", Region: "East", Coordinates: loc(0.05, 39.65)},
	}
	claims := map[string][]model.CapabilityClaim{
		"a": declaredClaims("a", model.StatusVerified, "c_section"),
		"c": declaredClaims("c", model.StatusUnverified, "c_section"),
	}

	out := a.Deserts(buildSnapshot(facilities, claims), "c_section")
	if len(out) == 0 {
		t.Fatal("expected the remote cluster's cell to be a desert")
	}
	for _, z := range out {
		if z.Procedure != "c_section" {
			t.Errorf("procedure: %s", z.Procedure)
		}
		if z.CenterLon < 38 {
			t.Errorf("served cluster flagged as desert: %+v", z)
		}
		if z.NearestProviderKm <= 2*a.cfg.DesertCellKm {
			t.Errorf("desert cell with a provider inside the radius: %+v", z)
		}
		if z.Severity <= 0 || z.Severity > 1 {
			t.Errorf("severity out of range: %+v", z)
		}
	}
}

func TestDeserts_NoProviderAnywhere(t *testing.T) {
	a := testAnalyzer()
	facilities := []*model.Facility{
		{ID: "a", Name: "Fa", Region: "Coast", Coordinates: &model.Coordinates{Lat: 0.0, Lon: 36.0}},
	}
	claims := map[string][]model.CapabilityClaim{
		"a": declaredClaims("a", model.StatusUnverified, "dialysis"),
	}

	out := a.Deserts(buildSnapshot(facilities, claims), "dialysis")
	if len(out) != 1 {
		t.Fatalf("expected one desert cell, got %d", len(out))
	}
	if out[0].NearestProviderKm != -1 {
		t.Errorf("no provider must report -1, got %.1f", out[0].NearestProviderKm)
	}
	if out[0].Severity != 1 {
		t.Errorf("severity must max out with no provider, got %.2f", out[0].Severity)
	}
}

func TestDeserts_UnlocatedOnlySnapshot(t *testing.T) {
	a := testAnalyzer()
	facilities := []*model.Facility{{ID: "a", Name: "Fa", Region: "Coast"}}
	claims := map[string][]model.CapabilityClaim{
		"a": declaredClaims("a", model.StatusVerified, "lab"),
	}
	if out := a.Deserts(buildSnapshot(facilities, claims), "lab"); out != nil {
		t.Errorf("no located facilities means no cells, got %v", out)
	}
}
