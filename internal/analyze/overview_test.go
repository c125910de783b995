package analyze

import (
	"context"
	"testing"

	"github.com/covera-health/covera/internal/model"
)

func TestBuildOverview_CombinesAnalyses(t *testing.T) {
	a := testAnalyzer()
	procs := syntheticProcedures(40)

	facilities := []*model.Facility{
		{ID: "a", Name: "Regional Hospital", Region: "Coast", Beds: 500, StaffCount: 200,
			Coordinates: &model.Coordinates{Lat: 0.0, Lon: 36.0}},
		{ID: "b", Name: "Tiny Clinic", Region: "Coast", Beds: 2, StaffCount: 3,
			Coordinates: &model.Coordinates{Lat: 0.0, Lon: 39.6}},
		{ID: "c", Name: "District Hospital", Region: "Coast", Beds: 50, StaffCount: 25,
			Coordinates: &model.Coordinates{Lat: 0.05, Lon: 36.05}},
	}
	claims := map[string][]model.CapabilityClaim{
		"a": declaredClaims("a", model.StatusVerified, procs[:20]...),
		"b": declaredClaims("b", model.StatusSuspected, procs[:40]...),
		"c": declaredClaims("c", model.StatusVerified, procs[:5]...),
	}

	ov, err := a.BuildOverview(context.Background(), buildSnapshot(facilities, claims))
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if ov.Facilities != 3 {
		t.Errorf("facilities: %d", ov.Facilities)
	}
	if len(ov.Outliers) != 1 || ov.Outliers[0].FacilityID != "b" {
		t.Errorf("outliers: %+v", ov.Outliers)
	}
	if len(ov.Bottlenecks) == 0 {
		t.Error("thinly provided procedures must surface as bottlenecks")
	}
	// Three facilities are below the correlation sample minimum.
	if ov.Correlations.Sufficient {
		t.Error("three facilities must not be a sufficient correlation sample")
	}
}

func TestBuildOverview_CanceledContext(t *testing.T) {
	a := testAnalyzer()
	facilities := []*model.Facility{
		{ID: "a", Name: "Fa", Region: "Coast", Beds: 10, StaffCount: 5},
	}
	claims := map[string][]model.CapabilityClaim{
		"a": declaredClaims("a", model.StatusVerified, "lab"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.BuildOverview(ctx, buildSnapshot(facilities, claims)); err == nil {
		t.Fatal("expected an error from the canceled context")
	}
}
