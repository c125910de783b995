package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

func newTestIngestor(t *testing.T) (*Ingestor, *snapshot.Store) {
	t.Helper()
	store := snapshot.NewStore()
	g, err := NewGazetteerGeocoder(model.GeocodeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	g.Add("Kilifi, Coast", model.Coordinates{Lat: -3.63, Lon: 39.85})
	return NewIngestor(model.DefaultConfig(), store, g, nil), store
}

func TestIngestCSV_BuildsSnapshot(t *testing.T) {
	in, store := newTestIngestor(t)

	res, err := in.IngestCSV(context.Background(), strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if res.Ingested != 2 || len(res.Errors) != 0 {
		t.Fatalf("result: %+v", res)
	}
	if res.Kind != "" {
		t.Errorf("clean pass must not carry a kind, got %q", res.Kind)
	}

	snap := store.Current()
	if snap.Version != 1 {
		t.Errorf("version: %d", snap.Version)
	}
	if len(snap.Facilities) != 2 {
		t.Fatalf("facilities: %d", len(snap.Facilities))
	}

	id := model.FacilityID("St. Mary Hospital", "Coast")
	f := snap.Facility(id)
	if f == nil {
		t.Fatal("St. Mary Hospital not found by derived id")
	}
	if !f.Located() || f.Coordinates.Lat != -3.63 {
		t.Errorf("coordinates: %+v", f.Coordinates)
	}
	if f.Revision != 1 {
		t.Errorf("revision: %d", f.Revision)
	}

	// The column claims plus the c-section mention from the notes.
	procs := map[string]model.CapabilityClaim{}
	for _, c := range snap.FacilityClaims(id) {
		procs[c.Procedure] = c
	}
	for _, want := range []string{"maternity", "surgery", "c_section"} {
		if _, ok := procs[want]; !ok {
			t.Errorf("missing claim %s, have %v", want, procs)
		}
	}
	cs := procs["c_section"]
	if len(cs.Evidence) == 0 || cs.Evidence[0].SourceField != "capability_notes" {
		t.Errorf("c_section evidence: %+v", cs.Evidence)
	}
	if !hasTag(cs.Constraints, "staffing_dependent") {
		t.Errorf("visiting-surgeon hedge must constrain the claim: %v", cs.Constraints)
	}

	// The clinic row has no coordinates; the gazetteer locates it.
	clinic := snap.Facility(model.FacilityID("Kilifi Clinic", "Coast"))
	if clinic == nil || !clinic.Located() {
		t.Fatal("clinic should be geocoded from its district")
	}
	if snap.Geo.Len() != 2 {
		t.Errorf("geo index size: %d", snap.Geo.Len())
	}
}

func TestIngestCSV_IdenticalReingestIsNoOp(t *testing.T) {
	in, store := newTestIngestor(t)

	if _, err := in.IngestCSV(context.Background(), strings.NewReader(sampleCSV)); err != nil {
		t.Fatal(err)
	}
	before := store.Current()

	res, err := in.IngestCSV(context.Background(), strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if res.Ingested != 0 {
		t.Fatalf("identical re-ingest must count 0, got %d", res.Ingested)
	}

	after := store.Current()
	id := model.FacilityID("St. Mary Hospital", "Coast")
	if after.Facility(id).Revision != before.Facility(id).Revision {
		t.Error("revision must not advance on identical content")
	}
	if len(after.History[id+"/maternity"]) != len(before.History[id+"/maternity"]) {
		t.Error("history must not grow on identical content")
	}
}

func TestIngestCSV_ChangedRowAdvancesRevision(t *testing.T) {
	in, store := newTestIngestor(t)
	if _, err := in.IngestCSV(context.Background(), strings.NewReader(sampleCSV)); err != nil {
		t.Fatal(err)
	}

	updated := strings.Replace(sampleCSV, ",120,60,", ",140,70,", 1)
	res, err := in.IngestCSV(context.Background(), strings.NewReader(updated))
	if err != nil {
		t.Fatal(err)
	}
	if res.Ingested != 1 {
		t.Fatalf("only the changed row should count, got %d", res.Ingested)
	}

	snap := store.Current()
	id := model.FacilityID("St. Mary Hospital", "Coast")
	f := snap.Facility(id)
	if f.Beds != 140 || f.Revision != 2 {
		t.Errorf("beds=%d revision=%d", f.Beds, f.Revision)
	}
	if got := len(snap.History[id+"/maternity"]); got != 2 {
		t.Errorf("history should hold both revisions, got %d", got)
	}
}

func TestIngestCSV_CoordinateCorrectionKeepsPrior(t *testing.T) {
	in, store := newTestIngestor(t)
	if _, err := in.IngestCSV(context.Background(), strings.NewReader(sampleCSV)); err != nil {
		t.Fatal(err)
	}

	corrected := strings.Replace(sampleCSV, "-3.63,39.85", "-3.61,39.90", 1)
	if _, err := in.IngestCSV(context.Background(), strings.NewReader(corrected)); err != nil {
		t.Fatal(err)
	}

	f := store.Current().Facility(model.FacilityID("St. Mary Hospital", "Coast"))
	if f.Coordinates.Lat != -3.61 {
		t.Errorf("corrected coordinates not applied: %+v", f.Coordinates)
	}
	if len(f.PriorCoordinates) != 1 || f.PriorCoordinates[0].Lat != -3.63 {
		t.Errorf("superseded coordinates not retained: %+v", f.PriorCoordinates)
	}
}

func TestIngestCSV_PartialFailureIngestsGoodRows(t *testing.T) {
	in, store := newTestIngestor(t)
	csv := `facility,region,beds,staff_count,procedures
Good Hospital,Coast,100,40,surgery
,Coast,10,5,lab
`
	res, err := in.IngestCSV(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if res.Ingested != 1 || len(res.Errors) != 1 {
		t.Fatalf("result: %+v", res)
	}
	if res.Kind != model.KindPartialIngestion {
		t.Errorf("rejected rows must mark the pass as partial, got %q", res.Kind)
	}
	if store.Current().Facility(model.FacilityID("Good Hospital", "Coast")) == nil {
		t.Error("valid row must land despite the bad one")
	}
}

func TestIngestCSV_CanceledContext(t *testing.T) {
	in, _ := newTestIngestor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := in.IngestCSV(ctx, strings.NewReader(sampleCSV))
	if model.KindOf(err) != model.KindTimeout {
		t.Fatalf("expected query_timeout, got %v", err)
	}
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
