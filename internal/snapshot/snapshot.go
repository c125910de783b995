package snapshot

import (
	"sort"
	"time"

	"github.com/covera-health/covera/internal/geo"
	"github.com/covera-health/covera/internal/model"
)

// Snapshot is the immutable view of the dataset that every query runs
// against. A snapshot is built off the read path and installed whole;
// nothing mutates it afterwards.
type Snapshot struct {
	Version    int
	BuiltAt    time.Time
	Facilities map[string]*model.Facility
	Order      []string // facility ids in stable iteration order

	// Claims holds the latest revision per (facility, procedure).
	Claims map[string][]model.CapabilityClaim

	// History is the append-only claim record across ingestions, keyed by
	// claim key, oldest first.
	History map[string][]model.CapabilityClaim

	// Geo indexes located facilities only.
	Geo *geo.Index

	Regions   []string
	Districts []string
}

// Empty returns the zero snapshot used before the first ingestion.
func Empty() *Snapshot {
	return &Snapshot{
		Version:    0,
		BuiltAt:    time.Now().UTC(),
		Facilities: map[string]*model.Facility{},
		Claims:     map[string][]model.CapabilityClaim{},
		History:    map[string][]model.CapabilityClaim{},
		Geo:        geo.NewIndex(nil),
	}
}

// Facility returns the facility by id, or nil.
func (s *Snapshot) Facility(id string) *model.Facility {
	return s.Facilities[id]
}

// EachFacility visits facilities in stable order.
func (s *Snapshot) EachFacility(fn func(*model.Facility)) {
	for _, id := range s.Order {
		fn(s.Facilities[id])
	}
}

// FacilityClaims returns the current claims for one facility.
func (s *Snapshot) FacilityClaims(id string) []model.CapabilityClaim {
	return s.Claims[id]
}

// ClaimFor returns the current claim for (facility, procedure), if any.
func (s *Snapshot) ClaimFor(facilityID, procedure string) (model.CapabilityClaim, bool) {
	for _, c := range s.Claims[facilityID] {
		if c.Procedure == procedure {
			return c, true
		}
	}
	return model.CapabilityClaim{}, false
}

// Providers returns facility ids declaring the procedure, optionally
// restricted to verified claims.
func (s *Snapshot) Providers(procedure string, verifiedOnly bool) []string {
	var ids []string
	for _, id := range s.Order {
		for _, c := range s.Claims[id] {
			if c.Procedure != procedure || !c.Declared {
				continue
			}
			if verifiedOnly && c.Status != model.StatusVerified {
				continue
			}
			ids = append(ids, id)
			break
		}
	}
	return ids
}

// ProcedureSet returns every procedure with at least one declared claim.
func (s *Snapshot) ProcedureSet() []string {
	seen := map[string]bool{}
	for _, claims := range s.Claims {
		for _, c := range claims {
			if c.Declared {
				seen[c.Procedure] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// LocatedPoints returns the geo points for located facilities.
func LocatedPoints(facilities map[string]*model.Facility, order []string) []geo.Point {
	var pts []geo.Point
	for _, id := range order {
		f := facilities[id]
		if f.Located() {
			pts = append(pts, geo.Point{ID: f.ID, Lat: f.Coordinates.Lat, Lon: f.Coordinates.Lon})
		}
	}
	return pts
}

// BuildGeoIndex indexes the located facilities.
func BuildGeoIndex(facilities map[string]*model.Facility, order []string) *geo.Index {
	return geo.NewIndex(LocatedPoints(facilities, order))
}

// ProviderIndex builds a geo index over located facilities that provide the
// procedure. verifiedOnly restricts to verified claims, which is what desert
// detection wants.
func (s *Snapshot) ProviderIndex(procedure string, verifiedOnly bool) *geo.Index {
	provider := map[string]bool{}
	for _, id := range s.Providers(procedure, verifiedOnly) {
		provider[id] = true
	}
	var pts []geo.Point
	for _, id := range s.Order {
		f := s.Facilities[id]
		if provider[id] && f.Located() {
			pts = append(pts, geo.Point{ID: id, Lat: f.Coordinates.Lat, Lon: f.Coordinates.Lon})
		}
	}
	return geo.NewIndex(pts)
}
