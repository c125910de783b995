package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Facility represents a healthcare provider record with location and
// infrastructure attributes. A facility with nil Coordinates is "unlocated":
// it is excluded from geospatial queries but remains answerable for
// non-geographic questions.
type Facility struct {
	ID           string       `json:"id"`                     // stable hash of name+region
	Name         string       `json:"name"`
	Region       string       `json:"region"`
	District     string       `json:"district,omitempty"`
	FacilityType string       `json:"facility_type,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	Beds         int          `json:"beds"`
	StaffCount   int          `json:"staff_count"`
	Equipment    []string     `json:"equipment,omitempty"`   // canonical equipment names
	Specialists  []string     `json:"specialists,omitempty"` // canonical subspecialty names
	Notes        []string     `json:"notes,omitempty"`       // constraint notes from free-text fields
	SourceRef    string       `json:"source_ref,omitempty"`  // source row reference
	ContentHash  string       `json:"content_hash"`          // hash of the normalized source row
	Revision     int          `json:"revision"`

	// PriorCoordinates holds superseded geocodes. Corrected coordinates on
	// re-ingestion append a revision here instead of overwriting history.
	PriorCoordinates []Coordinates `json:"prior_coordinates,omitempty"`

	IngestedAt time.Time `json:"ingested_at"`
}

// Located reports whether the facility has usable coordinates.
func (f *Facility) Located() bool {
	return f != nil && f.Coordinates != nil
}

// HasEquipment reports whether the facility lists the canonical equipment name.
func (f *Facility) HasEquipment(name string) bool {
	for _, e := range f.Equipment {
		if e == name {
			return true
		}
	}
	return false
}

// FacilityID derives the stable facility identity from name and region.
// Identity is deterministic so re-ingesting the same facility maps to the
// same record.
func FacilityID(name, region string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(region))))
	return hex.EncodeToString(h[:])[:12]
}

// ContentHash computes the idempotence hash for a normalized row. Two rows
// with the same hash are the same content; re-ingesting one is a no-op.
func RowContentHash(fields ...string) string {
	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(f))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
