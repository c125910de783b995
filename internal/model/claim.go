package model

// ClaimStatus is the verification status of a capability claim.
type ClaimStatus string

const (
	StatusVerified   ClaimStatus = "verified"   // infrastructure and equipment support the claim
	StatusSuspected  ClaimStatus = "suspected"  // claim breadth implausible for facility size
	StatusUnverified ClaimStatus = "unverified" // declared but not corroborated
)

// Evidence is a quoted span from the source row that supports a claim.
// Evidence is always attached to the claim it supports.
type Evidence struct {
	SourceRef    string `json:"source_ref"`            // source row reference
	SourceField  string `json:"source_field"`          // column the quote came from
	Quote        string `json:"quote"`                 // verbatim snippet
	SupportsPath string `json:"supports_path"`         // e.g. "procedures.c_section"
	Offset       int    `json:"offset,omitempty"`      // character offset within the field
}

// CapabilityClaim asserts that a facility can perform a procedure. The
// verifier never drops a claim; it only annotates confidence and status.
type CapabilityClaim struct {
	FacilityID  string      `json:"facility_id"`
	Procedure   string      `json:"procedure"` // canonical procedure name
	Declared    bool        `json:"declared"`
	Constraints []string    `json:"constraints,omitempty"` // referral_only, staffing_dependent, ...
	Confidence  float64     `json:"confidence"`            // always in [0,1]
	Status      ClaimStatus `json:"status"`
	Evidence    []Evidence  `json:"evidence,omitempty"`
	Signals     []Signal    `json:"signals,omitempty"` // transparent scoring breakdown
	Revision    int         `json:"revision"`
}

// Key identifies the claim within a snapshot: latest revision per
// (facility, procedure) wins.
func (c CapabilityClaim) Key() string {
	return c.FacilityID + "/" + c.Procedure
}

// Citation points a consumer of an answer back at the claim and evidence
// that justify it.
type Citation struct {
	FacilityID   string `json:"facility_id"`
	Procedure    string `json:"procedure,omitempty"`
	SupportsPath string `json:"supports_path"`
	Quote        string `json:"quote,omitempty"`
	SourceField  string `json:"source_field,omitempty"`
}

// Signal is a transparent diagnostic emitted by the verifier or an
// analysis. Data carries the inputs and formula so every score is
// explainable after the fact.
type Signal struct {
	Type        string                 `json:"type"`
	Severity    Severity               `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Severity indicates the importance of a signal.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)
