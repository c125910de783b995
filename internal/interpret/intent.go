package interpret

// Intent is the closed set of question forms the planner answers. Anything
// outside the set is refused with a clarification, never silently guessed.
type Intent string

const (
	IntentCountByCapability Intent = "count_by_capability"
	IntentCountByRegion     Intent = "count_by_region_and_capability"
	IntentFacilityLookup    Intent = "facility_services_lookup"
	IntentRadiusSearch      Intent = "radius_capability_search"
	IntentDesertDetection   Intent = "desert_detection"
	IntentPlausibility      Intent = "plausibility_anomaly"
	IntentCorrelation       Intent = "correlation_analysis"
	IntentConcentration     Intent = "dependency_concentration"
	IntentWorkforce         Intent = "workforce_location"
	IntentRegionRanking     Intent = "region_ranking"
)

// SupportedIntents lists every answerable question form, in a stable order
// suitable for clarification messages.
var SupportedIntents = []Intent{
	IntentCountByCapability,
	IntentCountByRegion,
	IntentFacilityLookup,
	IntentRadiusSearch,
	IntentDesertDetection,
	IntentPlausibility,
	IntentCorrelation,
	IntentConcentration,
	IntentWorkforce,
	IntentRegionRanking,
}

// Query is the structured form of an interpreted question. Only the slots
// the intent uses are populated.
type Query struct {
	Intent     Intent  `json:"intent"`
	Procedure  string  `json:"procedure,omitempty"`
	Region     string  `json:"region,omitempty"`
	District   string  `json:"district,omitempty"`
	FacilityID string  `json:"facility_id,omitempty"`
	Specialist string  `json:"specialist,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
	Lon        float64 `json:"lon,omitempty"`
	HasPoint   bool    `json:"has_point,omitempty"`
	RadiusKm   float64 `json:"radius_km,omitempty"`
}

// Filters are caller-supplied slots that scope a question before any text
// parsing: a region or district restriction and an optional search circle.
// Region and district are validated against the snapshot vocabularies;
// structured values take precedence over slots parsed from the text.
type Filters struct {
	Region   string   `json:"region,omitempty"`
	District string   `json:"district,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	Km       *float64 `json:"km,omitempty"`
}
