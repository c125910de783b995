package model

// PlausibilityOutlier flags a facility whose procedure breadth is a
// statistical outlier against its regional peers.
type PlausibilityOutlier struct {
	FacilityID string  `json:"facility_id"`
	Name       string  `json:"name"`
	Region     string  `json:"region"`
	Breadth    int     `json:"breadth"`    // distinct declared procedures
	InfraSize  float64 `json:"infra_size"` // beds + staff proxy
	Ratio      float64 `json:"ratio"`      // breadth / infra_size
	ZScore     float64 `json:"z_score"`
}

// CorrelationPair reports a pairwise correlation between two facility
// characteristics. CounterIntuitive marks pairs whose observed sign
// contradicts domain expectation.
type CorrelationPair struct {
	FeatureA         string  `json:"feature_a"`
	FeatureB         string  `json:"feature_b"`
	Coefficient      float64 `json:"coefficient"`
	SampleSize       int     `json:"sample_size"`
	ExpectedPositive bool    `json:"expected_positive"`
	CounterIntuitive bool    `json:"counter_intuitive"`
}

// BottleneckProcedure is a procedure provided by fewer distinct facilities
// than the configured minimum.
type BottleneckProcedure struct {
	Procedure   string   `json:"procedure"`
	Providers   int      `json:"providers"`
	FacilityIDs []string `json:"facility_ids"`
}

// DesertZone is a grid cell whose nearest verified provider of a procedure
// lies beyond the requested radius.
type DesertZone struct {
	CenterLat         float64 `json:"center_lat"`
	CenterLon         float64 `json:"center_lon"`
	CellKm            float64 `json:"cell_km"`
	Procedure         string  `json:"procedure"`
	NearestProviderKm float64 `json:"nearest_provider_km"` // -1 when no provider exists at all
	Severity          float64 `json:"severity"`
	FacilityDeficit   float64 `json:"facility_deficit"` // located facilities below the per-cell mean
}
