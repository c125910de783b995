package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all tunable settings. Threshold formulas are product policy,
// so they live here rather than as hard-coded constants.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Query   QueryConfig   `yaml:"query" mapstructure:"query"`
	Verify  VerifyConfig  `yaml:"verify" mapstructure:"verify"`
	Analyze AnalyzeConfig `yaml:"analyze" mapstructure:"analyze"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Narrate NarrateConfig `yaml:"narrate" mapstructure:"narrate"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// QueryConfig bounds query-time work.
type QueryConfig struct {
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`                 // implicit per-query deadline
	RatePerSecond  float64       `yaml:"rate_per_second" mapstructure:"rate_per_second" validate:"gt=0"` // per-client planner rate
	RateBurst      int           `yaml:"rate_burst" mapstructure:"rate_burst" validate:"gte=1"`
	TraceRetention int           `yaml:"trace_retention" mapstructure:"trace_retention" validate:"gte=1"` // ring buffer size
}

// VerifyConfig tunes the claim verifier and confidence scorer.
type VerifyConfig struct {
	SuspectedCeiling   float64 `yaml:"suspected_ceiling" mapstructure:"suspected_ceiling" validate:"gt=0,lte=1"`     // suspected implies confidence below this
	SuspectedCap       float64 `yaml:"suspected_cap" mapstructure:"suspected_cap" validate:"gt=0,lte=1"`             // confidence assigned to suspected claims
	ConditionalCeiling float64 `yaml:"conditional_ceiling" mapstructure:"conditional_ceiling" validate:"gt=0,lte=1"` // hedged/referral claims cap
	VerifiedFloor      float64 `yaml:"verified_floor" mapstructure:"verified_floor" validate:"gt=0,lte=1"`           // minimum confidence for verified
	BreadthBase        float64 `yaml:"breadth_base" mapstructure:"breadth_base" validate:"gt=0"`                     // plausible breadth independent of size
	BreadthPerBed      float64 `yaml:"breadth_per_bed" mapstructure:"breadth_per_bed" validate:"gte=0"`              // extra plausible breadth per bed
}

// PlausibleBreadth is the procedure-breadth ceiling for a facility of the
// given size. Declared breadth above it flags the claims as suspected.
func (v VerifyConfig) PlausibleBreadth(beds int) float64 {
	return v.BreadthBase + v.BreadthPerBed*float64(beds)
}

// AnalyzeConfig tunes the anomaly and correlation analyses.
type AnalyzeConfig struct {
	ZScoreThreshold       float64 `yaml:"z_score_threshold" mapstructure:"z_score_threshold" validate:"gt=0"`
	CorrelationThreshold  float64 `yaml:"correlation_threshold" mapstructure:"correlation_threshold" validate:"gt=0,lte=1"`
	CorrelationMinSamples int     `yaml:"correlation_min_samples" mapstructure:"correlation_min_samples" validate:"gte=2"`
	MinClaimDensity       int     `yaml:"min_claim_density" mapstructure:"min_claim_density" validate:"gte=0"` // claims a facility needs to enter correlation
	MinProviders          int     `yaml:"min_providers" mapstructure:"min_providers" validate:"gte=1"`         // below this a procedure is a bottleneck
	DesertCellKm          float64 `yaml:"desert_cell_km" mapstructure:"desert_cell_km" validate:"gt=0"`
}

// GeocodeConfig configures the best-effort gazetteer geocoder.
type GeocodeConfig struct {
	GazetteerPath string        `yaml:"gazetteer_path" mapstructure:"gazetteer_path"` // optional extra gazetteer file
	CacheDir      string        `yaml:"cache_dir" mapstructure:"cache_dir"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL       time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// IngestConfig bounds ingestion-time concurrency.
type IngestConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// NarrateConfig configures optional answer narration. Narration never
// affects answer_json, citations, classification, or scoring.
type NarrateConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai"` // "openai" or "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gt=0"`
}

var validate = validator.New()

// Validate checks structural bounds and the cross-field ordering the
// scoring policy depends on.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return NewError(KindValidation, "invalid configuration: %v", err)
	}
	if c.Verify.SuspectedCap >= c.Verify.SuspectedCeiling {
		return NewError(KindValidation, "verify.suspected_cap (%.2f) must be below verify.suspected_ceiling (%.2f)",
			c.Verify.SuspectedCap, c.Verify.SuspectedCeiling)
	}
	if c.Verify.ConditionalCeiling >= c.Verify.VerifiedFloor {
		return NewError(KindValidation, "verify.conditional_ceiling (%.2f) must be below verify.verified_floor (%.2f)",
			c.Verify.ConditionalCeiling, c.Verify.VerifiedFloor)
	}
	return nil
}

// DefaultConfig returns the built-in defaults. Illustrative thresholds come
// from observed policy; everything is overridable.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Query: QueryConfig{
			Timeout:        5 * time.Second,
			RatePerSecond:  10,
			RateBurst:      20,
			TraceRetention: 1024,
		},
		Verify: VerifyConfig{
			SuspectedCeiling:   0.55,
			SuspectedCap:       0.50,
			ConditionalCeiling: 0.70,
			VerifiedFloor:      0.75,
			BreadthBase:        6,
			BreadthPerBed:      0.1,
		},
		Analyze: AnalyzeConfig{
			ZScoreThreshold:       2.0,
			CorrelationThreshold:  0.6,
			CorrelationMinSamples: 4,
			MinClaimDensity:       1,
			MinProviders:          3,
			DesertCellKm:          25,
		},
		Geocode: GeocodeConfig{
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Ingest: IngestConfig{
			Workers: 8,
		},
		Narrate: NarrateConfig{
			Provider:  "", // disabled by default
			Timeout:   30,
			MaxTokens: 500,
		},
	}
}
