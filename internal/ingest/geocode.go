package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/covera-health/covera/internal/cache"
	"github.com/covera-health/covera/internal/model"
)

// Geocoder resolves coordinates for facilities whose rows carry none.
// Resolution is best-effort: a miss leaves the facility unlocated.
type Geocoder interface {
	Geocode(name, region, district string) (*model.Coordinates, bool)
}

// GazetteerGeocoder looks facilities up in a place-name table, most
// specific key first, with a layered cache in front so repeated
// ingestions do not redo lookups.
type GazetteerGeocoder struct {
	entries map[string]model.Coordinates
	cache   cache.Cache
}

// NewGazetteerGeocoder builds the geocoder from the config. The gazetteer
// file is optional YAML of `<place>: {lat, lon}` entries keyed by
// "district, region", "region" or facility name.
func NewGazetteerGeocoder(cfg model.GeocodeConfig) (*GazetteerGeocoder, error) {
	g := &GazetteerGeocoder{
		entries: map[string]model.Coordinates{},
		cache:   cache.NewLayered(cfg.MemoryTTL, cfg.CacheDir, cfg.DiskTTL),
	}
	if cfg.GazetteerPath != "" {
		raw, err := os.ReadFile(cfg.GazetteerPath)
		if err != nil {
			return nil, fmt.Errorf("read gazetteer: %w", err)
		}
		var parsed map[string]model.Coordinates
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("parse gazetteer: %w", err)
		}
		for k, v := range parsed {
			g.entries[placeKey(k)] = v
		}
	}
	return g, nil
}

// Add registers a gazetteer entry programmatically.
func (g *GazetteerGeocoder) Add(place string, c model.Coordinates) {
	g.entries[placeKey(place)] = c
}

// Geocode resolves coordinates for name+region, falling back from the most
// specific place key to the least.
func (g *GazetteerGeocoder) Geocode(name, region, district string) (*model.Coordinates, bool) {
	key := cache.Key("geocode", name, region, district)
	if raw, ok := g.cache.Get(key); ok {
		var c model.Coordinates
		if err := json.Unmarshal(raw, &c); err == nil {
			return &c, true
		}
	}

	candidates := []string{
		name + ", " + district,
		name + ", " + region,
		name,
		district + ", " + region,
		district,
		region,
	}
	for _, cand := range candidates {
		if c, ok := g.entries[placeKey(cand)]; ok {
			if raw, err := json.Marshal(c); err == nil {
				_ = g.cache.Set(key, raw, 0)
			}
			out := c
			return &out, true
		}
	}
	return nil, false
}

func placeKey(s string) string {
	parts := strings.Split(strings.ToLower(s), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ",")
}
