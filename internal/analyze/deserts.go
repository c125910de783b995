package analyze

import (
	"sort"

	"github.com/covera-health/covera/internal/geo"
	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

// Deserts finds populated grid cells whose nearest verified provider of the
// procedure lies beyond twice the cell size. Cells are seeded from located
// facilities, so the analysis measures coverage where the dataset knows
// people are served at all, not over open ocean.
func (a *Analyzer) Deserts(snap *snapshot.Snapshot, procedure string) []model.DesertZone {
	cellKm := a.cfg.DesertCellKm
	if cellKm <= 0 {
		cellKm = 25
	}
	cellDeg := cellKm / 111.0
	radiusKm := 2 * cellKm

	type cell struct {
		latIdx, lonIdx int
		count          int
	}
	cells := map[[2]int]*cell{}
	snap.EachFacility(func(f *model.Facility) {
		if !f.Located() {
			return
		}
		key := [2]int{
			int(floorDiv(f.Coordinates.Lat, cellDeg)),
			int(floorDiv(f.Coordinates.Lon, cellDeg)),
		}
		c, ok := cells[key]
		if !ok {
			c = &cell{latIdx: key[0], lonIdx: key[1]}
			cells[key] = c
		}
		c.count++
	})
	if len(cells) == 0 {
		return nil
	}

	var totalFacilities int
	for _, c := range cells {
		totalFacilities += c.count
	}
	meanPerCell := float64(totalFacilities) / float64(len(cells))

	providers := snap.ProviderIndex(procedure, true)

	var out []model.DesertZone
	for _, c := range cells {
		centerLat := (float64(c.latIdx) + 0.5) * cellDeg
		centerLon := (float64(c.lonIdx) + 0.5) * cellDeg

		nearest := providerDistance(providers, centerLat, centerLon)
		if nearest >= 0 && nearest <= radiusKm {
			continue
		}

		severity := 1.0 // no provider anywhere
		if nearest >= 0 {
			severity = clamp01((nearest - radiusKm) / radiusKm)
		}
		out = append(out, model.DesertZone{
			CenterLat:         centerLat,
			CenterLon:         centerLon,
			CellKm:            cellKm,
			Procedure:         procedure,
			NearestProviderKm: nearest,
			Severity:          severity,
			FacilityDeficit:   meanPerCell - float64(c.count),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		if out[i].FacilityDeficit != out[j].FacilityDeficit {
			return out[i].FacilityDeficit > out[j].FacilityDeficit
		}
		if out[i].CenterLat != out[j].CenterLat {
			return out[i].CenterLat < out[j].CenterLat
		}
		return out[i].CenterLon < out[j].CenterLon
	})
	return out
}

func providerDistance(idx *geo.Index, lat, lon float64) float64 {
	if idx == nil || idx.Len() == 0 {
		return -1
	}
	return idx.NearestDistance(lat, lon)
}

// floorDiv is floor(a/b) over floats, stable across the negative axis so
// cells straddling the equator or meridian index consistently.
func floorDiv(a, b float64) float64 {
	q := a / b
	f := float64(int(q))
	if q < 0 && q != f {
		f--
	}
	return f
}
