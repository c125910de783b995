package analyze

import (
	"sort"

	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

// PlausibilityOutliers flags facilities whose declared procedure breadth is
// implausible for their infrastructure. Two detectors feed the list: the
// absolute breadth ceiling for the facility's size, and a regional z-score
// on the breadth-to-infrastructure ratio. The ceiling catches lone extremes
// in small regions where a z-score has too few peers to move.
func (a *Analyzer) PlausibilityOutliers(snap *snapshot.Snapshot) []model.PlausibilityOutlier {
	type candidate struct {
		f       *model.Facility
		breadth int
		infra   float64
		ratio   float64
	}

	byRegion := map[string][]candidate{}
	snap.EachFacility(func(f *model.Facility) {
		breadth := declaredBreadth(snap.FacilityClaims(f.ID))
		if breadth == 0 {
			return
		}
		infra := float64(f.Beds + f.StaffCount)
		byRegion[f.Region] = append(byRegion[f.Region], candidate{
			f:       f,
			breadth: breadth,
			infra:   infra,
			ratio:   float64(breadth) / (infra + 1),
		})
	})

	var out []model.PlausibilityOutlier
	for _, peers := range byRegion {
		ratios := make([]float64, len(peers))
		for i, c := range peers {
			ratios[i] = c.ratio
		}
		mu := mean(ratios)
		sigma := stddev(ratios, mu)

		for _, c := range peers {
			z := 0.0
			if sigma > 0 {
				z = (c.ratio - mu) / sigma
			}
			overCeiling := float64(c.breadth) > a.verify.PlausibleBreadth(c.f.Beds)
			if !overCeiling && z < a.cfg.ZScoreThreshold {
				continue
			}
			out = append(out, model.PlausibilityOutlier{
				FacilityID: c.f.ID,
				Name:       c.f.Name,
				Region:     c.f.Region,
				Breadth:    c.breadth,
				InfraSize:  c.infra,
				Ratio:      c.ratio,
				ZScore:     z,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio > out[j].Ratio
		}
		return out[i].FacilityID < out[j].FacilityID
	})
	return out
}

func declaredBreadth(claims []model.CapabilityClaim) int {
	seen := map[string]bool{}
	for _, c := range claims {
		if c.Declared {
			seen[c.Procedure] = true
		}
	}
	return len(seen)
}
