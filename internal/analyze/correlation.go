package analyze

import (
	"sort"

	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

// correlationFeatures are the facility characteristics entering the
// pairwise analysis, in report order.
var correlationFeatures = []string{"beds", "staff_count", "equipment_count", "procedure_breadth", "specialist_count"}

// Larger facilities are expected to have more of everything, so every
// feature pair is expected to correlate positively. An observed strong
// negative is the counter-intuitive case worth surfacing.
func expectedPositive(a, b string) bool {
	return true
}

// CorrelationReport carries the pairwise results plus the sample size they
// were computed over. Sufficient is false when too few facilities qualified
// for any coefficient to mean anything.
type CorrelationReport struct {
	Pairs      []model.CorrelationPair `json:"pairs"`
	SampleSize int                     `json:"sample_size"`
	Sufficient bool                    `json:"sufficient"`
}

// Correlations computes Pearson coefficients between facility features over
// facilities with at least MinClaimDensity declared claims.
func (a *Analyzer) Correlations(snap *snapshot.Snapshot) CorrelationReport {
	series := map[string][]float64{}
	sample := 0
	snap.EachFacility(func(f *model.Facility) {
		breadth := declaredBreadth(snap.FacilityClaims(f.ID))
		if breadth < a.cfg.MinClaimDensity {
			return
		}
		sample++
		series["beds"] = append(series["beds"], float64(f.Beds))
		series["staff_count"] = append(series["staff_count"], float64(f.StaffCount))
		series["equipment_count"] = append(series["equipment_count"], float64(len(f.Equipment)))
		series["procedure_breadth"] = append(series["procedure_breadth"], float64(breadth))
		series["specialist_count"] = append(series["specialist_count"], float64(len(f.Specialists)))
	})

	report := CorrelationReport{SampleSize: sample, Sufficient: sample >= a.cfg.CorrelationMinSamples}
	if !report.Sufficient {
		return report
	}

	for i := 0; i < len(correlationFeatures); i++ {
		for j := i + 1; j < len(correlationFeatures); j++ {
			fa, fb := correlationFeatures[i], correlationFeatures[j]
			coeff := pearson(series[fa], series[fb])
			expected := expectedPositive(fa, fb)
			report.Pairs = append(report.Pairs, model.CorrelationPair{
				FeatureA:         fa,
				FeatureB:         fb,
				Coefficient:      coeff,
				SampleSize:       sample,
				ExpectedPositive: expected,
				CounterIntuitive: expected && coeff <= -a.cfg.CorrelationThreshold,
			})
		}
	}

	sort.Slice(report.Pairs, func(i, j int) bool {
		ai, aj := abs(report.Pairs[i].Coefficient), abs(report.Pairs[j].Coefficient)
		if ai != aj {
			return ai > aj
		}
		if report.Pairs[i].FeatureA != report.Pairs[j].FeatureA {
			return report.Pairs[i].FeatureA < report.Pairs[j].FeatureA
		}
		return report.Pairs[i].FeatureB < report.Pairs[j].FeatureB
	})
	return report
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
