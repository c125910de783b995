package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/covera-health/covera/internal/interpret"
	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

// citeClaim turns a claim into a citation, preferring its strongest
// evidence span.
func citeClaim(c model.CapabilityClaim) model.Citation {
	cit := model.Citation{
		FacilityID:   c.FacilityID,
		Procedure:    c.Procedure,
		SupportsPath: "procedures." + c.Procedure,
	}
	if len(c.Evidence) > 0 {
		ev := c.Evidence[0]
		cit.Quote = ev.Quote
		cit.SourceField = ev.SourceField
		cit.SupportsPath = ev.SupportsPath
	}
	return cit
}

func (p *Planner) countByCapability(snap *snapshot.Snapshot, q *interpret.Query) outcome {
	var ids []string
	var citations []model.Citation
	snap.EachFacility(func(f *model.Facility) {
		if q.Region != "" && f.Region != q.Region {
			return
		}
		if q.District != "" && f.District != q.District {
			return
		}
		c, ok := snap.ClaimFor(f.ID, q.Procedure)
		if !ok || !c.Declared || c.Status != model.StatusVerified {
			return
		}
		ids = append(ids, f.ID)
		citations = append(citations, citeClaim(c))
	})

	scope := "the dataset"
	if q.Region != "" {
		scope = q.Region
	}
	if q.District != "" {
		scope = q.District + " district"
	}
	text := fmt.Sprintf("%d facilities in %s have a verified %s capability.", len(ids), scope, q.Procedure)
	data := map[string]interface{}{
		"procedure":     q.Procedure,
		"count":         len(ids),
		"verified_only": true,
		"facility_ids":  ids,
	}
	if q.Region != "" {
		data["region"] = q.Region
	}
	if q.District != "" {
		data["district"] = q.District
	}
	return outcome{text: text, data: data, citations: citations}
}

func (p *Planner) facilityLookup(snap *snapshot.Snapshot, q *interpret.Query) outcome {
	f := snap.Facility(q.FacilityID)
	if f == nil {
		return outcome{err: model.NewError(model.KindNotFound, "facility %s not found", q.FacilityID)}
	}

	claims := append([]model.CapabilityClaim{}, snap.FacilityClaims(f.ID)...)
	sort.Slice(claims, func(i, j int) bool { return claims[i].Procedure < claims[j].Procedure })

	verified := 0
	var services []map[string]interface{}
	var citations []model.Citation
	for _, c := range claims {
		if c.Status == model.StatusVerified {
			verified++
		}
		entry := map[string]interface{}{
			"procedure":  c.Procedure,
			"status":     c.Status,
			"confidence": c.Confidence,
		}
		if len(c.Constraints) > 0 {
			entry["constraints"] = c.Constraints
		}
		services = append(services, entry)
		citations = append(citations, citeClaim(c))
	}

	text := fmt.Sprintf("%s (%s) declares %d capabilities, %d of them verified.", f.Name, f.Region, len(claims), verified)
	data := map[string]interface{}{
		"facility_id": f.ID,
		"name":        f.Name,
		"region":      f.Region,
		"beds":        f.Beds,
		"staff_count": f.StaffCount,
		"services":    services,
	}
	if f.Located() {
		data["coordinates"] = f.Coordinates
	}
	return outcome{text: text, data: data, citations: citations}
}

func (p *Planner) radiusSearch(snap *snapshot.Snapshot, q *interpret.Query) outcome {
	idx := snap.ProviderIndex(q.Procedure, false)
	matches := idx.WithinRadius(q.Lat, q.Lon, q.RadiusKm)

	var results []map[string]interface{}
	var citations []model.Citation
	for _, m := range matches {
		f := snap.Facility(m.Point.ID)
		c, ok := snap.ClaimFor(f.ID, q.Procedure)
		if !ok {
			continue
		}
		results = append(results, map[string]interface{}{
			"facility_id": f.ID,
			"name":        f.Name,
			"distance_km": m.DistanceKm,
			"status":      c.Status,
			"confidence":  c.Confidence,
		})
		citations = append(citations, citeClaim(c))
	}

	text := fmt.Sprintf("No facility within %.0f km of (%.4f, %.4f) declares %s.", q.RadiusKm, q.Lat, q.Lon, q.Procedure)
	if len(results) > 0 {
		text = fmt.Sprintf("%d facilities within %.0f km of (%.4f, %.4f) declare %s; the closest is %s at %.1f km.",
			len(results), q.RadiusKm, q.Lat, q.Lon, q.Procedure,
			results[0]["name"], matches[0].DistanceKm)
	}
	data := map[string]interface{}{
		"procedure": q.Procedure,
		"center":    map[string]float64{"lat": q.Lat, "lon": q.Lon},
		"radius_km": q.RadiusKm,
		"results":   results,
	}
	return outcome{text: text, data: data, citations: citations}
}

func (p *Planner) desertDetection(snap *snapshot.Snapshot, q *interpret.Query) outcome {
	zones := p.analyzer.Deserts(snap, q.Procedure)

	var citations []model.Citation
	for _, id := range snap.Providers(q.Procedure, true) {
		if c, ok := snap.ClaimFor(id, q.Procedure); ok {
			citations = append(citations, citeClaim(c))
		}
	}

	text := fmt.Sprintf("Every populated %g km cell has verified %s coverage within %g km.",
		p.cfg.Analyze.DesertCellKm, q.Procedure, 2*p.cfg.Analyze.DesertCellKm)
	if len(zones) > 0 {
		worst := zones[0]
		where := fmt.Sprintf("the worst around (%.2f, %.2f)", worst.CenterLat, worst.CenterLon)
		if worst.NearestProviderKm < 0 {
			where += " with no verified provider anywhere"
		} else {
			where += fmt.Sprintf(" with the nearest verified provider %.0f km away", worst.NearestProviderKm)
		}
		text = fmt.Sprintf("%d populated cells lack verified %s coverage within %g km, %s.",
			len(zones), q.Procedure, 2*p.cfg.Analyze.DesertCellKm, where)
	}
	data := map[string]interface{}{
		"procedure":      q.Procedure,
		"cell_km":        p.cfg.Analyze.DesertCellKm,
		"zones":          zones,
		"provider_count": len(citations),
	}
	return outcome{text: text, data: data, citations: citations}
}

func (p *Planner) plausibility(snap *snapshot.Snapshot) outcome {
	outliers := p.analyzer.PlausibilityOutliers(snap)

	var citations []model.Citation
	var names []string
	for _, o := range outliers {
		names = append(names, o.Name)
		for _, c := range snap.FacilityClaims(o.FacilityID) {
			if c.Status == model.StatusSuspected {
				citations = append(citations, citeClaim(c))
				break
			}
		}
	}

	text := "No facility's declared capability breadth looks implausible for its size."
	if len(outliers) > 0 {
		text = fmt.Sprintf("%d facilities declare implausibly broad capabilities for their infrastructure: %s.",
			len(outliers), strings.Join(names, ", "))
	}
	data := map[string]interface{}{"outliers": outliers}
	return outcome{text: text, data: data, citations: citations}
}

func (p *Planner) correlation(snap *snapshot.Snapshot) outcome {
	report := p.analyzer.Correlations(snap)
	data := map[string]interface{}{
		"sample_size": report.SampleSize,
		"sufficient":  report.Sufficient,
		"pairs":       report.Pairs,
	}
	if !report.Sufficient {
		text := fmt.Sprintf("Only %d facilities qualify for correlation analysis; at least %d are needed for a meaningful result.",
			report.SampleSize, p.cfg.Analyze.CorrelationMinSamples)
		return outcome{text: text, data: data}
	}

	var counter []model.CorrelationPair
	for _, pair := range report.Pairs {
		if pair.CounterIntuitive {
			counter = append(counter, pair)
		}
	}
	data["counter_intuitive"] = counter

	top := report.Pairs[0]
	text := fmt.Sprintf("Across %d facilities the strongest relationship is %s vs %s (r=%.2f).",
		report.SampleSize, top.FeatureA, top.FeatureB, top.Coefficient)
	if len(counter) > 0 {
		text += fmt.Sprintf(" %d pairs run against the expected direction.", len(counter))
	}

	var citations []model.Citation
	snap.EachFacility(func(f *model.Facility) {
		if len(citations) >= maxCitations {
			return
		}
		if len(snap.FacilityClaims(f.ID)) >= p.cfg.Analyze.MinClaimDensity {
			citations = append(citations, model.Citation{
				FacilityID:   f.ID,
				SupportsPath: "facility.infrastructure",
				SourceField:  "beds",
			})
		}
	})
	return outcome{text: text, data: data, citations: citations}
}

func (p *Planner) concentration(snap *snapshot.Snapshot, q *interpret.Query) outcome {
	bottlenecks := p.analyzer.Bottlenecks(snap)

	if q.Procedure != "" {
		providers := snap.Providers(q.Procedure, true)
		var citations []model.Citation
		for _, id := range providers {
			if c, ok := snap.ClaimFor(id, q.Procedure); ok {
				citations = append(citations, citeClaim(c))
			}
		}
		bottleneck := len(providers) < p.cfg.Analyze.MinProviders
		text := fmt.Sprintf("%s has %d verified providers; coverage is adequately spread.", q.Procedure, len(providers))
		if bottleneck {
			text = fmt.Sprintf("%s is a bottleneck: only %d verified providers in the dataset.", q.Procedure, len(providers))
		}
		return outcome{
			text: text,
			data: map[string]interface{}{
				"procedure":     q.Procedure,
				"providers":     len(providers),
				"facility_ids":  providers,
				"is_bottleneck": bottleneck,
				"min_providers": p.cfg.Analyze.MinProviders,
			},
			citations: citations,
		}
	}

	var citations []model.Citation
	for _, b := range bottlenecks {
		for _, id := range b.FacilityIDs {
			if c, ok := snap.ClaimFor(id, b.Procedure); ok {
				citations = append(citations, citeClaim(c))
			}
		}
	}
	text := fmt.Sprintf("Every procedure has at least %d verified providers.", p.cfg.Analyze.MinProviders)
	if len(bottlenecks) > 0 {
		text = fmt.Sprintf("%d procedures depend on fewer than %d verified providers; thinnest is %s with %d.",
			len(bottlenecks), p.cfg.Analyze.MinProviders, bottlenecks[0].Procedure, bottlenecks[0].Providers)
	}
	data := map[string]interface{}{
		"bottlenecks":   bottlenecks,
		"min_providers": p.cfg.Analyze.MinProviders,
	}
	return outcome{text: text, data: data, citations: citations}
}

func (p *Planner) workforce(snap *snapshot.Snapshot, q *interpret.Query) outcome {
	var results []map[string]interface{}
	var citations []model.Citation
	snap.EachFacility(func(f *model.Facility) {
		for _, s := range f.Specialists {
			if s != q.Specialist {
				continue
			}
			entry := map[string]interface{}{
				"facility_id": f.ID,
				"name":        f.Name,
				"region":      f.Region,
			}
			if f.Located() {
				entry["coordinates"] = f.Coordinates
			}
			results = append(results, entry)
			citations = append(citations, model.Citation{
				FacilityID:   f.ID,
				SupportsPath: "specialists." + q.Specialist,
				SourceField:  "specialists",
			})
			break
		}
	})

	text := fmt.Sprintf("No facility lists a %s.", q.Specialist)
	if len(results) > 0 {
		text = fmt.Sprintf("%d facilities list a %s.", len(results), q.Specialist)
	}
	data := map[string]interface{}{
		"specialist": q.Specialist,
		"facilities": results,
	}
	return outcome{text: text, data: data, citations: citations}
}

func (p *Planner) regionRanking(snap *snapshot.Snapshot, q *interpret.Query) outcome {
	type regionStat struct {
		Region      string  `json:"region"`
		Facilities  int     `json:"facilities"`
		Verified    int     `json:"verified_claims"`
		PerFacility float64 `json:"verified_per_facility"`
	}

	stats := map[string]*regionStat{}
	var citations []model.Citation
	snap.EachFacility(func(f *model.Facility) {
		st, ok := stats[f.Region]
		if !ok {
			st = &regionStat{Region: f.Region}
			stats[f.Region] = st
		}
		st.Facilities++
		for _, c := range snap.FacilityClaims(f.ID) {
			if c.Status != model.StatusVerified {
				continue
			}
			if q.Procedure != "" && c.Procedure != q.Procedure {
				continue
			}
			st.Verified++
			if len(citations) < maxCitations {
				citations = append(citations, citeClaim(c))
			}
		}
	})

	ranking := make([]regionStat, 0, len(stats))
	for _, st := range stats {
		if st.Facilities > 0 {
			st.PerFacility = float64(st.Verified) / float64(st.Facilities)
		}
		ranking = append(ranking, *st)
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].PerFacility != ranking[j].PerFacility {
			return ranking[i].PerFacility > ranking[j].PerFacility
		}
		return ranking[i].Region < ranking[j].Region
	})

	subject := "verified capabilities"
	if q.Procedure != "" {
		subject = "verified " + q.Procedure + " capability"
	}
	text := "No regions in the dataset."
	if len(ranking) > 0 {
		text = fmt.Sprintf("%s leads %d regions in %s per facility (%.2f); %s trails (%.2f).",
			ranking[0].Region, len(ranking), subject, ranking[0].PerFacility,
			ranking[len(ranking)-1].Region, ranking[len(ranking)-1].PerFacility)
	}
	data := map[string]interface{}{
		"ranking": ranking,
	}
	if q.Procedure != "" {
		data["procedure"] = q.Procedure
	}
	return outcome{text: text, data: data, citations: citations}
}
