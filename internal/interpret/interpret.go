package interpret

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/covera-health/covera/internal/ingest"
	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

// DefaultRadiusKm applies when a proximity question names a place but no
// explicit radius.
const DefaultRadiusKm = 50

// Interpreter maps a natural-language question onto the closed intent set.
// It shares the ingestion vocabulary, so a capability spelled any of the
// synonym ways resolves to the same canonical procedure.
type Interpreter struct {
	normalizer *ingest.Normalizer
}

// NewInterpreter creates an interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{normalizer: ingest.NewNormalizer()}
}

var (
	correlationRe   = regexp.MustCompile(`(?i)correlat|relationship between|related to each other|co[- ]?occur`)
	plausibilityRe  = regexp.MustCompile(`(?i)implausib|suspicious|anomal|overclaim|exaggerat|too many procedures`)
	concentrationRe = regexp.MustCompile(`(?i)bottleneck|concentrat|single point|only (?:one )?(?:facility|provider)|sole provider|how fragile`)
	desertRe        = regexp.MustCompile(`(?i)desert|underserved|coverage gap|uncovered|lack(?:s|ing)? coverage`)
	rankingRe       = regexp.MustCompile(`(?i)\brank|best served|worst served|compare regions|which region (?:has|is)`)
	countRe         = regexp.MustCompile(`(?i)how many|number of|count of|\bcount\b`)
	nearRe          = regexp.MustCompile(`(?i)\bnear\b|\bnearest\b|\bclosest\b|\bwithin\b|\bclose to\b`)
	servicesRe      = regexp.MustCompile(`(?i)what (?:services|can)|which services|services (?:at|does|of)|offer|provide|capabilit`)
	whereRe         = regexp.MustCompile(`(?i)\bwhere\b|which facilit|who has`)

	radiusRe = regexp.MustCompile(`(?i)within\s+(\d+(?:\.\d+)?)\s*(?:km|kilometers?)`)
	pointRe  = regexp.MustCompile(`\(?\s*(-?\d{1,3}(?:\.\d+)?)\s*,\s*(-?\d{1,3}(?:\.\d+)?)\s*\)?`)
)

// specialistTerms maps question wording to the canonical specialist names
// facilities declare.
var specialistTerms = map[string]string{
	"cardiologist":     "cardiologist",
	"surgeon":          "surgeon",
	"anesthesiologist": "anesthesiologist",
	"anaesthetist":     "anesthesiologist",
	"radiologist":      "radiologist",
	"obstetrician":     "obstetrician",
	"gynecologist":     "obstetrician",
	"pediatrician":     "pediatrician",
	"ophthalmologist":  "ophthalmologist",
	"nephrologist":     "nephrologist",
	"midwife":          "midwife",
	"midwives":         "midwife",
}

// Interpret resolves the question and its structured filters to a query or
// a structured refusal. It never guesses: a question outside the intent set
// comes back as unsupported_intent with the supported forms, and an
// underspecified one as ambiguous_reference with what is missing.
func (it *Interpreter) Interpret(question string, filters Filters, snap *snapshot.Snapshot) (*Query, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return nil, model.NewError(model.KindValidation, "question is empty")
	}
	scope, err := resolveFilters(filters, snap)
	if err != nil {
		return nil, err
	}

	q, err := it.route(strings.ToLower(trimmed), scope, snap)
	if err != nil {
		return nil, err
	}
	applyScope(q, scope)
	return q, nil
}

func (it *Interpreter) route(lower string, scope resolvedFilters, snap *snapshot.Snapshot) (*Query, error) {
	procedures := it.normalizer.MentionedProcedures(lower)
	regions := matchRegions(lower, snap.Regions)
	specialist := matchSpecialist(lower)
	facilities := matchFacilities(lower, snap)

	switch {
	case correlationRe.MatchString(lower):
		return &Query{Intent: IntentCorrelation}, nil

	case plausibilityRe.MatchString(lower):
		return &Query{Intent: IntentPlausibility}, nil

	case concentrationRe.MatchString(lower):
		q := &Query{Intent: IntentConcentration}
		if len(procedures) == 1 {
			q.Procedure = procedures[0]
		}
		return q, nil

	case desertRe.MatchString(lower):
		if len(procedures) == 0 {
			return nil, ambiguous("which capability should coverage be measured for",
				map[string]interface{}{"missing": "procedure"})
		}
		if len(procedures) > 1 {
			return nil, ambiguous("more than one capability mentioned; name exactly one",
				map[string]interface{}{"candidates": procedures})
		}
		return &Query{Intent: IntentDesertDetection, Procedure: procedures[0]}, nil

	case rankingRe.MatchString(lower):
		q := &Query{Intent: IntentRegionRanking}
		if len(procedures) == 1 {
			q.Procedure = procedures[0]
		}
		return q, nil

	// An explicit radius wins over count phrasing: "how many ... within N km"
	// is a radius search, not a dataset-wide count.
	case radiusRe.MatchString(lower):
		return it.radiusQuery(lower, procedures, facilities, scope)

	case countRe.MatchString(lower):
		if len(procedures) == 0 {
			return nil, ambiguous("which capability should be counted",
				map[string]interface{}{"missing": "procedure"})
		}
		if len(procedures) > 1 {
			return nil, ambiguous("more than one capability mentioned; name exactly one",
				map[string]interface{}{"candidates": procedures})
		}
		q := &Query{Procedure: procedures[0]}
		switch len(regions) {
		case 0:
			q.Intent = IntentCountByCapability
		case 1:
			q.Intent = IntentCountByRegion
			q.Region = regions[0]
		default:
			return nil, ambiguous("more than one region mentioned; name exactly one",
				map[string]interface{}{"candidates": regions})
		}
		return q, nil

	case nearRe.MatchString(lower):
		return it.radiusQuery(lower, procedures, facilities, scope)

	case specialist != "" && whereRe.MatchString(lower):
		return &Query{Intent: IntentWorkforce, Specialist: specialist}, nil

	case len(facilities) > 0 && servicesRe.MatchString(lower):
		if len(facilities) > 1 {
			return nil, ambiguousFacilities(facilities)
		}
		return &Query{Intent: IntentFacilityLookup, FacilityID: facilities[0].ID}, nil

	case len(facilities) == 1:
		return &Query{Intent: IntentFacilityLookup, FacilityID: facilities[0].ID}, nil

	case len(facilities) > 1:
		return nil, ambiguousFacilities(facilities)
	}

	forms := make([]string, len(SupportedIntents))
	for i, intent := range SupportedIntents {
		forms[i] = string(intent)
	}
	return nil, model.NewError(model.KindUnsupported, "question does not match any supported form").
		WithDetail(map[string]interface{}{"supported_intents": forms})
}

func (it *Interpreter) radiusQuery(lower string, procedures []string, facilities []*model.Facility, scope resolvedFilters) (*Query, error) {
	if len(procedures) == 0 {
		return nil, ambiguous("which capability should be searched for nearby",
			map[string]interface{}{"missing": "procedure"})
	}
	if len(procedures) > 1 {
		return nil, ambiguous("more than one capability mentioned; name exactly one",
			map[string]interface{}{"candidates": procedures})
	}

	q := &Query{Intent: IntentRadiusSearch, Procedure: procedures[0], RadiusKm: DefaultRadiusKm}
	if m := radiusRe.FindStringSubmatch(lower); m != nil {
		q.RadiusKm, _ = strconv.ParseFloat(m[1], 64)
	}

	if m := pointRe.FindStringSubmatch(lower); m != nil {
		lat, errLat := strconv.ParseFloat(m[1], 64)
		lon, errLon := strconv.ParseFloat(m[2], 64)
		if errLat == nil && errLon == nil && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
			q.Lat, q.Lon, q.HasPoint = lat, lon, true
			return q, nil
		}
	}
	if scope.hasPoint {
		q.Lat, q.Lon, q.HasPoint = scope.lat, scope.lon, true
		return q, nil
	}

	// A named located facility can anchor the search instead of raw
	// coordinates.
	var located []*model.Facility
	for _, f := range facilities {
		if f.Located() {
			located = append(located, f)
		}
	}
	if len(located) == 1 {
		q.Lat, q.Lon, q.HasPoint = located[0].Coordinates.Lat, located[0].Coordinates.Lon, true
		q.FacilityID = located[0].ID
		return q, nil
	}
	if len(located) > 1 {
		return nil, ambiguousFacilities(located)
	}
	return nil, ambiguous("proximity questions need coordinates or a located facility name",
		map[string]interface{}{"missing": "location"})
}

// resolvedFilters holds validated structured slots.
type resolvedFilters struct {
	region, district string
	lat, lon, km     float64
	hasPoint         bool
}

// resolveFilters validates the structured slots against the snapshot
// vocabularies. Unknown names are refused outright rather than narrowing
// the answer to nothing.
func resolveFilters(f Filters, snap *snapshot.Snapshot) (resolvedFilters, error) {
	var out resolvedFilters
	if f.Region != "" {
		r, ok := matchVocabulary(f.Region, snap.Regions)
		if !ok {
			return out, model.NewError(model.KindValidation, "unknown region %q", f.Region).
				WithDetail(map[string]interface{}{"known_regions": snap.Regions})
		}
		out.region = r
	}
	if f.District != "" {
		d, ok := matchVocabulary(f.District, snap.Districts)
		if !ok {
			return out, model.NewError(model.KindValidation, "unknown district %q", f.District).
				WithDetail(map[string]interface{}{"known_districts": snap.Districts})
		}
		out.district = d
	}
	if (f.Lat == nil) != (f.Lon == nil) {
		return out, model.NewError(model.KindValidation, "lat and lon must be provided together")
	}
	if f.Lat != nil {
		if *f.Lat < -90 || *f.Lat > 90 || *f.Lon < -180 || *f.Lon > 180 {
			return out, model.NewError(model.KindValidation, "coordinates out of range")
		}
		out.lat, out.lon, out.hasPoint = *f.Lat, *f.Lon, true
	}
	if f.Km != nil {
		if *f.Km <= 0 {
			return out, model.NewError(model.KindValidation, "km must be positive")
		}
		out.km = *f.Km
	}
	return out, nil
}

// applyScope overlays the structured slots on the routed query. A count
// scoped to a circle becomes a radius search; a count scoped to a region
// becomes a regional count.
func applyScope(q *Query, scope resolvedFilters) {
	if scope.region != "" {
		q.Region = scope.region
		if q.Intent == IntentCountByCapability {
			q.Intent = IntentCountByRegion
		}
	}
	if scope.district != "" {
		q.District = scope.district
	}
	if scope.hasPoint {
		q.Lat, q.Lon, q.HasPoint = scope.lat, scope.lon, true
		if q.Intent == IntentCountByCapability || q.Intent == IntentCountByRegion {
			q.Intent = IntentRadiusSearch
		}
	}
	if scope.km > 0 {
		q.RadiusKm = scope.km
	}
	if q.Intent == IntentRadiusSearch && q.RadiusKm == 0 {
		q.RadiusKm = DefaultRadiusKm
	}
}

func matchVocabulary(value string, vocab []string) (string, bool) {
	for _, v := range vocab {
		if strings.EqualFold(strings.TrimSpace(value), v) {
			return v, true
		}
	}
	return "", false
}

func ambiguous(message string, detail map[string]interface{}) error {
	return model.NewError(model.KindAmbiguous, "%s", message).WithDetail(detail)
}

func ambiguousFacilities(facilities []*model.Facility) error {
	names := make([]string, len(facilities))
	for i, f := range facilities {
		names[i] = f.Name
	}
	sort.Strings(names)
	return ambiguous("facility reference matches more than one record",
		map[string]interface{}{"candidates": names})
}

func matchRegions(lower string, regions []string) []string {
	var out []string
	for _, r := range regions {
		if r != "" && strings.Contains(lower, strings.ToLower(r)) {
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}

func matchSpecialist(lower string) string {
	for term, canon := range specialistTerms {
		if strings.Contains(lower, term) {
			return canon
		}
	}
	return ""
}

// matchFacilities finds facility names mentioned in the question, allowing
// small typos via a sliding token window.
func matchFacilities(lower string, snap *snapshot.Snapshot) []*model.Facility {
	questionTokens := tokenize(lower)
	var out []*model.Facility
	snap.EachFacility(func(f *model.Facility) {
		name := strings.ToLower(f.Name)
		if strings.Contains(lower, name) {
			out = append(out, f)
			return
		}
		nameTokens := tokenize(name)
		if len(nameTokens) == 0 || len(nameTokens) > len(questionTokens) {
			return
		}
		for i := 0; i+len(nameTokens) <= len(questionTokens); i++ {
			window := strings.Join(questionTokens[i:i+len(nameTokens)], " ")
			if fuzzyEqual(window, strings.Join(nameTokens, " ")) {
				out = append(out, f)
				return
			}
		}
	})
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '.')
	})
}
