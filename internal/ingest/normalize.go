package ingest

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/covera-health/covera/internal/model"
)

// Canonical capability vocabulary. Services and procedures share one
// namespace: a capability claim is keyed by the canonical name.
var CanonicalProcedures = []string{
	"emergency_care", "maternity", "surgery", "lab", "icu",
	"c_section", "cardiology", "dialysis", "appendectomy",
	"orthopedic_surgery", "cataract_surgery", "ct",
}

// CanonicalEquipment is the equipment namespace used by the prerequisite
// tables and correlation features.
var CanonicalEquipment = []string{
	"oxygen", "ventilator", "ultrasound", "incubator",
	"operating_microscope", "anesthesia_machine", "xray", "ct",
	"monitors", "operating_room",
}

var procedureSynonyms = map[string][]*regexp.Regexp{
	"emergency_care":     compile(`\bemergency\b`, `\ber\b`, `\burgent care\b`),
	"maternity":          compile(`\bmaternity\b`, `\bobstetric`, `\bdelivery\b`, `\blabor ward\b`),
	"surgery":            compile(`\bsurgery\b`, `\bsurgical\b`),
	"lab":                compile(`\blab\b`, `\blaboratory\b`),
	"icu":                compile(`\bicu\b`, `\bintensive care\b`),
	"c_section":          compile(`\bc[- ]?section`, `\bcesarean\b`, `\bcaesarean\b`),
	"cardiology":         compile(`\bcardiology\b`, `\bcardiac\b`),
	"dialysis":           compile(`\bdialysis\b`),
	"appendectomy":       compile(`\bappendectom`),
	"orthopedic_surgery": compile(`\borthopa?edic`),
	"cataract_surgery":   compile(`\bcataract`),
	"ct":                 compile(`\bct scan`),
}

var equipmentSynonyms = map[string][]*regexp.Regexp{
	"oxygen":               compile(`\boxygen\b`),
	"ventilator":           compile(`\bventilator`),
	"ultrasound":           compile(`\bultrasound\b`, `\bsonography\b`),
	"incubator":            compile(`\bincubator`),
	"operating_microscope": compile(`\boperating microscope\b`),
	"anesthesia_machine":   compile(`\ban(?:a)?esthesia machine\b`),
	"xray":                 compile(`\bx[- ]?ray\b`),
	"ct":                   compile(`\bct\b`, `\bct scanner\b`),
	"monitors":             compile(`\bmonitors?\b`),
	"operating_room":       compile(`\boperating room\b`, `\boperating theatre\b`, `\bor table\b`),
}

// Constraint phrases demote a claim. Hedged and maintenance-flagged claims
// become conditional; referral phrasing means the facility sends patients
// elsewhere, so the claim is only claimed-unverified.
var (
	hedgePatterns       = compile(`\bsometimes\b`, `\bvisiting\b`, `\bon request\b`, `\brotat`)
	referralPatterns    = compile(`\brefer`, `\bsent to\b`)
	temporaryPatterns   = compile(`\btemporary\b`, `\bshort[- ]term\b`)
	maintenancePatterns = compile(`\bdown\b`, `\bpending\b`, `\bnot operational\b`)
	powerPatterns       = compile(`\bpower\b`, `\bgenerator\b`)
)

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Normalizer turns raw row tokens and free-text notes into canonical
// capability claims with attached evidence quotes.
type Normalizer struct{}

// NewNormalizer creates a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// CanonicalProcedure maps one token to the canonical vocabulary. Unmatched
// tokens are normalized to snake_case and kept: the verifier never drops a
// declared capability, it only scores it.
func (n *Normalizer) CanonicalProcedure(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return ""
	}
	for canon, patterns := range procedureSynonyms {
		for _, re := range patterns {
			if re.MatchString(t) {
				return canon
			}
		}
	}
	return snakeCase(t)
}

// CanonicalEquipmentName maps one token to the equipment vocabulary, or ""
// when nothing matches.
func (n *Normalizer) CanonicalEquipmentName(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return ""
	}
	for canon, patterns := range equipmentSynonyms {
		for _, re := range patterns {
			if re.MatchString(t) {
				return canon
			}
		}
	}
	return snakeCase(t)
}

// Constraints scans the row's combined free text for hedging phrases and
// returns the constraint tags that apply to its claims.
func (n *Normalizer) Constraints(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	if matchAny(referralPatterns, lower) {
		tags = append(tags, "referral_only")
	}
	if matchAny(hedgePatterns, lower) {
		tags = append(tags, "staffing_dependent")
	}
	if matchAny(temporaryPatterns, lower) {
		tags = append(tags, "temporary")
	}
	if matchAny(maintenancePatterns, lower) {
		tags = append(tags, "maintenance_dependent")
	}
	if matchAny(powerPatterns, lower) {
		tags = append(tags, "power_dependent")
	}
	sort.Strings(tags)
	return tags
}

// ExtractFromNotes finds capability mentions in a free-text field and
// returns claims with the matched snippet as evidence.
func (n *Normalizer) ExtractFromNotes(sourceRef, field, text string) []model.CapabilityClaim {
	var claims []model.CapabilityClaim
	for canon, patterns := range procedureSynonyms {
		for _, re := range patterns {
			loc := re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			claims = append(claims, model.CapabilityClaim{
				Procedure: canon,
				Declared:  true,
				Evidence: []model.Evidence{{
					SourceRef:    sourceRef,
					SourceField:  field,
					Quote:        snippet(text, loc[0], loc[1]),
					SupportsPath: "procedures." + canon,
					Offset:       loc[0],
				}},
			})
			break
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].Procedure < claims[j].Procedure })
	return claims
}

// MentionedProcedures returns every canonical procedure the text mentions,
// sorted. Question interpretation shares this vocabulary so a capability
// phrased either way lands on the same claim key.
func (n *Normalizer) MentionedProcedures(text string) []string {
	var out []string
	for canon, patterns := range procedureSynonyms {
		if matchAny(patterns, text) {
			out = append(out, canon)
		}
	}
	sort.Strings(out)
	return out
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// snippet widens the match to nearby context so evidence quotes read
// naturally. The padding is in bytes, so both edges retreat to the nearest
// rune boundary to keep the quote valid UTF-8.
func snippet(text string, start, end int) string {
	const pad = 40
	lo := start - pad
	if lo < 0 {
		lo = 0
	}
	hi := end + pad
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(text[lo:hi])
}

func snakeCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(s)
	return s
}
