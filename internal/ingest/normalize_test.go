package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCanonicalProcedure_Synonyms(t *testing.T) {
	n := NewNormalizer()
	cases := map[string]string{
		"C-Section":       "c_section",
		"cesarean":        "c_section",
		"Emergency":       "emergency_care",
		"obstetrics":      "maternity",
		"Intensive Care":  "icu",
		"CT scan":         "ct",
		"orthopaedic":     "orthopedic_surgery",
		"Renal Dialysis":  "dialysis",
		"General Surgery": "surgery",
	}
	for in, want := range cases {
		if got := n.CanonicalProcedure(in); got != want {
			t.Errorf("CanonicalProcedure(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalProcedure_KeepsUnknownTokens(t *testing.T) {
	n := NewNormalizer()
	if got := n.CanonicalProcedure("Sleep Medicine"); got != "sleep_medicine" {
		t.Errorf("unknown token must be kept as snake_case, got %q", got)
	}
	if got := n.CanonicalProcedure("  "); got != "" {
		t.Errorf("blank token must map to empty, got %q", got)
	}
}

func TestCanonicalEquipmentName(t *testing.T) {
	n := NewNormalizer()
	cases := map[string]string{
		"X-Ray":               "xray",
		"operating theatre":   "operating_room",
		"Anaesthesia machine": "anesthesia_machine",
		"CT scanner":          "ct",
	}
	for in, want := range cases {
		if got := n.CanonicalEquipmentName(in); got != want {
			t.Errorf("CanonicalEquipmentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConstraints_TagsAreSortedAndComplete(t *testing.T) {
	n := NewNormalizer()
	got := n.Constraints("surgery sometimes available, complex cases referred to the regional hospital, CT down pending repairs")
	want := []string{"maintenance_dependent", "referral_only", "staffing_dependent"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestConstraints_CleanTextHasNone(t *testing.T) {
	n := NewNormalizer()
	if got := n.Constraints("full surgical theatre operating daily"); len(got) != 0 {
		t.Errorf("expected no constraints, got %v", got)
	}
}

func TestExtractFromNotes_AttachesEvidence(t *testing.T) {
	n := NewNormalizer()
	text := "The facility performs emergency c-sections and has a small laboratory on site."
	claims := n.ExtractFromNotes("row:7", "capability_notes", text)

	byProc := map[string]bool{}
	for _, c := range claims {
		byProc[c.Procedure] = true
		if len(c.Evidence) != 1 {
			t.Fatalf("%s: expected one evidence span", c.Procedure)
		}
		ev := c.Evidence[0]
		if ev.SourceRef != "row:7" || ev.SourceField != "capability_notes" {
			t.Errorf("%s: evidence provenance %+v", c.Procedure, ev)
		}
		if ev.Quote == "" || ev.SupportsPath != "procedures."+c.Procedure {
			t.Errorf("%s: evidence quote/path %+v", c.Procedure, ev)
		}
	}
	for _, want := range []string{"c_section", "lab", "emergency_care"} {
		if !byProc[want] {
			t.Errorf("expected a %s claim, got %v", want, byProc)
		}
	}
}

func TestExtractFromNotes_MultiByteNotesKeepValidQuotes(t *testing.T) {
	n := NewNormalizer()
	// The padding window starts inside one of the two-byte runes; the quote
	// must still be valid UTF-8.
	text := "a" + strings.Repeat("é", 30) + " performs dialysis"
	claims := n.ExtractFromNotes("row:3", "capability_notes", text)

	if len(claims) != 1 || claims[0].Procedure != "dialysis" {
		t.Fatalf("claims: %+v", claims)
	}
	quote := claims[0].Evidence[0].Quote
	if !utf8.ValidString(quote) {
		t.Fatalf("evidence quote is not valid UTF-8: %q", quote)
	}
	if !strings.Contains(quote, "dialysis") {
		t.Errorf("quote must contain the match: %q", quote)
	}
}

func TestExtractFromNotes_NoMentionsNoClaims(t *testing.T) {
	n := NewNormalizer()
	if claims := n.ExtractFromNotes("row:1", "notes", "recently repainted waiting area"); len(claims) != 0 {
		t.Errorf("expected no claims, got %v", claims)
	}
}
