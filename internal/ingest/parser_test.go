package ingest

import (
	"strings"
	"testing"

	"github.com/covera-health/covera/internal/model"
)

const sampleCSV = `facility,region,district,facility_type,lat,lon,beds,staff_count,procedures,equipment,capability_notes
St. Mary Hospital,Coast,Kilifi,hospital,-3.63,39.85,120,60,maternity; surgery,oxygen; ultrasound,performs c-sections when the visiting surgeon is present
Kilifi Clinic,Coast,Kilifi,clinic,,,8,4,lab,,
`

func TestParseCSV_ReadsRows(t *testing.T) {
	rows, rowErrs, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("unexpected row errors: %v", rowErrs)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	r := rows[0]
	if r.Name != "St. Mary Hospital" || r.Region != "Coast" {
		t.Errorf("unexpected identity: %q / %q", r.Name, r.Region)
	}
	if r.Lat == nil || *r.Lat != -3.63 {
		t.Error("expected parsed latitude")
	}
	if r.Beds != 120 || r.StaffCount != 60 {
		t.Errorf("beds/staff: %d/%d", r.Beds, r.StaffCount)
	}
	if len(r.Procedures) != 2 || r.Procedures[0] != "maternity" {
		t.Errorf("procedures: %v", r.Procedures)
	}
	if r.Notes["capability_notes"] == "" {
		t.Error("expected capability_notes captured")
	}

	if rows[1].Lat != nil {
		t.Error("row without coordinates must stay unlocated")
	}
}

func TestParseCSV_RowErrorsDoNotAbortBatch(t *testing.T) {
	csv := `facility,region,lat,lon,beds
,Coast,,,10
Good Clinic,Coast,,,5
Bad Coords,Coast,95.0,10.0,5
Half Coords,Coast,1.0,,5
Bad Beds,Coast,,,-3
`
	rows, rowErrs, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "Good Clinic" {
		t.Fatalf("expected only the good row, got %d", len(rows))
	}
	if len(rowErrs) != 4 {
		t.Fatalf("expected 4 row errors, got %d: %v", len(rowErrs), rowErrs)
	}
}

func TestParseCSV_EmptyUpload(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""))
	if model.KindOf(err) != model.KindValidation {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestParseCSV_MissingFacilityColumn(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("region,beds\nCoast,10\n"))
	if model.KindOf(err) != model.KindValidation {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestParseCSV_AlternateHeaderNames(t *testing.T) {
	csv := "name,region,bed_count,staff,specialties\nClinic,Coast,12,6,lab\n"
	rows, _, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Beds != 12 || rows[0].StaffCount != 6 {
		t.Fatalf("alternate headers not honored: %+v", rows)
	}
	if len(rows[0].Procedures) != 1 {
		t.Error("specialties column must map to procedures")
	}
}
