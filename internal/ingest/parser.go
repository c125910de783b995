package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/covera-health/covera/internal/model"
)

// Row is one parsed, not-yet-normalized dataset row.
type Row struct {
	Line         int // 1-based line number in the upload, header excluded
	Name         string
	Region       string
	District     string
	FacilityType string
	Lat          *float64
	Lon          *float64
	Beds         int
	StaffCount   int
	Procedures   []string // raw tokens from the procedures column
	Equipment    []string
	Specialists  []string
	Notes        map[string]string // free-text fields by column name
	SourceRef    string
}

// noteColumns are free-text columns scanned for capability mentions and
// constraint phrases.
var noteColumns = []string{"capability_notes", "equipment_notes", "procedure_notes", "staffing_notes", "notes"}

// ParseCSV reads the upload and returns valid rows plus per-row errors.
// One bad row never aborts the batch.
func ParseCSV(r io.Reader) ([]Row, []model.RowError, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, model.NewError(model.KindValidation, "empty upload")
	}
	if err != nil {
		return nil, nil, model.NewError(model.KindValidation, "unreadable CSV header: %v", err)
	}
	col := headerIndex(header)
	if _, ok := firstColumn(col, "facility", "name"); !ok {
		return nil, nil, model.NewError(model.KindValidation, "missing required column: facility")
	}

	var rows []Row
	var rowErrs []model.RowError
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, model.RowError{Row: line, Reason: fmt.Sprintf("malformed CSV: %v", err)})
			continue
		}
		row, rerr := parseRow(line, col, record)
		if rerr != nil {
			rowErrs = append(rowErrs, *rerr)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

func parseRow(line int, col map[string]int, record []string) (Row, *model.RowError) {
	get := func(names ...string) string {
		if i, ok := firstColumn(col, names...); ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	row := Row{Line: line, Notes: map[string]string{}}
	row.Name = get("facility", "name")
	if row.Name == "" {
		return row, &model.RowError{Row: line, Reason: "facility name is required"}
	}
	row.Region = get("region")
	if row.Region == "" {
		return row, &model.RowError{Row: line, Reason: "region is required"}
	}
	row.District = get("district")
	row.FacilityType = get("facility_type", "type")
	row.SourceRef = get("source_row_id", "source_ref")
	if row.SourceRef == "" {
		row.SourceRef = fmt.Sprintf("row:%d", line)
	}

	latStr, lonStr := get("lat"), get("lon")
	if (latStr == "") != (lonStr == "") {
		return row, &model.RowError{Row: line, Reason: "lat and lon must be provided together"}
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return row, &model.RowError{Row: line, Reason: fmt.Sprintf("invalid lat %q", latStr)}
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return row, &model.RowError{Row: line, Reason: fmt.Sprintf("invalid lon %q", lonStr)}
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return row, &model.RowError{Row: line, Reason: "coordinates out of range"}
		}
		row.Lat, row.Lon = &lat, &lon
	}

	var err error
	if row.Beds, err = parseCount(get("beds", "bed_count")); err != nil {
		return row, &model.RowError{Row: line, Reason: fmt.Sprintf("invalid beds: %v", err)}
	}
	if row.StaffCount, err = parseCount(get("staff_count", "staff")); err != nil {
		return row, &model.RowError{Row: line, Reason: fmt.Sprintf("invalid staff_count: %v", err)}
	}

	row.Procedures = splitList(get("procedures", "specialties"))
	row.Equipment = splitList(get("equipment"))
	row.Specialists = splitList(get("specialists"))
	for _, name := range noteColumns {
		if v := get(name); v != "" {
			row.Notes[name] = v
		}
	}
	return row, nil
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return n, nil
}

// splitList splits a multi-valued cell on semicolons, pipes or commas.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '|' || r == ','
	})
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return col
}

func firstColumn(col map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := col[n]; ok {
			return i, true
		}
	}
	return 0, false
}
