package ingest

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
	"github.com/covera-health/covera/internal/verify"
	"github.com/covera-health/covera/internal/worker"
)

// Ingestor runs the ingestion pipeline: parse, normalize, geocode, verify,
// then install a new snapshot. Ingestion is idempotent per row content hash
// and a single bad row never aborts the batch.
type Ingestor struct {
	cfg        *model.Config
	store      *snapshot.Store
	normalizer *Normalizer
	geocoder   Geocoder
	verifier   *verify.Verifier
	logger     *slog.Logger
}

// NewIngestor wires the pipeline.
func NewIngestor(cfg *model.Config, store *snapshot.Store, geocoder Geocoder, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		cfg:        cfg,
		store:      store,
		normalizer: NewNormalizer(),
		geocoder:   geocoder,
		verifier:   verify.NewVerifier(cfg.Verify),
		logger:     logger,
	}
}

// rowBuild is one normalized row ready for merging.
type rowBuild struct {
	row         Row
	facilityID  string
	contentHash string
	facility    model.Facility
	claims      []model.CapabilityClaim
}

func (b rowBuild) GetError() error { return nil }

type rowJob struct {
	row Row
	n   *Normalizer
}

func (j rowJob) Execute(ctx context.Context) worker.Result {
	return normalizeRow(j.n, j.row)
}

// IngestCSV runs one ingestion pass over the upload. The returned result
// reports how many facilities changed and every rejected row. Rows whose
// content hash matches the stored record are skipped and not counted.
func (in *Ingestor) IngestCSV(ctx context.Context, r io.Reader) (*model.IngestResult, error) {
	// 1. Parse the upload; collect per-row errors.
	rows, rowErrs, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}

	// 2. Normalize rows concurrently. Normalization is pure, so order of
	// completion does not matter; merge order is restored below.
	pool := worker.NewPool(in.cfg.Ingest.Workers)
	pool.Start()
	for _, row := range rows {
		pool.Submit(rowJob{row: row, n: in.normalizer})
	}
	results := pool.Wait()

	builds := make([]rowBuild, 0, len(results))
	for _, res := range results {
		builds = append(builds, res.(rowBuild))
	}
	// Later rows win within a batch, so merge in upload order.
	sort.Slice(builds, func(i, j int) bool { return builds[i].row.Line < builds[j].row.Line })

	if err := ctx.Err(); err != nil {
		return nil, model.NewError(model.KindTimeout, "ingestion canceled: %v", err)
	}

	// 3. Merge into the previous snapshot under the writer lock.
	ingested := 0
	_, err = in.store.Replace(func(prev *snapshot.Snapshot) (*snapshot.Snapshot, error) {
		next, n := in.merge(prev, builds)
		ingested = n
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	in.logger.Info("ingestion complete",
		"rows", len(rows),
		"ingested", ingested,
		"rejected", len(rowErrs))
	result := &model.IngestResult{Ingested: ingested, Errors: rowErrs}
	if len(rowErrs) > 0 {
		result.Kind = model.KindPartialIngestion
	}
	return result, nil
}

// merge builds the next snapshot from the previous one plus the batch.
// Previous snapshot contents are never mutated; changed facilities are
// cloned before update.
func (in *Ingestor) merge(prev *snapshot.Snapshot, builds []rowBuild) (*snapshot.Snapshot, int) {
	now := time.Now().UTC()

	facilities := make(map[string]*model.Facility, len(prev.Facilities)+len(builds))
	for id, f := range prev.Facilities {
		facilities[id] = f
	}
	claims := make(map[string][]model.CapabilityClaim, len(prev.Claims))
	for id, cs := range prev.Claims {
		claims[id] = cs
	}
	history := make(map[string][]model.CapabilityClaim, len(prev.History))
	for k, cs := range prev.History {
		history[k] = cs
	}

	ingested := 0
	for _, b := range builds {
		existing := facilities[b.facilityID]
		if existing != nil && existing.ContentHash == b.contentHash {
			continue // identical content, nothing to do
		}

		f := b.facility
		f.ID = b.facilityID
		f.ContentHash = b.contentHash
		f.IngestedAt = now
		f.Revision = 1
		if existing != nil {
			f.Revision = existing.Revision + 1
			f.PriorCoordinates = existing.PriorCoordinates
		}

		in.resolveCoordinates(&f, existing)

		// Score this revision's claims against the prior history, then
		// append them to it.
		scored := in.verifier.VerifyFacility(&f, stampClaims(b.claims, f.ID, f.Revision), history)
		for _, c := range scored {
			key := c.Key()
			appended := make([]model.CapabilityClaim, len(history[key]), len(history[key])+1)
			copy(appended, history[key])
			history[key] = append(appended, c)
		}

		facilities[f.ID] = &f
		claims[f.ID] = scored
		ingested++
	}

	order := make([]string, 0, len(facilities))
	for id := range facilities {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := facilities[order[i]], facilities[order[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	next := &snapshot.Snapshot{
		BuiltAt:    now,
		Facilities: facilities,
		Order:      order,
		Claims:     claims,
		History:    history,
		Geo:        snapshot.BuildGeoIndex(facilities, order),
		Regions:    distinctField(facilities, order, func(f *model.Facility) string { return f.Region }),
		Districts:  distinctField(facilities, order, func(f *model.Facility) string { return f.District }),
	}
	return next, ingested
}

// resolveCoordinates fills in coordinates from the row, the geocoder, or the
// prior record, in that order. A corrected location keeps the superseded one
// in PriorCoordinates.
func (in *Ingestor) resolveCoordinates(f *model.Facility, existing *model.Facility) {
	if f.Coordinates == nil && in.geocoder != nil {
		if c, ok := in.geocoder.Geocode(f.Name, f.Region, f.District); ok {
			f.Coordinates = c
		}
	}
	if f.Coordinates == nil {
		if existing.Located() {
			c := *existing.Coordinates
			f.Coordinates = &c
		}
		return
	}
	if existing.Located() && !sameCoordinates(existing.Coordinates, f.Coordinates) {
		f.PriorCoordinates = append(append([]model.Coordinates{}, f.PriorCoordinates...), *existing.Coordinates)
	}
}

func normalizeRow(n *Normalizer, row Row) rowBuild {
	b := rowBuild{
		row:        row,
		facilityID: model.FacilityID(row.Name, row.Region),
	}

	equipment := map[string]bool{}
	for _, token := range row.Equipment {
		if canon := n.CanonicalEquipmentName(token); canon != "" {
			equipment[canon] = true
		}
	}

	var specialists []string
	for _, token := range row.Specialists {
		if s := snakeCase(token); s != "" {
			specialists = append(specialists, s)
		}
	}
	sort.Strings(specialists)

	// Claims from the procedures column, evidence quoting the raw token.
	byProcedure := map[string]*model.CapabilityClaim{}
	var procedureOrder []string
	for _, token := range row.Procedures {
		canon := n.CanonicalProcedure(token)
		if canon == "" {
			continue
		}
		if _, ok := byProcedure[canon]; ok {
			continue
		}
		byProcedure[canon] = &model.CapabilityClaim{
			Procedure: canon,
			Declared:  true,
			Evidence: []model.Evidence{{
				SourceRef:    row.SourceRef,
				SourceField:  "procedures",
				Quote:        strings.TrimSpace(token),
				SupportsPath: "procedures." + canon,
			}},
		}
		procedureOrder = append(procedureOrder, canon)
	}

	// Claims and equipment mentioned only in free-text notes.
	var noteText []string
	for _, field := range noteColumns {
		text, ok := row.Notes[field]
		if !ok {
			continue
		}
		noteText = append(noteText, text)
		for _, claim := range n.ExtractFromNotes(row.SourceRef, field, text) {
			if prior, ok := byProcedure[claim.Procedure]; ok {
				prior.Evidence = append(prior.Evidence, claim.Evidence...)
				continue
			}
			c := claim
			byProcedure[claim.Procedure] = &c
			procedureOrder = append(procedureOrder, claim.Procedure)
		}
		for canon, patterns := range equipmentSynonyms {
			if matchAny(patterns, strings.ToLower(text)) {
				equipment[canon] = true
			}
		}
	}

	constraints := n.Constraints(strings.Join(noteText, " "))
	sort.Strings(procedureOrder)
	for _, canon := range procedureOrder {
		claim := *byProcedure[canon]
		claim.Constraints = constraints
		b.claims = append(b.claims, claim)
	}

	equipmentList := make([]string, 0, len(equipment))
	for e := range equipment {
		equipmentList = append(equipmentList, e)
	}
	sort.Strings(equipmentList)

	b.facility = model.Facility{
		Name:         row.Name,
		Region:       row.Region,
		District:     row.District,
		FacilityType: row.FacilityType,
		Beds:         row.Beds,
		StaffCount:   row.StaffCount,
		Equipment:    equipmentList,
		Specialists:  specialists,
		Notes:        noteText,
		SourceRef:    row.SourceRef,
	}
	if row.Lat != nil && row.Lon != nil {
		b.facility.Coordinates = &model.Coordinates{Lat: *row.Lat, Lon: *row.Lon}
	}

	b.contentHash = contentHash(row)
	return b
}

// contentHash covers every field that affects the stored record, so a
// re-upload of unchanged content is a no-op.
func contentHash(row Row) string {
	fields := []string{
		row.Name, row.Region, row.District, row.FacilityType,
		strconv.Itoa(row.Beds), strconv.Itoa(row.StaffCount),
		strings.Join(row.Procedures, ";"),
		strings.Join(row.Equipment, ";"),
		strings.Join(row.Specialists, ";"),
	}
	if row.Lat != nil && row.Lon != nil {
		fields = append(fields,
			strconv.FormatFloat(*row.Lat, 'f', -1, 64),
			strconv.FormatFloat(*row.Lon, 'f', -1, 64))
	}
	for _, field := range noteColumns {
		fields = append(fields, row.Notes[field])
	}
	return model.RowContentHash(fields...)
}

func stampClaims(claims []model.CapabilityClaim, facilityID string, revision int) []model.CapabilityClaim {
	out := make([]model.CapabilityClaim, len(claims))
	for i, c := range claims {
		c.FacilityID = facilityID
		c.Revision = revision
		out[i] = c
	}
	return out
}

func sameCoordinates(a, b *model.Coordinates) bool {
	const eps = 1e-6
	return abs(a.Lat-b.Lat) < eps && abs(a.Lon-b.Lon) < eps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func distinctField(facilities map[string]*model.Facility, order []string, get func(*model.Facility) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range order {
		v := get(facilities[id])
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
