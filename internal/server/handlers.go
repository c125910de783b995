package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/covera-health/covera/internal/analyze"
	"github.com/covera-health/covera/internal/ingest"
	"github.com/covera-health/covera/internal/interpret"
	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/planner"
	"github.com/covera-health/covera/internal/snapshot"
	"github.com/covera-health/covera/internal/trace"
)

func handleHealth(store *snapshot.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := store.Current()
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"snapshot_version": snap.Version,
			"facilities":       len(snap.Facilities),
		})
	}
}

// handleIngest accepts a CSV upload, either as the raw request body or as
// a multipart "file" part. Row failures come back in the response; they do
// not fail the request.
func handleIngest(ing *ingest.Ingestor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reader io.Reader = c.Request.Body
		if file, _, err := c.Request.FormFile("file"); err == nil {
			defer func() { _ = file.Close() }()
			reader = file
		}

		res, err := ing.IngestCSV(c.Request.Context(), reader)
		if err != nil {
			writeError(c, err)
			return
		}
		ingestedRows.Add(float64(res.Ingested))
		rejectedRows.Add(float64(len(res.Errors)))
		c.JSON(http.StatusOK, res)
	}
}

type askRequest struct {
	Question string            `json:"question" binding:"required,min=3"`
	Filters  interpret.Filters `json:"filters"`
	Lat      *float64          `json:"lat" binding:"omitempty,gte=-90,lte=90"`
	Lon      *float64          `json:"lon" binding:"omitempty,gte=-180,lte=180"`
	Km       *float64          `json:"km" binding:"omitempty,gt=0"`
}

func handleAsk(pl *planner.Planner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			questionsTotal.WithLabelValues(string(model.KindValidation)).Inc()
			writeError(c, model.NewError(model.KindValidation, "question is required: %v", err))
			return
		}
		// Top-level coordinates are shorthand for the same filter slots.
		if req.Lat != nil {
			req.Filters.Lat = req.Lat
		}
		if req.Lon != nil {
			req.Filters.Lon = req.Lon
		}
		if req.Km != nil {
			req.Filters.Km = req.Km
		}

		answer, err := pl.Ask(c.Request.Context(), req.Question, req.Filters)
		if err != nil {
			questionsTotal.WithLabelValues(string(model.KindOf(err))).Inc()
			writeError(c, err)
			return
		}
		questionsTotal.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, answer)
	}
}

func handleFacility(store *snapshot.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := store.Current()
		id := c.Param("id")
		f := snap.Facility(id)
		if f == nil {
			writeError(c, model.NewError(model.KindNotFound, "facility %s not found", id))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"facility": f,
			"claims":   snap.FacilityClaims(id),
		})
	}
}

func handleTrace(rec *trace.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		t, ok := rec.Get(id)
		if !ok {
			writeError(c, model.NewError(model.KindNotFound, "trace %s not found", id))
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// handleReport runs every dataset-level analysis over the current snapshot
// and returns the combined coverage overview.
func handleReport(cfg *model.Config, store *snapshot.Store) gin.HandlerFunc {
	analyzer := analyze.NewAnalyzer(cfg.Analyze, cfg.Verify)
	return func(c *gin.Context) {
		ov, err := analyzer.BuildOverview(c.Request.Context(), store.Current())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ov)
	}
}

// handleGeo answers radius queries over located facilities, optionally
// restricted to declarers of one canonical procedure.
func handleGeo(store *snapshot.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
		lon, err2 := strconv.ParseFloat(c.Query("lon"), 64)
		radius, err3 := strconv.ParseFloat(c.DefaultQuery("radius_km", "50"), 64)
		if err1 != nil || err2 != nil || err3 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 || radius <= 0 {
			writeError(c, model.NewError(model.KindValidation, "lat, lon, and a positive radius_km are required"))
			return
		}

		snap := store.Current()
		idx := snap.Geo
		if procedure := c.Query("procedure"); procedure != "" {
			idx = snap.ProviderIndex(procedure, false)
		}

		matches := idx.WithinRadius(lat, lon, radius)
		results := make([]gin.H, 0, len(matches))
		for _, m := range matches {
			f := snap.Facility(m.Point.ID)
			if f == nil {
				continue
			}
			results = append(results, gin.H{
				"facility_id": f.ID,
				"name":        f.Name,
				"region":      f.Region,
				"coordinates": f.Coordinates,
				"distance_km": m.DistanceKm,
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"center":    gin.H{"lat": lat, "lon": lon},
			"radius_km": radius,
			"results":   results,
		})
	}
}
