package analyze

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

// Overview bundles every dataset-level analysis for one snapshot.
type Overview struct {
	SnapshotVersion int                           `json:"snapshot_version"`
	Facilities      int                           `json:"facilities"`
	Outliers        []model.PlausibilityOutlier   `json:"plausibility_outliers"`
	Correlations    CorrelationReport             `json:"correlations"`
	Bottlenecks     []model.BottleneckProcedure   `json:"bottleneck_procedures"`
	Deserts         map[string][]model.DesertZone `json:"deserts"`
}

// BuildOverview runs the analyses concurrently over one pinned snapshot.
// Desert detection runs per bottleneck procedure, since those are the
// capabilities where a coverage gap hurts most.
func (a *Analyzer) BuildOverview(ctx context.Context, snap *snapshot.Snapshot) (*Overview, error) {
	ov := &Overview{
		SnapshotVersion: snap.Version,
		Facilities:      len(snap.Facilities),
		Deserts:         map[string][]model.DesertZone{},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ov.Outliers = a.PlausibilityOutliers(snap)
		return ctx.Err()
	})
	g.Go(func() error {
		ov.Correlations = a.Correlations(snap)
		return ctx.Err()
	})
	g.Go(func() error {
		ov.Bottlenecks = a.Bottlenecks(snap)
		for _, b := range ov.Bottlenecks {
			zones := a.Deserts(snap, b.Procedure)
			if len(zones) > 0 {
				ov.Deserts[b.Procedure] = zones
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, model.NewError(model.KindTimeout, "overview canceled: %v", err)
	}
	return ov, nil
}
