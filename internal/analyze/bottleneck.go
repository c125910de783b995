package analyze

import (
	"sort"

	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
)

// Bottlenecks lists procedures whose verified provider count falls below
// the configured minimum. A single-provider procedure is the concentration
// risk the report exists for: one facility going down removes the
// capability from the dataset.
func (a *Analyzer) Bottlenecks(snap *snapshot.Snapshot) []model.BottleneckProcedure {
	var out []model.BottleneckProcedure
	for _, procedure := range snap.ProcedureSet() {
		ids := snap.Providers(procedure, true)
		if len(ids) >= a.cfg.MinProviders {
			continue
		}
		sort.Strings(ids)
		out = append(out, model.BottleneckProcedure{
			Procedure:   procedure,
			Providers:   len(ids),
			FacilityIDs: ids,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Providers != out[j].Providers {
			return out[i].Providers < out[j].Providers
		}
		return out[i].Procedure < out[j].Procedure
	})
	return out
}
