package query

import (
	"context"
	"sort"

	"github.com/latticekg/lattice/pkg/common"
)

// queryGlobal answers corpus-level questions from community reports.
// Reports are ranked by importance rating and packed until the budget
// is exhausted. An empty hierarchy short-circuits to the fixed
// insufficient-information answer without a model call.
func (e *Engine) queryGlobal(ctx context.Context, question string) (string, error) {
	hierarchy := e.hierarchy.Hierarchy()
	if hierarchy == nil || len(hierarchy.Communities) == 0 {
		return InsufficientInfoAnswer, nil
	}

	ranked := make([]*common.Community, 0, len(hierarchy.Communities))
	for _, comm := range hierarchy.Communities {
		if comm.Report == "" {
			continue
		}
		ranked = append(ranked, comm)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Rating == ranked[j].Rating {
			return ranked[i].ID < ranked[j].ID
		}
		return ranked[i].Rating > ranked[j].Rating
	})

	reports := make([]string, 0, len(ranked))
	for _, comm := range ranked {
		reports = append(reports, comm.Report)
	}

	queryContext := &QueryContext{
		Communities: packLines(e.enc, reports, e.budgets.Communities),
	}
	return e.answer(ctx, question, queryContext)
}
