package store

import (
	"sort"

	"github.com/latticekg/lattice/pkg/common"
)

// RRFConst is the k constant in the Reciprocal Rank Fusion formula
// score(d) = Σ 1/(k + rank_i(d)) over each ranked candidate list i.
const RRFConst = 60.0

// FuseRRF fuses multiple ranked candidate lists (each ordered best first)
// via Reciprocal Rank Fusion and returns the top limit IDs by descending
// fused score. Ranks are 1-based. Ties break on ID so the result is
// deterministic regardless of input list order.
func FuseRRF(lists [][]common.ScoredID, limit int) []common.ScoredID {
	scores := make(map[string]float64)
	for _, list := range lists {
		for rank, item := range list {
			scores[item.ID] += 1.0 / (RRFConst + float64(rank+1))
		}
	}

	fused := make([]common.ScoredID, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, common.ScoredID{ID: id, Score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score == fused[j].Score {
			return fused[i].ID < fused[j].ID
		}
		return fused[i].Score > fused[j].Score
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}
