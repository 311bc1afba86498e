package store

import (
	"math"
	"testing"

	"github.com/latticekg/lattice/pkg/common"
)

func TestFuseRRF(t *testing.T) {
	t.Parallel()

	dense := []common.ScoredID{
		{ID: "d1", Score: 0.9},
		{ID: "d2", Score: 0.8},
		{ID: "d3", Score: 0.7},
	}
	sparse := []common.ScoredID{
		{ID: "d3", Score: 12.0},
		{ID: "d1", Score: 11.0},
		{ID: "d4", Score: 3.0},
	}

	got := FuseRRF([][]common.ScoredID{dense, sparse}, 4)

	want := map[string]float64{
		"d1": 1.0/61 + 1.0/62,
		"d2": 1.0 / 62,
		"d3": 1.0/63 + 1.0/61,
		"d4": 1.0 / 63,
	}

	if len(got) != 4 {
		t.Fatalf("got %d results, want 4", len(got))
	}
	for _, item := range got {
		if math.Abs(item.Score-want[item.ID]) > 1e-12 {
			t.Errorf("score for %s = %v, want %v", item.ID, item.Score, want[item.ID])
		}
	}

	if got[0].ID != "d1" || got[1].ID != "d3" {
		t.Errorf("top two = %s, %s; want d1, d3", got[0].ID, got[1].ID)
	}
	if got[2].ID != "d2" || got[3].ID != "d4" {
		t.Errorf("bottom two = %s, %s; want d2, d4", got[2].ID, got[3].ID)
	}
}

func TestFuseRRFLimit(t *testing.T) {
	t.Parallel()

	list := []common.ScoredID{
		{ID: "a", Score: 1},
		{ID: "b", Score: 0.9},
		{ID: "c", Score: 0.8},
	}
	got := FuseRRF([][]common.ScoredID{list}, 2)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("results = %v, want a then b", got)
	}
}

func TestFuseRRFEmptyInput(t *testing.T) {
	t.Parallel()

	if got := FuseRRF(nil, 5); len(got) != 0 {
		t.Errorf("FuseRRF(nil) = %v, want empty", got)
	}
}
