package community

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/store"
)

// Hierarchy is one fully built community hierarchy. It is immutable once
// published; rebuilds produce a fresh Hierarchy and swap it in atomically
// so readers never observe a partially rebuilt state.
type Hierarchy struct {
	Communities []*common.Community
	ByID        map[string]*common.Community
}

// NewHierarchy indexes the given communities.
func NewHierarchy(communities []*common.Community) *Hierarchy {
	byID := make(map[string]*common.Community, len(communities))
	for _, c := range communities {
		byID[c.ID] = c
	}
	return &Hierarchy{
		Communities: communities,
		ByID:        byID,
	}
}

// AtLevel returns the communities of one hierarchy level.
func (h *Hierarchy) AtLevel(level int) []*common.Community {
	var out []*common.Community
	for _, c := range h.Communities {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

// Builder owns the community lifecycle: it rebuilds the hierarchy from a
// graph snapshot, persists the reports, and publishes the result. There
// is no incremental update path — cheap graphs, expensive-but-correct
// full recompute — so every index batch triggers a wholesale rebuild.
type Builder struct {
	detector   Detector
	summarizer *Summarizer
	kv         store.KVStorage

	current atomic.Pointer[Hierarchy]
}

// NewBuilder creates a Builder. The detector and summarizer implement the
// two halves of community building: clustering and report synthesis.
func NewBuilder(detector Detector, summarizer *Summarizer, kv store.KVStorage) *Builder {
	b := &Builder{
		detector:   detector,
		summarizer: summarizer,
		kv:         kv,
	}
	b.current.Store(NewHierarchy(nil))
	return b
}

// Hierarchy returns the currently published hierarchy. The previous
// hierarchy remains fully readable while a rebuild is in progress.
func (b *Builder) Hierarchy() *Hierarchy {
	return b.current.Load()
}

// Rebuild recomputes the full hierarchy from the snapshot, generates the
// per-community reports, persists them, and atomically publishes the new
// hierarchy. A report failure on one community is logged and skipped; it
// never halts the rebuild of the others.
func (b *Builder) Rebuild(ctx context.Context, snapshot *common.GraphSnapshot) (*Hierarchy, error) {
	communities, err := b.detector.Detect(snapshot)
	if err != nil {
		return nil, fmt.Errorf("community detection failed: %w", err)
	}

	degrees := nodeDegrees(snapshot)

	for _, community := range communities {
		if err := b.summarizer.Summarize(ctx, community, snapshot, degrees); err != nil {
			logger.Warn("[Community] Report generation failed, keeping community without report", "community", community.ID, "err", err)
		}
	}

	hierarchy := NewHierarchy(communities)
	if err := b.persist(ctx, hierarchy); err != nil {
		return nil, err
	}
	b.current.Store(hierarchy)

	logger.Info("[Community] Hierarchy rebuilt", "communities", len(communities))
	return hierarchy, nil
}

func (b *Builder) persist(ctx context.Context, hierarchy *Hierarchy) error {
	existing, err := b.kv.List(ctx, store.NamespaceCommunityReports)
	if err != nil {
		return fmt.Errorf("failed to list stored community reports: %w", err)
	}
	for id := range existing {
		if err := b.kv.Delete(ctx, store.NamespaceCommunityReports, id); err != nil {
			return fmt.Errorf("failed to delete stale community report %s: %w", id, err)
		}
	}

	for _, community := range hierarchy.Communities {
		data, err := json.Marshal(community)
		if err != nil {
			return fmt.Errorf("failed to marshal community %s: %w", community.ID, err)
		}
		if err := b.kv.Upsert(ctx, store.NamespaceCommunityReports, community.ID, data); err != nil {
			return fmt.Errorf("failed to store community %s: %w", community.ID, err)
		}
	}
	return nil
}

// Load restores the last persisted hierarchy, used at startup before any
// rebuild has run in this process.
func (b *Builder) Load(ctx context.Context) error {
	stored, err := b.kv.List(ctx, store.NamespaceCommunityReports)
	if err != nil {
		return fmt.Errorf("failed to list stored community reports: %w", err)
	}

	communities := make([]*common.Community, 0, len(stored))
	for id, data := range stored {
		var community common.Community
		if err := json.Unmarshal(data, &community); err != nil {
			logger.Warn("[Community] Skipping unreadable stored report", "community", id, "err", err)
			continue
		}
		communities = append(communities, &community)
	}
	sort.Slice(communities, func(i, j int) bool {
		return communities[i].ID < communities[j].ID
	})

	b.current.Store(NewHierarchy(communities))
	return nil
}

func nodeDegrees(snapshot *common.GraphSnapshot) map[string]int {
	degrees := make(map[string]int)
	if snapshot == nil {
		return degrees
	}
	for _, edge := range snapshot.Edges {
		degrees[edge.SourceID]++
		degrees[edge.TargetID]++
	}
	return degrees
}
