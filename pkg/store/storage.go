package store

import (
	"context"

	"github.com/latticekg/lattice/pkg/common"
)

// Key-value namespaces, one per record kind.
const (
	NamespaceChunks           = "chunks"
	NamespaceDocuments        = "documents"
	NamespaceCommunityReports = "community_reports"
)

// VectorItem is one entry in a vector collection. Content is the raw text
// the embedding was computed from; for entities it must be the name plus
// the description, the same construction on first ingest and on every
// re-upsert after a merge, or sparse recall silently degrades.
type VectorItem struct {
	ID        string
	Content   string
	Embedding []float32
}

// VectorQuery describes one retrieval request. Embedding is the dense
// query vector; Text is the raw query for the sparse side. When Hybrid is
// false only dense retrieval runs.
type VectorQuery struct {
	Text      string
	Embedding []float32
	TopK      int
	Hybrid    bool
}

// GraphStorage persists merged nodes and edges. Point lookups return
// (nil, nil) for absent records; batch lookups uniformly return slices
// positionally aligned with the requested keys, with nil holes for
// absent records — never maps, so every call site iterates the same way.
type GraphStorage interface {
	GetNode(ctx context.Context, name string) (*common.Node, error)
	GetEdge(ctx context.Context, source, target string) (*common.Edge, error)
	UpsertNode(ctx context.Context, node *common.Node) error
	UpsertEdge(ctx context.Context, edge *common.Edge) error
	GetNodeEdges(ctx context.Context, name string) ([]*common.Edge, error)
	NodesBatch(ctx context.Context, names []string) ([]*common.Node, error)
	DegreesBatch(ctx context.Context, names []string) ([]int, error)

	// Snapshot returns a consistent point-in-time copy of the graph for
	// community detection.
	Snapshot(ctx context.Context) (*common.GraphSnapshot, error)
}

// VectorStorage is one named vector collection with optional hybrid
// (dense + sparse) retrieval. Implementations either fuse the two ranked
// lists internally via RRF or fall back to dense-only scores when the
// sparse side is unavailable; a sparse failure must never fail the query.
type VectorStorage interface {
	Upsert(ctx context.Context, items []VectorItem) error
	Query(ctx context.Context, query VectorQuery) ([]common.ScoredID, error)
}

// KVStorage stores opaque records namespaced by record kind. Get returns
// (nil, nil) for absent keys.
type KVStorage interface {
	Get(ctx context.Context, namespace, id string) ([]byte, error)
	Upsert(ctx context.Context, namespace, id string, value []byte) error
	Delete(ctx context.Context, namespace, id string) error
	List(ctx context.Context, namespace string) (map[string][]byte, error)
}
