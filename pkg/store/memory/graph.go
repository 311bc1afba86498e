package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/latticekg/lattice/pkg/common"
)

// GraphStorage is an in-process store.GraphStorage, used for tests and
// single-node deployments. All reads return copies so callers can never
// alias live store state.
type GraphStorage struct {
	mu    sync.RWMutex
	nodes map[string]*common.Node
	edges map[common.EdgeRef]*common.Edge
}

// NewGraphStorage creates an empty in-memory graph store.
func NewGraphStorage() *GraphStorage {
	return &GraphStorage{
		nodes: make(map[string]*common.Node),
		edges: make(map[common.EdgeRef]*common.Edge),
	}
}

func copyNode(node *common.Node) *common.Node {
	if node == nil {
		return nil
	}
	out := *node
	out.SourceChunkIDs = append([]string{}, node.SourceChunkIDs...)
	return &out
}

func copyEdge(edge *common.Edge) *common.Edge {
	if edge == nil {
		return nil
	}
	out := *edge
	out.SourceChunkIDs = append([]string{}, edge.SourceChunkIDs...)
	return &out
}

// GetNode returns the node with the given name, or (nil, nil) when absent.
func (s *GraphStorage) GetNode(ctx context.Context, name string) (*common.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyNode(s.nodes[name]), nil
}

// GetEdge returns the edge for the ordered endpoint pair, or (nil, nil)
// when absent. (A,B) and (B,A) are distinct keys.
func (s *GraphStorage) GetEdge(ctx context.Context, source, target string) (*common.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyEdge(s.edges[common.EdgeRef{Source: source, Target: target}]), nil
}

// UpsertNode stores the node, replacing any previous version.
func (s *GraphStorage) UpsertNode(ctx context.Context, node *common.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node.Name] = copyNode(node)
	return nil
}

// UpsertEdge stores the edge under its ordered endpoint pair.
func (s *GraphStorage) UpsertEdge(ctx context.Context, edge *common.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[common.EdgeRef{Source: edge.SourceID, Target: edge.TargetID}] = copyEdge(edge)
	return nil
}

// GetNodeEdges returns all edges with the named node as either endpoint,
// ordered deterministically.
func (s *GraphStorage) GetNodeEdges(ctx context.Context, name string) ([]*common.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*common.Edge
	for ref, edge := range s.edges {
		if ref.Source == name || ref.Target == name {
			out = append(out, copyEdge(edge))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID == out[j].SourceID {
			return out[i].TargetID < out[j].TargetID
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out, nil
}

// NodesBatch returns the nodes for the requested names, positionally
// aligned, with nil holes for absent names.
func (s *GraphStorage) NodesBatch(ctx context.Context, names []string) ([]*common.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*common.Node, len(names))
	for i, name := range names {
		out[i] = copyNode(s.nodes[name])
	}
	return out, nil
}

// DegreesBatch returns the degree of each requested node, positionally
// aligned, zero for absent names.
func (s *GraphStorage) DegreesBatch(ctx context.Context, names []string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	degrees := make(map[string]int)
	for ref := range s.edges {
		degrees[ref.Source]++
		degrees[ref.Target]++
	}

	out := make([]int, len(names))
	for i, name := range names {
		out[i] = degrees[name]
	}
	return out, nil
}

// Snapshot returns a consistent point-in-time copy of the whole graph.
func (s *GraphStorage) Snapshot(ctx context.Context) (*common.GraphSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &common.GraphSnapshot{
		Nodes: make([]*common.Node, 0, len(s.nodes)),
		Edges: make([]*common.Edge, 0, len(s.edges)),
	}
	for _, node := range s.nodes {
		snapshot.Nodes = append(snapshot.Nodes, copyNode(node))
	}
	for _, edge := range s.edges {
		snapshot.Edges = append(snapshot.Edges, copyEdge(edge))
	}

	sort.Slice(snapshot.Nodes, func(i, j int) bool {
		return snapshot.Nodes[i].Name < snapshot.Nodes[j].Name
	})
	sort.Slice(snapshot.Edges, func(i, j int) bool {
		if snapshot.Edges[i].SourceID == snapshot.Edges[j].SourceID {
			return snapshot.Edges[i].TargetID < snapshot.Edges[j].TargetID
		}
		return snapshot.Edges[i].SourceID < snapshot.Edges[j].SourceID
	})
	return snapshot, nil
}
