package query

import (
	"context"
	"sort"

	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/store"
)

// queryLocal answers entity-centric questions. Seed entities are found
// by vector similarity against the query, expanded to their graph
// neighborhood, then enriched with the communities and source chunks
// those entities belong to.
func (e *Engine) queryLocal(ctx context.Context, question string) (string, error) {
	embedding, err := e.embedQuery(ctx, question)
	if err != nil {
		return "", err
	}

	seeds, err := e.entities.Query(ctx, store.VectorQuery{
		Text:      question,
		Embedding: embedding,
		TopK:      e.topK,
		Hybrid:    e.hybrid,
	})
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		names = append(names, seed.ID)
	}

	nodes, err := e.graph.NodesBatch(ctx, names)
	if err != nil {
		return "", err
	}

	var entityLines []string
	var seedNodes []*common.Node
	for i, node := range nodes {
		if node == nil {
			logger.Warn("entity referenced by vector index but absent from graph", "name", names[i])
			continue
		}
		seedNodes = append(seedNodes, node)
		entityLines = append(entityLines, formatNode(node))
	}

	edgeLines, chunkIDs := e.expandNeighborhood(ctx, seedNodes)

	queryContext := &QueryContext{
		Entities:      packLines(e.enc, entityLines, e.budgets.Entities),
		Relationships: packLines(e.enc, edgeLines, e.budgets.Relationships),
		Communities:   packLines(e.enc, e.relatedReports(seedNodes), e.budgets.Communities),
		Chunks:        packLines(e.enc, e.loadChunks(ctx, chunkIDs), e.budgets.Chunks),
	}
	return e.answer(ctx, question, queryContext)
}

// expandNeighborhood collects the edges touching the seed nodes and the
// source chunk IDs backing them. Edge lookups that fail are logged and
// skipped so one bad neighborhood never fails the query.
func (e *Engine) expandNeighborhood(ctx context.Context, seeds []*common.Node) ([]string, []string) {
	var edgeLines []string
	var chunkIDs []string
	seen := make(map[common.EdgeRef]bool)

	for _, node := range seeds {
		chunkIDs = append(chunkIDs, node.SourceChunkIDs...)

		edges, err := e.graph.GetNodeEdges(ctx, node.Name)
		if err != nil {
			logger.Warn("failed to load node edges", "name", node.Name, "error", err)
			continue
		}
		for _, edge := range edges {
			ref := common.EdgeRef{Source: edge.SourceID, Target: edge.TargetID}
			if seen[ref] {
				continue
			}
			seen[ref] = true
			edgeLines = append(edgeLines, formatEdge(edge))
		}
	}
	return edgeLines, util.DedupeStrings(chunkIDs)
}

// relatedReports returns the reports of communities containing any seed
// node, most important first.
func (e *Engine) relatedReports(seeds []*common.Node) []string {
	hierarchy := e.hierarchy.Hierarchy()
	if hierarchy == nil {
		return nil
	}

	seedNames := make(map[string]bool, len(seeds))
	for _, node := range seeds {
		seedNames[node.Name] = true
	}

	var related []*common.Community
	for _, comm := range hierarchy.Communities {
		if comm.Report == "" {
			continue
		}
		for _, name := range comm.NodeIDs {
			if seedNames[name] {
				related = append(related, comm)
				break
			}
		}
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].Rating == related[j].Rating {
			return related[i].ID < related[j].ID
		}
		return related[i].Rating > related[j].Rating
	})

	lines := make([]string, 0, len(related))
	for _, comm := range related {
		lines = append(lines, comm.Report)
	}
	return lines
}
