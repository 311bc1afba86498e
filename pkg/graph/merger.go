package graph

import (
	"context"
	"fmt"

	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/ai"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/store"
	"github.com/latticekg/lattice/pkg/tokens"
)

const defaultSummarizeThreshold = 500

// Merger owns the Node/Edge lifecycle of the merged graph. All writes go
// through MergeEntity/MergeEdge, which serialize per identity key so
// concurrent chunks mentioning the same entity cannot lose updates.
//
// A Merger should be created using NewMerger.
type Merger struct {
	graph   store.GraphStorage
	vectors store.VectorStorage
	client  ai.Client
	enc     *tokens.Encoder

	summarizeThreshold int
	relationPolicy     RelationTypePolicy
	maxRetries         int

	locks *keyedLocks
}

// NewMergerParams defines the configuration for creating a Merger.
//
// SummarizeThreshold is the token count past which a merged description
// concatenation is replaced by a model-generated summary. EntityVectors
// receives the name-plus-description content for every merged node.
type NewMergerParams struct {
	Graph              store.GraphStorage
	EntityVectors      store.VectorStorage
	Client             ai.Client
	Encoder            *tokens.Encoder
	SummarizeThreshold int
	RelationTypePolicy RelationTypePolicy
	MaxRetries         int
}

// NewMerger creates a Merger with the provided parameters.
func NewMerger(params NewMergerParams) *Merger {
	threshold := params.SummarizeThreshold
	if threshold <= 0 {
		threshold = defaultSummarizeThreshold
	}
	policy := params.RelationTypePolicy
	if policy == "" {
		policy = RelationTypeMostFrequent
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Merger{
		graph:              params.Graph,
		vectors:            params.EntityVectors,
		client:             params.Client,
		enc:                params.Encoder,
		summarizeThreshold: threshold,
		relationPolicy:     policy,
		maxRetries:         maxRetries,
		locks:              newKeyedLocks(),
	}
}

// summarizeDescription condenses an overgrown description concatenation.
// The call is deterministic for identical input (temperature zero) and a
// failure leaves the pre-summary concatenation intact — the caller keeps
// the original text, nothing shared is mutated.
func (m *Merger) summarizeDescription(ctx context.Context, name, description string) (string, error) {
	prompt := fmt.Sprintf(ai.SummarizePrompt, name, description)
	return util.RetryWithContext(ctx, m.maxRetries, func(ctx context.Context) (string, error) {
		return m.client.Complete(ctx, prompt, ai.WithTemperature(0))
	})
}

func (m *Merger) maybeSummarize(ctx context.Context, name string, description string) string {
	if m.enc.Count(description) <= m.summarizeThreshold {
		return description
	}
	summary, err := m.summarizeDescription(ctx, name, description)
	if err != nil {
		logger.Warn("[Merge] Description summarization failed, keeping concatenation", "name", name, "err", err)
		return description
	}
	if summary == "" {
		return description
	}
	return summary
}

// EntityVectorContent is the exact text embedded for an entity: the name
// plus the description. The ingest path and every re-upsert after a merge
// must use this same construction or sparse recall silently degrades.
func EntityVectorContent(node *common.Node) string {
	return node.Name + "\n" + node.Description
}

// MergeEntity combines new extraction occurrences for one canonical name
// with any existing node, persists the merged node, and refreshes its
// entry in the entity vector collection.
func (m *Merger) MergeEntity(ctx context.Context, name string, records []common.EntityRecord) (*common.Node, error) {
	unlock := m.locks.lock("node:" + name)
	defer unlock()

	existing, err := m.graph.GetNode(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s: %w", name, err)
	}

	node := mergeNodeRecords(existing, name, records)
	node.Description = m.maybeSummarize(ctx, name, node.Description)

	if err := m.graph.UpsertNode(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to upsert node %s: %w", name, err)
	}

	if err := m.upsertEntityVector(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to upsert entity vector for %s: %w", name, err)
	}

	return node, nil
}

func (m *Merger) upsertEntityVector(ctx context.Context, node *common.Node) error {
	content := EntityVectorContent(node)
	embeddings, err := util.RetryWithContext(ctx, m.maxRetries, func(ctx context.Context) ([][]float32, error) {
		return m.client.Embed(ctx, []string{content})
	})
	if err != nil {
		return err
	}
	if len(embeddings) != 1 {
		return fmt.Errorf("unexpected embedding count: got %d want 1", len(embeddings))
	}
	return m.vectors.Upsert(ctx, []store.VectorItem{{
		ID:        node.Name,
		Content:   content,
		Embedding: embeddings[0],
	}})
}

// MergeEdge combines new extraction occurrences for one ordered endpoint
// pair with any existing edge and persists the result. The key is the
// pair exactly as extracted: (A,B) and (B,A) are two distinct edges and
// are never collapsed by sorting the endpoints. Missing endpoint nodes
// are created as bare placeholders so the edge never dangles.
func (m *Merger) MergeEdge(ctx context.Context, ref common.EdgeRef, records []common.RelationshipRecord) (*common.Edge, error) {
	unlock := m.locks.lock("edge:" + ref.Source + "\x00" + ref.Target)
	defer unlock()

	for _, endpoint := range []string{ref.Source, ref.Target} {
		if err := m.ensureNode(ctx, endpoint, records); err != nil {
			return nil, err
		}
	}

	existing, err := m.graph.GetEdge(ctx, ref.Source, ref.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to load edge %s->%s: %w", ref.Source, ref.Target, err)
	}

	edge := mergeEdgeRecords(existing, ref, m.relationPolicy, records)
	edge.Description = m.maybeSummarize(ctx, ref.Source+" -> "+ref.Target, edge.Description)

	if err := m.graph.UpsertEdge(ctx, edge); err != nil {
		return nil, fmt.Errorf("failed to upsert edge %s->%s: %w", ref.Source, ref.Target, err)
	}

	return edge, nil
}

func (m *Merger) ensureNode(ctx context.Context, name string, records []common.RelationshipRecord) error {
	unlock := m.locks.lock("node:" + name)
	defer unlock()

	existing, err := m.graph.GetNode(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load node %s: %w", name, err)
	}
	if existing != nil {
		return nil
	}

	chunkIDs := make([]string, 0, len(records))
	for _, rec := range records {
		chunkIDs = append(chunkIDs, rec.SourceChunkID)
	}
	node := &common.Node{
		Name:           name,
		SourceChunkIDs: util.DedupeStrings(chunkIDs),
	}
	if err := m.graph.UpsertNode(ctx, node); err != nil {
		return fmt.Errorf("failed to upsert placeholder node %s: %w", name, err)
	}
	return nil
}
