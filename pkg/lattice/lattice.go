// Package lattice wires the indexing pipeline together: chunking,
// parallel extraction, serialized graph merging, and the community
// rebuild that follows every batch of inserts.
package lattice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/latticekg/lattice/pkg/chunker"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/community"
	"github.com/latticekg/lattice/pkg/extract"
	"github.com/latticekg/lattice/pkg/graph"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/store"
)

// Document is the stored record for an ingested document.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Pipeline runs documents through extraction, merging and community
// rebuild. Extraction runs in parallel across chunks; merges are
// serialized per graph key by the Merger; the community rebuild runs
// once per batch on a consistent snapshot.
type Pipeline struct {
	chunker   *chunker.Chunker
	extractor *extract.Extractor
	merger    *graph.Merger
	builder   *community.Builder
	graph     store.GraphStorage
	chunks    store.VectorStorage
	kv        store.KVStorage
	embed     func(ctx context.Context, inputs []string) ([][]float32, error)

	concurrency int
}

// NewPipelineParams defines the configuration for creating a Pipeline.
type NewPipelineParams struct {
	Chunker   *chunker.Chunker
	Extractor *extract.Extractor
	Merger    *graph.Merger
	Builder   *community.Builder
	Graph     store.GraphStorage
	Chunks    store.VectorStorage
	KV        store.KVStorage
	Embed     func(ctx context.Context, inputs []string) ([][]float32, error)

	// Concurrency caps parallel chunk extraction. Zero means 4.
	Concurrency int
}

func NewPipeline(params NewPipelineParams) *Pipeline {
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		chunker:     params.Chunker,
		extractor:   params.Extractor,
		merger:      params.Merger,
		builder:     params.Builder,
		graph:       params.Graph,
		chunks:      params.Chunks,
		kv:          params.KV,
		embed:       params.Embed,
		concurrency: concurrency,
	}
}

// IndexDocument ingests one document: store it, chunk it, extract a
// graph from every chunk, merge the records and rebuild communities.
// A failed chunk is logged and skipped, it never halts the batch. The
// returned document ID is generated when the caller passes none.
func (p *Pipeline) IndexDocument(ctx context.Context, documentID, content string) (string, error) {
	if documentID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", err
		}
		documentID = id
	}

	doc := Document{ID: documentID, Content: content, IndexedAt: time.Now().UTC()}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	if err := p.kv.Upsert(ctx, store.NamespaceDocuments, documentID, raw); err != nil {
		return "", fmt.Errorf("storing document: %w", err)
	}

	chunks := p.chunker.Split(documentID, content)
	logger.Info("indexing document", "document_id", documentID, "chunks", len(chunks))

	if err := p.storeChunks(ctx, chunks); err != nil {
		return "", err
	}

	results := p.extractAll(ctx, chunks)
	if err := p.mergeAll(ctx, results); err != nil {
		return "", err
	}

	snapshot, err := p.graph.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshotting graph: %w", err)
	}
	if _, err := p.builder.Rebuild(ctx, snapshot); err != nil {
		return "", fmt.Errorf("rebuilding communities: %w", err)
	}

	logger.Info("document indexed", "document_id", documentID,
		"nodes", len(snapshot.Nodes), "edges", len(snapshot.Edges))
	return documentID, nil
}

// GetDocument loads a stored document record. A missing document
// surfaces common.ErrNotFound so callers can branch on it.
func GetDocument(ctx context.Context, kv store.KVStorage, documentID string) (*Document, error) {
	raw, err := kv.Get(ctx, store.NamespaceDocuments, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading document %s: %w", documentID, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("document %s: %w", documentID, common.ErrNotFound)
	}

	doc := new(Document)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", documentID, err)
	}
	return doc, nil
}

// storeChunks persists chunk records and their vector representations.
func (p *Pipeline) storeChunks(ctx context.Context, chunks []common.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		contents[i] = chunk.Content

		raw, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if err := p.kv.Upsert(ctx, store.NamespaceChunks, chunk.ID, raw); err != nil {
			return fmt.Errorf("storing chunk %s: %w", chunk.ID, err)
		}
	}

	embeddings, err := p.embed(ctx, contents)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	items := make([]store.VectorItem, len(chunks))
	for i, chunk := range chunks {
		items[i] = store.VectorItem{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Embedding: embeddings[i],
		}
	}
	return p.chunks.Upsert(ctx, items)
}

// extractAll runs the extractor over all chunks in parallel. Failed
// chunks are logged and dropped from the batch.
func (p *Pipeline) extractAll(ctx context.Context, chunks []common.Chunk) []*extract.Result {
	var mu sync.Mutex
	var results []*extract.Result

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, chunk := range chunks {
		g.Go(func() error {
			result, err := p.extractor.Extract(gctx, chunk)
			if err != nil {
				logger.Error("chunk extraction failed", "chunk_id", chunk.ID, "error", err)
				return nil
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}

// mergeAll merges every extracted record into the graph. Entities merge
// before relationships so edge endpoints that were extracted as entities
// carry their full records rather than placeholders.
func (p *Pipeline) mergeAll(ctx context.Context, results []*extract.Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, result := range results {
		for name, record := range result.Entities {
			g.Go(func() error {
				_, err := p.merger.MergeEntity(gctx, name, []common.EntityRecord{*record})
				if err != nil {
					return fmt.Errorf("merging entity %q: %w", name, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, result := range results {
		for ref, record := range result.Relationships {
			g.Go(func() error {
				_, err := p.merger.MergeEdge(gctx, ref, []common.RelationshipRecord{*record})
				if err != nil {
					return fmt.Errorf("merging edge %s -> %s: %w", ref.Source, ref.Target, err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}
