package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/store"
)

// VectorStorage is an in-process store.VectorStorage. Dense retrieval is
// brute-force cosine over the stored embeddings; the sparse side is a
// memory-only bleve index over the item content. Hybrid queries fuse the
// two ranked lists with RRF and degrade to dense-only when the sparse
// side fails.
type VectorStorage struct {
	mu    sync.RWMutex
	items map[string]store.VectorItem
	index bleve.Index
}

type indexedDoc struct {
	Content string `json:"content"`
}

// NewVectorStorage creates an empty in-memory vector collection.
func NewVectorStorage() (*VectorStorage, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating sparse index: %w", err)
	}
	return &VectorStorage{
		items: make(map[string]store.VectorItem),
		index: index,
	}, nil
}

// Upsert stores the items, replacing previous versions by ID, and keeps
// the sparse index in sync.
func (s *VectorStorage) Upsert(ctx context.Context, items []store.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		stored := item
		stored.Embedding = append([]float32{}, item.Embedding...)
		s.items[item.ID] = stored
		if err := s.index.Index(item.ID, indexedDoc{Content: item.Content}); err != nil {
			return fmt.Errorf("indexing %q: %w", item.ID, err)
		}
	}
	return nil
}

// Query runs dense retrieval and, when requested, fuses it with sparse
// retrieval. A sparse failure is logged and the dense list is returned
// as-is; only a dense failure fails the query.
func (s *VectorStorage) Query(ctx context.Context, query store.VectorQuery) ([]common.ScoredID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dense := s.denseQuery(query.Embedding, query.TopK)
	if !query.Hybrid {
		return dense, nil
	}

	sparse, err := s.sparseQuery(query.Text, query.TopK)
	if err != nil {
		logger.Warn("sparse retrieval failed, falling back to dense only", "error", err)
		return dense, nil
	}
	return store.FuseRRF([][]common.ScoredID{dense, sparse}, query.TopK), nil
}

func (s *VectorStorage) denseQuery(embedding []float32, topK int) []common.ScoredID {
	scored := make([]common.ScoredID, 0, len(s.items))
	for id, item := range s.items {
		scored = append(scored, common.ScoredID{
			ID:    id,
			Score: cosineSimilarity(embedding, item.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score == scored[j].Score {
			return scored[i].ID < scored[j].ID
		}
		return scored[i].Score > scored[j].Score
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func (s *VectorStorage) sparseQuery(text string, topK int) ([]common.ScoredID, error) {
	if topK <= 0 {
		topK = len(s.items)
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(text), topK, 0, false)
	result, err := s.index.Search(req)
	if err != nil {
		return nil, err
	}

	scored := make([]common.ScoredID, 0, len(result.Hits))
	for _, hit := range result.Hits {
		scored = append(scored, common.ScoredID{ID: hit.ID, Score: hit.Score})
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
