package query

import (
	"context"

	"github.com/latticekg/lattice/pkg/store"
)

// queryNaive answers directly from retrieved chunks, bypassing the
// graph entirely.
func (e *Engine) queryNaive(ctx context.Context, question string) (string, error) {
	embedding, err := e.embedQuery(ctx, question)
	if err != nil {
		return "", err
	}

	hits, err := e.chunks.Query(ctx, store.VectorQuery{
		Text:      question,
		Embedding: embedding,
		TopK:      e.topK,
		Hybrid:    e.hybrid,
	})
	if err != nil {
		return "", err
	}

	chunkIDs := make([]string, 0, len(hits))
	for _, hit := range hits {
		chunkIDs = append(chunkIDs, hit.ID)
	}

	queryContext := &QueryContext{
		Chunks: packLines(e.enc, e.loadChunks(ctx, chunkIDs), e.budgets.Chunks),
	}
	return e.answer(ctx, question, queryContext)
}
