package pgx

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/store"
)

// VectorStorage is one named vector collection backed by PostgreSQL.
// Dense retrieval uses pgvector cosine distance; the sparse side ranks
// a tsvector over the item content with websearch query syntax. Hybrid
// queries fetch both ranked lists and fuse them with RRF in Go.
type VectorStorage struct {
	conn       Conn
	collection string
}

// NewVectorStorage creates a vector store for the named collection.
func NewVectorStorage(conn Conn, collection string) *VectorStorage {
	return &VectorStorage{conn: conn, collection: collection}
}

func (s *VectorStorage) Upsert(ctx context.Context, items []store.VectorItem) error {
	for _, item := range items {
		_, err := s.conn.Exec(ctx,
			`INSERT INTO vector_items (collection, id, content, embedding)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (collection, id) DO UPDATE SET
			   content = EXCLUDED.content,
			   embedding = EXCLUDED.embedding`,
			s.collection, item.ID, item.Content, pgvector.NewVector(item.Embedding),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *VectorStorage) Query(ctx context.Context, query store.VectorQuery) ([]common.ScoredID, error) {
	dense, err := s.denseQuery(ctx, query.Embedding, query.TopK)
	if err != nil {
		return nil, err
	}
	if !query.Hybrid {
		return dense, nil
	}

	sparse, err := s.sparseQuery(ctx, query.Text, query.TopK)
	if err != nil {
		logger.Warn("sparse retrieval failed, falling back to dense only",
			"collection", s.collection, "error", err)
		return dense, nil
	}
	return store.FuseRRF([][]common.ScoredID{dense, sparse}, query.TopK), nil
}

func (s *VectorStorage) denseQuery(ctx context.Context, embedding []float32, topK int) ([]common.ScoredID, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, 1 - (embedding <=> $2) AS score
		 FROM vector_items WHERE collection = $1
		 ORDER BY embedding <=> $2, id
		 LIMIT $3`,
		s.collection, pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.ScoredID
	for rows.Next() {
		var scored common.ScoredID
		if err := rows.Scan(&scored.ID, &scored.Score); err != nil {
			return nil, err
		}
		out = append(out, scored)
	}
	return out, rows.Err()
}

func (s *VectorStorage) sparseQuery(ctx context.Context, text string, topK int) ([]common.ScoredID, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, ts_rank_cd(content_tsv, websearch_to_tsquery('simple', $2)) AS score
		 FROM vector_items
		 WHERE collection = $1 AND content_tsv @@ websearch_to_tsquery('simple', $2)
		 ORDER BY score DESC, id
		 LIMIT $3`,
		s.collection, text, topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []common.ScoredID
	for rows.Next() {
		var scored common.ScoredID
		if err := rows.Scan(&scored.ID, &scored.Score); err != nil {
			return nil, err
		}
		out = append(out, scored)
	}
	return out, rows.Err()
}
