package pgx

import (
	"context"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/latticekg/lattice/pkg/common"
)

// GraphStorage persists the knowledge graph in PostgreSQL. Nodes are
// keyed by name, edges by their ordered endpoint pair.
type GraphStorage struct {
	conn Conn
}

// NewGraphStorage creates a graph store on the given connection.
func NewGraphStorage(conn Conn) *GraphStorage {
	return &GraphStorage{conn: conn}
}

func scanNode(row pgxv5.Row) (*common.Node, error) {
	node := &common.Node{}
	err := row.Scan(&node.Name, &node.Type, &node.Description, &node.SourceChunkIDs)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

func scanEdge(row pgxv5.Row) (*common.Edge, error) {
	edge := &common.Edge{}
	err := row.Scan(
		&edge.SourceID, &edge.TargetID, &edge.Description,
		&edge.Weight, &edge.RelationType, &edge.SourceChunkIDs,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return edge, nil
}

func (s *GraphStorage) GetNode(ctx context.Context, name string) (*common.Node, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT name, type, description, source_chunk_ids FROM graph_nodes WHERE name = $1`,
		name,
	)
	return scanNode(row)
}

func (s *GraphStorage) GetEdge(ctx context.Context, source, target string) (*common.Edge, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT source_id, target_id, description, weight, relation_type, source_chunk_ids
		 FROM graph_edges WHERE source_id = $1 AND target_id = $2`,
		source, target,
	)
	return scanEdge(row)
}

func (s *GraphStorage) UpsertNode(ctx context.Context, node *common.Node) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO graph_nodes (name, type, description, source_chunk_ids)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET
		   type = EXCLUDED.type,
		   description = EXCLUDED.description,
		   source_chunk_ids = EXCLUDED.source_chunk_ids`,
		node.Name, node.Type, node.Description, node.SourceChunkIDs,
	)
	return err
}

func (s *GraphStorage) UpsertEdge(ctx context.Context, edge *common.Edge) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO graph_edges (source_id, target_id, description, weight, relation_type, source_chunk_ids)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (source_id, target_id) DO UPDATE SET
		   description = EXCLUDED.description,
		   weight = EXCLUDED.weight,
		   relation_type = EXCLUDED.relation_type,
		   source_chunk_ids = EXCLUDED.source_chunk_ids`,
		edge.SourceID, edge.TargetID, edge.Description,
		edge.Weight, edge.RelationType, edge.SourceChunkIDs,
	)
	return err
}

func (s *GraphStorage) GetNodeEdges(ctx context.Context, name string) ([]*common.Edge, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT source_id, target_id, description, weight, relation_type, source_chunk_ids
		 FROM graph_edges WHERE source_id = $1 OR target_id = $1
		 ORDER BY source_id, target_id`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*common.Edge
	for rows.Next() {
		edge := &common.Edge{}
		if err := rows.Scan(
			&edge.SourceID, &edge.TargetID, &edge.Description,
			&edge.Weight, &edge.RelationType, &edge.SourceChunkIDs,
		); err != nil {
			return nil, err
		}
		out = append(out, edge)
	}
	return out, rows.Err()
}

func (s *GraphStorage) NodesBatch(ctx context.Context, names []string) ([]*common.Node, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT name, type, description, source_chunk_ids
		 FROM graph_nodes WHERE name = ANY($1)`,
		names,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*common.Node, len(names))
	for rows.Next() {
		node := &common.Node{}
		if err := rows.Scan(&node.Name, &node.Type, &node.Description, &node.SourceChunkIDs); err != nil {
			return nil, err
		}
		byName[node.Name] = node
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*common.Node, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out, nil
}

func (s *GraphStorage) DegreesBatch(ctx context.Context, names []string) ([]int, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT n.name, COUNT(e.source_id)
		 FROM unnest($1::text[]) AS n(name)
		 LEFT JOIN graph_edges e ON e.source_id = n.name OR e.target_id = n.name
		 GROUP BY n.name`,
		names,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]int, len(names))
	for rows.Next() {
		var name string
		var degree int
		if err := rows.Scan(&name, &degree); err != nil {
			return nil, err
		}
		byName[name] = degree
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]int, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out, nil
}

func (s *GraphStorage) Snapshot(ctx context.Context) (*common.GraphSnapshot, error) {
	snapshot := &common.GraphSnapshot{}

	rows, err := s.conn.Query(ctx,
		`SELECT name, type, description, source_chunk_ids FROM graph_nodes ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		node := &common.Node{}
		if err := rows.Scan(&node.Name, &node.Type, &node.Description, &node.SourceChunkIDs); err != nil {
			rows.Close()
			return nil, err
		}
		snapshot.Nodes = append(snapshot.Nodes, node)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.conn.Query(ctx,
		`SELECT source_id, target_id, description, weight, relation_type, source_chunk_ids
		 FROM graph_edges ORDER BY source_id, target_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		edge := &common.Edge{}
		if err := rows.Scan(
			&edge.SourceID, &edge.TargetID, &edge.Description,
			&edge.Weight, &edge.RelationType, &edge.SourceChunkIDs,
		); err != nil {
			return nil, err
		}
		snapshot.Edges = append(snapshot.Edges, edge)
	}
	return snapshot, rows.Err()
}
