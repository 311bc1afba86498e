package common

// DefaultRelationType is the generic relation tag assigned when the model
// emits no categorical type. The merger prefers any non-default type over
// it when occurrences disagree.
const DefaultRelationType = "RELATED"

// Chunk represents a contiguous, token-bounded segment of a source document.
// Chunks are immutable once created and serve as the provenance unit for all
// extracted entities and relationships.
//
// The ID is derived from the document ID and the content together, so two
// documents containing identical text still produce distinct chunks.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
}

// EntityRecord is a single pre-merge extraction occurrence of an entity.
// One record is produced per mention per chunk; the merger combines records
// that share a canonical name into one Node.
type EntityRecord struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Description   string `json:"description"`
	SourceChunkID string `json:"source_chunk_id"`
}

// RelationshipRecord is a single pre-merge extraction occurrence of a
// directed relationship between two entities.
type RelationshipRecord struct {
	SourceName    string  `json:"source_name"`
	TargetName    string  `json:"target_name"`
	Description   string  `json:"description"`
	Weight        float64 `json:"weight"`
	RelationType  string  `json:"relation_type"`
	SourceChunkID string  `json:"source_chunk_id"`
}

// Node is a merged, graph-resident entity. There is exactly one Node per
// canonical entity name within a graph. The description may be a separator
// joined concatenation of occurrence descriptions, or an AI-generated
// summary of that concatenation once it grows past the summarize threshold.
type Node struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	SourceChunkIDs []string `json:"source_chunk_ids"`
}

// Edge is a merged, graph-resident relationship. Edge identity is the
// ordered (source, target) pair as extracted. A pair extracted in both
// directions yields two distinct edges; endpoint order is never normalized
// away, since the two directions can carry different relation types.
type Edge struct {
	SourceID       string   `json:"source_id"`
	TargetID       string   `json:"target_id"`
	Description    string   `json:"description"`
	Weight         float64  `json:"weight"`
	RelationType   string   `json:"relation_type"`
	SourceChunkIDs []string `json:"source_chunk_ids"`
}

// EdgeRef identifies an edge by its ordered endpoint pair.
type EdgeRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Community is a cluster of nodes and their connecting edges at one level
// of the community hierarchy. Level 0 communities are the leaves; a level-0
// community belongs to exactly one level-1 parent. Communities are rebuilt
// wholesale on every index batch, never patched incrementally.
type Community struct {
	ID             string    `json:"id"`
	Level          int       `json:"level"`
	Title          string    `json:"title"`
	NodeIDs        []string  `json:"node_ids"`
	EdgeRefs       []EdgeRef `json:"edge_refs"`
	Report         string    `json:"report"`
	Rating         float64   `json:"rating"`
	SubCommunities []string  `json:"sub_communities"`
	Truncated      bool      `json:"truncated"`
}

// GraphSnapshot is a point-in-time, read-only copy of the merged graph.
// Community detection operates on snapshots so a rebuild never observes
// concurrent merges.
type GraphSnapshot struct {
	Nodes []*Node
	Edges []*Edge
}

// ScoredID is a retrieval result: a record identifier with its fused or
// raw similarity score, higher is better.
type ScoredID struct {
	ID    string
	Score float64
}
