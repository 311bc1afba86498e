package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/tokens"
)

const (
	// DefaultMaxTokens is the default chunk size in tokens.
	DefaultMaxTokens = 1200
	// DefaultOverlap is the default token overlap between adjacent chunks.
	DefaultOverlap = 100
)

// Chunker splits documents into overlapping token-bounded segments with
// deterministic identifiers.
type Chunker struct {
	enc       *tokens.Encoder
	maxTokens int
	overlap   int
}

// New creates a Chunker. Non-positive maxTokens or overlap fall back to
// the package defaults; overlap is clamped below maxTokens so windows
// always advance.
func New(enc *tokens.Encoder, maxTokens, overlap int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxTokens {
		overlap = maxTokens / 4
	}
	return &Chunker{
		enc:       enc,
		maxTokens: maxTokens,
		overlap:   overlap,
	}
}

// ChunkID derives the identifier for a chunk from its document ID and
// content jointly. Two documents with identical text yield distinct IDs,
// so re-ingesting shared boilerplate never overwrites another document's
// provenance.
func ChunkID(documentID, content string) string {
	h := sha256.New()
	h.Write([]byte(documentID))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return "chunk-" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Split segments the document text into chunks of at most maxTokens tokens
// with the configured overlap between neighbors. Empty input yields no
// chunks. Chunks are immutable once created; identical input always
// produces the same chunk IDs.
func (c *Chunker) Split(documentID, text string) []common.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ids := c.enc.Encode(text)
	step := c.maxTokens - c.overlap

	var chunks []common.Chunk
	for start := 0; start < len(ids); start += step {
		end := start + c.maxTokens
		if end > len(ids) {
			end = len(ids)
		}
		window := ids[start:end]
		content := strings.TrimSpace(c.enc.Decode(window))
		if content == "" {
			continue
		}
		chunks = append(chunks, common.Chunk{
			ID:         ChunkID(documentID, content),
			DocumentID: documentID,
			Content:    content,
			TokenCount: len(window),
		})
		if end == len(ids) {
			break
		}
	}
	return chunks
}
