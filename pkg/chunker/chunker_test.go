package chunker

import (
	"strings"
	"testing"

	"github.com/latticekg/lattice/pkg/tokens"
)

func TestChunkIDDeterministic(t *testing.T) {
	t.Parallel()

	a := ChunkID("doc-1", "some content")
	b := ChunkID("doc-1", "some content")
	if a != b {
		t.Errorf("ChunkID not deterministic: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "chunk-") {
		t.Errorf("ChunkID %q missing chunk- prefix", a)
	}
}

func TestChunkIDDistinctAcrossDocuments(t *testing.T) {
	t.Parallel()

	// Identical boilerplate in two documents must never collide, or
	// re-ingesting one document overwrites the other's provenance.
	a := ChunkID("doc-1", "shared boilerplate")
	b := ChunkID("doc-2", "shared boilerplate")
	if a == b {
		t.Errorf("ChunkID collided across documents: %q", a)
	}
}

func TestChunkIDDistinctAcrossContent(t *testing.T) {
	t.Parallel()

	a := ChunkID("doc-1", "first chunk")
	b := ChunkID("doc-1", "second chunk")
	if a == b {
		t.Errorf("ChunkID collided across content: %q", a)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	enc, err := tokens.NewEncoder("")
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	c := New(enc, 20, 5)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)

	chunks := c.Split("doc-1", text)
	if len(chunks) < 2 {
		t.Fatalf("Split produced %d chunks, want at least 2", len(chunks))
	}

	seen := make(map[string]bool)
	for _, chunk := range chunks {
		if chunk.DocumentID != "doc-1" {
			t.Errorf("chunk %s has document ID %q, want doc-1", chunk.ID, chunk.DocumentID)
		}
		if chunk.TokenCount > 20 {
			t.Errorf("chunk %s has %d tokens, want at most 20", chunk.ID, chunk.TokenCount)
		}
		if chunk.Content == "" {
			t.Errorf("chunk %s has empty content", chunk.ID)
		}
		if seen[chunk.ID] {
			t.Errorf("duplicate chunk ID %s", chunk.ID)
		}
		seen[chunk.ID] = true
	}
}

func TestSplitEmptyInput(t *testing.T) {
	t.Parallel()

	enc, err := tokens.NewEncoder("")
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	c := New(enc, 0, -1)
	if chunks := c.Split("doc-1", "   \n  "); chunks != nil {
		t.Errorf("Split on blank input = %v, want nil", chunks)
	}
}
