package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/store"
	"github.com/latticekg/lattice/pkg/tokens"
)

// QueryContext is the per-query context assembled for answer generation.
// Sections are bounded by independent token budgets and filled in a
// fixed priority order: entities, relationships, communities, chunks.
// Overflowing lines are dropped, never an error; a line that alone
// exceeds its section budget is truncated instead.
type QueryContext struct {
	Entities      []string
	Relationships []string
	Communities   []string
	Chunks        []string
}

// Empty reports whether no section holds any content.
func (c *QueryContext) Empty() bool {
	return len(c.Entities) == 0 && len(c.Relationships) == 0 &&
		len(c.Communities) == 0 && len(c.Chunks) == 0
}

// Render flattens the context into the text block handed to the model.
// Empty sections are omitted; a fully empty context renders to "".
func (c *QueryContext) Render() string {
	if c.Empty() {
		return ""
	}

	var b strings.Builder
	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(title)
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	section("Entities", c.Entities)
	section("Relationships", c.Relationships)
	section("Community Reports", c.Communities)
	section("Source Text", c.Chunks)
	return b.String()
}

// packLines keeps lines in order until the token budget is exhausted.
// When the very first line already exceeds the budget it is truncated to
// fit, so one oversized record cannot leave its section empty.
func packLines(enc *tokens.Encoder, lines []string, budget int) []string {
	var out []string
	used := 0
	for _, line := range lines {
		cost := enc.Count(line)
		if used+cost > budget {
			if len(out) == 0 && budget > 0 {
				out = append(out, enc.Truncate(line, budget))
			}
			break
		}
		out = append(out, line)
		used += cost
	}
	return out
}

func formatNode(node *common.Node) string {
	return fmt.Sprintf("- %s (%s): %s", node.Name, node.Type, node.Description)
}

func formatEdge(edge *common.Edge) string {
	return fmt.Sprintf("- %s -[%s]-> %s (weight %.1f): %s",
		edge.SourceID, edge.RelationType, edge.TargetID, edge.Weight, edge.Description)
}

// loadChunks resolves chunk records from the key-value store. A missing
// or empty chunk payload is a data-integrity warning and is excluded,
// the query proceeds with reduced context.
func (e *Engine) loadChunks(ctx context.Context, chunkIDs []string) []string {
	var lines []string
	for _, id := range chunkIDs {
		raw, err := e.kv.Get(ctx, store.NamespaceChunks, id)
		if err != nil {
			logger.Warn("failed to load chunk", "chunk_id", id, "error", err)
			continue
		}
		if raw == nil {
			logger.Warn("chunk referenced but not stored", "chunk_id", id)
			continue
		}
		var chunk common.Chunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			logger.Warn("failed to decode chunk", "chunk_id", id, "error", err)
			continue
		}
		if chunk.Content == "" {
			logger.Warn("chunk record has empty content", "chunk_id", id)
			continue
		}
		lines = append(lines, chunk.Content)
	}
	return lines
}
