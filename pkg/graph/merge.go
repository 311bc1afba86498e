package graph

import (
	"strings"

	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/common"
)

// DescriptionSep joins occurrence descriptions inside a merged node or
// edge description until the concatenation is summarized.
const DescriptionSep = "\n"

// RelationTypePolicy selects how conflicting relation types across
// occurrences of the same edge resolve. The default prefers the most
// frequent non-generic type; FirstSeen keeps whatever type the first
// occurrence carried. This is a tunable, not a law — frequency discards
// less signal than first-wins, but neither is obviously right.
type RelationTypePolicy string

const (
	RelationTypeMostFrequent RelationTypePolicy = "most_frequent"
	RelationTypeFirstSeen    RelationTypePolicy = "first_seen"
)

// joinDescriptions appends each new fragment to the existing description
// unless an identical fragment is already present, keeping re-runs over
// the same chunk set from growing the text without bound.
func joinDescriptions(existing string, fragments []string) string {
	present := make(map[string]struct{})
	var parts []string
	if existing != "" {
		for _, p := range strings.Split(existing, DescriptionSep) {
			present[p] = struct{}{}
		}
		parts = append(parts, existing)
	}
	for _, f := range fragments {
		if f == "" {
			continue
		}
		if _, ok := present[f]; ok {
			continue
		}
		present[f] = struct{}{}
		parts = append(parts, f)
	}
	return strings.Join(parts, DescriptionSep)
}

// resolveNodeType picks the merged node type by majority vote over the
// existing type (first-seen) and all new occurrence types, ties broken by
// first-seen order.
func resolveNodeType(existingType string, records []common.EntityRecord) string {
	counts := make(map[string]int)
	var order []string

	vote := func(t string) {
		if t == "" {
			return
		}
		if _, ok := counts[t]; !ok {
			order = append(order, t)
		}
		counts[t]++
	}

	vote(existingType)
	for _, rec := range records {
		vote(rec.Type)
	}

	best := ""
	bestCount := 0
	for _, t := range order {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// resolveRelationType selects the merged relation type. Under the
// most-frequent policy any non-default type beats the generic default
// regardless of counts, the most frequent non-default type wins, and
// ties break on first-seen order — "first occurrence wins" alone would
// silently discard signal from later, often more specific, occurrences.
func resolveRelationType(policy RelationTypePolicy, existingType string, records []common.RelationshipRecord) string {
	if policy == RelationTypeFirstSeen {
		if existingType != "" {
			return existingType
		}
		for _, rec := range records {
			if rec.RelationType != "" {
				return rec.RelationType
			}
		}
		return common.DefaultRelationType
	}

	counts := make(map[string]int)
	var order []string

	vote := func(t string) {
		if t == "" {
			return
		}
		if _, ok := counts[t]; !ok {
			order = append(order, t)
		}
		counts[t]++
	}

	vote(existingType)
	for _, rec := range records {
		vote(rec.RelationType)
	}

	if len(order) == 0 {
		return common.DefaultRelationType
	}

	best := ""
	bestCount := 0
	for _, t := range order {
		if t == common.DefaultRelationType {
			continue
		}
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	if best == "" {
		return common.DefaultRelationType
	}
	return best
}

// mergeNodeRecords combines an existing node (or nil) with new extraction
// occurrences into the merged node, before any summarization pass.
func mergeNodeRecords(existing *common.Node, name string, records []common.EntityRecord) *common.Node {
	node := &common.Node{Name: name}
	existingType := ""
	if existing != nil {
		existingType = existing.Type
		node.Description = existing.Description
		node.SourceChunkIDs = existing.SourceChunkIDs
	}

	node.Type = resolveNodeType(existingType, records)

	fragments := make([]string, 0, len(records))
	chunkIDs := append([]string{}, node.SourceChunkIDs...)
	for _, rec := range records {
		fragments = append(fragments, rec.Description)
		chunkIDs = append(chunkIDs, rec.SourceChunkID)
	}
	node.Description = joinDescriptions(node.Description, fragments)
	node.SourceChunkIDs = util.DedupeStrings(chunkIDs)

	return node
}

// mergeEdgeRecords combines an existing edge (or nil) with new extraction
// occurrences. Weight is summed across all occurrences, old and new.
func mergeEdgeRecords(existing *common.Edge, ref common.EdgeRef, policy RelationTypePolicy, records []common.RelationshipRecord) *common.Edge {
	edge := &common.Edge{SourceID: ref.Source, TargetID: ref.Target}
	existingType := ""
	if existing != nil {
		existingType = existing.RelationType
		edge.Description = existing.Description
		edge.Weight = existing.Weight
		edge.SourceChunkIDs = existing.SourceChunkIDs
	}

	edge.RelationType = resolveRelationType(policy, existingType, records)

	fragments := make([]string, 0, len(records))
	chunkIDs := append([]string{}, edge.SourceChunkIDs...)
	for _, rec := range records {
		fragments = append(fragments, rec.Description)
		chunkIDs = append(chunkIDs, rec.SourceChunkID)
		edge.Weight += rec.Weight
	}
	edge.Description = joinDescriptions(edge.Description, fragments)
	edge.SourceChunkIDs = util.DedupeStrings(chunkIDs)

	return edge
}
