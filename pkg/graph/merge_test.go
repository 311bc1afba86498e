package graph

import (
	"reflect"
	"testing"

	"github.com/latticekg/lattice/pkg/common"
)

func TestJoinDescriptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		existing  string
		fragments []string
		want      string
	}{
		{
			name:      "fresh description",
			existing:  "",
			fragments: []string{"a mathematician"},
			want:      "a mathematician",
		},
		{
			name:      "appended with separator",
			existing:  "a mathematician",
			fragments: []string{"a codebreaker"},
			want:      "a mathematician\na codebreaker",
		},
		{
			name:      "identical fragment not repeated",
			existing:  "a mathematician",
			fragments: []string{"a mathematician"},
			want:      "a mathematician",
		},
		{
			name:      "empty fragments skipped",
			existing:  "a mathematician",
			fragments: []string{"", "a codebreaker", ""},
			want:      "a mathematician\na codebreaker",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := joinDescriptions(tc.existing, tc.fragments)
			if got != tc.want {
				t.Errorf("joinDescriptions(%q, %v) = %q, want %q", tc.existing, tc.fragments, got, tc.want)
			}
		})
	}
}

func TestResolveNodeType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing string
		types    []string
		want     string
	}{
		{
			name:     "majority wins",
			existing: "PERSON",
			types:    []string{"ORGANIZATION", "ORGANIZATION"},
			want:     "ORGANIZATION",
		},
		{
			name:     "tie broken by first seen",
			existing: "PERSON",
			types:    []string{"ORGANIZATION"},
			want:     "PERSON",
		},
		{
			name:     "empty votes ignored",
			existing: "",
			types:    []string{"", "PERSON"},
			want:     "PERSON",
		},
		{
			name:     "all empty",
			existing: "",
			types:    []string{""},
			want:     "",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			records := make([]common.EntityRecord, len(tc.types))
			for i, typ := range tc.types {
				records[i] = common.EntityRecord{Type: typ}
			}
			got := resolveNodeType(tc.existing, records)
			if got != tc.want {
				t.Errorf("resolveNodeType(%q, %v) = %q, want %q", tc.existing, tc.types, got, tc.want)
			}
		})
	}
}

func TestResolveRelationType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   RelationTypePolicy
		existing string
		types    []string
		want     string
	}{
		{
			name:     "non-default beats more frequent default",
			policy:   RelationTypeMostFrequent,
			existing: common.DefaultRelationType,
			types:    []string{common.DefaultRelationType, "WORKS_WITH"},
			want:     "WORKS_WITH",
		},
		{
			name:     "most frequent non-default wins",
			policy:   RelationTypeMostFrequent,
			existing: "KNOWS",
			types:    []string{"WORKS_WITH", "WORKS_WITH"},
			want:     "WORKS_WITH",
		},
		{
			name:     "tie broken by first seen",
			policy:   RelationTypeMostFrequent,
			existing: "KNOWS",
			types:    []string{"WORKS_WITH"},
			want:     "KNOWS",
		},
		{
			name:     "only defaults stays default",
			policy:   RelationTypeMostFrequent,
			existing: common.DefaultRelationType,
			types:    []string{common.DefaultRelationType},
			want:     common.DefaultRelationType,
		},
		{
			name:     "no votes stays default",
			policy:   RelationTypeMostFrequent,
			existing: "",
			types:    []string{""},
			want:     common.DefaultRelationType,
		},
		{
			name:     "first seen policy keeps existing",
			policy:   RelationTypeFirstSeen,
			existing: common.DefaultRelationType,
			types:    []string{"WORKS_WITH", "WORKS_WITH"},
			want:     common.DefaultRelationType,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			records := make([]common.RelationshipRecord, len(tc.types))
			for i, typ := range tc.types {
				records[i] = common.RelationshipRecord{RelationType: typ}
			}
			got := resolveRelationType(tc.policy, tc.existing, records)
			if got != tc.want {
				t.Errorf("resolveRelationType(%v, %q, %v) = %q, want %q", tc.policy, tc.existing, tc.types, got, tc.want)
			}
		})
	}
}

func TestMergeNodeRecords(t *testing.T) {
	t.Parallel()

	existing := &common.Node{
		Name:           "ALAN TURING",
		Type:           "PERSON",
		Description:    "a mathematician",
		SourceChunkIDs: []string{"chunk-1"},
	}
	records := []common.EntityRecord{
		{Name: "ALAN TURING", Type: "PERSON", Description: "a codebreaker", SourceChunkID: "chunk-2"},
		{Name: "ALAN TURING", Type: "SCIENTIST", Description: "a codebreaker", SourceChunkID: "chunk-1"},
	}

	node := mergeNodeRecords(existing, "ALAN TURING", records)

	if node.Type != "PERSON" {
		t.Errorf("type = %q, want PERSON by majority", node.Type)
	}
	if node.Description != "a mathematician\na codebreaker" {
		t.Errorf("description = %q, want deduplicated concatenation", node.Description)
	}
	if !reflect.DeepEqual(node.SourceChunkIDs, []string{"chunk-1", "chunk-2"}) {
		t.Errorf("source chunk IDs = %v, want union", node.SourceChunkIDs)
	}
}

func TestMergeNodeRecordsIdempotent(t *testing.T) {
	t.Parallel()

	records := []common.EntityRecord{
		{Name: "ENIGMA", Type: "TECHNOLOGY", Description: "cipher machine", SourceChunkID: "chunk-1"},
	}

	first := mergeNodeRecords(nil, "ENIGMA", records)
	second := mergeNodeRecords(first, "ENIGMA", records)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-merge changed node: first %+v, second %+v", first, second)
	}
}

func TestMergeEdgeRecordsSumsWeight(t *testing.T) {
	t.Parallel()

	existing := &common.Edge{
		SourceID:       "A",
		TargetID:       "B",
		Description:    "first",
		Weight:         2,
		RelationType:   common.DefaultRelationType,
		SourceChunkIDs: []string{"chunk-1"},
	}
	records := []common.RelationshipRecord{
		{SourceName: "A", TargetName: "B", Description: "second", Weight: 3, RelationType: "WORKS_WITH", SourceChunkID: "chunk-2"},
	}

	edge := mergeEdgeRecords(existing, common.EdgeRef{Source: "A", Target: "B"}, RelationTypeMostFrequent, records)

	if edge.Weight != 5 {
		t.Errorf("weight = %v, want 5 (sum of old and new)", edge.Weight)
	}
	if edge.RelationType != "WORKS_WITH" {
		t.Errorf("relation type = %q, want WORKS_WITH", edge.RelationType)
	}
	if !reflect.DeepEqual(edge.SourceChunkIDs, []string{"chunk-1", "chunk-2"}) {
		t.Errorf("source chunk IDs = %v, want union", edge.SourceChunkIDs)
	}
}
