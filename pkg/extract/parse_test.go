package extract

import (
	"reflect"
	"testing"

	"github.com/latticekg/lattice/pkg/common"
)

func TestNormalizeEntityName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "upper cased", value: "Alan Turing", want: "ALAN TURING"},
		{name: "whitespace collapsed", value: "  Alan \t Turing ", want: "ALAN TURING"},
		{name: "quotes stripped", value: `"Alan Turing"`, want: "ALAN TURING"},
		{name: "empty", value: "", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeEntityName(tc.value)
			if got != tc.want {
				t.Errorf("NormalizeEntityName(%q) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}

func TestParseOutput(t *testing.T) {
	t.Parallel()

	output := `("entity"<|>Alan Turing<|>person<|>Mathematician and computer scientist)##
("entity"<|>Bletchley Park<|>location<|>British codebreaking centre)##
("relationship"<|>Alan Turing<|>Bletchley Park<|>Worked at during the war<|>WORKED_AT<|>8)##
<|COMPLETE|>`

	entities, relations := parseOutput(output, "chunk-1")

	wantEntities := []common.EntityRecord{
		{Name: "ALAN TURING", Type: "PERSON", Description: "Mathematician and computer scientist", SourceChunkID: "chunk-1"},
		{Name: "BLETCHLEY PARK", Type: "LOCATION", Description: "British codebreaking centre", SourceChunkID: "chunk-1"},
	}
	if !reflect.DeepEqual(entities, wantEntities) {
		t.Errorf("entities = %+v, want %+v", entities, wantEntities)
	}

	wantRelations := []common.RelationshipRecord{
		{
			SourceName:    "ALAN TURING",
			TargetName:    "BLETCHLEY PARK",
			Description:   "Worked at during the war",
			Weight:        8,
			RelationType:  "WORKED_AT",
			SourceChunkID: "chunk-1",
		},
	}
	if !reflect.DeepEqual(relations, wantRelations) {
		t.Errorf("relations = %+v, want %+v", relations, wantRelations)
	}
}

func TestParseOutputSkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	// Malformed records interleaved with valid ones must be skipped
	// without dropping the rest of the pass.
	output := `("entity"<|>Alan Turing<|>person<|>Mathematician)##
("entity"<|>missing fields)##
garbage line with no structure##
("relationship"<|>only one endpoint)##
("entity"<|><|>person<|>no name)##
("relationship"<|>Alan Turing<|>Enigma<|>Broke the cipher<|>ANALYZED<|>not-a-number)##
<|COMPLETE|>`

	entities, relations := parseOutput(output, "chunk-1")

	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1: %+v", len(entities), entities)
	}
	if entities[0].Name != "ALAN TURING" {
		t.Errorf("entity name = %q, want ALAN TURING", entities[0].Name)
	}

	if len(relations) != 1 {
		t.Fatalf("got %d relations, want 1: %+v", len(relations), relations)
	}
	if relations[0].Weight != DefaultWeight {
		t.Errorf("non-numeric weight = %v, want default %v", relations[0].Weight, DefaultWeight)
	}
}

func TestParseOutputDefaultsRelationType(t *testing.T) {
	t.Parallel()

	output := `("relationship"<|>A<|>B<|>Some connection)`

	_, relations := parseOutput(output, "chunk-1")
	if len(relations) != 1 {
		t.Fatalf("got %d relations, want 1", len(relations))
	}
	if relations[0].RelationType != common.DefaultRelationType {
		t.Errorf("relation type = %q, want default %q", relations[0].RelationType, common.DefaultRelationType)
	}
	if relations[0].Weight != DefaultWeight {
		t.Errorf("weight = %v, want default %v", relations[0].Weight, DefaultWeight)
	}
}
