package util

import (
	"reflect"
	"testing"
)

func TestSanitizeField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{
			name:  "plain value unchanged",
			value: "Alan Turing",
			want:  "Alan Turing",
		},
		{
			name:  "surrounding whitespace trimmed",
			value: "  Alan Turing  ",
			want:  "Alan Turing",
		},
		{
			name:  "surrounding quotes stripped",
			value: `"Alan Turing"`,
			want:  "Alan Turing",
		},
		{
			name:  "control characters removed",
			value: "Alan\x00Turing\x07",
			want:  "AlanTuring",
		},
		{
			name:  "empty input",
			value: "",
			want:  "",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeField(tc.value)
			if got != tc.want {
				t.Errorf("SanitizeField(%q) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}

func TestParseFloatOr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		def   float64
		want  float64
	}{
		{name: "numeric value", value: "2.5", def: 1, want: 2.5},
		{name: "integer value", value: "7", def: 1, want: 7},
		{name: "empty falls back", value: "", def: 1, want: 1},
		{name: "non-numeric falls back", value: "strong", def: 1, want: 1},
		{name: "whitespace trimmed", value: " 3 ", def: 1, want: 3},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := ParseFloatOr(tc.value, tc.def)
			if got != tc.want {
				t.Errorf("ParseFloatOr(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.want)
			}
		})
	}
}

func TestDedupeStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "nil input",
			in:   nil,
			want: nil,
		},
		{
			name: "duplicates removed first seen order",
			in:   []string{"b", "a", "b", "c", "a"},
			want: []string{"b", "a", "c"},
		},
		{
			name: "empty strings dropped",
			in:   []string{"", "a", ""},
			want: []string{"a"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := DedupeStrings(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("DedupeStrings(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
