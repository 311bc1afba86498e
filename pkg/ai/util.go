package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// GenerateSchema reflects a JSON Schema for the given value's type,
// suitable for structured-output requests. Additional properties are
// disallowed so the model cannot invent fields.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflector.Reflect(reflect.New(t).Interface())
}

// UnmarshalFlexible unmarshals model-generated JSON into out, tolerating
// the failure modes models actually produce: double-encoded JSON strings
// and slightly malformed JSON that a repair pass can fix.
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if json.Unmarshal([]byte(input), out) == nil {
		return nil
	}

	// Some models return the object wrapped in a JSON string literal.
	var inner string
	if json.Unmarshal([]byte(input), &inner) == nil {
		inner = strings.TrimSpace(inner)
		if json.Unmarshal([]byte(inner), out) == nil {
			return nil
		}
		input = inner
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w (repaired: %s)", err, repaired)
	}
	return nil
}
