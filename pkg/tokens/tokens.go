package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when no encoding name is configured.
const DefaultEncoding = "cl100k_base"

// Encoder wraps a tiktoken encoding for token counting and truncation.
// All token budgets in the pipeline (chunking, description summarization,
// community packing, query context assembly) go through one Encoder so
// counts are consistent across stages.
type Encoder struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewEncoder creates an Encoder for the named tiktoken encoding.
func NewEncoder(name string) (*Encoder, error) {
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoding %q: %w", name, err)
	}
	return &Encoder{enc: enc, name: name}, nil
}

// Name returns the encoding name.
func (e *Encoder) Name() string {
	return e.name
}

// Count returns the number of tokens in text.
func (e *Encoder) Count(text string) int {
	return len(e.enc.Encode(text, nil, nil))
}

// Encode returns the token ids for text.
func (e *Encoder) Encode(text string) []int {
	return e.enc.Encode(text, nil, nil)
}

// Decode converts token ids back into text.
func (e *Encoder) Decode(ids []int) string {
	return e.enc.Decode(ids)
}

// Truncate returns text cut to at most maxTokens tokens. Text already
// within budget is returned unchanged.
func (e *Encoder) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	ids := e.enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return e.enc.Decode(ids[:maxTokens])
}
