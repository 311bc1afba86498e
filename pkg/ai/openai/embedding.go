package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
)

// Embed creates dense embeddings for the given inputs in a single request,
// returning one vector per input in input order. Blank inputs are sent
// as-is; the caller decides what empty content means.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	res, err := c.embeddingClient.Embeddings.New(rCtx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: inputs,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(res.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding result size mismatch: got %d want %d", len(res.Data), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for _, d := range res.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}
