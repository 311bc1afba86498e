package ollama

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"
)

// Embed creates dense embeddings for the given inputs in a single request,
// one vector per input in input order.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.client.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: inputs,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embedding result size mismatch: got %d want %d", len(res.Embeddings), len(inputs))
	}

	out := make([][]float32, len(res.Embeddings))
	for i, v := range res.Embeddings {
		vec := make([]float32, 0, len(v))
		for _, val := range v {
			vec = append(vec, float32(val))
		}
		out[i] = vec
	}
	return out, nil
}
