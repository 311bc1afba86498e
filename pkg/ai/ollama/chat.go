package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/latticekg/lattice/pkg/ai"

	"github.com/ollama/ollama/api"
)

func (c *Client) buildMessages(prompt string, options ai.GenerateOptions) []api.Message {
	msgs := make([]api.Message, 0, len(options.SystemPrompts)+len(options.History)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	for _, m := range options.History {
		role := "user"
		if m.Role == ai.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Content})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})
	return msgs
}

func (c *Client) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	rCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var content string
	err := c.client.Chat(rCtx, req, func(cr api.ChatResponse) error {
		content += cr.Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Complete sends a prompt to the chat model and returns the generated
// completion as plain text. System prompts and conversation history
// supplied via options are prepended to the request in order.
func (c *Client) Complete(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.3,
	}
	for _, o := range opts {
		o(&options)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: c.buildMessages(prompt, options),
		Stream:   &stream,
		Options: map[string]any{
			"temperature": options.Temperature,
		},
	}

	return c.chat(ctx, req)
}

// CompleteWithFormat sends a prompt and unmarshals the structured response
// into out, constraining the model output with a JSON schema derived from
// out's type.
func (c *Client) CompleteWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	schema, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return fmt.Errorf("failed to marshal output schema for %s: %w", name, err)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: c.buildMessages(prompt, options),
		Stream:   &stream,
		Format:   schema,
		Options: map[string]any{
			"temperature": options.Temperature,
		},
	}

	content, err := c.chat(ctx, req)
	if err != nil {
		return err
	}

	return ai.UnmarshalFlexible(content, out)
}
