package openai

import (
	"context"
	"fmt"

	"github.com/latticekg/lattice/pkg/ai"

	"github.com/openai/openai-go/v3"
)

func (c *Client) buildMessages(prompt string, options ai.GenerateOptions) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.SystemPrompts)+len(options.History)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	for _, m := range options.History {
		switch m.Role {
		case ai.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt))
	return msgs
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

	rCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    c.buildMessages(prompt, options),
		Temperature: openai.Float(options.Temperature),
	}

	response, err := c.chatClient.Chat.Completions.New(rCtx, body)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return response.Choices[0].Message.Content, nil
}

// CompleteWithFormat sends a prompt to the chat model and unmarshals the
// response into out, using a JSON schema derived from out's type to
// enforce structure.
func (c *Client) CompleteWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	schema := ai.GenerateSchema(out)
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	rCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(options.Model),
		Messages: c.buildMessages(prompt, options),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Temperature: openai.Float(options.Temperature),
	}

	response, err := c.chatClient.Chat.Completions.New(rCtx, body)
	if err != nil {
		return err
	}
	if len(response.Choices) == 0 {
		return fmt.Errorf("chat completion returned no choices")
	}

	return ai.UnmarshalFlexible(response.Choices[0].Message.Content, out)
}

// ExtractionModel returns the model configured for extraction calls.
// Callers pass it through ai.WithModel when running the gleaning loop.
func (c *Client) ExtractionModel() string {
	return c.extractionModel
}
