package ai

import "context"

// Message roles for multi-turn conversations.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single turn in a chat conversation. History is
// passed to every continuation call in a gleaning loop; dropping it
// silently degrades extraction quality, so callers must thread the full
// message list through each round.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string    // Model identifier to use for generation
	SystemPrompts []string  // System prompts prepended to the request
	History       []Message // Prior conversation turns, oldest first
	Temperature   float64   // Sampling temperature (0.0-2.0)
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithHistory returns a GenerateOption that supplies prior conversation
// turns. The history is inserted between the system prompts and the
// current prompt in order.
func WithHistory(history []Message) GenerateOption {
	return func(o *GenerateOptions) {
		o.History = history
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// ExtractionModeler is implemented by clients that can run extraction on
// a dedicated model. The returned name is already resolved: when no
// dedicated extraction model is configured it is the chat model.
type ExtractionModeler interface {
	ExtractionModel() string
}

// Client defines the language-model operations used for graph construction
// and querying. Implementations must honor supplied history so gleaning
// continuations keep their conversational context, and serve both initial
// and continuation prompts through the same Complete method.
type Client interface {
	// Complete sends a single prompt (plus optional system prompts and
	// history) to the chat model and returns the generated text.
	Complete(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// CompleteWithFormat sends a prompt and unmarshals the structured
	// response into out, using a JSON schema derived from out's type to
	// constrain the model output.
	CompleteWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...GenerateOption) error

	// Embed creates dense vector embeddings for the given inputs, one
	// vector per input, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}
