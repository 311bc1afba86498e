package openai

import (
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultRequestTimeout = 3 * time.Minute

// Client implements ai.Client against an OpenAI-compatible API. Separate
// clients for chat and embeddings allow the two workloads to run against
// different endpoints.
//
// A Client should be created using NewClient.
type Client struct {
	chatModel       string
	extractionModel string
	embeddingModel  string

	requestTimeout time.Duration

	chatClient      *openai.Client
	embeddingClient *openai.Client
}

// NewClientParams defines the configuration parameters for creating a Client.
//
// ChatModel is used for answer generation, summaries and reports.
// ExtractionModel, when set, overrides ChatModel for extraction calls.
// EmbeddingURL/EmbeddingKey and ChatURL/ChatKey configure the two API
// endpoints independently; an empty URL means the public OpenAI API.
type NewClientParams struct {
	ChatModel       string
	ExtractionModel string
	EmbeddingModel  string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	RequestTimeout time.Duration
}

// NewClient creates a Client configured with the provided parameters.
func NewClient(params NewClientParams) *Client {
	timeout := params.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	extractionModel := params.ExtractionModel
	if extractionModel == "" {
		extractionModel = params.ChatModel
	}

	return &Client{
		chatModel:       params.ChatModel,
		extractionModel: extractionModel,
		embeddingModel:  params.EmbeddingModel,

		requestTimeout: timeout,

		chatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		embeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(baseURL, apiKey string) *openai.Client {
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
