package ollama

import (
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const defaultRequestTimeout = 5 * time.Minute

// Client implements ai.Client against a locally-hosted Ollama server.
type Client struct {
	chatModel       string
	extractionModel string
	embeddingModel  string

	requestTimeout time.Duration
	reqLock        *semaphore.Weighted

	client *api.Client
}

// NewClientParams contains configuration options for creating an Ollama client.
type NewClientParams struct {
	ChatModel       string
	ExtractionModel string
	EmbeddingModel  string

	BaseURL string
	APIKey  string

	MaxConcurrentRequests int64
	RequestTimeout        time.Duration
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient creates an Ollama-backed AI client. It connects to the server
// at BaseURL (or the default if empty). Local models handle one request
// at a time poorly, so MaxConcurrentRequests bounds in-flight calls.
func NewClient(params NewClientParams) (*Client, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.APIKey,
			},
			rt: http.DefaultTransport,
		},
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

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
		reqLock:        semaphore.NewWeighted(maxConcurrent),

		client: api.NewClient(u, httpClient),
	}, nil
}

// ExtractionModel returns the model configured for extraction calls.
func (c *Client) ExtractionModel() string {
	return c.extractionModel
}
