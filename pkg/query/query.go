package query

import (
	"context"
	"fmt"

	"github.com/latticekg/lattice/pkg/ai"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/community"
	"github.com/latticekg/lattice/pkg/store"
	"github.com/latticekg/lattice/pkg/tokens"
)

// Mode selects the retrieval strategy for a query.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
	ModeNaive  Mode = "naive"
)

// InsufficientInfoAnswer is returned verbatim when no context could be
// assembled. It is a fixed response, not a model generation.
const InsufficientInfoAnswer = "I do not have enough information to answer this question."

// Budgets bounds each context section independently, in tokens.
type Budgets struct {
	Entities      int
	Relationships int
	Communities   int
	Chunks        int
}

// DefaultBudgets returns the per-section token budgets used when the
// caller does not override them.
func DefaultBudgets() Budgets {
	return Budgets{
		Entities:      2000,
		Relationships: 2000,
		Communities:   4000,
		Chunks:        4000,
	}
}

// Engine answers questions over the knowledge graph. Retrieval strategy
// is selected per call; hybrid retrieval is attempted only when enabled,
// otherwise vector lookups are dense-only.
type Engine struct {
	client    ai.Client
	graph     store.GraphStorage
	entities  store.VectorStorage
	chunks    store.VectorStorage
	kv        store.KVStorage
	hierarchy *community.Builder
	enc       *tokens.Encoder

	topK    int
	hybrid  bool
	budgets Budgets
	model   string
}

type Option func(*Engine)

// WithTopK overrides the retrieval candidate count.
func WithTopK(topK int) Option {
	return func(e *Engine) {
		if topK > 0 {
			e.topK = topK
		}
	}
}

// WithHybrid enables hybrid (dense plus sparse) retrieval for local and
// naive vector lookups.
func WithHybrid(hybrid bool) Option {
	return func(e *Engine) {
		e.hybrid = hybrid
	}
}

// WithBudgets overrides the per-section context token budgets.
func WithBudgets(budgets Budgets) Option {
	return func(e *Engine) {
		e.budgets = budgets
	}
}

// WithModel overrides the answer generation model.
func WithModel(model string) Option {
	return func(e *Engine) {
		e.model = model
	}
}

// NewEngine creates a query engine over the given collaborators.
func NewEngine(
	client ai.Client,
	graph store.GraphStorage,
	entities store.VectorStorage,
	chunks store.VectorStorage,
	kv store.KVStorage,
	hierarchy *community.Builder,
	enc *tokens.Encoder,
	opts ...Option,
) *Engine {
	e := &Engine{
		client:    client,
		graph:     graph,
		entities:  entities,
		chunks:    chunks,
		kv:        kv,
		hierarchy: hierarchy,
		enc:       enc,
		topK:      10,
		budgets:   DefaultBudgets(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Query answers the question using the given mode. An unsupported mode
// is a contract violation and fails immediately.
func (e *Engine) Query(ctx context.Context, mode Mode, question string) (string, error) {
	switch mode {
	case ModeLocal:
		return e.queryLocal(ctx, question)
	case ModeGlobal:
		return e.queryGlobal(ctx, question)
	case ModeNaive:
		return e.queryNaive(ctx, question)
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedMode, mode)
	}
}

// answer sends the assembled context plus the question to the model once
// and returns the response verbatim. An empty context short-circuits to
// the fixed insufficient-information answer without a model call.
func (e *Engine) answer(ctx context.Context, question string, queryContext *QueryContext) (string, error) {
	rendered := queryContext.Render()
	if rendered == "" {
		return InsufficientInfoAnswer, nil
	}

	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(fmt.Sprintf(ai.QueryPrompt, rendered)),
	}
	if e.model != "" {
		opts = append(opts, ai.WithModel(e.model))
	}

	resp, err := e.client.Complete(ctx, question, opts...)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return resp, nil
}

func (e *Engine) embedQuery(ctx context.Context, question string) ([]float32, error) {
	vectors, err := e.client.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding query: empty response")
	}
	return vectors[0], nil
}
