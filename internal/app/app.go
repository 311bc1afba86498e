// Package app assembles the pipeline and query engine from environment
// configuration. The server and the worker share this wiring.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/ai"
	ollamaai "github.com/latticekg/lattice/pkg/ai/ollama"
	openaiai "github.com/latticekg/lattice/pkg/ai/openai"
	"github.com/latticekg/lattice/pkg/chunker"
	"github.com/latticekg/lattice/pkg/community"
	"github.com/latticekg/lattice/pkg/extract"
	"github.com/latticekg/lattice/pkg/graph"
	"github.com/latticekg/lattice/pkg/lattice"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/query"
	"github.com/latticekg/lattice/pkg/store"
	memstore "github.com/latticekg/lattice/pkg/store/memory"
	pgstore "github.com/latticekg/lattice/pkg/store/pgx"
	"github.com/latticekg/lattice/pkg/tokens"
)

// Vector collection names.
const (
	EntityCollection = "entities"
	ChunkCollection  = "chunks"
)

// App holds the assembled components.
type App struct {
	AI       ai.Client
	Graph    store.GraphStorage
	Entities store.VectorStorage
	Chunks   store.VectorStorage
	KV       store.KVStorage
	Encoder  *tokens.Encoder
	Builder  *community.Builder
	Pipeline *lattice.Pipeline
	Engine   *query.Engine

	// DB is nil when the memory store adapter is selected.
	DB *pgxpool.Pool
}

// InitFromEnv builds the full application from environment variables.
// The community hierarchy is restored from storage so queries work
// immediately after a restart.
func InitFromEnv(ctx context.Context) (*App, error) {
	aiClient, err := newAIClient()
	if err != nil {
		return nil, err
	}

	a := &App{AI: aiClient}
	if err := a.initStores(ctx); err != nil {
		return nil, err
	}

	enc, err := tokens.NewEncoder(util.GetEnvString("TOKEN_ENCODING", ""))
	if err != nil {
		return nil, fmt.Errorf("creating token encoder: %w", err)
	}
	a.Encoder = enc

	chunk := chunker.New(enc,
		util.GetEnvInt("CHUNK_MAX_TOKENS", 0),
		util.GetEnvInt("CHUNK_OVERLAP", -1),
	)

	extractor := extract.NewExtractor(extract.NewExtractorParams{
		Client:         aiClient,
		Model:          extractionModel(aiClient),
		MaxGleanRounds: util.GetEnvInt("EXTRACT_MAX_GLEANS", -1),
	})

	merger := graph.NewMerger(graph.NewMergerParams{
		Graph:              a.Graph,
		EntityVectors:      a.Entities,
		Client:             aiClient,
		Encoder:            enc,
		SummarizeThreshold: util.GetEnvInt("MERGE_SUMMARIZE_THRESHOLD", 0),
		RelationTypePolicy: graph.RelationTypePolicy(util.GetEnvString("MERGE_RELATION_TYPE_POLICY", "")),
	})

	detector := community.NewLabelPropagation(int64(util.GetEnvInt("COMMUNITY_SEED", 42)))
	summarizer := community.NewSummarizer(community.NewSummarizerParams{
		Client:    aiClient,
		Encoder:   enc,
		MaxTokens: util.GetEnvInt("COMMUNITY_REPORT_MAX_TOKENS", 0),
	})
	a.Builder = community.NewBuilder(detector, summarizer, a.KV)
	if err := a.Builder.Load(ctx); err != nil {
		logger.Warn("Failed to restore community hierarchy", "err", err)
	}

	a.Pipeline = lattice.NewPipeline(lattice.NewPipelineParams{
		Chunker:     chunk,
		Extractor:   extractor,
		Merger:      merger,
		Builder:     a.Builder,
		Graph:       a.Graph,
		Chunks:      a.Chunks,
		KV:          a.KV,
		Embed:       aiClient.Embed,
		Concurrency: util.GetEnvInt("EXTRACT_CONCURRENCY", 0),
	})

	a.Engine = query.NewEngine(
		aiClient, a.Graph, a.Entities, a.Chunks, a.KV, a.Builder, enc,
		query.WithTopK(util.GetEnvInt("QUERY_TOP_K", 0)),
		query.WithHybrid(util.GetEnvBool("HYBRID_RETRIEVAL", false)),
	)

	return a, nil
}

// Close releases held connections.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// extractionModel resolves the model the extractor should request,
// typically a cheaper one than the answer-generation model. Clients
// without a dedicated extraction model stay on their default.
func extractionModel(client ai.Client) string {
	if em, ok := client.(ai.ExtractionModeler); ok {
		return em.ExtractionModel()
	}
	return ""
}

func newAIClient() (ai.Client, error) {
	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		return ollamaai.NewClient(ollamaai.NewClientParams{
			ChatModel:       util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			BaseURL:         util.GetEnv("AI_CHAT_URL"),
			APIKey:          util.GetEnv("AI_CHAT_KEY"),
		})
	default:
		return openaiai.NewClient(openaiai.NewClientParams{
			ChatModel:       util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			ChatURL:         util.GetEnv("AI_CHAT_URL"),
			ChatKey:         util.GetEnv("AI_CHAT_KEY"),
			EmbeddingURL:    util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey:    util.GetEnv("AI_EMBED_KEY"),
		}), nil
	}
}

func (a *App) initStores(ctx context.Context) error {
	switch util.GetEnvString("STORE_ADAPTER", "postgres") {
	case "memory":
		entities, err := memstore.NewVectorStorage()
		if err != nil {
			return err
		}
		chunks, err := memstore.NewVectorStorage()
		if err != nil {
			return err
		}
		a.Graph = memstore.NewGraphStorage()
		a.Entities = entities
		a.Chunks = chunks
		a.KV = memstore.NewKVStorage()
		return nil
	default:
		databaseURL := util.GetEnv("DATABASE_URL")
		if err := pgstore.Migrate(databaseURL); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		pool, err := pgstore.Connect(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		a.DB = pool
		a.Graph = pgstore.NewGraphStorage(pool)
		a.Entities = pgstore.NewVectorStorage(pool, EntityCollection)
		a.Chunks = pgstore.NewVectorStorage(pool, ChunkCollection)
		a.KV = pgstore.NewKVStorage(pool)
		return nil
	}
}
