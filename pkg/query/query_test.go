package query

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/latticekg/lattice/pkg/ai"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/community"
	"github.com/latticekg/lattice/pkg/store"
	"github.com/latticekg/lattice/pkg/store/memory"
	"github.com/latticekg/lattice/pkg/tokens"
)

type fakeQueryClient struct {
	answer    string
	embedding []float32

	completeCalls int
	embedCalls    int
	lastPrompt    string
	systemPrompts []string
}

func (c *fakeQueryClient) Complete(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	c.completeCalls++
	c.lastPrompt = prompt
	var o ai.GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}
	c.systemPrompts = o.SystemPrompts
	return c.answer, nil
}

func (c *fakeQueryClient) CompleteWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return errors.New("unexpected CompleteWithFormat call")
}

func (c *fakeQueryClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	c.embedCalls++
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = c.embedding
	}
	return out, nil
}

func (c *fakeQueryClient) renderedContext(t *testing.T) string {
	t.Helper()
	if len(c.systemPrompts) != 1 {
		t.Fatalf("answer call carried %d system prompts, want 1", len(c.systemPrompts))
	}
	return c.systemPrompts[0]
}

type testEngine struct {
	engine   *Engine
	client   *fakeQueryClient
	graph    *memory.GraphStorage
	entities *memory.VectorStorage
	chunks   *memory.VectorStorage
	kv       *memory.KVStorage
	builder  *community.Builder
}

func newTestEngine(t *testing.T, opts ...Option) *testEngine {
	t.Helper()

	enc, err := tokens.NewEncoder("")
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	entities, err := memory.NewVectorStorage()
	if err != nil {
		t.Fatalf("NewVectorStorage() error = %v", err)
	}
	chunks, err := memory.NewVectorStorage()
	if err != nil {
		t.Fatalf("NewVectorStorage() error = %v", err)
	}

	te := &testEngine{
		client:   &fakeQueryClient{answer: "generated answer", embedding: []float32{1, 0, 0}},
		graph:    memory.NewGraphStorage(),
		entities: entities,
		chunks:   chunks,
		kv:       memory.NewKVStorage(),
	}
	te.builder = community.NewBuilder(nil, nil, te.kv)
	te.engine = NewEngine(te.client, te.graph, te.entities, te.chunks, te.kv, te.builder, enc, opts...)
	return te
}

func (te *testEngine) storeChunk(t *testing.T, id, content string) {
	t.Helper()
	data, err := json.Marshal(common.Chunk{ID: id, DocumentID: "doc-1", Content: content})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := te.kv.Upsert(context.Background(), store.NamespaceChunks, id, data); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func (te *testEngine) storeReport(t *testing.T, c *common.Community) {
	t.Helper()
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := te.kv.Upsert(context.Background(), store.NamespaceCommunityReports, c.ID, data); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := te.builder.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestPackLinesTruncatesOversizedLeadingLine(t *testing.T) {
	t.Parallel()

	enc, err := tokens.NewEncoder("")
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	long := strings.Repeat("alpha beta gamma delta ", 40)

	got := packLines(enc, []string{long, "short line"}, 10)
	if len(got) != 1 {
		t.Fatalf("packed %d lines, want 1 truncated line", len(got))
	}
	if got[0] == "" {
		t.Fatalf("oversized leading line was dropped instead of truncated")
	}
	if enc.Count(got[0]) > 10 {
		t.Errorf("truncated line costs %d tokens, budget is 10", enc.Count(got[0]))
	}
	if !strings.HasPrefix(long, got[0]) {
		t.Errorf("truncation did not keep a prefix of the line: %q", got[0])
	}
}

func TestPackLinesDropsOversizedLaterLines(t *testing.T) {
	t.Parallel()

	enc, err := tokens.NewEncoder("")
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	long := strings.Repeat("alpha beta gamma delta ", 40)

	got := packLines(enc, []string{"short line", long}, 20)
	want := []string{"short line"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("packLines() = %v, want %v", got, want)
	}
}

func TestQueryUnsupportedMode(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)

	_, err := te.engine.Query(context.Background(), Mode("graphiti"), "who is alice?")
	if !errors.Is(err, common.ErrUnsupportedMode) {
		t.Errorf("Query() error = %v, want ErrUnsupportedMode", err)
	}
	if te.client.completeCalls != 0 || te.client.embedCalls != 0 {
		t.Errorf("unsupported mode reached the model: %d complete, %d embed calls", te.client.completeCalls, te.client.embedCalls)
	}
}

func TestGlobalEmptyHierarchy(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)

	got, err := te.engine.Query(context.Background(), ModeGlobal, "what is this corpus about?")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got != InsufficientInfoAnswer {
		t.Errorf("Query() = %q, want the fixed insufficient-information answer", got)
	}
	if te.client.completeCalls != 0 {
		t.Errorf("empty hierarchy still called the model %d times", te.client.completeCalls)
	}
}

func TestGlobalPacksReportsByRating(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.storeReport(t, &common.Community{ID: "c0-0", Level: 0, Report: "Minor sideshow report.", Rating: 2})
	te.storeReport(t, &common.Community{ID: "c0-1", Level: 0, Report: "Central storyline report.", Rating: 9})
	te.storeReport(t, &common.Community{ID: "c0-2", Level: 0, Rating: 8}) // never summarized

	got, err := te.engine.Query(context.Background(), ModeGlobal, "what is this corpus about?")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got != "generated answer" {
		t.Errorf("Query() = %q, want the model answer", got)
	}
	if te.client.completeCalls != 1 {
		t.Fatalf("model answered %d times, want 1", te.client.completeCalls)
	}
	if te.client.lastPrompt != "what is this corpus about?" {
		t.Errorf("question sent to model = %q", te.client.lastPrompt)
	}

	rendered := te.client.renderedContext(t)
	central := strings.Index(rendered, "Central storyline report.")
	minor := strings.Index(rendered, "Minor sideshow report.")
	if central == -1 || minor == -1 {
		t.Fatalf("context is missing a report:\n%s", rendered)
	}
	if central > minor {
		t.Errorf("lower-rated report packed before higher-rated one:\n%s", rendered)
	}
}

func TestNaiveRetrievesChunks(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.storeChunk(t, "chunk-1", "Alice founded the observatory in 1899.")
	if err := te.chunks.Upsert(context.Background(), []store.VectorItem{
		{ID: "chunk-1", Content: "Alice founded the observatory in 1899.", Embedding: []float32{1, 0, 0}},
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := te.engine.Query(context.Background(), ModeNaive, "who founded the observatory?")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got != "generated answer" {
		t.Errorf("Query() = %q, want the model answer", got)
	}
	if te.client.embedCalls != 1 {
		t.Errorf("query embedded %d times, want 1", te.client.embedCalls)
	}

	rendered := te.client.renderedContext(t)
	if !strings.Contains(rendered, "Alice founded the observatory in 1899.") {
		t.Errorf("context is missing the retrieved chunk:\n%s", rendered)
	}
}

func TestNaiveEmptyIndex(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)

	got, err := te.engine.Query(context.Background(), ModeNaive, "who founded the observatory?")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got != InsufficientInfoAnswer {
		t.Errorf("Query() = %q, want the fixed insufficient-information answer", got)
	}
	if te.client.completeCalls != 0 {
		t.Errorf("empty context still called the model %d times", te.client.completeCalls)
	}
}

func TestNaiveSkipsCorruptChunks(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	// Indexed but with no stored payload, and indexed with empty content.
	te.storeChunk(t, "chunk-2", "")
	if err := te.chunks.Upsert(context.Background(), []store.VectorItem{
		{ID: "chunk-1", Content: "lost chunk", Embedding: []float32{1, 0, 0}},
		{ID: "chunk-2", Content: "empty chunk", Embedding: []float32{0.9, 0.1, 0}},
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := te.engine.Query(context.Background(), ModeNaive, "who founded the observatory?")
	if err != nil {
		t.Fatalf("Query() error = %v, want data-integrity holes to be non-fatal", err)
	}
	if got != InsufficientInfoAnswer {
		t.Errorf("Query() = %q, want the fixed answer once every chunk is excluded", got)
	}
}

func TestLocalAssemblesNeighborhood(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	ctx := context.Background()

	alice := &common.Node{Name: "ALICE", Type: "PERSON", Description: "An astronomer.", SourceChunkIDs: []string{"chunk-1"}}
	bob := &common.Node{Name: "BOB", Type: "PERSON", Description: "A patron."}
	if err := te.graph.UpsertNode(ctx, alice); err != nil {
		t.Fatalf("UpsertNode() error = %v", err)
	}
	if err := te.graph.UpsertNode(ctx, bob); err != nil {
		t.Fatalf("UpsertNode() error = %v", err)
	}
	if err := te.graph.UpsertEdge(ctx, &common.Edge{
		SourceID: "ALICE", TargetID: "BOB", Weight: 2,
		RelationType: "FUNDED_BY", Description: "Bob funded Alice's observatory.",
	}); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	if err := te.entities.Upsert(ctx, []store.VectorItem{
		{ID: "ALICE", Content: "ALICE\nAn astronomer.", Embedding: []float32{1, 0, 0}},
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	te.storeChunk(t, "chunk-1", "Alice founded the observatory in 1899.")
	te.storeReport(t, &common.Community{
		ID: "c0-0", Level: 0, NodeIDs: []string{"ALICE", "BOB"},
		Report: "Alice and her patrons.", Rating: 6,
	})

	got, err := te.engine.Query(ctx, ModeLocal, "who is alice?")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got != "generated answer" {
		t.Errorf("Query() = %q, want the model answer", got)
	}

	rendered := te.client.renderedContext(t)
	for _, fragment := range []string{
		"ALICE",
		"An astronomer.",
		"FUNDED_BY",
		"Alice and her patrons.",
		"Alice founded the observatory in 1899.",
	} {
		if !strings.Contains(rendered, fragment) {
			t.Errorf("context is missing %q:\n%s", fragment, rendered)
		}
	}
}

func TestLocalToleratesDanglingIndexEntries(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	ctx := context.Background()

	// The vector index references an entity the graph no longer holds.
	if err := te.entities.Upsert(ctx, []store.VectorItem{
		{ID: "GHOST", Content: "GHOST\nGone.", Embedding: []float32{1, 0, 0}},
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := te.engine.Query(ctx, ModeLocal, "who is ghost?")
	if err != nil {
		t.Fatalf("Query() error = %v, want dangling entries to be non-fatal", err)
	}
	if got != InsufficientInfoAnswer {
		t.Errorf("Query() = %q, want the fixed answer with no usable context", got)
	}
	if te.client.completeCalls != 0 {
		t.Errorf("empty context still called the model %d times", te.client.completeCalls)
	}
}
