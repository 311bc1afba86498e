package extract

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/latticekg/lattice/pkg/ai"
	"github.com/latticekg/lattice/pkg/common"
)

type recordedCall struct {
	prompt  string
	history []ai.Message
	model   string
}

// fakeClient replays scripted Complete responses and records every call.
type fakeClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []recordedCall
}

func (f *fakeClient) Complete(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	options := &ai.GenerateOptions{}
	for _, opt := range opts {
		opt(options)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{prompt: prompt, history: options.History, model: options.Model})

	idx := len(f.calls) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", errors.New("no scripted response")
}

func (f *fakeClient) CompleteWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return errors.New("not scripted")
}

func (f *fakeClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	vectors := make([][]float32, len(inputs))
	for i := range inputs {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func TestExtractSinglePass(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []string{
		`("entity"<|>Alan Turing<|>person<|>Mathematician)##<|COMPLETE|>`,
		"NO",
	}}
	e := NewExtractor(NewExtractorParams{Client: client, MaxGleanRounds: 1, MaxRetries: 1})

	result, err := e.Extract(context.Background(), common.Chunk{ID: "chunk-1", Content: "text"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(result.Entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(result.Entities))
	}
	if _, ok := result.Entities["ALAN TURING"]; !ok {
		t.Errorf("entity ALAN TURING missing from result: %+v", result.Entities)
	}

	// Initial pass plus one continuation check, no gleaning round.
	if len(client.calls) != 2 {
		t.Errorf("model called %d times, want 2", len(client.calls))
	}
}

func TestExtractUsesConfiguredModel(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []string{
		`("entity"<|>Alan Turing<|>person<|>Mathematician)##<|COMPLETE|>`,
		"YES",
		`("entity"<|>Enigma<|>technology<|>German cipher machine)##<|COMPLETE|>`,
	}}
	e := NewExtractor(NewExtractorParams{Client: client, Model: "small-model", MaxGleanRounds: 1, MaxRetries: 1})

	if _, err := e.Extract(context.Background(), common.Chunk{ID: "chunk-1", Content: "text"}); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	// Every call of the loop, including checks and continuations, must
	// request the extraction model.
	for i, call := range client.calls {
		if call.model != "small-model" {
			t.Errorf("call %d requested model %q, want %q", i, call.model, "small-model")
		}
	}
}

func TestExtractDefaultModelLeavesOptionUnset(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []string{
		`("entity"<|>Alan Turing<|>person<|>Mathematician)##<|COMPLETE|>`,
		"NO",
	}}
	e := NewExtractor(NewExtractorParams{Client: client, MaxGleanRounds: 1, MaxRetries: 1})

	if _, err := e.Extract(context.Background(), common.Chunk{ID: "chunk-1", Content: "text"}); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	for i, call := range client.calls {
		if call.model != "" {
			t.Errorf("call %d requested model %q, want the client default", i, call.model)
		}
	}
}

func TestExtractGleaningRound(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []string{
		`("entity"<|>Alan Turing<|>person<|>Mathematician)##<|COMPLETE|>`,
		"YES",
		`("entity"<|>Enigma<|>technology<|>German cipher machine)##<|COMPLETE|>`,
	}}
	e := NewExtractor(NewExtractorParams{Client: client, MaxGleanRounds: 1, MaxRetries: 1})

	result, err := e.Extract(context.Background(), common.Chunk{ID: "chunk-1", Content: "text"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(result.Entities) != 2 {
		t.Fatalf("got %d entities, want 2: %+v", len(result.Entities), result.Entities)
	}

	if len(client.calls) != 3 {
		t.Fatalf("model called %d times, want 3", len(client.calls))
	}

	// The check and the gleaning continuation must both carry the full
	// conversation so far.
	check := client.calls[1]
	if check.prompt != ai.GleanCheckPrompt {
		t.Errorf("second call prompt = %q, want glean check", check.prompt)
	}
	if len(check.history) != 2 {
		t.Errorf("check call history has %d turns, want 2", len(check.history))
	}

	glean := client.calls[2]
	if glean.prompt != ai.GleanContinuePrompt {
		t.Errorf("third call prompt = %q, want glean continuation", glean.prompt)
	}
	if len(glean.history) != 2 {
		t.Errorf("glean call history has %d turns, want 2", len(glean.history))
	}
	if len(glean.history) == 2 && glean.history[0].Role != ai.RoleUser {
		t.Errorf("history[0] role = %q, want user", glean.history[0].Role)
	}
}

func TestExtractGleaningBoundedDespiteEagerModel(t *testing.T) {
	t.Parallel()

	// A model that always answers YES must still stop at the round cap.
	client := &fakeClient{responses: []string{
		`("entity"<|>A<|>person<|>First)##<|COMPLETE|>`,
		"YES",
		`("entity"<|>B<|>person<|>Second)##<|COMPLETE|>`,
		"YES",
		`("entity"<|>C<|>person<|>Third)##<|COMPLETE|>`,
		"YES",
		`("entity"<|>D<|>person<|>Fourth)##<|COMPLETE|>`,
	}}
	e := NewExtractor(NewExtractorParams{Client: client, MaxGleanRounds: 2, MaxRetries: 1})

	result, err := e.Extract(context.Background(), common.Chunk{ID: "chunk-1", Content: "text"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	// Initial pass, check, glean, check, glean. The second gleaning round
	// hits the cap, so no third check happens.
	if len(client.calls) != 5 {
		t.Errorf("model called %d times, want 5", len(client.calls))
	}
	if len(result.Entities) != 3 {
		t.Errorf("got %d entities, want 3", len(result.Entities))
	}
}

func TestExtractInitialFailureSurfaces(t *testing.T) {
	t.Parallel()

	client := &fakeClient{errs: []error{errors.New("model down")}}
	e := NewExtractor(NewExtractorParams{Client: client, MaxRetries: 1})

	_, err := e.Extract(context.Background(), common.Chunk{ID: "chunk-1", Content: "text"})
	if err == nil {
		t.Fatal("Extract returned nil error, want failure")
	}
	if !errors.Is(err, common.ErrRetriesExhausted) {
		t.Errorf("error = %v, want ErrRetriesExhausted", err)
	}
}

func TestExtractGleaningFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		responses: []string{
			`("entity"<|>Alan Turing<|>person<|>Mathematician)##<|COMPLETE|>`,
			"YES",
			"",
		},
		errs: []error{nil, nil, errors.New("model down")},
	}
	e := NewExtractor(NewExtractorParams{Client: client, MaxGleanRounds: 1, MaxRetries: 1})

	result, err := e.Extract(context.Background(), common.Chunk{ID: "chunk-1", Content: "text"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(result.Entities) != 1 {
		t.Errorf("got %d entities, want 1 from the initial pass", len(result.Entities))
	}
}

func TestMergeIntoResultAccumulatesWeight(t *testing.T) {
	t.Parallel()

	result := &Result{
		Entities:      make(map[string]*common.EntityRecord),
		Relationships: make(map[common.EdgeRef]*common.RelationshipRecord),
	}

	rel := common.RelationshipRecord{
		SourceName: "A", TargetName: "B", Description: "first mention",
		Weight: 2, RelationType: common.DefaultRelationType, SourceChunkID: "chunk-1",
	}
	mergeIntoResult(result, nil, []common.RelationshipRecord{rel})

	rel2 := rel
	rel2.Description = "second mention"
	rel2.Weight = 3
	rel2.RelationType = "WORKS_WITH"
	mergeIntoResult(result, nil, []common.RelationshipRecord{rel2})

	got := result.Relationships[common.EdgeRef{Source: "A", Target: "B"}]
	if got == nil {
		t.Fatal("relationship A->B missing")
	}
	if got.Weight != 5 {
		t.Errorf("weight = %v, want 5", got.Weight)
	}
	if got.RelationType != "WORKS_WITH" {
		t.Errorf("relation type = %q, want WORKS_WITH over the default", got.RelationType)
	}
}
