package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/ai"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
)

// DefaultEntityTypes are used when no custom entity types are configured.
var DefaultEntityTypes = []string{
	"ORGANIZATION", "PERSON", "LOCATION", "CONCEPT", "CREATIVE_WORK", "DATE", "PRODUCT", "EVENT",
}

const defaultMaxGleanRounds = 1

// Gleaning loop states. The loop is an explicit bounded state machine:
// INITIAL issues the first extraction pass, GLEANING asks for additional
// records while the model keeps signaling continuation, DONE stops either
// on a negative signal or once the round cap is reached.
type gleanState int

const (
	stateInitial gleanState = iota
	stateGleaning
	stateDone
)

// Result holds the per-chunk extraction output, deduplicated within the
// chunk: one EntityRecord per canonical name and one RelationshipRecord
// per ordered endpoint pair.
type Result struct {
	Entities      map[string]*common.EntityRecord
	Relationships map[common.EdgeRef]*common.RelationshipRecord
}

// Extractor drives a language model over chunks through a bounded gleaning
// loop. Chunks are independent; Extract may be called concurrently from
// any number of goroutines.
type Extractor struct {
	client         ai.Client
	model          string
	entityTypes    []string
	maxGleanRounds int
	maxRetries     int
}

// NewExtractorParams defines the configuration for creating an Extractor.
//
// Model overrides the client's default chat model for extraction calls.
// MaxGleanRounds caps the number of continuation rounds per chunk
// regardless of how often the model signals "continue".
type NewExtractorParams struct {
	Client         ai.Client
	Model          string
	EntityTypes    []string
	MaxGleanRounds int
	MaxRetries     int
}

// NewExtractor creates an Extractor with the provided parameters.
func NewExtractor(params NewExtractorParams) *Extractor {
	entityTypes := params.EntityTypes
	if len(entityTypes) == 0 {
		entityTypes = DefaultEntityTypes
	}
	maxGleanRounds := params.MaxGleanRounds
	if maxGleanRounds < 0 {
		maxGleanRounds = defaultMaxGleanRounds
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Extractor{
		client:         params.Client,
		model:          params.Model,
		entityTypes:    entityTypes,
		maxGleanRounds: maxGleanRounds,
		maxRetries:     maxRetries,
	}
}

func (e *Extractor) complete(ctx context.Context, prompt string, history []ai.Message) (string, error) {
	opts := []ai.GenerateOption{}
	if e.model != "" {
		opts = append(opts, ai.WithModel(e.model))
	}
	if len(history) > 0 {
		opts = append(opts, ai.WithHistory(history))
	}
	return util.RetryWithContext(ctx, e.maxRetries, func(ctx context.Context) (string, error) {
		return e.client.Complete(ctx, prompt, opts...)
	})
}

// shouldContinue asks the model whether a further gleaning round is
// worthwhile. The check turn is issued with the loop's history attached
// but is not persisted into it.
func (e *Extractor) shouldContinue(ctx context.Context, history []ai.Message) bool {
	answer, err := e.complete(ctx, ai.GleanCheckPrompt, history)
	if err != nil {
		logger.Warn("[Extract] Gleaning continuation check failed, stopping loop", "err", err)
		return false
	}
	answer = strings.ToUpper(strings.TrimSpace(answer))
	return strings.HasPrefix(answer, "YES")
}

// Extract runs the extraction loop for one chunk and returns the
// within-chunk deduplicated records. The conversation history of the
// chunk's loop is threaded through every continuation call so gleaning
// prompts retain their context.
func (e *Extractor) Extract(ctx context.Context, chunk common.Chunk) (*Result, error) {
	result := &Result{
		Entities:      make(map[string]*common.EntityRecord),
		Relationships: make(map[common.EdgeRef]*common.RelationshipRecord),
	}

	types := strings.Join(e.entityTypes, ",")
	prompt := fmt.Sprintf(ai.ExtractPrompt, types, types, chunk.Content)

	var history []ai.Message
	state := stateInitial
	round := 0

	for state != stateDone {
		var output string
		var err error

		switch state {
		case stateInitial:
			output, err = e.complete(ctx, prompt, nil)
			if err != nil {
				return nil, fmt.Errorf("initial extraction failed for chunk %s: %w", chunk.ID, err)
			}
			history = append(history,
				ai.Message{Role: ai.RoleUser, Content: prompt},
				ai.Message{Role: ai.RoleAssistant, Content: output},
			)
		case stateGleaning:
			output, err = e.complete(ctx, ai.GleanContinuePrompt, history)
			if err != nil {
				// Gleaning is best-effort on top of a successful initial
				// pass; keep what we have.
				logger.Warn("[Extract] Gleaning round failed", "chunk", chunk.ID, "round", round, "err", err)
				state = stateDone
				continue
			}
			history = append(history,
				ai.Message{Role: ai.RoleUser, Content: ai.GleanContinuePrompt},
				ai.Message{Role: ai.RoleAssistant, Content: output},
			)
		}

		entities, relations := parseOutput(output, chunk.ID)
		mergeIntoResult(result, entities, relations)

		if round >= e.maxGleanRounds {
			state = stateDone
			continue
		}
		round++

		if e.shouldContinue(ctx, history) {
			state = stateGleaning
		} else {
			state = stateDone
		}
	}

	logger.Debug("[Extract] Chunk extracted",
		"chunk", chunk.ID,
		"entities", len(result.Entities),
		"relationships", len(result.Relationships),
		"glean_rounds", round,
	)

	return result, nil
}

// mergeIntoResult folds newly parsed records into the per-chunk result.
// Records for the same canonical name (or the same directed pair) have
// their descriptions concatenated; summarization happens at merge time,
// not here. Relationship weights from repeated mentions accumulate.
func mergeIntoResult(result *Result, entities []common.EntityRecord, relations []common.RelationshipRecord) {
	for i := range entities {
		rec := entities[i]
		existing, ok := result.Entities[rec.Name]
		if !ok {
			result.Entities[rec.Name] = &rec
			continue
		}
		if rec.Description != "" {
			if existing.Description == "" {
				existing.Description = rec.Description
			} else if !strings.Contains(existing.Description, rec.Description) {
				existing.Description += "\n" + rec.Description
			}
		}
		if existing.Type == "" {
			existing.Type = rec.Type
		}
	}

	for i := range relations {
		rec := relations[i]
		key := common.EdgeRef{Source: rec.SourceName, Target: rec.TargetName}
		existing, ok := result.Relationships[key]
		if !ok {
			result.Relationships[key] = &rec
			continue
		}
		if rec.Description != "" {
			if existing.Description == "" {
				existing.Description = rec.Description
			} else if !strings.Contains(existing.Description, rec.Description) {
				existing.Description += "\n" + rec.Description
			}
		}
		existing.Weight += rec.Weight
		if existing.RelationType == common.DefaultRelationType && rec.RelationType != common.DefaultRelationType {
			existing.RelationType = rec.RelationType
		}
	}
}
