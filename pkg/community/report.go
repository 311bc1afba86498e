package community

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/ai"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/tokens"
)

const defaultReportMaxTokens = 4000

type reportResponse struct {
	Title   string  `json:"title" jsonschema_description:"Short name of the community naming its key entities"`
	Summary string  `json:"summary" jsonschema_description:"Executive summary of the community's structure and notable information"`
	Rating  float64 `json:"rating" jsonschema_description:"Float score between 0 and 10 rating the importance of the community"`
}

// Summarizer generates a natural-language report and an importance rating
// per community, packing member descriptions into a bounded prompt.
type Summarizer struct {
	client     ai.Client
	enc        *tokens.Encoder
	maxTokens  int
	maxRetries int
}

// NewSummarizerParams defines the configuration for creating a Summarizer.
type NewSummarizerParams struct {
	Client     ai.Client
	Encoder    *tokens.Encoder
	MaxTokens  int
	MaxRetries int
}

// NewSummarizer creates a Summarizer with the provided parameters.
func NewSummarizer(params NewSummarizerParams) *Summarizer {
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultReportMaxTokens
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Summarizer{
		client:     params.Client,
		enc:        params.Encoder,
		maxTokens:  maxTokens,
		maxRetries: maxRetries,
	}
}

// packContext renders the community's member nodes and edges into the
// report prompt context, bounded by the token budget. Members are added
// highest-degree first so a budget overrun drops the least central
// members, deterministically, and the community is flagged as truncated.
func (s *Summarizer) packContext(community *common.Community, snapshot *common.GraphSnapshot, degrees map[string]int) (string, bool) {
	nodeByName := make(map[string]*common.Node, len(snapshot.Nodes))
	for _, node := range snapshot.Nodes {
		nodeByName[node.Name] = node
	}
	edgeByRef := make(map[common.EdgeRef]*common.Edge, len(snapshot.Edges))
	for _, edge := range snapshot.Edges {
		edgeByRef[common.EdgeRef{Source: edge.SourceID, Target: edge.TargetID}] = edge
	}

	members := append([]string{}, community.NodeIDs...)
	sort.SliceStable(members, func(i, j int) bool {
		if degrees[members[i]] == degrees[members[j]] {
			return members[i] < members[j]
		}
		return degrees[members[i]] > degrees[members[j]]
	})

	var lines []string
	lines = append(lines, "Entities:")
	for _, name := range members {
		node := nodeByName[name]
		if node == nil {
			continue
		}
		// A node missing its description is packed with an empty field,
		// never skipped as fatal.
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", node.Name, node.Type, node.Description))
	}

	refs := append([]common.EdgeRef{}, community.EdgeRefs...)
	sort.SliceStable(refs, func(i, j int) bool {
		wi, wj := 0.0, 0.0
		if e := edgeByRef[refs[i]]; e != nil {
			wi = e.Weight
		}
		if e := edgeByRef[refs[j]]; e != nil {
			wj = e.Weight
		}
		if wi == wj {
			if refs[i].Source == refs[j].Source {
				return refs[i].Target < refs[j].Target
			}
			return refs[i].Source < refs[j].Source
		}
		return wi > wj
	})

	lines = append(lines, "Relationships:")
	for _, ref := range refs {
		edge := edgeByRef[ref]
		if edge == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s -> %s (%s): %s", edge.SourceID, edge.TargetID, edge.RelationType, edge.Description))
	}

	var b strings.Builder
	used := 0
	truncated := false
	for _, line := range lines {
		cost := s.enc.Count(line) + 1
		if used+cost > s.maxTokens {
			truncated = true
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
		used += cost
	}

	return b.String(), truncated
}

// Summarize fills in the community's report, rating and truncation flag
// with a single structured model call.
func (s *Summarizer) Summarize(ctx context.Context, community *common.Community, snapshot *common.GraphSnapshot, degrees map[string]int) error {
	packed, truncated := s.packContext(community, snapshot, degrees)
	community.Truncated = truncated
	if truncated {
		logger.Warn("[Community] Report context truncated to token budget", "community", community.ID, "budget", s.maxTokens)
	}

	prompt := fmt.Sprintf(ai.CommunityReportPrompt, packed)

	res, err := util.RetryWithContext(ctx, s.maxRetries, func(ctx context.Context) (reportResponse, error) {
		var out reportResponse
		err := s.client.CompleteWithFormat(
			ctx,
			"community_report",
			"Write a report about a community of entities in a knowledge graph.",
			prompt,
			&out,
		)
		return out, err
	})
	if err != nil {
		return fmt.Errorf("failed to generate report for community %s: %w", community.ID, err)
	}

	if res.Title != "" {
		community.Title = res.Title
	}
	community.Report = strings.TrimSpace(res.Title + "\n\n" + res.Summary)
	community.Rating = res.Rating

	return nil
}
