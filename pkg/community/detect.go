package community

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/latticekg/lattice/pkg/common"
)

// Detector clusters a graph snapshot into a community hierarchy. An
// implementation must be deterministic given a fixed seed and snapshot,
// must produce non-overlapping communities at each level, and must
// compose every level-(n+1) community out of whole level-n communities —
// a level-n community is never split across two parents.
type Detector interface {
	Detect(snapshot *common.GraphSnapshot) ([]*common.Community, error)
}

const (
	defaultMaxIterations = 20
	maxTitleMembers      = 3
)

// LabelPropagation is the default Detector: seeded, weight-aware label
// propagation over the snapshot, applied once for the leaf level and once
// more over the leaf supergraph for the parent level.
type LabelPropagation struct {
	seed          int64
	maxIterations int
}

// NewLabelPropagation creates the default detector with the given seed.
func NewLabelPropagation(seed int64) *LabelPropagation {
	return &LabelPropagation{
		seed:          seed,
		maxIterations: defaultMaxIterations,
	}
}

// propagate runs label propagation over nodes 0..n-1 with the given
// symmetric weight lookup and returns a label per node. Node visit order
// is shuffled once from the seed, then fixed, so results are reproducible.
func (d *LabelPropagation) propagate(n int, neighbors [][]int, weight func(a, b int) float64) []int {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(d.seed))
	rng.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	for iter := 0; iter < d.maxIterations; iter++ {
		changed := false
		for _, node := range order {
			votes := make(map[int]float64)
			for _, nb := range neighbors[node] {
				votes[labels[nb]] += weight(node, nb)
			}
			if len(votes) == 0 {
				continue
			}

			best := labels[node]
			bestVote := votes[best]
			for label, vote := range votes {
				if vote > bestVote || (vote == bestVote && label < best) {
					best = label
					bestVote = vote
				}
			}
			if best != labels[node] {
				labels[node] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return labels
}

// Detect clusters the snapshot into a two-level hierarchy: leaf
// communities at level 0 and their groupings at level 1. The parent level
// is only emitted when it actually coarsens the leaves.
func (d *LabelPropagation) Detect(snapshot *common.GraphSnapshot) ([]*common.Community, error) {
	if snapshot == nil || len(snapshot.Nodes) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(snapshot.Nodes))
	for _, node := range snapshot.Nodes {
		names = append(names, node.Name)
	}
	sort.Strings(names)
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	// Clustering treats the graph as undirected: both directions of a
	// pair contribute to the same symmetric weight.
	weights := make(map[[2]int]float64)
	neighborSet := make([]map[int]struct{}, len(names))
	for i := range neighborSet {
		neighborSet[i] = make(map[int]struct{})
	}
	for _, edge := range snapshot.Edges {
		a, okA := index[edge.SourceID]
		b, okB := index[edge.TargetID]
		if !okA || !okB || a == b {
			continue
		}
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		weights[[2]int{lo, hi}] += edge.Weight
		neighborSet[a][b] = struct{}{}
		neighborSet[b][a] = struct{}{}
	}

	neighbors := make([][]int, len(names))
	for i, set := range neighborSet {
		for nb := range set {
			neighbors[i] = append(neighbors[i], nb)
		}
		sort.Ints(neighbors[i])
	}

	pairWeight := func(a, b int) float64 {
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		return weights[[2]int{lo, hi}]
	}

	leafLabels := d.propagate(len(names), neighbors, pairWeight)
	leafGroups := groupByLabel(leafLabels)

	leaves := make([]*common.Community, 0, len(leafGroups))
	memberLeaf := make([]int, len(names))
	for ci, group := range leafGroups {
		community := buildCommunity(0, ci, group, names, snapshot.Edges, index)
		for _, member := range group {
			memberLeaf[member] = ci
		}
		leaves = append(leaves, community)
	}

	if len(leaves) <= 1 {
		return leaves, nil
	}

	// Supergraph over the leaves: edge weights between leaf communities
	// are the summed weights of their members' cross-community pairs.
	superWeights := make(map[[2]int]float64)
	superNeighborSet := make([]map[int]struct{}, len(leaves))
	for i := range superNeighborSet {
		superNeighborSet[i] = make(map[int]struct{})
	}
	for pair, w := range weights {
		ca, cb := memberLeaf[pair[0]], memberLeaf[pair[1]]
		if ca == cb {
			continue
		}
		lo, hi := ca, cb
		if lo > hi {
			lo, hi = hi, lo
		}
		superWeights[[2]int{lo, hi}] += w
		superNeighborSet[ca][cb] = struct{}{}
		superNeighborSet[cb][ca] = struct{}{}
	}

	superNeighbors := make([][]int, len(leaves))
	for i, set := range superNeighborSet {
		for nb := range set {
			superNeighbors[i] = append(superNeighbors[i], nb)
		}
		sort.Ints(superNeighbors[i])
	}

	superPairWeight := func(a, b int) float64 {
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		return superWeights[[2]int{lo, hi}]
	}

	parentLabels := d.propagate(len(leaves), superNeighbors, superPairWeight)
	parentGroups := groupByLabel(parentLabels)
	if len(parentGroups) >= len(leaves) {
		return leaves, nil
	}

	communities := leaves
	for pi, group := range parentGroups {
		var members []int
		var subIDs []string
		for _, leafIdx := range group {
			subIDs = append(subIDs, leaves[leafIdx].ID)
			for _, name := range leaves[leafIdx].NodeIDs {
				members = append(members, index[name])
			}
		}
		parent := buildCommunity(1, pi, members, names, snapshot.Edges, index)
		sort.Strings(subIDs)
		parent.SubCommunities = subIDs
		communities = append(communities, parent)
	}

	return communities, nil
}

// groupByLabel groups member indexes by label, ordered deterministically
// by each group's smallest member index.
func groupByLabel(labels []int) [][]int {
	byLabel := make(map[int][]int)
	for member, label := range labels {
		byLabel[label] = append(byLabel[label], member)
	}

	groups := make([][]int, 0, len(byLabel))
	for _, group := range byLabel {
		sort.Ints(group)
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0] < groups[j][0]
	})
	return groups
}

func buildCommunity(level, ordinal int, members []int, names []string, edges []*common.Edge, index map[string]int) *common.Community {
	memberSet := make(map[int]struct{}, len(members))
	nodeIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberSet[m] = struct{}{}
		nodeIDs = append(nodeIDs, names[m])
	}
	sort.Strings(nodeIDs)

	var refs []common.EdgeRef
	for _, edge := range edges {
		a, okA := index[edge.SourceID]
		b, okB := index[edge.TargetID]
		if !okA || !okB {
			continue
		}
		if _, in := memberSet[a]; !in {
			continue
		}
		if _, in := memberSet[b]; !in {
			continue
		}
		refs = append(refs, common.EdgeRef{Source: edge.SourceID, Target: edge.TargetID})
	}

	titleMembers := nodeIDs
	if len(titleMembers) > maxTitleMembers {
		titleMembers = titleMembers[:maxTitleMembers]
	}

	return &common.Community{
		ID:       fmt.Sprintf("c%d-%d", level, ordinal),
		Level:    level,
		Title:    strings.Join(titleMembers, ", "),
		NodeIDs:  nodeIDs,
		EdgeRefs: refs,
	}
}
