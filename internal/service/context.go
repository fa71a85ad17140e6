package service

import (
	"sort"

	"github.com/jharjadi/doc-context/internal/model"
)

// SelectWithinBudget greedily accepts ranked candidates in rank order while
// the running total stays within ceiling, stopping at the first candidate that
// does not fit. separatorTokens is charged for every accepted chunk after the
// first. The accepted chunks are returned in document order.
func SelectWithinBudget(ranked []model.RankedCandidate, ceiling, separatorTokens int) ([]model.RankedCandidate, int) {
	if ceiling <= 0 {
		return nil, 0
	}

	var selected []model.RankedCandidate
	totalTokens := 0

	for _, rc := range ranked {
		cost := rc.Chunk.TokenCount
		if len(selected) > 0 {
			cost += separatorTokens
		}
		if totalTokens+cost > ceiling {
			break
		}
		selected = append(selected, rc)
		totalTokens += cost
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Chunk.Index < selected[j].Chunk.Index
	})
	return selected, totalTokens
}

// DocumentOrder wraps chunks as candidates with uniform score 1.0 and ranks
// following document order. It is the no-query ranking.
func DocumentOrder(chunks []model.Chunk) []model.RankedCandidate {
	out := make([]model.RankedCandidate, len(chunks))
	for i, c := range chunks {
		out[i] = model.RankedCandidate{Chunk: c, Score: 1.0, Rank: i + 1}
	}
	return out
}
