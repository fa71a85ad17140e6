package service

import (
	"math"
	"strings"

	"github.com/jharjadi/doc-context/internal/model"
)

// ChunkSeparator is placed between selected chunks in an assembled excerpt.
const ChunkSeparator = "\n\n---\n\n"

// FormatExcerpt joins selected chunks, already in document order, with ChunkSeparator.
func FormatExcerpt(selected []model.RankedCandidate) string {
	var sb strings.Builder
	for i, rc := range selected {
		if i > 0 {
			sb.WriteString(ChunkSeparator)
		}
		sb.WriteString(rc.Chunk.Text)
	}
	return sb.String()
}

// ChunkUsages reports index, tokens and score (rounded to 4 places) per selected chunk.
func ChunkUsages(selected []model.RankedCandidate) []model.ChunkUsage {
	out := make([]model.ChunkUsage, len(selected))
	for i, rc := range selected {
		out[i] = model.ChunkUsage{
			Index:  rc.Chunk.Index,
			Tokens: rc.Chunk.TokenCount,
			Score:  math.Round(rc.Score*10000) / 10000,
		}
	}
	return out
}
