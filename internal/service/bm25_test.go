package service

import (
	"errors"
	"testing"

	"github.com/jharjadi/doc-context/internal/model"
)

func textChunks(texts ...string) []model.Chunk {
	chunks := make([]model.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = model.Chunk{Index: i, Text: t, TokenCount: wordTokenizer{}.Count(t)}
	}
	return chunks
}

func TestRankKeyword_Empty(t *testing.T) {
	if _, err := RankKeyword(nil, "query", 5); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestRankKeyword_MatchRanksFirst(t *testing.T) {
	chunks := textChunks(
		"the cat sat on the mat",
		"Dogs chase cats in the park",
		"birds fly over the lake",
	)

	ranked, err := RankKeyword(chunks, "dogs", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	if ranked[0].Chunk.Index != 1 {
		t.Errorf("expected chunk 1 first, got %d", ranked[0].Chunk.Index)
	}
	if ranked[0].Score <= 0 {
		t.Errorf("expected positive score, got %f", ranked[0].Score)
	}
	if ranked[1].Score != 0 || ranked[2].Score != 0 {
		t.Errorf("expected zero scores for non-matching chunks, got %f and %f", ranked[1].Score, ranked[2].Score)
	}
}

func TestRankKeyword_TiesKeepDocumentOrder(t *testing.T) {
	chunks := textChunks("alpha", "beta", "gamma")

	ranked, err := RankKeyword(chunks, "zebra", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, rc := range ranked {
		if rc.Chunk.Index != i {
			t.Errorf("position %d: expected chunk %d, got %d", i, i, rc.Chunk.Index)
		}
		if rc.Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, rc.Rank)
		}
	}
}

func TestRankKeyword_TopKClamp(t *testing.T) {
	chunks := textChunks("a b", "b c", "c d")

	ranked, _ := RankKeyword(chunks, "b", 10)
	if len(ranked) != 3 {
		t.Errorf("expected 3 results, got %d", len(ranked))
	}
	ranked, _ = RankKeyword(chunks, "b", 1)
	if len(ranked) != 1 {
		t.Errorf("expected 1 result, got %d", len(ranked))
	}
}
