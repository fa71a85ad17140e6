package service

import (
	"errors"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	c := NewChunker(wordTokenizer{}, nil)

	if chunks := c.Split("  \n\n\t ", 10, 2); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_OverlapAndOffsets(t *testing.T) {
	c := NewChunker(wordTokenizer{}, nil)
	text := "one two.\n\nthree four.\n\nfive six.\n\nseven eight."

	chunks := c.Split(text, 4, 2)
	want := []string{
		"one two. three four.",
		"three four. five six.",
		"five six. seven eight.",
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, ch.Index)
		}
		if ch.Text != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], ch.Text)
		}
		if ch.TokenCount != 4 {
			t.Errorf("chunk %d: expected 4 tokens, got %d", i, ch.TokenCount)
		}
		if ch.StartChar > ch.EndChar {
			t.Errorf("chunk %d: start %d after end %d", i, ch.StartChar, ch.EndChar)
		}
	}
	if chunks[0].StartChar != 0 || chunks[0].EndChar != 21 {
		t.Errorf("expected chunk 0 at [0,21), got [%d,%d)", chunks[0].StartChar, chunks[0].EndChar)
	}
	if chunks[1].StartChar != 10 {
		t.Errorf("expected chunk 1 to start at 10, got %d", chunks[1].StartChar)
	}
	if got := text[chunks[2].StartChar:chunks[2].EndChar]; got != "five six.\n\nseven eight." {
		t.Errorf("expected chunk 2 span to cover its sentences, got %q", got)
	}
}

func TestSplit_OversizedSentenceStandsAlone(t *testing.T) {
	c := NewChunker(wordTokenizer{}, nil)

	chunks := c.Split("a b c d e\n\nf g", 3, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "a b c d e" || chunks[0].TokenCount != 5 {
		t.Errorf("expected oversized chunk with 5 tokens, got %q (%d)", chunks[0].Text, chunks[0].TokenCount)
	}
	if chunks[1].Text != "f g" {
		t.Errorf("expected %q, got %q", "f g", chunks[1].Text)
	}
}

func TestSplit_RepeatedSentenceOffsets(t *testing.T) {
	c := NewChunker(wordTokenizer{}, nil)
	text := "same line.\n\nsame line."

	chunks := c.Split(text, 2, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].StartChar != 12 {
		t.Errorf("expected second occurrence at 12, got %d", chunks[1].StartChar)
	}
}

func TestSplit_SegmenterFailureFallsBack(t *testing.T) {
	c := NewChunker(wordTokenizer{}, stubSegmenter{err: errors.New("model missing")})

	chunks := c.Split("first para here.\n\nsecond para here.", 3, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 paragraph chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "first para here." {
		t.Errorf("expected first paragraph, got %q", chunks[0].Text)
	}
}

func TestSplit_UsesSegmenter(t *testing.T) {
	seg := stubSegmenter{sentences: []string{"Alpha one.", "Beta two.", "Gamma three."}}
	c := NewChunker(wordTokenizer{}, seg)

	chunks := c.Split("Alpha one. Beta two. Gamma three.", 4, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "Alpha one. Beta two." {
		t.Errorf("expected first two sentences, got %q", chunks[0].Text)
	}
	if chunks[1].StartChar != 21 {
		t.Errorf("expected second chunk at 21, got %d", chunks[1].StartChar)
	}
}

func TestSplit_SectionHeaders(t *testing.T) {
	c := NewChunker(wordTokenizer{}, nil)
	text := "# Intro\n\nSome text here.\n\n# Usage\n\nRun the tool."

	chunks := c.Split(text, 5, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].SectionHeader != "Intro" {
		t.Errorf("expected header Intro, got %q", chunks[0].SectionHeader)
	}
	if chunks[1].SectionHeader != "Usage" {
		t.Errorf("expected header Usage, got %q", chunks[1].SectionHeader)
	}
}

func TestPunktSegmenter(t *testing.T) {
	seg, err := NewPunktSegmenter()
	if err != nil {
		t.Fatalf("load punkt: %v", err)
	}

	sents, err := seg.Segment("Hello there. How are you today? I am fine.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sents) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %q", len(sents), sents)
	}
	if sents[1] != "How are you today?" {
		t.Errorf("expected %q, got %q", "How are you today?", sents[1])
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("\n\na\n\n\n\nb  \n\n  ")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %q", got)
	}
}
