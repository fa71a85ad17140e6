package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"unicode"
)

// wordTokenizer counts whitespace-separated words as tokens.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }

func (w wordTokenizer) CountBatch(texts []string) []int {
	out := make([]int, len(texts))
	for i, t := range texts {
		out[i] = w.Count(t)
	}
	return out
}

// Truncate keeps a byte prefix of text ending at the maxTokens-th word.
func (w wordTokenizer) Truncate(text string, maxTokens int) string {
	if w.Count(text) <= maxTokens {
		return text
	}
	if maxTokens <= 0 {
		return ""
	}
	words, inWord := 0, false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				words++
				if words == maxTokens {
					return text[:i]
				}
			}
			inWord = false
			continue
		}
		inWord = true
	}
	return text
}

// stubSegmenter returns fixed sentences or an error.
type stubSegmenter struct {
	sentences []string
	err       error
}

func (s stubSegmenter) Segment(string) ([]string, error) {
	return s.sentences, s.err
}

// fakeProvider embeds text as a per-letter histogram folded into dim buckets,
// with a constant final component so no vector is zero.
type fakeProvider struct {
	backend Backend
	dim     int
	err     error
	short   bool // return one vector fewer than asked
	calls   atomic.Int32
}

func (p *fakeProvider) Backend() Backend { return p.backend }

func (p *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, p.dim)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[int(r-'a')%(p.dim-1)]++
			}
		}
		v[p.dim-1] = 1
		out[i] = v
	}
	if p.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func localProvider(dim int) *fakeProvider {
	return &fakeProvider{backend: BackendLocal, dim: dim}
}

func hostedProvider(dim int) *fakeProvider {
	return &fakeProvider{backend: BackendHosted, dim: dim}
}

var errProviderDown = errors.New("provider down")
