package service

import (
	"fmt"
	"log/slog"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// EncodingName is the fixed tokenization scheme used for all budget math.
const EncodingName = "cl100k_base"

// Tokenizer counts and truncates text in exact tokens.
type Tokenizer interface {
	Count(text string) int
	CountBatch(texts []string) []int
	Truncate(text string, maxTokens int) string
}

// TokenAccountant implements Tokenizer on top of tiktoken's cl100k_base.
// It is safe for concurrent use.
type TokenAccountant struct {
	enc *tiktoken.Tiktoken
}

// NewTokenAccountant loads the cl100k_base encoding from the ranks embedded
// in the binary. A load failure is fatal for the pipeline; callers must not
// fall back to estimation.
func NewTokenAccountant() (*TokenAccountant, error) {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	enc, err := tiktoken.GetEncoding(EncodingName)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w: %v", EncodingName, ErrConfiguration, err)
	}
	return &TokenAccountant{enc: enc}, nil
}

// Count returns the exact number of tokens in text.
func (a *TokenAccountant) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(a.enc.Encode(text, nil, nil))
}

// CountBatch returns Count for every element, in order.
func (a *TokenAccountant) CountBatch(texts []string) []int {
	counts := make([]int, len(texts))
	for i, t := range texts {
		counts[i] = a.Count(t)
	}
	return counts
}

// Truncate returns the longest decoded token prefix of text whose own token
// count is at most maxTokens. Text that already fits is returned unchanged.
func (a *TokenAccountant) Truncate(text string, maxTokens int) string {
	if text == "" {
		return text
	}
	if maxTokens <= 0 {
		return ""
	}
	tokens := a.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	slog.Debug("truncating text", "from_tokens", len(tokens), "to_tokens", maxTokens)

	// A decoded prefix can re-encode to more tokens when the cut lands inside
	// a multi-byte rune, so shrink until the round trip fits.
	for n := maxTokens; n > 0; n-- {
		out := a.enc.Decode(tokens[:n])
		if a.Count(out) <= maxTokens {
			return out
		}
	}
	return ""
}

// EstimateTokensFromBytes is a ~4 bytes/token heuristic for cheap pre-screening.
// It must never be used for budget decisions.
func EstimateTokensFromBytes(byteSize int) int {
	return byteSize / 4
}
