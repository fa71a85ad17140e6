package service

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/jharjadi/doc-context/internal/model"
)

// Default segmentation parameters used by the assembler.
const (
	DefaultChunkTargetTokens  = 512
	DefaultChunkOverlapTokens = 50
)

// sectionHeader matches markdown headings and ALL CAPS title lines.
var sectionHeader = regexp.MustCompile(`(?m)^(#{1,6}[ \t]+.+|[A-Z][A-Z \t]{4,}[A-Z])[ \t]*$`)

// Chunker segments text into sentence-aware, token-bounded, overlapping chunks.
type Chunker struct {
	tok Tokenizer
	seg SentenceSegmenter
}

// NewChunker creates a Chunker. seg may be nil, in which case every
// segmentation takes the paragraph fallback.
func NewChunker(tok Tokenizer, seg SentenceSegmenter) *Chunker {
	return &Chunker{tok: tok, seg: seg}
}

// Sentences segments text with the sentence model, falling back to
// blank-line paragraphs when the model is unavailable or fails.
func (c *Chunker) Sentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.seg != nil {
		sents, err := c.seg.Segment(text)
		if err == nil {
			return sents
		}
		slog.Warn("sentence segmenter failed, falling back to paragraph split", "error", err)
	} else {
		slog.Debug("no sentence segmenter configured, using paragraph split")
	}
	return SplitParagraphs(text)
}

// sentenceSpan is a sentence with its located byte offsets in the source.
type sentenceSpan struct {
	text   string
	tokens int
	start  int
	end    int
}

// Split groups sentences into chunks of roughly targetTokens tokens. After
// each flush the buffer is seeded with the trailing whole sentences that fit
// in overlapTokens. A sentence larger than targetTokens is emitted alone when
// the buffer is empty. Empty text yields no chunks.
func (c *Chunker) Split(text string, targetTokens, overlapTokens int) []model.Chunk {
	sents := c.Sentences(text)
	if len(sents) == 0 {
		return nil
	}

	spans := locateSentences(text, sents, c.tok.CountBatch(sents))

	var (
		groups        [][]sentenceSpan
		current       []sentenceSpan
		currentTokens int
	)

	for _, s := range spans {
		if s.tokens > targetTokens && len(current) == 0 {
			groups = append(groups, []sentenceSpan{s})
			continue
		}

		if currentTokens+s.tokens > targetTokens && len(current) > 0 {
			groups = append(groups, current)
			current, currentTokens = overlapTail(current, overlapTokens)
		}

		current = append(current, s)
		currentTokens += s.tokens
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	chunks := make([]model.Chunk, len(groups))
	texts := make([]string, len(groups))
	for i, g := range groups {
		parts := make([]string, len(g))
		for j, s := range g {
			parts[j] = s.text
		}
		texts[i] = strings.Join(parts, " ")
		chunks[i] = model.Chunk{
			Index:     i,
			Text:      texts[i],
			StartChar: g[0].start,
			EndChar:   g[len(g)-1].end,
		}
	}
	for i, n := range c.tok.CountBatch(texts) {
		chunks[i].TokenCount = n
	}
	assignSectionHeaders(text, chunks)

	slog.Info("chunking complete",
		"sentences", len(sents),
		"chunks", len(chunks),
		"target_tokens", targetTokens,
		"overlap_tokens", overlapTokens,
	)
	return chunks
}

// overlapTail returns a fresh buffer holding the trailing sentences of
// flushed whose cumulative token count stays within overlapTokens.
func overlapTail(flushed []sentenceSpan, overlapTokens int) ([]sentenceSpan, int) {
	total := 0
	start := len(flushed)
	for i := len(flushed) - 1; i >= 0; i-- {
		if total+flushed[i].tokens > overlapTokens {
			break
		}
		total += flushed[i].tokens
		start = i
	}
	tail := make([]sentenceSpan, len(flushed)-start)
	copy(tail, flushed[start:])
	return tail, total
}

// locateSentences finds each sentence in text with a forward-only cursor, so
// a sentence repeated verbatim later in the document never resolves to an
// earlier occurrence. Sentences the segmenter rewrote are placed at the
// cursor and are approximate.
func locateSentences(text string, sents []string, tokens []int) []sentenceSpan {
	spans := make([]sentenceSpan, len(sents))
	cursor := 0
	for i, s := range sents {
		start := cursor
		if idx := strings.Index(text[cursor:], s); idx >= 0 {
			start = cursor + idx
		}
		end := min(start+len(s), len(text))
		spans[i] = sentenceSpan{text: s, tokens: tokens[i], start: start, end: end}
		cursor = end
	}
	return spans
}

// assignSectionHeaders tags each chunk with the last heading at or before its start.
func assignSectionHeaders(text string, chunks []model.Chunk) {
	locs := sectionHeader.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return
	}
	for i := range chunks {
		// last heading whose start is <= chunk start
		n := sort.Search(len(locs), func(j int) bool { return locs[j][0] > chunks[i].StartChar })
		if n == 0 {
			continue
		}
		h := locs[n-1]
		chunks[i].SectionHeader = strings.TrimSpace(strings.TrimLeft(text[h[0]:h[1]], "#"))
	}
}
