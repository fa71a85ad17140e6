package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jharjadi/doc-context/internal/model"
)

// DefaultTopK is used when a caller passes a non-positive top_k.
const DefaultTopK = 10

// AssemblerConfig holds the fixed segmentation parameters for chunked tiers.
type AssemblerConfig struct {
	ChunkTargetTokens  int
	ChunkOverlapTokens int
}

// Assembler turns a document and optional query into a budget-respecting excerpt.
type Assembler struct {
	tok       Tokenizer
	chunker   *Chunker
	retriever *Retriever
	cfg       AssemblerConfig
}

// NewAssembler creates an Assembler. retriever may be nil when T4 is never requested.
func NewAssembler(tok Tokenizer, chunker *Chunker, retriever *Retriever, cfg AssemblerConfig) *Assembler {
	if cfg.ChunkTargetTokens <= 0 {
		cfg.ChunkTargetTokens = DefaultChunkTargetTokens
	}
	if cfg.ChunkOverlapTokens < 0 {
		cfg.ChunkOverlapTokens = DefaultChunkOverlapTokens
	}
	return &Assembler{tok: tok, chunker: chunker, retriever: retriever, cfg: cfg}
}

// Chunk segments rawText with the assembler's fixed parameters.
func (a *Assembler) Chunk(rawText string) []model.Chunk {
	return a.chunker.Split(rawText, a.cfg.ChunkTargetTokens, a.cfg.ChunkOverlapTokens)
}

// BuildDocumentIndex chunks rawText and builds its embedding index.
func (a *Assembler) BuildDocumentIndex(ctx context.Context, rawText string) (*EmbeddingIndex, error) {
	if a.retriever == nil {
		return nil, fmt.Errorf("build document index: no retriever: %w", ErrConfiguration)
	}
	return a.retriever.BuildIndex(ctx, a.Chunk(rawText))
}

// Assemble applies the strategy for decision.Tier. The excerpt never exceeds
// the document ceiling of the returned budget. idx is only used for T4; when
// nil a fresh index is built from rawText.
func (a *Assembler) Assemble(
	ctx context.Context,
	rawText string,
	decision model.TierDecision,
	query string,
	idx *EmbeddingIndex,
	topK int,
) (*model.AssembledContext, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	query = strings.TrimSpace(query)

	switch decision.Tier {
	case model.TierDirect:
		return a.assembleDirect(rawText), nil
	case model.TierTrim:
		return a.assembleTrim(rawText), nil
	case model.TierKeyword:
		return a.assembleKeyword(rawText, query, topK)
	case model.TierEmbedded:
		return a.assembleEmbedded(ctx, rawText, query, idx, topK)
	}
	return nil, fmt.Errorf("assemble tier %d: %w", int(decision.Tier), ErrUnknownTier)
}

// assembleDirect injects the document as-is; truncation is a safety net only.
func (a *Assembler) assembleDirect(rawText string) *model.AssembledContext {
	tokens := a.tok.Count(rawText)
	budget := Allocate(tokens)
	text := a.tok.Truncate(rawText, budget.DocumentMax)
	final := a.tok.Count(text)

	slog.Info("T1 assembly", "tokens", tokens, "final_tokens", final)
	return &model.AssembledContext{
		Tier:          model.TierDirect,
		Text:          text,
		TokenCount:    final,
		Budget:        budget,
		StrategyNotes: "Full document injected without modification.",
	}
}

// assembleTrim removes boilerplate and reports the savings.
func (a *Assembler) assembleTrim(rawText string) *model.AssembledContext {
	original := a.tok.Count(rawText)
	trimmed := TrimBoilerplate(rawText)
	budget := Allocate(a.tok.Count(trimmed))
	text := a.tok.Truncate(trimmed, budget.DocumentMax)
	final := a.tok.Count(text)
	saved := original - final

	slog.Info("T2 assembly", "original_tokens", original, "final_tokens", final, "saved", saved)
	return &model.AssembledContext{
		Tier:       model.TierTrim,
		Text:       text,
		TokenCount: final,
		Budget:     budget,
		StrategyNotes: fmt.Sprintf("Boilerplate removed. Tokens reduced from %s to %s (saved %s tokens).",
			humanize.Comma(int64(original)), humanize.Comma(int64(final)), humanize.Comma(int64(saved))),
	}
}

// assembleKeyword ranks chunks with BM25 (or document order without a query)
// and greedily fills the ceiling.
func (a *Assembler) assembleKeyword(rawText, query string, topK int) (*model.AssembledContext, error) {
	chunks := a.Chunk(rawText)

	var ranked []model.RankedCandidate
	method := "in document order (no query)"
	switch {
	case len(chunks) == 0:
	case query != "":
		var err error
		ranked, err = RankKeyword(chunks, query, min(2*topK, len(chunks)))
		if err != nil {
			return nil, fmt.Errorf("assemble T3: %w", err)
		}
		method = "via BM25 ranking"
	default:
		ranked = DocumentOrder(chunks)
	}

	ctx := a.fill(model.TierKeyword, ranked)
	slog.Info("T3 assembly", "chunks", len(chunks), "selected", len(ctx.ChunksUsed), "tokens", ctx.TokenCount)
	ctx.StrategyNotes = fmt.Sprintf("Document split into %d chunks. Top %d selected %s (%s tokens).",
		len(chunks), len(ctx.ChunksUsed), method, humanize.Comma(int64(ctx.TokenCount)))
	return ctx, nil
}

// assembleEmbedded ranks chunks by embedding similarity (or takes the first
// topK without a query) and greedily fills the ceiling.
func (a *Assembler) assembleEmbedded(ctx context.Context, rawText, query string, idx *EmbeddingIndex, topK int) (*model.AssembledContext, error) {
	if idx == nil {
		chunks := a.Chunk(rawText)
		if len(chunks) == 0 {
			out := a.fill(model.TierEmbedded, nil)
			out.StrategyNotes = "Document is empty. Nothing retrieved."
			return out, nil
		}
		var err error
		idx, err = a.BuildDocumentIndex(ctx, rawText)
		if err != nil {
			return nil, fmt.Errorf("assemble T4: %w", err)
		}
	}

	var retrieved []model.RankedCandidate
	if query != "" {
		if a.retriever == nil {
			return nil, fmt.Errorf("assemble T4: no retriever: %w", ErrConfiguration)
		}
		var err error
		retrieved, err = a.retriever.Retrieve(ctx, idx, query, topK)
		if err != nil {
			return nil, fmt.Errorf("assemble T4: %w", err)
		}
	} else {
		if !idx.Built() {
			return nil, fmt.Errorf("assemble T4: %w", ErrIndexNotBuilt)
		}
		chunks := idx.Chunks()
		retrieved = DocumentOrder(chunks[:min(topK, len(chunks))])
	}

	out := a.fill(model.TierEmbedded, retrieved)
	slog.Info("T4 assembly", "retrieved", len(retrieved), "selected", len(out.ChunksUsed), "tokens", out.TokenCount)
	out.StrategyNotes = fmt.Sprintf("Vector similarity search retrieved %d chunks. %d fit within token budget (%s tokens).",
		len(retrieved), len(out.ChunksUsed), humanize.Comma(int64(out.TokenCount)))
	return out, nil
}

// fill runs the greedy selection against the document ceiling, joins the
// accepted chunks in document order and derives the budget from the result.
func (a *Assembler) fill(tier model.Tier, ranked []model.RankedCandidate) *model.AssembledContext {
	selected, _ := SelectWithinBudget(ranked, DocumentMax, a.tok.Count(ChunkSeparator))

	text := FormatExcerpt(selected)
	final := a.tok.Count(text)
	usages := ChunkUsages(selected)
	if final > DocumentMax {
		// token counts are not strictly additive across separators
		text = a.tok.Truncate(text, DocumentMax)
		final = a.tok.Count(text)
		usages = a.clipUsages(selected, usages, len(text))
		slog.Warn("excerpt truncated to ceiling", "tier", tier.String(), "tokens", final, "chunks_kept", len(usages))
	}

	return &model.AssembledContext{
		Tier:       tier,
		Text:       text,
		TokenCount: final,
		Budget:     Allocate(final),
		ChunksUsed: usages,
	}
}

// clipUsages drops usages for chunks that start past the first kept bytes of
// the excerpt and recounts the chunk the cut landed in.
func (a *Assembler) clipUsages(selected []model.RankedCandidate, usages []model.ChunkUsage, kept int) []model.ChunkUsage {
	offset := 0
	for i, rc := range selected {
		if i > 0 {
			offset += len(ChunkSeparator)
		}
		if offset >= kept {
			return usages[:i]
		}
		end := offset + len(rc.Chunk.Text)
		if end > kept {
			usages[i].Tokens = a.tok.Count(rc.Chunk.Text[:kept-offset])
			return usages[:i+1]
		}
		offset = end
	}
	return usages
}
