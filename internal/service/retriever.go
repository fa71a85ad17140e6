package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jharjadi/doc-context/internal/model"
	"github.com/jharjadi/doc-context/internal/vectorindex"
)

// indexFormat tags serialized payloads so a foreign blob is rejected.
const indexFormat = "sdch.index/v1"

// EmbeddingIndex maps an ordered chunk list to unit-normalized vectors and
// an exact inner-product search structure. It is built once, never mutated,
// and safe for concurrent retrieval.
type EmbeddingIndex struct {
	backend Backend
	chunks  []model.Chunk
	flat    *vectorindex.Flat
}

// Backend returns the embedding backend that built the index.
func (x *EmbeddingIndex) Backend() Backend { return x.backend }

// Dim returns the vector dimensionality.
func (x *EmbeddingIndex) Dim() int { return x.flat.Dim() }

// Built reports whether x holds a searchable index.
func (x *EmbeddingIndex) Built() bool {
	return x != nil && x.flat != nil && len(x.chunks) > 0
}

// Chunks returns a copy of the indexed chunks in document order.
func (x *EmbeddingIndex) Chunks() []model.Chunk {
	out := make([]model.Chunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

type indexPayload struct {
	Format  string        `json:"format"`
	Backend Backend       `json:"backend"`
	Dim     int           `json:"dim"`
	Chunks  []model.Chunk `json:"chunks"`
	Index   []byte        `json:"index"`
}

// MarshalBinary serializes the index, its chunks, dimensionality and backend.
func (x *EmbeddingIndex) MarshalBinary() ([]byte, error) {
	if !x.Built() {
		return nil, fmt.Errorf("serialize index: %w", ErrIndexNotBuilt)
	}
	native, err := x.flat.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize index: %w", err)
	}
	return json.Marshal(indexPayload{
		Format:  indexFormat,
		Backend: x.backend,
		Dim:     x.flat.Dim(),
		Chunks:  x.chunks,
		Index:   native,
	})
}

// UnmarshalIndex restores an index produced by MarshalBinary.
func UnmarshalIndex(data []byte) (*EmbeddingIndex, error) {
	var p indexPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode index payload: %w: %v", ErrCorruptPayload, err)
	}
	if p.Format != indexFormat {
		return nil, fmt.Errorf("decode index payload: format %q: %w", p.Format, ErrCorruptPayload)
	}
	if p.Backend != BackendHosted && p.Backend != BackendLocal {
		return nil, fmt.Errorf("decode index payload: backend %q: %w", p.Backend, ErrCorruptPayload)
	}

	flat := &vectorindex.Flat{}
	if err := flat.UnmarshalBinary(p.Index); err != nil {
		return nil, fmt.Errorf("decode index payload: %w: %v", ErrCorruptPayload, err)
	}
	if flat.Dim() != p.Dim || flat.Len() != len(p.Chunks) {
		return nil, fmt.Errorf("decode index payload: dim=%d n=%d for %d chunks (declared dim %d): %w",
			flat.Dim(), flat.Len(), len(p.Chunks), p.Dim, ErrCorruptPayload)
	}
	return &EmbeddingIndex{backend: p.Backend, chunks: p.Chunks, flat: flat}, nil
}

// Retriever builds embedding indexes and answers similarity queries.
type Retriever struct {
	embedders *Embedders
}

// NewRetriever creates a Retriever over the configured embedding backends.
func NewRetriever(embedders *Embedders) *Retriever {
	return &Retriever{embedders: embedders}
}

// BuildIndex embeds every chunk in one batch and builds an exact index.
func (r *Retriever) BuildIndex(ctx context.Context, chunks []model.Chunk) (*EmbeddingIndex, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("build index: %w", ErrEmptyInput)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	slog.Info("embedding chunks", "chunks", len(chunks), "preferred_backend", r.embedders.Preferred())
	vectors, backend, err := r.embedders.EmbedForBuild(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	for i := range vectors {
		vectors[i] = vectorindex.Normalize(vectors[i])
	}

	flat, err := vectorindex.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	owned := make([]model.Chunk, len(chunks))
	copy(owned, chunks)

	slog.Info("embedding index built", "vectors", flat.Len(), "dim", flat.Dim(), "backend", backend)
	return &EmbeddingIndex{backend: backend, chunks: owned, flat: flat}, nil
}

// Retrieve embeds query with the backend that built idx and returns the
// topK most similar chunks, best first. topK is clamped to the chunk count.
func (r *Retriever) Retrieve(ctx context.Context, idx *EmbeddingIndex, query string, topK int) ([]model.RankedCandidate, error) {
	if !idx.Built() {
		return nil, fmt.Errorf("retrieve: %w", ErrIndexNotBuilt)
	}

	p, err := r.embedders.For(idx.backend)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	vectors, err := embedChecked(ctx, p, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	q := vectorindex.Normalize(vectors[0])
	if len(q) != idx.flat.Dim() {
		return nil, fmt.Errorf("retrieve: query has %d dims, index has %d: %w", len(q), idx.flat.Dim(), ErrDimensionMismatch)
	}

	hits, err := idx.flat.Search(q, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	results := make([]model.RankedCandidate, len(hits))
	for i, h := range hits {
		results[i] = model.RankedCandidate{
			Chunk: idx.chunks[h.ID],
			Score: float64(h.Score),
			Rank:  i + 1,
		}
	}

	if len(results) > 0 {
		slog.Info("retrieved chunks", "count", len(results), "top_score", results[0].Score, "backend", idx.backend)
	} else {
		slog.Info("no chunks retrieved", "backend", idx.backend)
	}
	return results, nil
}
