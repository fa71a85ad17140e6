package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Backend identifies which embedding provider produced a set of vectors.
type Backend string

const (
	// BackendHosted is the hosted OpenAI embeddings API (1536 dims).
	BackendHosted Backend = "hosted"
	// BackendLocal is the local sentence-transformers sidecar (384 dims).
	BackendLocal Backend = "local"
)

// Expected dimensionality per backend.
const (
	HostedDimensions = 1536
	LocalDimensions  = 384
)

// EmbeddingProvider turns texts into vectors, one per input, in order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Backend() Backend
}

// Embedders holds the configured providers and applies the backend policy:
// hosted when a credential is configured, otherwise local.
type Embedders struct {
	hosted EmbeddingProvider
	local  EmbeddingProvider
}

// NewEmbedders creates the provider set. hosted is nil when no API key is configured.
func NewEmbedders(hosted, local EmbeddingProvider) *Embedders {
	return &Embedders{hosted: hosted, local: local}
}

// Preferred returns the backend the policy picks for a new index.
func (e *Embedders) Preferred() Backend {
	if e.hosted != nil {
		return BackendHosted
	}
	return BackendLocal
}

// For returns the provider for b, or ErrBackendUnavailable.
func (e *Embedders) For(b Backend) (EmbeddingProvider, error) {
	var p EmbeddingProvider
	switch b {
	case BackendHosted:
		p = e.hosted
	case BackendLocal:
		p = e.local
	}
	if p == nil {
		return nil, fmt.Errorf("backend %q: %w", b, ErrBackendUnavailable)
	}
	return p, nil
}

// EmbedForBuild embeds texts with the preferred backend. A hosted failure
// falls back to the local backend; the returned Backend is the one that
// actually produced the vectors.
func (e *Embedders) EmbedForBuild(ctx context.Context, texts []string) ([][]float32, Backend, error) {
	preferred := e.Preferred()
	p, err := e.For(preferred)
	if err != nil {
		return nil, "", err
	}

	vectors, err := embedChecked(ctx, p, texts)
	if err == nil {
		return vectors, preferred, nil
	}
	if preferred == BackendLocal {
		return nil, "", err
	}

	slog.Warn("hosted embedding failed, falling back to local backend", "error", err, "texts", len(texts))
	local, lerr := e.For(BackendLocal)
	if lerr != nil {
		return nil, "", errors.Join(err, lerr)
	}
	vectors, lerr = embedChecked(ctx, local, texts)
	if lerr != nil {
		return nil, "", errors.Join(err, lerr)
	}
	return vectors, BackendLocal, nil
}

// embedChecked calls p and verifies one non-empty vector per text with a
// shared dimensionality.
func embedChecked(ctx context.Context, p EmbeddingProvider, texts []string) ([][]float32, error) {
	vectors, err := p.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w: %v", p.Backend(), ErrProvider, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%s embed: got %d vectors for %d texts: %w", p.Backend(), len(vectors), len(texts), ErrProvider)
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("%s embed: vector %d has %d dims: %w", p.Backend(), i, len(v), ErrProvider)
		}
	}
	return vectors, nil
}
