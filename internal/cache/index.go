// Package cache memoizes embedding indexes per document, in process and in a
// shared key-value store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/jharjadi/doc-context/internal/service"
)

// KeyPrefix namespaces index payloads in the shared store.
const KeyPrefix = "rag:"

// ErrMiss is returned by a Store when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented key-value store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// BuildFunc builds a fresh index for a document.
type BuildFunc func(ctx context.Context) (*service.EmbeddingIndex, error)

// IndexCache answers GetOrBuild from memory, then the shared store, then a
// build. Concurrent requests for the same document share one build.
type IndexCache struct {
	local        *expirable.LRU[string, *service.EmbeddingIndex]
	store        Store
	storeTTL     time.Duration
	buildTimeout time.Duration
	group        singleflight.Group
}

// DefaultBuildTimeout bounds one shared build when Options.BuildTimeout is unset.
const DefaultBuildTimeout = 2 * time.Minute

// Options configures an IndexCache.
type Options struct {
	Size         int
	LocalTTL     time.Duration
	StoreTTL     time.Duration
	BuildTimeout time.Duration
}

// NewIndexCache creates an IndexCache. store may be nil to disable the shared tier.
func NewIndexCache(store Store, opts Options) *IndexCache {
	if opts.Size <= 0 {
		opts.Size = 64
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}
	return &IndexCache{
		local:        expirable.NewLRU[string, *service.EmbeddingIndex](opts.Size, nil, opts.LocalTTL),
		store:        store,
		storeTTL:     opts.StoreTTL,
		buildTimeout: opts.BuildTimeout,
	}
}

// Key returns the store key for a document.
func Key(docID string) string {
	return KeyPrefix + docID
}

// GetOrBuild returns the cached index for docID, building and storing it on a
// miss. The shared build is detached from the caller that started it, so one
// caller going away does not fail the others; each caller stops waiting when
// its own ctx is done.
func (c *IndexCache) GetOrBuild(ctx context.Context, docID string, build BuildFunc) (*service.EmbeddingIndex, error) {
	if idx, ok := c.local.Get(docID); ok {
		return idx, nil
	}

	ch := c.group.DoChan(docID, func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.buildTimeout)
		defer cancel()

		if idx, ok := c.local.Get(docID); ok {
			return idx, nil
		}
		if idx := c.load(bctx, docID); idx != nil {
			c.local.Add(docID, idx)
			return idx, nil
		}

		idx, err := build(bctx)
		if err != nil {
			return nil, err
		}
		c.local.Add(docID, idx)
		c.save(bctx, docID, idx)
		return idx, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("index for %s: %w", docID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("index for %s: %w", docID, res.Err)
		}
		if res.Shared {
			slog.Debug("index build shared", "doc_id", docID)
		}
		return res.Val.(*service.EmbeddingIndex), nil
	}
}

// Invalidate drops docID from both tiers.
func (c *IndexCache) Invalidate(ctx context.Context, docID string) {
	c.local.Remove(docID)
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, Key(docID)); err != nil {
		slog.Warn("failed to delete cached index", "doc_id", docID, "error", err)
	}
}

// Len returns the number of in-process entries.
func (c *IndexCache) Len() int {
	return c.local.Len()
}

// load reads a payload from the store. Store errors and corrupt payloads are
// treated as a miss; a corrupt key is deleted.
func (c *IndexCache) load(ctx context.Context, docID string) *service.EmbeddingIndex {
	if c.store == nil {
		return nil
	}
	key := Key(docID)
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil
	}
	if err != nil {
		slog.Warn("index store unavailable, rebuilding", "doc_id", docID, "error", err)
		return nil
	}

	idx, err := service.UnmarshalIndex(data)
	if err != nil {
		slog.Warn("discarding corrupt cached index", "doc_id", docID, "error", err)
		if derr := c.store.Delete(ctx, key); derr != nil {
			slog.Warn("failed to delete corrupt cached index", "doc_id", docID, "error", derr)
		}
		return nil
	}
	slog.Info("index loaded from store", "doc_id", docID, "backend", idx.Backend(), "chunks", len(idx.Chunks()))
	return idx
}

func (c *IndexCache) save(ctx context.Context, docID string, idx *service.EmbeddingIndex) {
	if c.store == nil {
		return
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		slog.Warn("failed to serialize index", "doc_id", docID, "error", err)
		return
	}
	if err := c.store.Set(ctx, Key(docID), data, c.storeTTL); err != nil {
		slog.Warn("failed to store index", "doc_id", docID, "error", err)
	}
}
