package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
)

func TestBuildIndex_Empty(t *testing.T) {
	r := NewRetriever(NewEmbedders(nil, localProvider(4)))

	if _, err := r.BuildIndex(context.Background(), nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestBuildIndex_PrefersHosted(t *testing.T) {
	r := NewRetriever(NewEmbedders(hostedProvider(6), localProvider(4)))

	idx, err := r.BuildIndex(context.Background(), textChunks("aaa", "bbb"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Backend() != BackendHosted {
		t.Errorf("expected hosted backend, got %s", idx.Backend())
	}
	if idx.Dim() != 6 {
		t.Errorf("expected 6 dims, got %d", idx.Dim())
	}
}

func TestBuildIndex_HostedFailureFallsBackToLocal(t *testing.T) {
	hosted := hostedProvider(6)
	hosted.err = errProviderDown
	local := localProvider(4)
	r := NewRetriever(NewEmbedders(hosted, local))

	idx, err := r.BuildIndex(context.Background(), textChunks("aaa", "bbb"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Backend() != BackendLocal {
		t.Errorf("expected local backend after fallback, got %s", idx.Backend())
	}

	// queries go to the backend that built the index
	if _, err := r.Retrieve(context.Background(), idx, "aaa", 1); err != nil {
		t.Fatalf("unexpected retrieve error: %v", err)
	}
	if hosted.calls.Load() != 1 {
		t.Errorf("expected 1 hosted call, got %d", hosted.calls.Load())
	}
	if local.calls.Load() != 2 {
		t.Errorf("expected 2 local calls, got %d", local.calls.Load())
	}
}

func TestBuildIndex_ProviderErrors(t *testing.T) {
	failing := localProvider(4)
	failing.err = errProviderDown
	short := localProvider(4)
	short.short = true
	hostedDown := hostedProvider(6)
	hostedDown.err = errProviderDown

	tests := []struct {
		name      string
		embedders *Embedders
	}{
		{"local fails", NewEmbedders(nil, failing)},
		{"wrong vector count", NewEmbedders(nil, short)},
		{"both fail", NewEmbedders(hostedDown, failing)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetriever(tt.embedders)
			if _, err := r.BuildIndex(context.Background(), textChunks("aaa", "bbb")); !errors.Is(err, ErrProvider) {
				t.Errorf("expected ErrProvider, got %v", err)
			}
		})
	}
}

func TestRetrieve_IdenticalTextRanksFirst(t *testing.T) {
	r := NewRetriever(NewEmbedders(nil, localProvider(4)))
	idx, err := r.BuildIndex(context.Background(), textChunks("aaaa", "bbbb", "cccc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := r.Retrieve(context.Background(), idx, "bbbb", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Chunk.Index != 1 {
		t.Errorf("expected chunk 1 first, got %d", results[0].Chunk.Index)
	}
	if results[0].Score < 0.9999 {
		t.Errorf("expected cosine ~1 for identical text, got %f", results[0].Score)
	}
	if results[0].Rank != 1 || results[2].Rank != 3 {
		t.Errorf("expected ranks 1..3, got %d and %d", results[0].Rank, results[2].Rank)
	}
}

func TestRetrieve_NotBuilt(t *testing.T) {
	r := NewRetriever(NewEmbedders(nil, localProvider(4)))

	if _, err := r.Retrieve(context.Background(), nil, "q", 3); !errors.Is(err, ErrIndexNotBuilt) {
		t.Errorf("expected ErrIndexNotBuilt, got %v", err)
	}
}

func TestRetrieve_BackendUnavailable(t *testing.T) {
	builder := NewRetriever(NewEmbedders(hostedProvider(6), localProvider(4)))
	idx, err := builder.BuildIndex(context.Background(), textChunks("aaa"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRetriever(NewEmbedders(nil, localProvider(4)))
	if _, err := r.Retrieve(context.Background(), idx, "aaa", 1); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	builder := NewRetriever(NewEmbedders(nil, localProvider(4)))
	idx, err := builder.BuildIndex(context.Background(), textChunks("aaa"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRetriever(NewEmbedders(nil, localProvider(5)))
	if _, err := r.Retrieve(context.Background(), idx, "aaa", 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEmbeddingIndex_RoundTrip(t *testing.T) {
	r := NewRetriever(NewEmbedders(nil, localProvider(4)))
	chunks := textChunks("aaaa", "bbbb", "cccc")
	chunks[1].SectionHeader = "Middle"
	idx, err := r.BuildIndex(context.Background(), chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := idx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := UnmarshalIndex(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.Backend() != BackendLocal || restored.Dim() != 4 {
		t.Errorf("expected local/4, got %s/%d", restored.Backend(), restored.Dim())
	}
	got := restored.Chunks()
	if len(got) != 3 || got[1].SectionHeader != "Middle" || got[2].Text != "cccc" {
		t.Errorf("expected chunks preserved, got %+v", got)
	}

	want, _ := r.Retrieve(context.Background(), idx, "cccc", 3)
	have, _ := r.Retrieve(context.Background(), restored, "cccc", 3)
	for i := range want {
		if want[i].Chunk.Index != have[i].Chunk.Index || want[i].Score != have[i].Score {
			t.Errorf("result %d differs after round trip: %+v vs %+v", i, want[i], have[i])
		}
	}
}

func TestUnmarshalIndex_Corrupt(t *testing.T) {
	tests := map[string]string{
		"not json":        "garbage",
		"wrong format":    `{"format":"other","backend":"local","dim":4,"chunks":[],"index":""}`,
		"unknown backend": `{"format":"sdch.index/v1","backend":"gpu","dim":4,"chunks":[],"index":""}`,
		"bad index bytes": `{"format":"sdch.index/v1","backend":"local","dim":4,"chunks":[],"index":"AAAA"}`,
	}
	// dim=n=2^31 in the native header, with no matrix behind it
	header := []byte("FLATIP01\x00\x00\x00\x80\x00\x00\x00\x80")
	tests["overflowing header"] = fmt.Sprintf(`{"format":"sdch.index/v1","backend":"local","dim":4,"chunks":[],"index":%q}`,
		base64.StdEncoding.EncodeToString(header))

	for name, payload := range tests {
		if _, err := UnmarshalIndex([]byte(payload)); !errors.Is(err, ErrCorruptPayload) {
			t.Errorf("%s: expected ErrCorruptPayload, got %v", name, err)
		}
	}
}

func TestMarshalBinary_NotBuilt(t *testing.T) {
	var idx *EmbeddingIndex
	if _, err := idx.MarshalBinary(); !errors.Is(err, ErrIndexNotBuilt) {
		t.Errorf("expected ErrIndexNotBuilt, got %v", err)
	}
}
