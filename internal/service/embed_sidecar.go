package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxSidecarErrorBody caps how much of a failed response is quoted in errors.
const maxSidecarErrorBody = 512

// SidecarEmbedder is the local backend: a sentence-transformers
// (all-MiniLM-L6-v2) HTTP sidecar that embeds a batch per call.
type SidecarEmbedder struct {
	endpoint string // e.g. "http://embed:8001/embed"
	client   *http.Client
}

// NewSidecarEmbedder creates a client for the sidecar at endpoint.
func NewSidecarEmbedder(endpoint string, timeout time.Duration) *SidecarEmbedder {
	return &SidecarEmbedder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type sidecarRequest struct {
	Texts []string `json:"texts"`
}

type sidecarResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Backend reports BackendLocal.
func (s *SidecarEmbedder) Backend() Backend { return BackendLocal }

// Embed sends all texts in one request and returns the vectors in input order.
func (s *SidecarEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("sidecar embed: no texts")
	}

	payload, err := json.Marshal(sidecarRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("encode sidecar request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create sidecar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sidecar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxSidecarErrorBody))
		return nil, fmt.Errorf("sidecar returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sidecar response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("sidecar returned %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}
