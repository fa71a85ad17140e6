package handler

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jharjadi/doc-context/internal/db"
	"github.com/jharjadi/doc-context/internal/loader"
	"github.com/jharjadi/doc-context/internal/model"
	"github.com/jharjadi/doc-context/internal/service"
)

// Request limits for POST /api/query.
const (
	MaxQueryChars = 2000
	MaxTopK       = 50
)

// QueryHandler handles POST /api/query requests.
type QueryHandler struct {
	docs        DocumentRepository
	indexes     IndexCache
	assembler   *service.Assembler
	defaultTopK int
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(docs DocumentRepository, indexes IndexCache, assembler *service.Assembler, defaultTopK int) *QueryHandler {
	return &QueryHandler{
		docs:        docs,
		indexes:     indexes,
		assembler:   assembler,
		defaultTopK: defaultTopK,
	}
}

// Handle processes a POST /api/query request:
// load metadata → reload file → rebuild tier decision → (T4) cached index → assemble → respond
func (h *QueryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	requestID := chimw.GetReqID(ctx)

	var req model.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}

	if strings.TrimSpace(req.DocID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "doc_id is required")
		return
	}
	if utf8.RuneCountInString(req.Query) > MaxQueryChars {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("query must be at most %d characters", MaxQueryChars))
		return
	}
	if req.TopK == 0 {
		req.TopK = h.defaultTopK
	}
	if req.TopK < 1 || req.TopK > MaxTopK {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("top_k must be between 1 and %d", MaxTopK))
		return
	}

	doc, err := h.docs.Get(ctx, req.DocID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("document %s not found", req.DocID))
			return
		}
		slog.Error("failed to get document", "doc_id", req.DocID, "error", err, "request_id", requestID)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get document")
		return
	}

	data, err := os.ReadFile(doc.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusGone, "gone", "document file no longer available, please re-upload")
			return
		}
		slog.Error("failed to read document file", "doc_id", doc.ID, "path", doc.FilePath, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to read document file")
		return
	}
	loaded, err := loader.Load(data, doc.Filename)
	if err != nil {
		slog.Error("failed to re-parse document", "doc_id", doc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to re-parse document")
		return
	}

	if !doc.Tier.Valid() {
		slog.Error("stored tier is invalid", "doc_id", doc.ID, "tier", int(doc.Tier))
		writeError(w, http.StatusInternalServerError, "internal", "document has an invalid tier")
		return
	}
	decision := service.DecisionFor(doc.Tier, doc.TokenCount)

	var idx *service.EmbeddingIndex
	if decision.Tier == model.TierEmbedded {
		idx, err = h.indexes.GetOrBuild(ctx, doc.ID, func(ctx context.Context) (*service.EmbeddingIndex, error) {
			return h.assembler.BuildDocumentIndex(ctx, loaded.RawText)
		})
		if err != nil {
			h.writeAssemblyError(w, doc.ID, requestID, err)
			return
		}
	}

	assembled, err := h.assembler.Assemble(ctx, loaded.RawText, decision, req.Query, idx, req.TopK)
	if err != nil {
		h.writeAssemblyError(w, doc.ID, requestID, err)
		return
	}

	chunksUsed := assembled.ChunksUsed
	if chunksUsed == nil {
		chunksUsed = []model.ChunkUsage{}
	}
	writeJSON(w, http.StatusOK, model.QueryResponse{
		DocID:            doc.ID,
		Query:            req.Query,
		Tier:             int(assembled.Tier),
		AssembledContext: assembled.Text,
		TokenCount:       assembled.TokenCount,
		ChunksUsed:       chunksUsed,
		StrategyNotes:    assembled.StrategyNotes,
		Budget:           model.NewTokenBudgetResponse(assembled.Budget),
	})

	slog.Info("query",
		"request_id", requestID,
		"doc_id", doc.ID,
		"query_hash", hashQuery(req.Query),
		"tier", assembled.Tier.String(),
		"top_k", req.TopK,
		"chunks_used", len(chunksUsed),
		"token_count", assembled.TokenCount,
		"utilization_pct", assembled.Budget.UtilizationPct,
		"latency_ms_total", time.Since(start).Milliseconds(),
	)
}

// writeAssemblyError maps assembly failures to HTTP statuses.
func (h *QueryHandler) writeAssemblyError(w http.ResponseWriter, docID, requestID string, err error) {
	slog.Error("context assembly failed", "doc_id", docID, "error", err, "request_id", requestID)
	switch {
	case errors.Is(err, service.ErrProvider), errors.Is(err, service.ErrBackendUnavailable):
		writeError(w, http.StatusBadGateway, "embedding_unavailable", "embedding service unavailable")
	case errors.Is(err, service.ErrDimensionMismatch):
		writeError(w, http.StatusConflict, "index_mismatch", "cached index does not match the embedding backend")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "context assembly failed")
	}
}

// hashQuery returns the SHA-256 hex of the query so logs never carry its text.
func hashQuery(query string) string {
	h := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%x", h)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
