// Package handler implements HTTP handlers for the document context API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jharjadi/doc-context/internal/cache"
	"github.com/jharjadi/doc-context/internal/db"
	"github.com/jharjadi/doc-context/internal/loader"
	"github.com/jharjadi/doc-context/internal/model"
	"github.com/jharjadi/doc-context/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	// multipart framing allowance on top of the file size limit
	multipartOverhead = 1 << 20
)

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, d *model.Document) error
	Get(ctx context.Context, id string) (*model.Document, error)
	List(ctx context.Context, limit int) ([]model.Document, error)
	Delete(ctx context.Context, id string) error
}

// IndexCache memoizes embedding indexes per document.
type IndexCache interface {
	GetOrBuild(ctx context.Context, docID string, build cache.BuildFunc) (*service.EmbeddingIndex, error)
	Invalidate(ctx context.Context, docID string)
}

// DocumentHandler handles document upload and management endpoints.
type DocumentHandler struct {
	docs      DocumentRepository
	indexes   IndexCache
	tok       service.Tokenizer
	uploadDir string
	maxBytes  int64
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(docs DocumentRepository, indexes IndexCache, tok service.Tokenizer, uploadDir string, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{
		docs:      docs,
		indexes:   indexes,
		tok:       tok,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
	}
}

// Upload handles POST /api/documents/upload (multipart field "file").
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	maxMB := h.maxBytes / (1024 * 1024)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file too large, max size: %dMB", maxMB))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "file field is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "bad_request", "filename is required")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		slog.Error("failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read uploaded file")
		return
	}
	if int64(len(data)) > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file too large, max size: %dMB", maxMB))
		return
	}

	slog.Debug("upload pre-screen", "filename", filename, "estimated_tokens", service.EstimateTokensFromBytes(len(data)))

	loaded, err := loader.Load(data, filename)
	if err != nil {
		if errors.Is(err, loader.ErrUnsupportedType) {
			writeError(w, http.StatusUnprocessableEntity, "unsupported_type", err.Error())
			return
		}
		slog.Error("failed to load document", "filename", filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "unreadable_document", err.Error())
		return
	}

	tokenCount := h.tok.Count(loaded.RawText)
	decision := service.Classify(tokenCount)
	service.LogDecision(decision)
	budget := service.Allocate(tokenCount)

	docID := uuid.NewString()
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		slog.Error("failed to create upload dir", "dir", h.uploadDir, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to store file")
		return
	}
	path := filepath.Join(h.uploadDir, docID+"_"+filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("failed to write upload", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to store file")
		return
	}

	doc := &model.Document{
		ID:         docID,
		Filename:   filename,
		FileSize:   loaded.FileSize,
		TokenCount: tokenCount,
		Tier:       decision.Tier,
		TierLabel:  decision.Label,
		MimeType:   loaded.MimeType,
		RowCount:   loaded.RowCount,
		FilePath:   path,
	}
	if err := h.docs.Create(ctx, doc); err != nil {
		slog.Error("failed to persist document", "doc_id", docID, "error", err)
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, "internal", "failed to save document")
		return
	}

	slog.Info("document uploaded",
		"doc_id", docID,
		"filename", filename,
		"bytes", loaded.FileSize,
		"tokens", tokenCount,
		"tier", decision.Tier.String(),
	)

	writeJSON(w, http.StatusOK, model.UploadResponse{
		DocID:      docID,
		Filename:   filename,
		FileSize:   loaded.FileSize,
		TokenCount: tokenCount,
		Tier: model.TierInfo{
			Tier:        int(decision.Tier),
			Label:       decision.Label,
			Color:       decision.Color,
			Description: decision.Description,
		},
		Budget:    model.NewTokenBudgetResponse(budget),
		MimeType:  loaded.MimeType,
		RowCount:  loaded.RowCount,
		CreatedAt: doc.CreatedAt,
	})
}

// List handles GET /api/documents?limit=20.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	docs, err := h.docs.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list documents")
		return
	}

	out := make([]model.DocumentMetadata, 0, len(docs))
	for i := range docs {
		out = append(out, model.NewDocumentMetadata(&docs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")

	doc, err := h.docs.Get(r.Context(), docID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("document %s not found", docID))
			return
		}
		slog.Error("failed to get document", "doc_id", docID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, model.NewDocumentMetadata(doc))
}

// Delete handles DELETE /api/documents/{id}. The stored file and any cached
// index are removed with the row.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "id")

	doc, err := h.docs.Get(ctx, docID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("document %s not found", docID))
			return
		}
		slog.Error("failed to get document", "doc_id", docID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to delete document")
		return
	}

	if err := h.docs.Delete(ctx, docID); err != nil && !errors.Is(err, db.ErrNotFound) {
		slog.Error("failed to delete document", "doc_id", docID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to delete document")
		return
	}
	if err := os.Remove(doc.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove document file", "doc_id", docID, "path", doc.FilePath, "error", err)
	}
	h.indexes.Invalidate(ctx, docID)

	slog.Info("document deleted", "doc_id", docID)
	w.WriteHeader(http.StatusNoContent)
}
