// Package model defines the domain types for the document context API.
package model

import (
	"fmt"
	"time"
)

// Tier is one of the four document-size classes that select an assembly strategy.
type Tier int

const (
	TierDirect   Tier = 1 // verbatim inclusion
	TierTrim     Tier = 2 // boilerplate trimming
	TierKeyword  Tier = 3 // keyword-ranked chunk selection
	TierEmbedded Tier = 4 // embedding-similarity chunk selection
)

// String returns the short tier name ("T1".."T4").
func (t Tier) String() string {
	return fmt.Sprintf("T%d", int(t))
}

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	return t >= TierDirect && t <= TierEmbedded
}

// TierDecision is the outcome of classifying a document by token count.
type TierDecision struct {
	Tier        Tier
	TokenCount  int
	Label       string
	Description string
	Color       string
}

// TokenBudget partitions the fixed context window for one assembly attempt.
type TokenBudget struct {
	TotalWindow         int
	SystemPrompt        int
	ConversationHistory int
	ResponseBuffer      int
	DocumentMax         int // ceiling = total - reservations
	DocumentAllocated   int // min(original, ceiling)
	DocTokensOriginal   int
	UtilizationPct      float64
	Truncated           bool
}

// Chunk is a contiguous, sentence-aligned slice of a source document.
type Chunk struct {
	Index         int    `json:"index"`
	Text          string `json:"text"`
	TokenCount    int    `json:"token_count"`
	SectionHeader string `json:"section_header,omitempty"`
	StartChar     int    `json:"start_char"`
	EndChar       int    `json:"end_char"`
}

// RankedCandidate is a chunk scored by one ranking path.
// Score is unbounded for keyword ranking and in [-1,1] for cosine similarity;
// higher is better in both. Rank is 1-based.
type RankedCandidate struct {
	Chunk Chunk
	Score float64
	Rank  int
}

// ChunkUsage records one chunk that made it into an assembled excerpt.
type ChunkUsage struct {
	Index  int     `json:"index"`
	Tokens int     `json:"tokens"`
	Score  float64 `json:"score"`
}

// AssembledContext is the final, budget-constrained excerpt for one request.
type AssembledContext struct {
	Tier          Tier
	Text          string
	TokenCount    int
	Budget        TokenBudget
	ChunksUsed    []ChunkUsage
	StrategyNotes string
}

// Document is the persisted metadata for an uploaded document.
type Document struct {
	ID         string
	Filename   string
	FileSize   int64
	TokenCount int
	Tier       Tier
	TierLabel  string
	MimeType   string
	RowCount   *int
	FilePath   string
	CreatedAt  time.Time
}

// ── API types ────────────────────────────────────────────

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TierInfo is the API rendering of a TierDecision.
type TierInfo struct {
	Tier        int    `json:"tier"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// BudgetAllocations lists the reserved and document allocations.
type BudgetAllocations struct {
	SystemPrompt        int `json:"system_prompt"`
	ConversationHistory int `json:"conversation_history"`
	ResponseBuffer      int `json:"response_buffer"`
	DocumentContent     int `json:"document_content"`
}

// BudgetDocument describes how the document fits the ceiling.
type BudgetDocument struct {
	OriginalTokens  int     `json:"original_tokens"`
	AllocatedTokens int     `json:"allocated_tokens"`
	MaxTokens       int     `json:"max_tokens"`
	UtilizationPct  float64 `json:"utilization_pct"`
	Truncated       bool    `json:"truncated"`
}

// TokenBudgetResponse is the API rendering of a TokenBudget.
type TokenBudgetResponse struct {
	TotalWindow int               `json:"total_window"`
	Allocations BudgetAllocations `json:"allocations"`
	Document    BudgetDocument    `json:"document"`
}

// UploadResponse is the POST /api/documents/upload response body.
type UploadResponse struct {
	DocID      string              `json:"doc_id"`
	Filename   string              `json:"filename"`
	FileSize   int64               `json:"file_size"`
	TokenCount int                 `json:"token_count"`
	Tier       TierInfo            `json:"tier"`
	Budget     TokenBudgetResponse `json:"budget"`
	MimeType   string              `json:"mime_type,omitempty"`
	RowCount   *int                `json:"row_count,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// DocumentMetadata is the GET /api/documents/{id} response body.
type DocumentMetadata struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	TokenCount int       `json:"token_count"`
	Tier       int       `json:"tier"`
	TierLabel  string    `json:"tier_label"`
	MimeType   string    `json:"mime_type,omitempty"`
	RowCount   *int      `json:"row_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueryRequest is the POST /api/query request body.
type QueryRequest struct {
	DocID string `json:"doc_id"`
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// QueryResponse is the POST /api/query response body.
type QueryResponse struct {
	DocID            string              `json:"doc_id"`
	Query            string              `json:"query"`
	Tier             int                 `json:"tier"`
	AssembledContext string              `json:"assembled_context"`
	TokenCount       int                 `json:"token_count"`
	ChunksUsed       []ChunkUsage        `json:"chunks_used"`
	StrategyNotes    string              `json:"strategy_notes"`
	Budget           TokenBudgetResponse `json:"budget"`
}

// NewTokenBudgetResponse renders a TokenBudget for the API.
func NewTokenBudgetResponse(b TokenBudget) TokenBudgetResponse {
	return TokenBudgetResponse{
		TotalWindow: b.TotalWindow,
		Allocations: BudgetAllocations{
			SystemPrompt:        b.SystemPrompt,
			ConversationHistory: b.ConversationHistory,
			ResponseBuffer:      b.ResponseBuffer,
			DocumentContent:     b.DocumentAllocated,
		},
		Document: BudgetDocument{
			OriginalTokens:  b.DocTokensOriginal,
			AllocatedTokens: b.DocumentAllocated,
			MaxTokens:       b.DocumentMax,
			UtilizationPct:  b.UtilizationPct,
			Truncated:       b.Truncated,
		},
	}
}

// NewDocumentMetadata renders a Document for the API.
func NewDocumentMetadata(d *Document) DocumentMetadata {
	return DocumentMetadata{
		DocID:      d.ID,
		Filename:   d.Filename,
		FileSize:   d.FileSize,
		TokenCount: d.TokenCount,
		Tier:       int(d.Tier),
		TierLabel:  d.TierLabel,
		MimeType:   d.MimeType,
		RowCount:   d.RowCount,
		CreatedAt:  d.CreatedAt,
	}
}
