package service

import (
	"math"

	"github.com/jharjadi/doc-context/internal/model"
)

// Fixed context window layout.
const (
	TotalWindow        = 200_000
	SystemPromptBudget = 2_000
	HistoryBudget      = 10_000
	ResponseBuffer     = 4_000
	DocumentMax        = TotalWindow - SystemPromptBudget - HistoryBudget - ResponseBuffer
)

// Allocate computes the budget for a document of docTokenCount tokens.
// It is total over non-negative counts and has no side effects.
func Allocate(docTokenCount int) model.TokenBudget {
	if docTokenCount < 0 {
		docTokenCount = 0
	}
	allocated := min(docTokenCount, DocumentMax)
	utilization := float64(allocated) / float64(TotalWindow) * 100

	return model.TokenBudget{
		TotalWindow:         TotalWindow,
		SystemPrompt:        SystemPromptBudget,
		ConversationHistory: HistoryBudget,
		ResponseBuffer:      ResponseBuffer,
		DocumentMax:         DocumentMax,
		DocumentAllocated:   allocated,
		DocTokensOriginal:   docTokenCount,
		UtilizationPct:      math.Round(utilization*100) / 100,
		Truncated:           docTokenCount > DocumentMax,
	}
}
