package service

import (
	"log/slog"

	"github.com/jharjadi/doc-context/internal/model"
)

// Inclusive upper bounds for the first three tiers; T4 is everything above.
const (
	TierDirectMaxTokens  = 12_000
	TierTrimMaxTokens    = 25_000
	TierKeywordMaxTokens = 50_000
)

type tierInfo struct {
	label       string
	description string
	color       string
}

var tierTable = map[model.Tier]tierInfo{
	model.TierDirect: {
		label:       "Direct Injection",
		description: "Full document fits in context window. No processing needed.",
		color:       "#22c55e",
	},
	model.TierTrim: {
		label:       "Smart Trimming",
		description: "Moderate size. Boilerplate removal and whitespace compression applied.",
		color:       "#3b82f6",
	},
	model.TierKeyword: {
		label:       "Strategic Chunking",
		description: "Large document. Sentence-aware chunking with BM25 relevance ranking.",
		color:       "#f59e0b",
	},
	model.TierEmbedded: {
		label:       "RAG Retrieval",
		description: "Very large document. Vector embeddings with exact similarity search.",
		color:       "#ef4444",
	},
}

// Classify maps a token count to its tier. Boundary values belong to the lower tier.
func Classify(tokenCount int) model.TierDecision {
	var tier model.Tier
	switch {
	case tokenCount <= TierDirectMaxTokens:
		tier = model.TierDirect
	case tokenCount <= TierTrimMaxTokens:
		tier = model.TierTrim
	case tokenCount <= TierKeywordMaxTokens:
		tier = model.TierKeyword
	default:
		tier = model.TierEmbedded
	}
	return DecisionFor(tier, tokenCount)
}

// DecisionFor rebuilds a TierDecision for a tier already stored with a document.
func DecisionFor(tier model.Tier, tokenCount int) model.TierDecision {
	info := tierTable[tier]
	return model.TierDecision{
		Tier:        tier,
		TokenCount:  tokenCount,
		Label:       info.label,
		Description: info.description,
		Color:       info.color,
	}
}

// LogDecision writes the classification line; Classify itself stays pure.
func LogDecision(d model.TierDecision) {
	slog.Info("tier classification",
		"tokens", d.TokenCount,
		"tier", d.Tier.String(),
		"label", d.Label,
	)
}
