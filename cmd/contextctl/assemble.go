package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jharjadi/doc-context/internal/config"
	"github.com/jharjadi/doc-context/internal/service"
)

func newAssembleCmd() *cobra.Command {
	var (
		query string
		topK  int
	)

	cmd := &cobra.Command{
		Use:   "assemble <file>",
		Short: "Print the budgeted excerpt for a document and optional query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadStandalone()
			if err != nil {
				return err
			}
			if topK == 0 {
				topK = cfg.RAGTopK
			}

			doc, err := loadFile(args[0])
			if err != nil {
				return err
			}
			tok, err := service.NewTokenAccountant()
			if err != nil {
				return err
			}
			var seg service.SentenceSegmenter
			if punkt, err := service.NewPunktSegmenter(); err != nil {
				slog.Warn("sentence model unavailable, chunking by paragraph", "error", err)
			} else {
				seg = punkt
			}

			var hosted service.EmbeddingProvider
			if cfg.HostedEmbeddingsEnabled() {
				hosted = service.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel, cfg.OpenAIBaseURL)
			}
			embedders := service.NewEmbedders(hosted, service.NewSidecarEmbedder(cfg.EmbedEndpoint, cfg.EmbedTimeout))

			assembler := service.NewAssembler(tok, service.NewChunker(tok, seg), service.NewRetriever(embedders),
				service.AssemblerConfig{
					ChunkTargetTokens:  cfg.ChunkTargetTokens,
					ChunkOverlapTokens: cfg.ChunkOverlapTokens,
				})

			decision := service.Classify(tok.Count(doc.RawText))
			assembled, err := assembler.Assemble(cmd.Context(), doc.RawText, decision, query, nil, topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, assembled.Text)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "# %s %s: %s tokens, %.2f%% of budget\n",
				assembled.Tier, decision.Label, humanize.Comma(int64(assembled.TokenCount)), assembled.Budget.UtilizationPct)
			fmt.Fprintf(out, "# %s\n", assembled.StrategyNotes)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "query used to rank chunks (T3/T4)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of candidates to retrieve (default RAG_TOP_K)")
	return cmd
}
