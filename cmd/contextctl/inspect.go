package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jharjadi/doc-context/internal/model"
	"github.com/jharjadi/doc-context/internal/service"
)

type inspectResult struct {
	Filename   string                    `json:"filename"`
	FileSize   int64                     `json:"file_size"`
	TokenCount int                       `json:"token_count"`
	Tier       model.TierInfo            `json:"tier"`
	Budget     model.TokenBudgetResponse `json:"budget"`
}

func newInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print token count, tier and budget for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadFile(args[0])
			if err != nil {
				return err
			}
			tok, err := service.NewTokenAccountant()
			if err != nil {
				return err
			}

			tokens := tok.Count(doc.RawText)
			decision := service.Classify(tokens)
			budget := service.Allocate(tokens)

			res := inspectResult{
				Filename:   doc.Filename,
				FileSize:   doc.FileSize,
				TokenCount: tokens,
				Tier: model.TierInfo{
					Tier:        int(decision.Tier),
					Label:       decision.Label,
					Color:       decision.Color,
					Description: decision.Description,
				},
				Budget: model.NewTokenBudgetResponse(budget),
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			truncated := "no"
			if budget.Truncated {
				truncated = "yes"
			}
			fmt.Fprintf(out, "File:      %s (%s)\n", doc.Filename, humanize.Bytes(uint64(doc.FileSize)))
			fmt.Fprintf(out, "Tokens:    %s\n", humanize.Comma(int64(tokens)))
			fmt.Fprintf(out, "Tier:      %s %s\n", decision.Tier, decision.Label)
			fmt.Fprintf(out, "           %s\n", decision.Description)
			fmt.Fprintf(out, "Budget:    %s of %s tokens (%.2f%%)\n",
				humanize.Comma(int64(budget.DocumentAllocated)), humanize.Comma(int64(budget.DocumentMax)), budget.UtilizationPct)
			fmt.Fprintf(out, "Truncated: %s\n", truncated)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
