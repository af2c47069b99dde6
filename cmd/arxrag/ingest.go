package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch arXiv papers and load them into the vector store",
	Long: `Fetch arXiv papers and load them into the vector store.

Examples:
  arxrag ingest
  arxrag ingest --query "graph neural networks" --max-docs 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		maxDocs, _ := cmd.Flags().GetInt("max-docs")
		return runIngest(query, maxDocs)
	},
}

func init() {
	ingestCmd.Flags().String("query", "", "arXiv search query (defaults to ARXIV_QUERY)")
	ingestCmd.Flags().Int("max-docs", 0, "maximum documents to ingest (defaults to ARXIV_MAX_DOCS)")
}

func runIngest(query string, maxDocs int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if query == "" {
		query = a.cfg.Arxiv.Query
	}
	if maxDocs <= 0 {
		maxDocs = a.cfg.Arxiv.MaxDocs
	}

	printStep("ingesting %q (up to %d documents)", query, maxDocs)

	summary, err := a.pipeline().Run(ctx, query, maxDocs)
	if err != nil {
		printError("ingestion failed: %v", err)
		return err
	}

	printSuccess("Ingested %d chunks for %q", summary.Ingested, summary.Query)
	return nil
}
