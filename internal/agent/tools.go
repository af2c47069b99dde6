package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raglab/arxrag/internal/arxiv"
	"github.com/raglab/arxrag/internal/config"
	"github.com/raglab/arxrag/internal/llm"
	"github.com/raglab/arxrag/internal/vectorstore"
)

// Tool names exposed to the model.
const (
	ToolRagQuery    = "rag_query"
	ToolArxivSearch = "arxiv_search"
)

// Sentinel results. Expected empty/not-found conditions are values, not
// errors: they are fed back into the conversation so the model can decide
// the next action.
const (
	RagEmptySentinel   = "RAG_EMPTY: No matching documents found in the knowledge base."
	ArxivEmptySentinel = "ARXIV_EMPTY: No papers found on arXiv for this query."

	ragErrorPrefix   = "RAG_ERROR: "
	arxivErrorPrefix = "ARXIV_ERROR: "
	unknownToolFmt   = "ERROR: Unknown tool '%s'"
)

// IsSentinel reports whether a tool result is an empty/error marker rather
// than retrieved content.
func IsSentinel(result string) bool {
	for _, prefix := range []string{"RAG_EMPTY", "RAG_ERROR", "ARXIV_EMPTY", "ARXIV_ERROR", "ERROR:"} {
		if strings.HasPrefix(result, prefix) {
			return true
		}
	}
	return false
}

// ragLimit is the number of chunks a rag_query returns.
const ragLimit = 4

// Embedder generates the query embedding for vector search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher performs similarity search over the paper collection.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Scored, error)
}

// PaperSearcher performs a live arXiv API search.
type PaperSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]arxiv.Document, error)
}

// Toolset holds the two capabilities exposed to the agent. Every invocation
// is synchronous and returns a string payload.
type Toolset struct {
	embedder Embedder
	vectors  VectorSearcher
	papers   PaperSearcher
	cfg      config.ArxivConfig
	logger   *slog.Logger
}

// NewToolset creates the fixed two-tool capability set.
func NewToolset(embedder Embedder, vectors VectorSearcher, papers PaperSearcher, cfg config.ArxivConfig) *Toolset {
	return &Toolset{
		embedder: embedder,
		vectors:  vectors,
		papers:   papers,
		cfg:      cfg,
		logger:   slog.Default(),
	}
}

// Definitions returns the function schemas for the model.
func (t *Toolset) Definitions() []llm.Tool {
	return []llm.Tool{
		{
			Type: "function",
			Function: llm.Function{
				Name: ToolRagQuery,
				Description: "Search the ingested arXiv knowledge base for relevant paper chunks " +
					"using semantic similarity. Returns 'RAG_EMPTY' if no matches are found.",
				Parameters: llm.Parameters{
					Type: "object",
					Properties: map[string]llm.Property{
						"query": {Type: "string", Description: "Search query for the RAG knowledge base"},
					},
					Required: []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.Function{
				Name: ToolArxivSearch,
				Description: "Search arXiv directly via API for research papers, including recent ones " +
					"not yet ingested. Returns 'ARXIV_EMPTY' if no papers are found, or 'ARXIV_ERROR' " +
					"if the search fails.",
				Parameters: llm.Parameters{
					Type: "object",
					Properties: map[string]llm.Property{
						"query":       {Type: "string", Description: "Search query for arXiv"},
						"max_results": {Type: "integer", Description: "Maximum number of papers to return"},
					},
					Required: []string{"query"},
				},
			},
		},
	}
}

// toolArgs is the decoded argument set for either tool.
type toolArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// Execute dispatches a tool call by name. Malformed arguments fall back to
// the zero value, matching the model-facing contract that a tool call always
// produces a result message.
func (t *Toolset) Execute(ctx context.Context, name, arguments string) string {
	var args toolArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		t.logger.Warn("malformed tool arguments", "tool", name, "error", err)
	}

	t.logger.Info("tool call", "tool", name, "arguments", arguments)

	switch name {
	case ToolRagQuery:
		return t.RagQuery(ctx, args.Query)
	case ToolArxivSearch:
		return t.ArxivSearch(ctx, args.Query, args.MaxResults)
	default:
		return fmt.Sprintf(unknownToolFmt, name)
	}
}

// RagQuery embeds the query and searches the vector collection, formatting
// the matches for the model.
func (t *Toolset) RagQuery(ctx context.Context, query string) string {
	vec, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return ragErrorPrefix + err.Error()
	}

	results, err := t.vectors.Search(ctx, vec, ragLimit)
	if err != nil {
		return ragErrorPrefix + err.Error()
	}
	if len(results) == 0 {
		return RagEmptySentinel
	}

	formatted := make([]string, len(results))
	for i, match := range results {
		title := match.Payload.Title
		if title == "" {
			title = "Untitled"
		}
		source := match.Payload.Source
		if source == "" {
			source = "Unknown"
		}
		text := truncate(match.Payload.Text, t.cfg.ChunkMaxLength)
		formatted[i] = fmt.Sprintf("[DB: %s] (%s)\n%s", title, source, text)
	}
	return strings.Join(formatted, "\n\n")
}

// ArxivSearch queries the live arXiv API, formatting the hits for the model.
func (t *Toolset) ArxivSearch(ctx context.Context, query string, maxResults int) string {
	if maxResults <= 0 || maxResults > t.cfg.SearchMaxResults {
		maxResults = t.cfg.SearchMaxResults
	}

	docs, err := t.papers.Search(ctx, query, maxResults)
	if err != nil {
		return arxivErrorPrefix + err.Error()
	}
	if len(docs) == 0 {
		return ArxivEmptySentinel
	}

	formatted := make([]string, len(docs))
	for i, doc := range docs {
		summary := truncate(doc.Text, t.cfg.SummaryMaxLength)
		formatted[i] = fmt.Sprintf("[arXiv: %s] (%s)\n%s\n%s", doc.Title, doc.ArxivID, summary, doc.Source)
	}
	return strings.Join(formatted, "\n\n")
}

// truncate cuts s to at most max bytes, marking the cut.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
