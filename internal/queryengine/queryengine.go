// Package queryengine implements the one-shot retrieve-and-synthesize path
// behind the index service: top-K vector retrieval followed by a single
// completion over the stuffed context. No tool calling, no conversation loop.
package queryengine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raglab/arxrag/internal/llm"
	"github.com/raglab/arxrag/internal/vectorstore"
)

// topK is the number of chunks stuffed into the synthesis prompt.
const topK = 3

const synthesisPrompt = `You are a research assistant. Answer the question using only the context below. Cite paper titles and sources when available. If the context does not contain the answer, say so.

Context:
%s

Question: %s`

// Engine answers questions with a single retrieval and a single completion.
// The embedder must be the same client the collection was ingested with, so
// query vectors live in the same space as the stored ones.
type Engine struct {
	chat     llm.Client
	embedder llm.Client
	store    vectorstore.Store
	logger   *slog.Logger
}

// New creates an Engine over the given model clients and vector store.
func New(chat, embedder llm.Client, store vectorstore.Store) *Engine {
	return &Engine{
		chat:     chat,
		embedder: embedder,
		store:    store,
		logger:   slog.Default(),
	}
}

// Query retrieves the top chunks for the question and synthesizes one answer.
func (e *Engine) Query(ctx context.Context, question string) (string, error) {
	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embedding question: %w", err)
	}

	hits, err := e.store.Search(ctx, vec, topK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	if len(hits) == 0 {
		return "No documents in the knowledge base match this question. Run an ingestion first.", nil
	}

	e.logger.Debug("retrieved context", "question", question, "chunks", len(hits))

	prompt := fmt.Sprintf(synthesisPrompt, formatContext(hits), question)
	msg, err := e.chat.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return "", fmt.Errorf("synthesizing answer: %w", err)
	}
	return msg.Content, nil
}

// formatContext renders retrieved chunks for the synthesis prompt.
func formatContext(hits []vectorstore.Scored) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		title := h.Payload.Title
		if title == "" {
			title = "Untitled"
		}
		parts[i] = fmt.Sprintf("[%s] (%s)\n%s", title, h.Payload.Source, h.Payload.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
