package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/raglab/arxrag/internal/agent"
	"github.com/raglab/arxrag/internal/arxiv"
	"github.com/raglab/arxrag/internal/config"
	"github.com/raglab/arxrag/internal/ingest"
	"github.com/raglab/arxrag/internal/llm"
	"github.com/raglab/arxrag/internal/vectorstore"
)

// app bundles the shared collaborators every command needs: config, model
// clients, the vector store, and the tool surface built on them.
type app struct {
	cfg      config.Config
	chat     llm.Client
	embedder llm.Client
	store    vectorstore.Store
	arxiv    *arxiv.Client

	closers []func() error
}

// buildApp loads configuration, initializes logging, and constructs the
// provider clients and the configured vector store backend.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	initLogging(cfg.Log.Level)

	chat, err := llm.ForProvider(cfg.LLM.ChatProvider, cfg)
	if err != nil {
		return nil, fmt.Errorf("building chat client: %w", err)
	}
	embedder, err := llm.ForProvider(cfg.LLM.EmbedProvider, cfg)
	if err != nil {
		return nil, fmt.Errorf("building embedding client: %w", err)
	}

	a := &app{
		cfg:      cfg,
		chat:     chat,
		embedder: embedder,
		arxiv:    arxiv.New(),
	}

	switch cfg.Vectors.Backend {
	case config.BackendQdrant:
		a.store = vectorstore.NewQdrantStore(cfg.Vectors.QdrantURL, cfg.Vectors.Collection)
	case config.BackendSQLite:
		s, err := vectorstore.OpenSQLiteStore(cfg.Vectors.SQLitePath, cfg.Vectors.Collection)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.Vectors.Backend)
	}

	return a, nil
}

// Close releases backend resources.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("closing resource", "error", err)
		}
	}
}

// toolset builds the two-tool capability set over the app's collaborators.
func (a *app) toolset() *agent.Toolset {
	return agent.NewToolset(a.embedder, a.store, a.arxiv, a.cfg.Arxiv)
}

// buildAgent assembles the tool-calling agent with the configured prompt
// (optimized when enabled, baseline otherwise).
func (a *app) buildAgent() (*agent.Agent, error) {
	prompt, err := agent.SystemPrompt(a.cfg.APO)
	if err != nil {
		slog.Warn("optimized prompt unavailable, using baseline", "error", err)
		prompt = agent.BaselinePrompt
	}
	return agent.New(a.chat, a.toolset(), prompt), nil
}

// pipeline assembles the ingestion pipeline, with PDF full-text extraction
// when enabled.
func (a *app) pipeline() *ingest.Pipeline {
	var pdfs ingest.TextFetcher
	if a.cfg.Arxiv.FullText {
		pdfs = ingest.NewPDFFetcher()
	}
	return ingest.New(a.arxiv, a.embedder, a.store, pdfs, a.cfg.Arxiv)
}

func initLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
