package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/raglab/arxrag/internal/arxiv"
	"github.com/raglab/arxrag/internal/config"
	"github.com/raglab/arxrag/internal/vectorstore"
)

// embedConcurrency bounds parallel embedding calls so the backend is not
// overwhelmed.
const embedConcurrency = 4

// Searcher fetches arXiv documents.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]arxiv.Document, error)
}

// Embedder generates embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TextFetcher extracts full paper text, used when full-text ingestion is
// enabled.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Summary reports what an ingestion run accomplished.
type Summary struct {
	Ingested int    `json:"ingested"`
	Query    string `json:"query"`
}

// Pipeline fetches arXiv entries, embeds them, and upserts the vectors.
type Pipeline struct {
	arxiv    Searcher
	embedder Embedder
	store    vectorstore.Store
	pdfs     TextFetcher // optional; enables full-text ingestion
	cfg      config.ArxivConfig
	logger   *slog.Logger
}

// New creates a Pipeline. pdfs may be nil to disable full-text extraction
// regardless of config.
func New(searcher Searcher, embedder Embedder, store vectorstore.Store, pdfs TextFetcher, cfg config.ArxivConfig) *Pipeline {
	return &Pipeline{
		arxiv:    searcher,
		embedder: embedder,
		store:    store,
		pdfs:     pdfs,
		cfg:      cfg,
		logger:   slog.Default(),
	}
}

// EnsureCollection probes the embedding dimension and creates or validates
// the target collection. Idempotent; a dimension mismatch is fatal and is
// reported as vectorstore.ErrDimensionMismatch.
func (p *Pipeline) EnsureCollection(ctx context.Context) error {
	dim, err := p.embeddingDimension(ctx)
	if err != nil {
		return err
	}
	return p.store.EnsureCollection(ctx, dim)
}

// embeddingDimension determines the vector size of the configured embedding
// model by embedding a probe string.
func (p *Pipeline) embeddingDimension(ctx context.Context) (int, error) {
	vec, err := p.embedder.Embed(ctx, "test")
	if err != nil {
		return 0, fmt.Errorf("probing embedding dimension: %w", err)
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("probing embedding dimension: empty vector")
	}
	return len(vec), nil
}

// Run executes the ingestion flow for the query and returns a summary.
func (p *Pipeline) Run(ctx context.Context, query string, maxDocs int) (Summary, error) {
	if err := p.EnsureCollection(ctx); err != nil {
		return Summary{}, err
	}

	docs, err := p.arxiv.Search(ctx, query, maxDocs)
	if err != nil {
		return Summary{}, fmt.Errorf("loading documents: %w", err)
	}
	if len(docs) == 0 {
		p.logger.Info("no documents retrieved", "query", query)
		return Summary{Ingested: 0, Query: query}, nil
	}

	points, err := p.buildPoints(ctx, docs)
	if err != nil {
		return Summary{}, err
	}

	if err := p.store.Upsert(ctx, points); err != nil {
		return Summary{}, fmt.Errorf("upserting points: %w", err)
	}

	p.logger.Info("ingestion complete", "query", query, "ingested", len(points))
	return Summary{Ingested: len(points), Query: query}, nil
}

// buildPoints embeds every chunk concurrently and assembles vector points.
func (p *Pipeline) buildPoints(ctx context.Context, docs []arxiv.Document) ([]vectorstore.Point, error) {
	type chunk struct {
		text string
		doc  arxiv.Document
	}

	var chunks []chunk
	for _, doc := range docs {
		chunks = append(chunks, chunk{text: doc.Text, doc: doc})

		if p.cfg.FullText && p.pdfs != nil {
			text, err := p.pdfs.FetchText(ctx, arxiv.PDFURL(doc.ArxivID))
			if err != nil {
				// Full text is an enrichment; the abstract alone still ingests.
				p.logger.Warn("full-text fetch failed", "arxiv_id", doc.ArxivID, "error", err)
				continue
			}
			for _, part := range splitText(text, p.cfg.ChunkMaxLength) {
				chunks = append(chunks, chunk{text: part, doc: doc})
			}
		}
	}

	points := make([]vectorstore.Point, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, ch := range chunks {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gCtx, ch.text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			points[i] = vectorstore.Point{
				ID:     uuid.New().String(),
				Vector: vec,
				Payload: vectorstore.Payload{
					Text:    ch.text,
					Title:   ch.doc.Title,
					Source:  ch.doc.Source,
					ArxivID: ch.doc.ArxivID,
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// splitText breaks text into chunks of at most maxLen characters, preferring
// paragraph boundaries.
func splitText(text string, maxLen int) []string {
	if maxLen <= 0 {
		return []string{text}
	}

	var chunks []string
	var current []byte
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, string(current))
			current = nil
		}
	}

	for _, para := range splitParagraphs(text) {
		if len(current)+len(para)+2 > maxLen {
			flush()
		}
		// A single oversized paragraph is cut hard.
		for len(para) > maxLen {
			chunks = append(chunks, para[:maxLen])
			para = para[maxLen:]
		}
		if para == "" {
			continue
		}
		if len(current) > 0 {
			current = append(current, '\n', '\n')
		}
		current = append(current, para...)
	}
	flush()
	return chunks
}
