package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/raglab/arxrag/internal/arxiv"
	"github.com/raglab/arxrag/internal/config"
	"github.com/raglab/arxrag/internal/vectorstore"
)

type fakeSearcher struct {
	docs []arxiv.Document
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]arxiv.Document, error) {
	return f.docs, f.err
}

type fakeEmbedder struct {
	mu    sync.Mutex
	dim   int
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.dim), nil
}

type fakeStore struct {
	ensuredDim int
	points     []vectorstore.Point
	ensureErr  error
}

func (f *fakeStore) EnsureCollection(ctx context.Context, dim int) error {
	f.ensuredDim = dim
	return f.ensureErr
}

func (f *fakeStore) Upsert(ctx context.Context, points []vectorstore.Point) error {
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Scored, error) {
	return nil, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.points), nil
}

func testConfig() config.ArxivConfig {
	return config.ArxivConfig{
		Query:          "quantum computing",
		MaxDocs:        5,
		ChunkMaxLength: 1000,
	}
}

func TestRunIngestsAbstracts(t *testing.T) {
	searcher := &fakeSearcher{docs: []arxiv.Document{
		{Text: "abstract one", Title: "Paper One", ArxivID: "1", Source: "https://arxiv.org/abs/1"},
		{Text: "abstract two", Title: "Paper Two", ArxivID: "2", Source: "https://arxiv.org/abs/2"},
	}}
	embedder := &fakeEmbedder{dim: 8}
	store := &fakeStore{}

	p := New(searcher, embedder, store, nil, testConfig())
	summary, err := p.Run(context.Background(), "quantum computing", 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Ingested != 2 {
		t.Errorf("ingested = %d, want 2", summary.Ingested)
	}
	if summary.Query != "quantum computing" {
		t.Errorf("query = %q", summary.Query)
	}
	if store.ensuredDim != 8 {
		t.Errorf("ensured dimension = %d, want 8 (from probe)", store.ensuredDim)
	}
	if len(store.points) != 2 {
		t.Fatalf("points = %d, want 2", len(store.points))
	}

	for _, pt := range store.points {
		if pt.ID == "" {
			t.Error("point ID must be assigned")
		}
		if pt.Payload.Title == "" || pt.Payload.Source == "" {
			t.Errorf("payload metadata incomplete: %+v", pt.Payload)
		}
	}
}

func TestRunNoDocuments(t *testing.T) {
	p := New(&fakeSearcher{}, &fakeEmbedder{dim: 4}, &fakeStore{}, nil, testConfig())

	summary, err := p.Run(context.Background(), "no such topic", 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Ingested != 0 {
		t.Errorf("ingested = %d, want 0", summary.Ingested)
	}
}

func TestRunSearchFailure(t *testing.T) {
	searcher := &fakeSearcher{err: fmt.Errorf("feed down")}
	p := New(searcher, &fakeEmbedder{dim: 4}, &fakeStore{}, nil, testConfig())

	if _, err := p.Run(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureCollectionProbesDimension(t *testing.T) {
	embedder := &fakeEmbedder{dim: 1536}
	store := &fakeStore{}
	p := New(&fakeSearcher{}, embedder, store, nil, testConfig())

	if err := p.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if store.ensuredDim != 1536 {
		t.Errorf("dimension = %d, want 1536", store.ensuredDim)
	}
	if embedder.calls != 1 {
		t.Errorf("probe calls = %d, want 1", embedder.calls)
	}
}

func TestEnsureCollectionMismatchPropagates(t *testing.T) {
	store := &fakeStore{ensureErr: vectorstore.ErrDimensionMismatch}
	p := New(&fakeSearcher{}, &fakeEmbedder{dim: 4}, store, nil, testConfig())

	if err := p.EnsureCollection(context.Background()); err == nil {
		t.Fatal("expected mismatch error")
	}
}

type fakePDFs struct {
	text string
	err  error
}

func (f *fakePDFs) FetchText(ctx context.Context, url string) (string, error) {
	return f.text, f.err
}

func TestRunFullTextAddsChunks(t *testing.T) {
	cfg := testConfig()
	cfg.FullText = true
	cfg.ChunkMaxLength = 40

	searcher := &fakeSearcher{docs: []arxiv.Document{
		{Text: "abstract", Title: "P", ArxivID: "1", Source: "s"},
	}}
	pdfs := &fakePDFs{text: "First paragraph of the paper.\n\nSecond paragraph with more detail."}
	store := &fakeStore{}

	p := New(searcher, &fakeEmbedder{dim: 4}, store, pdfs, cfg)
	summary, err := p.Run(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Ingested <= 1 {
		t.Errorf("ingested = %d, want abstract plus full-text chunks", summary.Ingested)
	}
}

func TestRunFullTextFailureKeepsAbstract(t *testing.T) {
	cfg := testConfig()
	cfg.FullText = true

	searcher := &fakeSearcher{docs: []arxiv.Document{
		{Text: "abstract", Title: "P", ArxivID: "1", Source: "s"},
	}}
	pdfs := &fakePDFs{err: fmt.Errorf("404")}
	store := &fakeStore{}

	p := New(searcher, &fakeEmbedder{dim: 4}, store, pdfs, cfg)
	summary, err := p.Run(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Ingested != 1 {
		t.Errorf("ingested = %d, want 1 (abstract only)", summary.Ingested)
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int
	}{
		{"empty", "", 100, 0},
		{"single short paragraph", "hello world", 100, 1},
		{"two paragraphs fit together", "aaa\n\nbbb", 100, 1},
		{"two paragraphs split", strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60), 80, 2},
		{"oversized paragraph hard cut", strings.Repeat("x", 250), 100, 3},
		{"no limit", strings.Repeat("x", 250), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitText(tt.text, tt.maxLen)
			if len(chunks) != tt.want {
				t.Errorf("chunks = %d, want %d (%q)", len(chunks), tt.want, chunks)
			}
			if tt.maxLen > 0 {
				for i, c := range chunks {
					if len(c) > tt.maxLen {
						t.Errorf("chunk %d length %d exceeds %d", i, len(c), tt.maxLen)
					}
				}
			}
		})
	}
}
