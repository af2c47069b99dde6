package queryengine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/raglab/arxrag/internal/llm"
	"github.com/raglab/arxrag/internal/vectorstore"
)

type fakeClient struct {
	answer     string
	chatErr    error
	embedErr   error
	lastPrompt string
}

func (f *fakeClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Message, error) {
	if len(messages) > 0 {
		f.lastPrompt = messages[len(messages)-1].Content
	}
	if f.chatErr != nil {
		return llm.Message{}, f.chatErr
	}
	return llm.Message{Role: "assistant", Content: f.answer}, nil
}

func (f *fakeClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{1, 0, 0}, nil
}

type fakeStore struct {
	hits      []vectorstore.Scored
	searchErr error
	lastLimit int
}

func (f *fakeStore) EnsureCollection(ctx context.Context, dim int) error { return nil }

func (f *fakeStore) Upsert(ctx context.Context, points []vectorstore.Point) error { return nil }

func (f *fakeStore) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Scored, error) {
	f.lastLimit = limit
	return f.hits, f.searchErr
}

func (f *fakeStore) Count(ctx context.Context) (int, error) { return len(f.hits), nil }

func scored(title, source, text string) vectorstore.Scored {
	return vectorstore.Scored{Point: vectorstore.Point{Payload: vectorstore.Payload{
		Title: title, Source: source, Text: text,
	}}}
}

func TestQueryStuffsRetrievedContext(t *testing.T) {
	client := &fakeClient{answer: "Qubits hold superpositions."}
	store := &fakeStore{hits: []vectorstore.Scored{
		scored("Quantum Intro", "https://arxiv.org/abs/1", "qubits explained"),
		scored("", "https://arxiv.org/abs/2", "second chunk"),
	}}

	e := New(client, client, store)
	answer, err := e.Query(context.Background(), "What is a qubit?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if answer != "Qubits hold superpositions." {
		t.Errorf("answer = %q", answer)
	}
	if store.lastLimit != topK {
		t.Errorf("search limit = %d, want %d", store.lastLimit, topK)
	}

	if !strings.Contains(client.lastPrompt, "[Quantum Intro] (https://arxiv.org/abs/1)\nqubits explained") {
		t.Errorf("prompt missing first chunk: %q", client.lastPrompt)
	}
	if !strings.Contains(client.lastPrompt, "[Untitled] (https://arxiv.org/abs/2)") {
		t.Errorf("prompt missing title fallback: %q", client.lastPrompt)
	}
	if !strings.Contains(client.lastPrompt, "\n\n---\n\n") {
		t.Errorf("chunks not separated: %q", client.lastPrompt)
	}
	if !strings.Contains(client.lastPrompt, "Question: What is a qubit?") {
		t.Errorf("prompt missing question: %q", client.lastPrompt)
	}
}

func TestQueryEmptyStore(t *testing.T) {
	client := &fakeClient{answer: "should not be called"}
	e := New(client, client, &fakeStore{})

	answer, err := e.Query(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !strings.Contains(answer, "Run an ingestion first") {
		t.Errorf("answer = %q, want empty-store message", answer)
	}
}

func TestQueryErrors(t *testing.T) {
	hits := []vectorstore.Scored{scored("T", "s", "text")}

	t.Run("embed failure", func(t *testing.T) {
		client := &fakeClient{embedErr: fmt.Errorf("no embedder")}
		e := New(client, client, &fakeStore{hits: hits})
		if _, err := e.Query(context.Background(), "q"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("search failure", func(t *testing.T) {
		client := &fakeClient{}
		e := New(client, client, &fakeStore{searchErr: fmt.Errorf("store down")})
		if _, err := e.Query(context.Background(), "q"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("completion failure", func(t *testing.T) {
		client := &fakeClient{chatErr: fmt.Errorf("model down")}
		e := New(client, client, &fakeStore{hits: hits})
		if _, err := e.Query(context.Background(), "q"); err == nil {
			t.Fatal("expected error")
		}
	})
}
