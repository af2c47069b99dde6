package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/raglab/arxrag/internal/config"
)

func TestOpenAIChatRequestShape(t *testing.T) {
	var got chatRequest
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hi"}},
			},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(config.OpenAIConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
	})

	tools := []Tool{{Type: "function", Function: Function{Name: "rag_query"}}}
	msg, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "q"}}, tools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if msg.Content != "hi" {
		t.Errorf("content = %q", msg.Content)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("auth = %q", auth)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
	if got.ToolChoice != "auto" {
		t.Errorf("tool_choice = %q, want auto", got.ToolChoice)
	}
	if got.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", got.Temperature)
	}
	if len(got.Tools) != 1 || got.Tools[0].Function.Name != "rag_query" {
		t.Errorf("tools = %+v", got.Tools)
	}
}

func TestOpenAIChatOmitsToolChoiceWithoutTools(t *testing.T) {
	var raw map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "done"}},
			},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	if _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "q"}}, nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if _, ok := raw["tools"]; ok {
		t.Error("tools should be omitted when none are offered")
	}
	if _, ok := raw["tool_choice"]; ok {
		t.Error("tool_choice should be omitted when no tools are offered")
	}
}

func TestOpenAIBasicAuthHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2}}},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(config.OpenAIConfig{
		BaseURL:      srv.URL,
		AuthUsername: "svc",
		AuthPassword: "secret",
	})

	vec, err := client.Embed(context.Background(), "test")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vector length = %d, want 2", len(vec))
	}

	// base64("svc:secret")
	if auth != "Basic c3ZjOnNlY3JldA==" {
		t.Errorf("auth = %q", auth)
	}
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1}}},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	if _, err := client.Embed(context.Background(), "test"); err != nil {
		t.Fatalf("Embed after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestOpenAINonRetryableErrorFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewOpenAIClient(config.OpenAIConfig{APIKey: "sk-bad", BaseURL: srv.URL})
	if _, err := client.Embed(context.Background(), "test"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 401)", calls.Load())
	}
}
