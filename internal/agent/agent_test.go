package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/raglab/arxrag/internal/arxiv"
	"github.com/raglab/arxrag/internal/config"
	"github.com/raglab/arxrag/internal/llm"
	"github.com/raglab/arxrag/internal/vectorstore"
)

// scriptedClient returns canned responses in order; once the script is
// exhausted it keeps returning the last response.
type scriptedClient struct {
	responses []llm.Message
	calls     int
	err       error

	// lastTools records the tool definitions of the most recent call.
	lastTools []llm.Tool
}

func (s *scriptedClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Message, error) {
	s.calls++
	s.lastTools = tools
	if s.err != nil {
		return llm.Message{}, s.err
	}
	i := s.calls - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func (s *scriptedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubVectors struct {
	results []vectorstore.Scored
	err     error
}

func (s *stubVectors) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Scored, error) {
	return s.results, s.err
}

type stubPapers struct {
	docs []arxiv.Document
	err  error
}

func (s *stubPapers) Search(ctx context.Context, query string, maxResults int) ([]arxiv.Document, error) {
	return s.docs, s.err
}

func testToolset(vectors *stubVectors, papers *stubPapers) *Toolset {
	return NewToolset(stubEmbedder{}, vectors, papers, config.ArxivConfig{
		SearchMaxResults: 5,
		SummaryMaxLength: 400,
		ChunkMaxLength:   1000,
	})
}

func toolCallMsg(name, args string) llm.Message {
	return llm.Message{
		Role: "assistant",
		ToolCalls: []llm.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: llm.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestRunDirectAnswerAfterTool(t *testing.T) {
	client := &scriptedClient{responses: []llm.Message{
		toolCallMsg(ToolRagQuery, `{"query":"quantum"}`),
		{Role: "assistant", Content: "Quantum computing uses qubits. [Quantum Intro]"},
	}}
	vectors := &stubVectors{results: []vectorstore.Scored{{
		Point: vectorstore.Point{Payload: vectorstore.Payload{
			Text: "qubits explained", Title: "Quantum Intro", Source: "https://arxiv.org/abs/1",
		}},
		Score: 0.9,
	}}}

	a := New(client, testToolset(vectors, &stubPapers{}), "prompt")
	res, err := a.Run(context.Background(), "What is quantum computing?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Answer != "Quantum computing uses qubits. [Quantum Intro]" {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", res.Rounds)
	}
	if len(res.Invocations) != 1 || res.Invocations[0].Name != ToolRagQuery {
		t.Errorf("invocations = %+v", res.Invocations)
	}
	if got := res.ToolsUsed(); len(got) != 1 || got[0] != ToolRagQuery {
		t.Errorf("tools used = %v", got)
	}

	// Transcript: system, user, assistant(tool call), tool, assistant.
	if len(res.Transcript) != 5 {
		t.Errorf("transcript length = %d, want 5", len(res.Transcript))
	}
	if res.Transcript[3].Role != "tool" || res.Transcript[3].ToolCallID != "call_1" {
		t.Errorf("tool message = %+v", res.Transcript[3])
	}
}

func TestRunBoundedLoop(t *testing.T) {
	// A model that always requests another tool call must still terminate.
	client := &scriptedClient{responses: []llm.Message{
		toolCallMsg(ToolRagQuery, `{"query":"loop"}`),
	}}
	vectors := &stubVectors{}

	a := New(client, testToolset(vectors, &stubPapers{}), "prompt")
	res, err := a.Run(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Rounds != maxRounds {
		t.Errorf("rounds = %d, want %d", res.Rounds, maxRounds)
	}
	// maxRounds tool rounds plus one forced final call without tools.
	if client.calls != maxRounds+1 {
		t.Errorf("model calls = %d, want %d", client.calls, maxRounds+1)
	}
	if client.lastTools != nil {
		t.Error("final forced call must not offer tools")
	}
	if res.Transcript[len(res.Transcript)-1].Role != "assistant" {
		t.Error("run must end with an assistant message")
	}
}

func TestRunNoToolCalls(t *testing.T) {
	client := &scriptedClient{responses: []llm.Message{
		{Role: "assistant", Content: "Direct answer without tools."},
	}}

	a := New(client, testToolset(&stubVectors{}, &stubPapers{}), "prompt")
	res, err := a.Run(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Answer != "Direct answer without tools." {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(res.Invocations) != 0 {
		t.Errorf("invocations = %d, want 0", len(res.Invocations))
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1", client.calls)
	}
}

func TestRunModelErrorIsFatal(t *testing.T) {
	client := &scriptedClient{err: fmt.Errorf("connection refused")}

	a := New(client, testToolset(&stubVectors{}, &stubPapers{}), "prompt")
	if _, err := a.Run(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunEmptyStoreFeedsSentinelBack(t *testing.T) {
	client := &scriptedClient{responses: []llm.Message{
		toolCallMsg(ToolRagQuery, `{"query":"unknown"}`),
		{Role: "assistant", Content: "Nothing in the knowledge base."},
	}}

	a := New(client, testToolset(&stubVectors{}, &stubPapers{}), "prompt")
	res, err := a.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Invocations[0].Result != RagEmptySentinel {
		t.Errorf("tool result = %q, want sentinel", res.Invocations[0].Result)
	}
	// The sentinel must appear as a tool message, not an error.
	if res.Transcript[3].Content != RagEmptySentinel {
		t.Errorf("transcript tool message = %q", res.Transcript[3].Content)
	}
}

func TestRunMultipleToolCallsOneRound(t *testing.T) {
	client := &scriptedClient{responses: []llm.Message{
		{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{
				{ID: "call_a", Type: "function", Function: llm.FunctionCall{Name: ToolRagQuery, Arguments: `{"query":"x"}`}},
				{ID: "call_b", Type: "function", Function: llm.FunctionCall{Name: ToolArxivSearch, Arguments: `{"query":"x"}`}},
			},
		},
		{Role: "assistant", Content: "combined answer"},
	}}

	a := New(client, testToolset(&stubVectors{}, &stubPapers{}), "prompt")
	res, err := a.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Invocations) != 2 {
		t.Fatalf("invocations = %d, want 2", len(res.Invocations))
	}
	// One tool message per tool-call ID.
	var toolIDs []string
	for _, m := range res.Transcript {
		if m.Role == "tool" {
			toolIDs = append(toolIDs, m.ToolCallID)
		}
	}
	if len(toolIDs) != 2 || toolIDs[0] != "call_a" || toolIDs[1] != "call_b" {
		t.Errorf("tool message IDs = %v", toolIDs)
	}
}
