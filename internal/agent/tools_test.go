package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/raglab/arxrag/internal/arxiv"
	"github.com/raglab/arxrag/internal/config"
	"github.com/raglab/arxrag/internal/vectorstore"
)

func testAPOConfig(useOptimized bool, path string) config.APOConfig {
	return config.APOConfig{
		UseOptimizedPrompt:  useOptimized,
		OptimizedPromptPath: path,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestRagQueryFormatsMatches(t *testing.T) {
	vectors := &stubVectors{results: []vectorstore.Scored{
		{
			Point: vectorstore.Point{Payload: vectorstore.Payload{
				Text:   "qubits explained here",
				Title:  "Quantum Intro",
				Source: "https://arxiv.org/abs/1",
			}},
			Score: 0.9,
		},
		{
			Point: vectorstore.Point{Payload: vectorstore.Payload{
				Text: "second chunk",
			}},
			Score: 0.8,
		},
	}}

	ts := testToolset(vectors, &stubPapers{})
	out := ts.RagQuery(context.Background(), "quantum")

	if !strings.Contains(out, "[DB: Quantum Intro] (https://arxiv.org/abs/1)\nqubits explained here") {
		t.Errorf("output = %q", out)
	}
	// Missing metadata falls back rather than rendering blanks.
	if !strings.Contains(out, "[DB: Untitled] (Unknown)") {
		t.Errorf("output = %q", out)
	}
	if parts := strings.Split(out, "\n\n"); len(parts) != 2 {
		t.Errorf("blocks = %d, want 2", len(parts))
	}
}

func TestRagQueryEmpty(t *testing.T) {
	ts := testToolset(&stubVectors{}, &stubPapers{})
	out := ts.RagQuery(context.Background(), "nothing matches")

	if out != RagEmptySentinel {
		t.Errorf("output = %q, want empty sentinel", out)
	}
	if !IsSentinel(out) {
		t.Error("empty sentinel must be recognized")
	}
}

func TestRagQuerySearchErrorBecomesSentinel(t *testing.T) {
	vectors := &stubVectors{err: fmt.Errorf("store down")}
	ts := testToolset(vectors, &stubPapers{})

	out := ts.RagQuery(context.Background(), "q")
	if !strings.HasPrefix(out, "RAG_ERROR:") {
		t.Errorf("output = %q, want RAG_ERROR prefix", out)
	}
	if !IsSentinel(out) {
		t.Error("error sentinel must be recognized")
	}
}

func TestRagQueryTruncatesChunks(t *testing.T) {
	long := strings.Repeat("a", 2000)
	vectors := &stubVectors{results: []vectorstore.Scored{
		{Point: vectorstore.Point{Payload: vectorstore.Payload{Text: long, Title: "T", Source: "s"}}},
	}}

	ts := testToolset(vectors, &stubPapers{})
	out := ts.RagQuery(context.Background(), "q")
	if strings.Contains(out, long) {
		t.Error("chunk should be truncated to the configured length")
	}
	if !strings.Contains(out, "...") {
		t.Error("truncation should be marked")
	}
}

func TestArxivSearchFormatsDocs(t *testing.T) {
	papers := &stubPapers{docs: []arxiv.Document{
		{
			Text:    "A survey of quantum error correction.",
			Title:   "QEC Survey",
			ArxivID: "2301.01234v1",
			Source:  "https://arxiv.org/abs/2301.01234v1",
		},
	}}

	ts := testToolset(&stubVectors{}, papers)
	out := ts.ArxivSearch(context.Background(), "quantum", 5)

	if !strings.Contains(out, "[arXiv: QEC Survey] (2301.01234v1)") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "https://arxiv.org/abs/2301.01234v1") {
		t.Errorf("output missing link: %q", out)
	}
}

func TestArxivSearchSentinels(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		ts := testToolset(&stubVectors{}, &stubPapers{})
		out := ts.ArxivSearch(context.Background(), "nothing", 5)
		if out != ArxivEmptySentinel {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("error", func(t *testing.T) {
		ts := testToolset(&stubVectors{}, &stubPapers{err: fmt.Errorf("feed down")})
		out := ts.ArxivSearch(context.Background(), "q", 5)
		if !strings.HasPrefix(out, "ARXIV_ERROR:") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestExecuteDispatch(t *testing.T) {
	ts := testToolset(&stubVectors{}, &stubPapers{})

	out := ts.Execute(context.Background(), ToolRagQuery, `{"query":"x"}`)
	if out != RagEmptySentinel {
		t.Errorf("rag_query result = %q", out)
	}

	out = ts.Execute(context.Background(), "delete_everything", `{}`)
	if out != "ERROR: Unknown tool 'delete_everything'" {
		t.Errorf("unknown tool result = %q", out)
	}
	if !IsSentinel(out) {
		t.Error("unknown-tool error must be a sentinel")
	}

	// Malformed arguments still produce a result message.
	out = ts.Execute(context.Background(), ToolRagQuery, `{broken`)
	if out == "" {
		t.Error("malformed arguments must not produce an empty result")
	}
}

func TestIsSentinel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{RagEmptySentinel, true},
		{ArxivEmptySentinel, true},
		{"ARXIV_ERROR: timeout", true},
		{"RAG_ERROR: store down", true},
		{"ERROR: Unknown tool 'x'", true},
		{"[DB: Paper] (src)\ntext", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSentinel(tt.in); got != tt.want {
			t.Errorf("IsSentinel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSystemPromptFallsBackToBaseline(t *testing.T) {
	prompt, err := SystemPrompt(testAPOConfig(false, ""))
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if prompt != BaselinePrompt {
		t.Error("disabled optimization must return the baseline prompt")
	}
}

func TestLoadOptimizedPrompt(t *testing.T) {
	path := t.TempDir() + "/prompt.txt"

	if _, err := LoadOptimizedPrompt(path); err == nil {
		t.Error("missing file must error")
	}

	writeFile(t, path, "  optimized prompt text\n")
	prompt, err := LoadOptimizedPrompt(path)
	if err != nil {
		t.Fatalf("LoadOptimizedPrompt: %v", err)
	}
	if prompt != "optimized prompt text" {
		t.Errorf("prompt = %q", prompt)
	}

	writeFile(t, path, "   \n\t")
	if _, err := LoadOptimizedPrompt(path); err == nil {
		t.Error("blank file must error")
	}
}
