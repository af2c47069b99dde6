package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raglab/arxrag/internal/agent"
	"github.com/raglab/arxrag/internal/config"
)

// AgentRunner abstracts the agent loop for the HTTP layer.
type AgentRunner interface {
	Run(ctx context.Context, question string) (*agent.Result, error)
}

// VectorCounter reports collection size for status endpoints.
type VectorCounter interface {
	Count(ctx context.Context) (int, error)
}

// AgentDeps holds dependencies for the agent service handler.
type AgentDeps struct {
	Agent AgentRunner
	Store VectorCounter
	Cfg   config.Config
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryDebug exposes the run internals when debug output is requested.
type QueryDebug struct {
	ToolsUsed   []string               `json:"tools_used"`
	Rounds      int                    `json:"rounds"`
	Invocations []agent.ToolInvocation `json:"invocations"`
}

// QueryResponse is the body of POST /query.
type QueryResponse struct {
	Answer string      `json:"answer"`
	Debug  *QueryDebug `json:"debug,omitempty"`
	Status string      `json:"status"`
}

// NewAgentHandler returns the agent service router.
func NewAgentHandler(deps AgentDeps) http.Handler {
	r := chi.NewRouter()

	r.Post("/query", handleAgentQuery(deps))
	r.Post("/query/stream", handleAgentQueryStream(deps))
	r.Get("/status", handleAgentStatus(deps))
	r.Get("/debug", handleAgentDebug(deps))

	return r
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return QueryRequest{}, false
	}
	if req.Question == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
		return QueryRequest{}, false
	}
	return req, true
}

func handleAgentQuery(deps AgentDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQuery(w, r)
		if !ok {
			return
		}

		res, err := deps.Agent.Run(r.Context(), req.Question)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "agent run failed: %v", err)
			return
		}

		// The system prompt forbids answering without retrieval; a run that
		// called no tool is rejected rather than served.
		if len(res.Invocations) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error",
				"agent answered without using any tool")
			return
		}

		resp := QueryResponse{Answer: res.Answer, Status: "ok"}
		if r.URL.Query().Get("debug") != "" {
			resp.Debug = &QueryDebug{
				ToolsUsed:   res.ToolsUsed(),
				Rounds:      res.Rounds,
				Invocations: res.Invocations,
			}
		}
		writeJSON(w, resp)
	}
}

// handleAgentQueryStream runs the agent and replays the transcript as
// server-sent events: one event per message, a final "answer" event, then
// [DONE].
func handleAgentQueryStream(deps AgentDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQuery(w, r)
		if !ok {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		res, err := deps.Agent.Run(r.Context(), req.Question)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "agent run failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		for _, msg := range res.Transcript {
			if msg.Role == "system" {
				continue
			}
			writeEvent(w, "message", msg)
			flusher.Flush()
		}
		writeEvent(w, "answer", map[string]string{"answer": res.Answer})
		flusher.Flush()

		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func handleAgentStatus(deps AgentDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status":   "ok",
			"service":  "agent",
			"provider": string(deps.Cfg.LLM.ChatProvider),
		}
		if deps.Store != nil {
			if count, err := deps.Store.Count(r.Context()); err == nil {
				status["documents"] = count
			} else {
				status["status"] = "degraded"
				status["store_error"] = err.Error()
			}
		}
		writeJSON(w, status)
	}
}

// handleAgentDebug dumps the non-secret configuration surface.
func handleAgentDebug(deps AgentDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := config.ShowAll(deps.Cfg)
		dump := make(map[string]string, len(keys))
		for _, k := range keys {
			dump[k.Key] = k.Value
		}
		writeJSON(w, map[string]any{
			"service": "agent",
			"config":  dump,
		})
	}
}
