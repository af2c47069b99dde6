package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raglab/arxrag/internal/config"
	"github.com/raglab/arxrag/internal/ingest"
)

// maxIngestDocs caps a single ingestion request.
const maxIngestDocs = 25

// Ingester abstracts the ingestion pipeline for the HTTP layer.
type Ingester interface {
	Run(ctx context.Context, query string, maxDocs int) (ingest.Summary, error)
}

// IngestDeps holds dependencies for the ingestion service handler.
type IngestDeps struct {
	Pipeline Ingester
	Cfg      config.ArxivConfig
}

// IngestRequest is the body of POST /ingest. Both fields are optional and
// default to the configured ingestion query and document cap.
type IngestRequest struct {
	Query   string `json:"query"`
	MaxDocs int    `json:"max_docs"`
}

// NewIngestHandler returns the ingestion service router.
func NewIngestHandler(deps IngestDeps) http.Handler {
	r := chi.NewRouter()

	r.Post("/ingest", handleRunIngest(deps))
	r.Get("/status", handleIngestStatus)

	return r
}

func handleRunIngest(deps IngestDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.MaxDocs < 0 || req.MaxDocs > maxIngestDocs {
			httpError(w, http.StatusBadRequest, "invalid_request_error",
				"max_docs must be between 0 and %d", maxIngestDocs)
			return
		}

		if req.Query == "" {
			req.Query = deps.Cfg.Query
		}
		if req.MaxDocs == 0 {
			req.MaxDocs = deps.Cfg.MaxDocs
		}

		summary, err := deps.Pipeline.Run(r.Context(), req.Query, req.MaxDocs)
		if err != nil {
			slog.Error("ingestion failed", "query", req.Query, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "ingestion failed")
			return
		}
		writeJSON(w, summary)
	}
}

func handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"service": "ingestion",
	})
}
