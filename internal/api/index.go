package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// IndexEngine abstracts the retrieve-and-synthesize query engine.
type IndexEngine interface {
	Query(ctx context.Context, question string) (string, error)
}

// IndexDeps holds dependencies for the index service handler.
type IndexDeps struct {
	Engine IndexEngine
	Store  VectorCounter
}

// NewIndexHandler returns the index service router: a single one-shot query
// path with no tool calling.
func NewIndexHandler(deps IndexDeps) http.Handler {
	r := chi.NewRouter()

	r.Post("/query", handleIndexQuery(deps))
	r.Get("/status", handleIndexStatus(deps))

	return r
}

func handleIndexQuery(deps IndexDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeQuery(w, r)
		if !ok {
			return
		}

		answer, err := deps.Engine.Query(r.Context(), req.Question)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "query failed: %v", err)
			return
		}
		writeJSON(w, QueryResponse{Answer: answer, Status: "ok"})
	}
}

func handleIndexStatus(deps IndexDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{
			"status":  "ok",
			"service": "index",
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
