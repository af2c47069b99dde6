package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Compile-time check that QdrantStore implements Store.
var _ Store = (*QdrantStore)(nil)

// QdrantStore talks to a Qdrant instance over its REST API. The request
// bodies are constructed explicitly here, so the exact JSON sent is under
// this package's control.
type QdrantStore struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

// NewQdrantStore creates a store for the given collection at baseURL.
func NewQdrantStore(baseURL, collection string) *QdrantStore {
	return &QdrantStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// qdrantEnvelope is the common response wrapper.
type qdrantEnvelope struct {
	Status json.RawMessage `json:"status"`
	Result json.RawMessage `json:"result"`
}

type collectionInfo struct {
	Config struct {
		Params struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
	PointsCount int `json:"points_count"`
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, dim int) error {
	info, exists, err := s.getCollection(ctx)
	if err != nil {
		return err
	}

	if exists {
		if info.Config.Params.Vectors.Size != dim {
			return fmt.Errorf(
				"collection %q has dimension %d but the embedding model requires %d "+
					"(delete the collection or use a different collection name): %w",
				s.collection, info.Config.Params.Vectors.Size, dim, ErrDimensionMismatch)
		}
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling create request: %w", err)
	}

	_, err = s.do(ctx, http.MethodPut, "/collections/"+s.collection, body)
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", s.collection, err)
	}
	return nil
}

// qdrantPoint is the upsert wire format: payload keeps the text at the top
// level and the document metadata nested, matching what rag_query reads back.
type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	wire := make([]qdrantPoint, len(points))
	for i, p := range points {
		wire[i] = qdrantPoint{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: map[string]any{
				"text": p.Payload.Text,
				"metadata": map[string]any{
					"title":    p.Payload.Title,
					"source":   p.Payload.Source,
					"arxiv_id": p.Payload.ArxivID,
				},
			},
		}
	}

	body, err := json.Marshal(map[string]any{"points": wire})
	if err != nil {
		return fmt.Errorf("marshaling upsert request: %w", err)
	}

	_, err = s.do(ctx, http.MethodPut, "/collections/"+s.collection+"/points?wait=true", body)
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

type searchHit struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Payload struct {
		Text     string `json:"text"`
		Metadata struct {
			Title   string `json:"title"`
			Source  string `json:"source"`
			ArxivID string `json:"arxiv_id"`
		} `json:"metadata"`
	} `json:"payload"`
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int) ([]Scored, error) {
	body, err := json.Marshal(map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	result, err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/search", body)
	if err != nil {
		return nil, fmt.Errorf("searching collection %q: %w", s.collection, err)
	}

	var hits []searchHit
	if err := json.Unmarshal(result, &hits); err != nil {
		return nil, fmt.Errorf("decoding search result: %w", err)
	}

	scored := make([]Scored, len(hits))
	for i, h := range hits {
		scored[i] = Scored{
			Point: Point{
				ID: h.ID,
				Payload: Payload{
					Text:    h.Payload.Text,
					Title:   h.Payload.Metadata.Title,
					Source:  h.Payload.Metadata.Source,
					ArxivID: h.Payload.Metadata.ArxivID,
				},
			},
			Score: h.Score,
		}
	}
	return scored, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	body := []byte(`{"exact":true}`)
	result, err := s.do(ctx, http.MethodPost, "/collections/"+s.collection+"/points/count", body)
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}

	var count struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(result, &count); err != nil {
		return 0, fmt.Errorf("decoding count result: %w", err)
	}
	return count.Count, nil
}

// getCollection returns the collection info, reporting existence via the
// second return value. A 404 is not an error.
func (s *QdrantStore) getCollection(ctx context.Context) (collectionInfo, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/collections/"+s.collection, nil)
	if err != nil {
		return collectionInfo{}, false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return collectionInfo{}, false, fmt.Errorf("requesting collection info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return collectionInfo{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return collectionInfo{}, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env qdrantEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return collectionInfo{}, false, fmt.Errorf("decoding collection info: %w", err)
	}

	var info collectionInfo
	if err := json.Unmarshal(env.Result, &info); err != nil {
		return collectionInfo{}, false, fmt.Errorf("decoding collection config: %w", err)
	}
	return info, true, nil
}

// do executes a request and returns the result field of the response
// envelope.
func (s *QdrantStore) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var env qdrantEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return env.Result, nil
}
