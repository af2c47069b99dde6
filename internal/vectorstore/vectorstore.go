package vectorstore

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned by EnsureCollection when the collection
// already exists with a different vector size. This is a configuration
// error: the operator must delete the collection or change the embedding
// model, so it is never retried.
var ErrDimensionMismatch = errors.New("collection dimension mismatch")

// Payload is the metadata stored alongside each vector, mirroring the
// ingestion Document.
type Payload struct {
	Text    string `json:"text"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	ArxivID string `json:"arxiv_id"`
}

// Point is one entry in the collection. Points are insert-only: there is no
// update path.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Scored is a Point with its similarity score.
type Scored struct {
	Point
	Score float32
}

// Store is the vector storage and similarity search interface. Two backends
// exist: Qdrant over REST and a local SQLite brute-force store.
type Store interface {
	// EnsureCollection creates the collection with the given vector size if
	// it does not exist, or validates the size of an existing one.
	// Idempotent; returns ErrDimensionMismatch (wrapped) on size conflict.
	EnsureCollection(ctx context.Context, dim int) error

	// Upsert inserts points into the collection.
	Upsert(ctx context.Context, points []Point) error

	// Search returns the top-limit points by cosine similarity.
	Search(ctx context.Context, vector []float32, limit int) ([]Scored, error)

	// Count returns the number of points in the collection.
	Count(ctx context.Context) (int, error)
}
