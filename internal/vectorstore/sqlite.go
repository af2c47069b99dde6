package vectorstore

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore provides vector storage and brute-force cosine similarity
// search backed by SQLite. It serves local development and tests; production
// deployments use the Qdrant backend. At the collection sizes this service
// ingests (hundreds of abstracts) a full scan is well under a millisecond.
type SQLiteStore struct {
	db         *sql.DB
	collection string
}

// OpenSQLiteStore opens (or creates) a SQLite database at path and prepares
// the schema. Pass ":memory:" for an in-memory database (used by tests).
func OpenSQLiteStore(path, collection string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" under concurrent writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, collection: collection}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS points (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			arxiv_id TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_points_collection ON points(collection);`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureCollection(ctx context.Context, dim int) error {
	var existing int
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", s.collection).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO collections (name, dimension) VALUES (?, ?)", s.collection, dim)
		if err != nil {
			return fmt.Errorf("registering collection %q: %w", s.collection, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("reading collection %q: %w", s.collection, err)
	}

	if existing != dim {
		return fmt.Errorf(
			"collection %q has dimension %d but the embedding model requires %d "+
				"(delete the collection or use a different collection name): %w",
			s.collection, existing, dim, ErrDimensionMismatch)
	}
	return nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO points (id, collection, title, source, arxiv_id, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		blob := encodeFloat32s(p.Vector)
		if _, err := stmt.Exec(p.ID, s.collection, p.Payload.Title, p.Payload.Source,
			p.Payload.ArxivID, p.Payload.Text, blob); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting point %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// Search performs a brute-force cosine similarity scan, keeping the top-limit
// candidates in a min-heap.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, limit int) ([]Scored, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, source, arxiv_id, text, embedding
		FROM points WHERE collection = ?`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}
	defer rows.Close()

	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	h := &scoredHeap{}
	heap.Init(h)

	// Reusable decode buffer to avoid per-row allocations.
	var buf []float32

	for rows.Next() {
		var p Point
		var blob []byte
		if err := rows.Scan(&p.ID, &p.Payload.Title, &p.Payload.Source,
			&p.Payload.ArxivID, &p.Payload.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", p.ID, err)
		}

		score := cosine(vector, buf, queryNorm)
		if h.Len() < limit {
			heap.Push(h, Scored{Point: p, Score: score})
		} else if score > (*h)[0].Score {
			(*h)[0] = Scored{Point: p, Score: score}
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	// Pop ascending, fill descending.
	results := make([]Scored, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(Scored)
	}
	return results, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM points WHERE collection = ?", s.collection).Scan(&count)
	return count, err
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing it when capacity allows.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * |b|). aNorm is precomputed once per
// query.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// scoredHeap is a min-heap of Scored ordered by Score, used to track the
// top-K candidates during a scan.
type scoredHeap []Scored

func (h scoredHeap) Len() int            { return len(h) }
func (h scoredHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(Scored)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
