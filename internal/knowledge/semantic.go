package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
)

// DefaultEmbeddingDimensions matches OpenAI's text-embedding-3-small.
const DefaultEmbeddingDimensions = 1536

// SemanticMatch is one nearest-neighbour result: a disease key with its
// stored symptom description and cosine distance from the query.
type SemanticMatch struct {
	Key      string  `json:"key"`
	Symptoms string  `json:"symptoms"`
	Distance float64 `json:"distance"`
}

// SemanticIndex stores symptom-description embeddings per disease key and
// answers nearest-neighbour queries over them. It complements the keyword
// classifier: free text that matches no rule can still be ranked against the
// knowledge base by embedding similarity.
//
// All methods are safe for concurrent use.
type SemanticIndex struct {
	db   DB
	dims int
}

// NewSemanticIndex creates a SemanticIndex over db. dims is the embedding
// dimensionality; 0 means [DefaultEmbeddingDimensions].
func NewSemanticIndex(db DB, dims int) *SemanticIndex {
	if dims <= 0 {
		dims = DefaultEmbeddingDimensions
	}
	return &SemanticIndex{db: db, dims: dims}
}

// Migrate creates the vector extension, the embeddings table and its HNSW
// index if they do not already exist.
func (s *SemanticIndex) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS disease_embeddings (
    key        TEXT PRIMARY KEY,
    symptoms   TEXT NOT NULL,
    embedding  vector(%d) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_disease_embeddings_hnsw
    ON disease_embeddings USING hnsw (embedding vector_cosine_ops);
`, s.dims)

	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("knowledge: semantic migrate: %w", err)
	}
	return nil
}

// Index upserts the embedding of a disease's symptom description.
func (s *SemanticIndex) Index(ctx context.Context, key, symptoms string, embedding []float32) error {
	if len(embedding) != s.dims {
		return fmt.Errorf("knowledge: semantic index: embedding has %d dimensions, want %d", len(embedding), s.dims)
	}

	const q = `
		INSERT INTO disease_embeddings (key, symptoms, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
		    symptoms  = EXCLUDED.symptoms,
		    embedding = EXCLUDED.embedding`

	if _, err := s.db.Exec(ctx, q, NormalizeKey(key), symptoms, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("knowledge: semantic index %q: %w", key, err)
	}
	return nil
}

// Search returns the topK disease keys whose symptom embeddings are closest
// (cosine distance) to the query embedding, most similar first.
func (s *SemanticIndex) Search(ctx context.Context, embedding []float32, topK int) ([]SemanticMatch, error) {
	const q = `
		SELECT key, symptoms, embedding <=> $1 AS distance
		FROM   disease_embeddings
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.db.Query(ctx, q, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("knowledge: semantic search: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SemanticMatch, error) {
		var m SemanticMatch
		err := row.Scan(&m.Key, &m.Symptoms, &m.Distance)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: semantic scan rows: %w", err)
	}
	if matches == nil {
		matches = []SemanticMatch{}
	}
	return matches, nil
}
