package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/m4rc0z/securedoc-project/models"
)

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStore keeps each collection in its own pgvector-backed table.
// Queries rank with the store's configured metric so they use the operator
// class the collection's index was built with.
type PostgresStore struct {
	pool   *pgxpool.Pool
	metric models.DistanceMetric
}

func NewPostgresStore(pool *pgxpool.Pool, metric models.DistanceMetric) *PostgresStore {
	return &PostgresStore{pool: pool, metric: metric}
}

func (s *PostgresStore) CreateCollection(ctx context.Context, name string, dimension int, metric models.DistanceMetric) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive", models.ErrValidation)
	}

	opClass := "vector_l2_ops"
	if metric == models.MetricCosine {
		opClass = "vector_cosine_ops"
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			chunk_index INT NOT NULL,
			parent_id TEXT,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, name, dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING ivfflat (embedding %s)", name, name, opClass),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create collection %s: %v", models.ErrUnavailable, name, err)
		}
	}
	return nil
}

func (s *PostgresStore) DeleteCollection(ctx context.Context, name string) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", name)); err != nil {
		return fmt.Errorf("%w: delete collection %s: %v", models.ErrUnavailable, name, err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, collection string, nodes []models.Node) error {
	if err := validateCollectionName(collection); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, chunk_index, parent_id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding
	`, collection)

	for i := range nodes {
		node := &nodes[i]
		meta, err := json.Marshal(node.Metadata)
		if err != nil {
			return fmt.Errorf("marshal node metadata: %w", err)
		}
		batch.Queue(stmt, node.ID, node.ChunkIndex, node.ParentID, node.Text, meta, pgvector.NewVector(node.Embedding))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range nodes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("%w: upsert into %s: %v", models.ErrUnavailable, collection, err)
		}
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, vector []float32, topK int) ([]models.ScoredNode, error) {
	if err := validateCollectionName(collection); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", models.ErrValidation)
	}
	if topK <= 0 {
		topK = 8
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %v", models.ErrUnavailable, err)
	}
	defer conn.Release()

	probes := topK * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("%w: set ivfflat probes: %v", models.ErrUnavailable, err)
	}

	operator := distanceOperator(s.metric)
	rows, err := conn.Query(ctx, fmt.Sprintf(`
		SELECT id, chunk_index, parent_id, content, metadata,
		       (embedding %s $1::vector) AS distance
		FROM %s
		ORDER BY embedding %s $1::vector
		LIMIT $2
	`, operator, collection, operator), pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: query collection %s: %v", models.ErrUnavailable, collection, err)
	}
	defer rows.Close()

	results := make([]models.ScoredNode, 0, topK)
	for rows.Next() {
		var (
			node     models.Node
			parentID *string
			meta     []byte
			distance float64
		)
		if err := rows.Scan(&node.ID, &node.ChunkIndex, &parentID, &node.Text, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scan scored node: %w", err)
		}
		if parentID != nil {
			node.ParentID = *parentID
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &node.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal node metadata: %w", err)
			}
		}
		results = append(results, models.ScoredNode{
			Node:       node,
			Similarity: similarityFromDistance(s.metric, distance),
		})
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%w: iterate scored nodes: %v", models.ErrUnavailable, rows.Err())
	}

	return results, nil
}

func (s *PostgresStore) Reset(ctx context.Context, name string, dimension int, metric models.DistanceMetric) error {
	if err := s.DeleteCollection(ctx, name); err != nil {
		return err
	}
	if err := s.CreateCollection(ctx, name, dimension, metric); err != nil {
		return fmt.Errorf("recreate collection after reset: %w", err)
	}
	return nil
}

// distanceOperator maps a metric onto the pgvector operator matching the
// operator class the collection's index was created with.
func distanceOperator(metric models.DistanceMetric) string {
	if metric == models.MetricCosine {
		return "<=>"
	}
	return "<->"
}

// similarityFromDistance normalizes a pgvector distance into a descending
// similarity. Cosine distance is already in [0, 2]; L2 is unbounded.
func similarityFromDistance(metric models.DistanceMetric, distance float64) float64 {
	if metric == models.MetricCosine {
		return 1 - distance
	}
	return 1 / (1 + distance)
}

func validateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid collection name %q", models.ErrValidation, name)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
