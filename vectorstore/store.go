// Package vectorstore provides the durable node collection collaborator.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/m4rc0z/securedoc-project/config"
	"github.com/m4rc0z/securedoc-project/models"
)

// Store persists and searches embedded nodes, keyed by collection name.
// Implementations must be safe for concurrent writers.
type Store interface {
	CreateCollection(ctx context.Context, name string, dimension int, metric models.DistanceMetric) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, nodes []models.Node) error
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]models.ScoredNode, error)

	// Reset drops and recreates the collection with the same dimensionality
	// and metric. Failures during recreation are surfaced, never swallowed.
	Reset(ctx context.Context, name string, dimension int, metric models.DistanceMetric) error
}

// New constructs the configured vector store backend. The Postgres backend
// requires a connection pool; the Qdrant backend ignores it.
func New(cfg config.Config, pool *pgxpool.Pool) (Store, error) {
	switch cfg.VectorStore {
	case config.StorePostgres:
		if pool == nil {
			return nil, fmt.Errorf("postgres vector store selected but no connection pool provided")
		}
		return NewPostgresStore(pool, ParseMetric(cfg.Metric)), nil
	case config.StoreQdrant:
		return NewQdrantStore(QdrantOptions{URL: cfg.QdrantURL, APIKey: cfg.QdrantAPIKey}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore)
	}
}

// ParseMetric maps a config string onto a distance metric, defaulting to L2.
func ParseMetric(value string) models.DistanceMetric {
	if value == string(models.MetricCosine) {
		return models.MetricCosine
	}
	return models.MetricL2
}
