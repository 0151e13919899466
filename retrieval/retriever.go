// Package retrieval finds and reorders candidate nodes for a query.
package retrieval

import (
	"context"
	"fmt"

	"github.com/m4rc0z/securedoc-project/chunker"
	"github.com/m4rc0z/securedoc-project/embeddings"
	"github.com/m4rc0z/securedoc-project/models"
	"github.com/m4rc0z/securedoc-project/vectorstore"
)

const defaultTopK = 8

// Retriever embeds a query and searches the active collection by vector
// similarity.
type Retriever struct {
	embedder   embeddings.Embedder
	store      vectorstore.Store
	collection string
	topK       int
}

func NewRetriever(embedder embeddings.Embedder, store vectorstore.Store, collection string, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		topK:       topK,
	}
}

// Retrieve embeds the query text and returns candidates ordered by
// descending similarity. Fewer than topK nodes is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredNode, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vectors", models.ErrUnavailable)
	}
	return r.RetrieveVector(ctx, vectors[0], topK)
}

// RetrieveVector searches with an already-computed query vector.
func (r *Retriever) RetrieveVector(ctx context.Context, vector []float32, topK int) ([]models.ScoredNode, error) {
	if topK <= 0 {
		topK = r.topK
	}
	nodes, err := r.store.Query(ctx, r.collection, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return nodes, nil
}

// ExpandToParent swaps each leaf's text for its enclosing window when the
// node was produced by hierarchical chunking. Nodes without a window are
// returned untouched.
func ExpandToParent(nodes []models.ScoredNode) []models.ScoredNode {
	expanded := make([]models.ScoredNode, len(nodes))
	copy(expanded, nodes)
	for i := range expanded {
		if window, ok := expanded[i].Node.Metadata.Extra[chunker.WindowMetadataKey]; ok && window != "" {
			expanded[i].Node.Text = window
		}
	}
	return expanded
}
