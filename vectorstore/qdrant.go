package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/m4rc0z/securedoc-project/models"
)

// QdrantStore is a minimal REST client to a Qdrant instance.
type QdrantStore struct {
	url    string
	apiKey string
	client *http.Client
}

type QdrantOptions struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewQdrantStore(opts QdrantOptions) *QdrantStore {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantStore{
		url:    opts.URL,
		apiKey: opts.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dimension int, metric models.DistanceMetric) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive", models.ErrValidation)
	}
	distance := "Euclid"
	if metric == models.MetricCosine {
		distance = "Cosine"
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": distance,
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, name), body)
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, name), nil)
	if err != nil {
		return fmt.Errorf("create qdrant delete request: %w", err)
	}
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant delete collection: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: qdrant delete collection %s: %s", models.ErrUnavailable, name, resp.Status)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	points := make([]map[string]any, len(nodes))
	for i := range nodes {
		node := &nodes[i]
		points[i] = map[string]any{
			"id":     node.ID,
			"vector": node.Embedding,
			"payload": map[string]any{
				"content":     node.Text,
				"chunk_index": node.ChunkIndex,
				"parent_id":   node.ParentID,
				"metadata":    node.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, collection), body)
}

func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, topK int) ([]models.ScoredNode, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", models.ErrValidation)
	}
	if topK <= 0 {
		topK = 8
	}

	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      string  `json:"id"`
			Score   float64 `json:"score"`
			Payload struct {
				Content    string          `json:"content"`
				ChunkIndex int             `json:"chunk_index"`
				ParentID   string          `json:"parent_id"`
				Metadata   models.Metadata `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, collection), reqBody, &resp); err != nil {
		return nil, err
	}

	results := make([]models.ScoredNode, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, models.ScoredNode{
			Node: models.Node{
				ID:         r.ID,
				Text:       r.Payload.Content,
				ChunkIndex: r.Payload.ChunkIndex,
				ParentID:   r.Payload.ParentID,
				Metadata:   r.Payload.Metadata,
			},
			Similarity: r.Score,
		})
	}
	return results, nil
}

func (s *QdrantStore) Reset(ctx context.Context, name string, dimension int, metric models.DistanceMetric) error {
	if err := s.DeleteCollection(ctx, name); err != nil {
		return err
	}
	if err := s.CreateCollection(ctx, name, dimension, metric); err != nil {
		return fmt.Errorf("recreate collection after reset: %w", err)
	}
	return nil
}

func (s *QdrantStore) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *QdrantStore) putJSON(ctx context.Context, url string, body any) error {
	return s.sendJSON(ctx, http.MethodPut, url, body, nil)
}

func (s *QdrantStore) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.sendJSON(ctx, http.MethodPost, url, body, out)
}

func (s *QdrantStore) sendJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal qdrant request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %v", models.ErrUnavailable, method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: qdrant %s %s: %s", models.ErrUnavailable, method, url, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return nil
}

var _ Store = (*QdrantStore)(nil)
