package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/m4rc0z/securedoc-project/models"
)

// Reranker recomputes relevance for query/document pairs with a
// cross-encoder model. Its scores are not comparable to retrieval
// similarity.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankedResult, error)
}

// RerankedResult points back into the candidate slice by index.
type RerankedResult struct {
	Index int
	Score float64
}

// CrossEncoderReranker calls an external reranking service over HTTP.
type CrossEncoderReranker struct {
	url    string
	model  string
	client *http.Client
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func NewCrossEncoderReranker(url, model string) *CrossEncoderReranker {
	return &CrossEncoderReranker{
		url:   url,
		model: model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankedResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: call reranker: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: reranker status %d: %s", models.ErrUnavailable, resp.StatusCode, string(data))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	results := make([]RerankedResult, len(parsed.Results))
	for i, res := range parsed.Results {
		results[i] = RerankedResult{Index: res.Index, Score: res.RelevanceScore}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// RerankNodes applies the reranker to retrieved candidates. Reranking is a
// best-effort enhancement: any failure degrades to the first topK candidates
// in received order, unscored, and is never surfaced to the caller.
func RerankNodes(ctx context.Context, reranker Reranker, logger *zap.Logger, query string, candidates []models.ScoredNode, topK int) []models.ScoredNode {
	if len(candidates) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = len(candidates)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if reranker == nil {
		return truncate(candidates, topK)
	}

	texts := make([]string, len(candidates))
	for i := range candidates {
		texts[i] = candidates[i].Node.Text
	}

	results, err := reranker.Rerank(ctx, query, texts, topK)
	if err != nil {
		logger.Warn("reranking degraded to retrieval order", zap.Error(err))
		return truncate(candidates, topK)
	}

	reranked := make([]models.ScoredNode, 0, min(topK, len(results)))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		node := candidates[res.Index]
		node.RerankScore = res.Score
		node.Reranked = true
		reranked = append(reranked, node)
		if len(reranked) == topK {
			break
		}
	}
	if len(reranked) == 0 {
		return truncate(candidates, topK)
	}
	return reranked
}

func truncate(nodes []models.ScoredNode, topK int) []models.ScoredNode {
	if len(nodes) > topK {
		nodes = nodes[:topK]
	}
	out := make([]models.ScoredNode, len(nodes))
	copy(out, nodes)
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
