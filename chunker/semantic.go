package chunker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/m4rc0z/securedoc-project/embeddings"
	"github.com/m4rc0z/securedoc-project/models"
)

const (
	defaultBufferSize           = 1
	defaultBreakpointPercentile = 95.0
)

// SemanticSplitter splits text at points of maximal semantic discontinuity:
// adjacent sentence groups are embedded and a breakpoint is placed wherever
// the cosine distance between neighbors exceeds a percentile threshold over
// the whole document.
type SemanticSplitter struct {
	embedder             embeddings.Embedder
	bufferSize           int
	breakpointPercentile float64
}

func NewSemanticSplitter(embedder embeddings.Embedder) *SemanticSplitter {
	return &SemanticSplitter{
		embedder:             embedder,
		bufferSize:           defaultBufferSize,
		breakpointPercentile: defaultBreakpointPercentile,
	}
}

func (s *SemanticSplitter) Split(ctx context.Context, doc models.Document) ([]models.Node, error) {
	sentences := splitSentences(doc.Text)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) == 1 {
		node := newNode(doc, sentences[0], 0)
		return []models.Node{node}, nil
	}

	groups := s.bufferedGroups(sentences)
	vectors, err := s.embedder.Embed(ctx, groups)
	if err != nil {
		return nil, fmt.Errorf("embed sentence groups: %w", err)
	}
	if len(vectors) != len(groups) {
		return nil, fmt.Errorf("embedding count mismatch: have %d groups, %d vectors", len(groups), len(vectors))
	}

	distances := make([]float64, len(vectors)-1)
	for i := 0; i < len(vectors)-1; i++ {
		distances[i] = 1 - cosineSimilarity(vectors[i], vectors[i+1])
	}

	threshold := percentile(distances, s.breakpointPercentile)

	nodes := make([]models.Node, 0, 4)
	start := 0
	flush := func(end int) {
		text := strings.Join(sentences[start:end], " ")
		if strings.TrimSpace(text) == "" {
			return
		}
		nodes = append(nodes, newNode(doc, text, len(nodes)))
		start = end
	}

	for i, distance := range distances {
		if distance > threshold {
			flush(i + 1)
		}
	}
	flush(len(sentences))

	return nodes, nil
}

// bufferedGroups joins each sentence with its neighbors so that local context
// smooths the per-sentence embeddings.
func (s *SemanticSplitter) bufferedGroups(sentences []string) []string {
	groups := make([]string, len(sentences))
	for i := range sentences {
		lo := i - s.bufferSize
		if lo < 0 {
			lo = 0
		}
		hi := i + s.bufferSize + 1
		if hi > len(sentences) {
			hi = len(sentences)
		}
		groups[i] = strings.Join(sentences[lo:hi], " ")
	}
	return groups
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// percentile returns the nearest-rank percentile of values. An empty input
// yields +Inf so that no breakpoint fires.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
