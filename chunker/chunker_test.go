package chunker

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4rc0z/securedoc-project/embeddings"
	"github.com/m4rc0z/securedoc-project/models"
)

type stubEmbedder struct {
	vectors [][]float32
	fixed   []float32
}

var _ embeddings.Embedder = (*stubEmbedder)(nil)

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.fixed != nil {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = s.fixed
		}
		return out, nil
	}
	return s.vectors[:len(texts)], nil
}

func (s *stubEmbedder) Dimension() int { return 2 }

func TestSemanticSplitterEmptyInput(t *testing.T) {
	splitter := NewSemanticSplitter(&stubEmbedder{fixed: []float32{1, 0}})
	nodes, err := splitter.Split(context.Background(), models.Document{Text: "   "})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestSemanticSplitterSingleSentence(t *testing.T) {
	splitter := NewSemanticSplitter(&stubEmbedder{fixed: []float32{1, 0}})
	doc := models.Document{
		Text:     "The quarterly report was filed on time.",
		Metadata: models.Metadata{Filename: "report.txt", Category: "finance"},
	}

	nodes, err := splitter.Split(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	node := nodes[0]
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "finance", node.Metadata.Category)
	assert.Contains(t, node.ExcludedEmbedKeys, "filename")
	assert.Contains(t, node.ExcludedEmbedKeys, "page_label")
}

func TestSemanticSplitterUniformTextStaysTogether(t *testing.T) {
	// Identical embeddings mean zero distance everywhere, so no breakpoint
	// can exceed the threshold.
	splitter := NewSemanticSplitter(&stubEmbedder{fixed: []float32{1, 0}})
	doc := models.Document{Text: "First sentence. Second sentence. Third sentence. Fourth sentence."}

	nodes, err := splitter.Split(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
}

func TestSemanticSplitterCoversAllSentences(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}, {0.1, 0.9}}
	splitter := NewSemanticSplitter(&stubEmbedder{vectors: vectors})
	doc := models.Document{Text: "Cats sleep a lot. Cats also purr. Taxes are due in April. Returns can be amended."}

	nodes, err := splitter.Split(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)

	var joined strings.Builder
	for _, node := range nodes {
		joined.WriteString(node.Text)
		joined.WriteString(" ")
	}
	for _, fragment := range []string{"Cats sleep a lot.", "Cats also purr.", "Taxes are due in April.", "Returns can be amended."} {
		assert.Contains(t, joined.String(), fragment)
	}
}

func TestSplitSentencesKeepsUnterminatedTail(t *testing.T) {
	sentences := splitSentences("One. Two! Three without terminator")
	require.Len(t, sentences, 3)
	assert.Equal(t, "Three without terminator", sentences[2])
}

func TestPercentile(t *testing.T) {
	assert.True(t, math.IsInf(percentile(nil, 95), 1))
	assert.Equal(t, 3.0, percentile([]float64{3, 1, 2}, 95))
	assert.Equal(t, 1.0, percentile([]float64{3, 1, 2}, 1))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1}))
}

func TestHierarchicalSplitterWindowMetadata(t *testing.T) {
	splitter := NewHierarchicalSplitter()
	splitter.parentSize = 80
	splitter.middleSize = 40
	splitter.leafSize = 15

	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu xi omicron pi"
	doc := models.Document{Text: text, Metadata: models.Metadata{Filename: "notes.txt"}}

	nodes, err := splitter.Split(context.Background(), doc)
	require.NoError(t, err)
	require.Greater(t, len(nodes), 1)

	for _, node := range nodes {
		window := node.Metadata.Extra[WindowMetadataKey]
		require.NotEmpty(t, window)
		assert.Contains(t, window, node.Text)
		assert.NotEmpty(t, node.ParentID)
		assert.NotEmpty(t, node.Metadata.Extra["parent_id"])
		assert.Contains(t, node.ExcludedEmbedKeys, WindowMetadataKey)
		assert.NotContains(t, node.EmbedText(), "window: ")
	}
}

func TestHierarchicalSplitterEmptyInput(t *testing.T) {
	nodes, err := NewHierarchicalSplitter().Split(context.Background(), models.Document{Text: "\n\t "})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestSplitWindowsPreservesOrder(t *testing.T) {
	text := "one two three four five six seven eight"
	segments := splitWindows(text, 10)
	require.Greater(t, len(segments), 1)

	rejoined := strings.Join(segments, " ")
	assert.Equal(t, strings.Fields(text), strings.Fields(rejoined))
}
