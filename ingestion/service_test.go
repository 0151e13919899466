package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4rc0z/securedoc-project/chunker"
	"github.com/m4rc0z/securedoc-project/embeddings"
	"github.com/m4rc0z/securedoc-project/models"
	"github.com/m4rc0z/securedoc-project/vectorstore"
)

type sentenceSplitter struct{}

var _ chunker.Splitter = (*sentenceSplitter)(nil)

func (sentenceSplitter) Split(_ context.Context, doc models.Document) ([]models.Node, error) {
	parts := strings.Split(doc.Text, ". ")
	nodes := make([]models.Node, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		nodes = append(nodes, models.Node{
			ID:       uuid.NewString(),
			Text:     part,
			Metadata: doc.Metadata,
		})
	}
	return nodes, nil
}

type countingEmbedder struct {
	dimension int
	err       error
}

var _ embeddings.Embedder = (*countingEmbedder)(nil)

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dimension)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int { return e.dimension }

type memoryStore struct {
	vectorstore.Store

	created   bool
	upserted  []models.Node
	upsertErr error
}

func (s *memoryStore) CreateCollection(context.Context, string, int, models.DistanceMetric) error {
	s.created = true
	return nil
}

func (s *memoryStore) Upsert(_ context.Context, _ string, nodes []models.Node) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, nodes...)
	return nil
}

func newTestService(store *memoryStore, embedder *countingEmbedder) *Service {
	return NewService(sentenceSplitter{}, embedder, store, nil, nil, Options{
		Collection:   "chunks",
		Metric:       models.MetricL2,
		EmbedWorkers: 2,
	})
}

func TestIngestTextEmptyInput(t *testing.T) {
	svc := newTestService(&memoryStore{}, &countingEmbedder{dimension: 2})

	_, _, err := svc.IngestText(context.Background(), "  \n ", models.Metadata{})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestIngestTextPersistsOrderedChunks(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, &countingEmbedder{dimension: 2})

	nodes, meta, err := svc.IngestText(context.Background(),
		"First sentence. Second sentence. Third sentence.",
		models.Metadata{Category: "test"})

	require.NoError(t, err)
	assert.True(t, store.created)
	require.Len(t, nodes, 3)
	assert.Equal(t, "test", meta.Category)

	for i, node := range nodes {
		assert.Equal(t, i, node.ChunkIndex)
		assert.Len(t, node.Embedding, 2)
		assert.Equal(t, "test", node.Metadata.Category)
	}
	assert.Equal(t, nodes, store.upserted)
}

func TestIngestTextEmbeddingFailure(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, &countingEmbedder{dimension: 2, err: errors.New("embedder down")})

	_, _, err := svc.IngestText(context.Background(), "Some text here.", models.Metadata{})

	require.Error(t, err)
	assert.Empty(t, store.upserted)
}

func TestIngestTextUpsertFailure(t *testing.T) {
	store := &memoryStore{upsertErr: errors.New("connection reset")}
	svc := newTestService(store, &countingEmbedder{dimension: 2})

	_, _, err := svc.IngestText(context.Background(), "Some text here.", models.Metadata{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "index nodes")
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatMarkdown, DetectFormat("/data/readme.MD"))
	assert.Equal(t, FormatPDF, DetectFormat("cv.pdf"))
	assert.Equal(t, FormatCSV, DetectFormat("rows.csv"))
	assert.Equal(t, FormatText, DetectFormat("notes.txt"))
	assert.Equal(t, FormatUnknown, DetectFormat("image.png"))
}

func TestCSVParser(t *testing.T) {
	payload := DocumentPayload{
		Path: "people.csv",
		Data: []byte("name,role\nAda,engineer\nGrace,admiral\n"),
	}

	docs, err := csvParser{}.Parse(context.Background(), payload)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "people.csv", docs[0].Metadata.Filename)
	assert.Contains(t, docs[0].Text, "Row 1\nname: Ada\nrole: engineer")
	assert.Contains(t, docs[0].Text, "Row 2\nname: Grace\nrole: admiral")
}

func TestPlainTextParserNormalizesLineEndings(t *testing.T) {
	payload := DocumentPayload{
		Path: "notes.txt",
		Data: []byte("line one\r\nline two  \r\n"),
	}

	docs, err := plainTextParser{}.Parse(context.Background(), payload)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "line one\nline two\n", docs[0].Text)
	assert.Equal(t, "notes.txt", docs[0].Metadata.Filename)
}
