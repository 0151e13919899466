package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4rc0z/securedoc-project/models"
	"github.com/m4rc0z/securedoc-project/retrieval"
)

type stubReranker struct {
	results []retrieval.RerankedResult
	err     error
}

var _ retrieval.Reranker = (*stubReranker)(nil)

func (s *stubReranker) Rerank(context.Context, string, []string, int) ([]retrieval.RerankedResult, error) {
	return s.results, s.err
}

func newTestServer(reranker retrieval.Reranker) *Server {
	return NewServer(nil, nil, reranker, nil, nil, ServerOptions{
		Collection: "chunks",
		Dimension:  384,
		Metric:     models.MetricL2,
		RerankTopK: 5,
	})
}

func TestHealthz(t *testing.T) {
	server := newTestServer(&stubReranker{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRerankEndpoint(t *testing.T) {
	reranker := &stubReranker{results: []retrieval.RerankedResult{
		{Index: 1, Score: 0.9},
		{Index: 0, Score: 0.2},
	}}
	server := newTestServer(reranker)

	body := `{"query":"q","documents":["doc a","doc b"],"top_k":2}`
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/rerank", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"doc b"`)
	assert.Contains(t, rec.Body.String(), `"score":0.9`)
}

func TestRerankEndpointValidation(t *testing.T) {
	server := newTestServer(&stubReranker{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/rerank", strings.NewReader(`{"query":""}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRerankEndpointUnavailable(t *testing.T) {
	reranker := &stubReranker{err: models.ErrUnavailable}
	server := newTestServer(reranker)

	body := `{"query":"q","documents":["doc"]}`
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/rerank", strings.NewReader(body)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRerankEndpointNoReranker(t *testing.T) {
	server := newTestServer(nil)

	body := `{"query":"q","documents":["a","b"],"top_k":2}`
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/rerank", strings.NewReader(body)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no reranker configured")
}

func TestAskEndpointValidation(t *testing.T) {
	server := newTestServer(&stubReranker{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":""}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	server := newTestServer(&stubReranker{})

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteErrorMapping(t *testing.T) {
	server := newTestServer(&stubReranker{})

	rec := httptest.NewRecorder()
	server.writeError(rec, errors.New("plain failure"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
