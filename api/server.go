// Package api exposes the HTTP surface of the service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/m4rc0z/securedoc-project/chat"
	"github.com/m4rc0z/securedoc-project/ingestion"
	"github.com/m4rc0z/securedoc-project/models"
	"github.com/m4rc0z/securedoc-project/retrieval"
	"github.com/m4rc0z/securedoc-project/vectorstore"
)

// Server wires the ingestion and chat services into an HTTP router.
type Server struct {
	ingestion *ingestion.Service
	chat      *chat.Service
	reranker  retrieval.Reranker
	store     vectorstore.Store
	logger    *zap.Logger

	collection string
	dimension  int
	metric     models.DistanceMetric
	rerankTopK int
}

type ServerOptions struct {
	Collection string
	Dimension  int
	Metric     models.DistanceMetric
	RerankTopK int
}

func NewServer(
	ingestionService *ingestion.Service,
	chatService *chat.Service,
	reranker retrieval.Reranker,
	store vectorstore.Store,
	logger *zap.Logger,
	opts ServerOptions,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ingestion:  ingestionService,
		chat:       chatService,
		reranker:   reranker,
		store:      store,
		logger:     logger,
		collection: opts.Collection,
		dimension:  opts.Dimension,
		metric:     opts.Metric,
		rerankTopK: opts.RerankTopK,
	}
}

// Router builds the chi router with the service's routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Post("/ask", s.handleAsk)
		r.Post("/rerank", s.handleRerank)
		r.Post("/reset", s.handleReset)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ingestChunk struct {
	Content   string          `json:"content"`
	Embedding []float32       `json:"embedding"`
	Metadata  models.Metadata `json:"metadata"`
}

type ingestResponse struct {
	DocumentMetadata models.Metadata `json:"document_metadata"`
	Chunks           []ingestChunk   `json:"chunks"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	nodes, merged, err := s.ingestion.IngestText(r.Context(), req.Text, metadataFromMap(req.Metadata))
	if err != nil {
		s.writeError(w, err)
		return
	}

	chunks := make([]ingestChunk, len(nodes))
	for i, node := range nodes {
		chunks[i] = ingestChunk{
			Content:   node.Text,
			Embedding: node.Embedding,
			Metadata:  node.Metadata,
		}
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		DocumentMetadata: merged,
		Chunks:           chunks,
	})
}

type askRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

type askResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// handleAsk never returns 500 for pipeline faults: the chat service
// degrades those into apology answers.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Question == "" {
		s.writeError(w, fmt.Errorf("%w: question cannot be empty", models.ErrValidation))
		return
	}

	answer := s.chat.Ask(r.Context(), req.Question, req.Context)
	writeJSON(w, http.StatusOK, askResponse{
		Answer:  answer.Text,
		Sources: answer.Sources,
	})
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopK      int      `json:"top_k,omitempty"`
}

type rerankResult struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

func (s *Server) handleRerank(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Query == "" || len(req.Documents) == 0 {
		s.writeError(w, fmt.Errorf("%w: query and documents are required", models.ErrValidation))
		return
	}
	if s.reranker == nil {
		s.writeError(w, fmt.Errorf("%w: no reranker configured", models.ErrUnavailable))
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.rerankTopK
	}

	results, err := s.reranker.Rerank(r.Context(), req.Query, req.Documents, topK)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]rerankResult, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(req.Documents) {
			continue
		}
		out = append(out, rerankResult{
			Content: req.Documents[res.Index],
			Score:   res.Score,
		})
	}
	writeJSON(w, http.StatusOK, rerankResponse{Results: out})
}

type resetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	err := s.store.Reset(r.Context(), s.collection, s.dimension, s.metric)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("collection reset", zap.String("collection", s.collection))
	writeJSON(w, http.StatusOK, resetResponse{
		Status:  "ok",
		Message: "collection " + s.collection + " was reset",
	})
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
