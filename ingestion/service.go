package ingestion

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/m4rc0z/securedoc-project/chunker"
	"github.com/m4rc0z/securedoc-project/embeddings"
	"github.com/m4rc0z/securedoc-project/metadata"
	"github.com/m4rc0z/securedoc-project/models"
	"github.com/m4rc0z/securedoc-project/vectorstore"
)

const defaultEmbedWorkers = 4

// Service orchestrates normalize → chunk → embed → index for one document
// at a time. Concurrent calls for different documents are allowed; repeated
// ingestion of identical text produces duplicate nodes.
type Service struct {
	splitter  chunker.Splitter
	embedder  embeddings.Embedder
	store     vectorstore.Store
	extractor *metadata.Extractor
	logger    *zap.Logger

	collection string
	metric     models.DistanceMetric
	workers    int
}

type Options struct {
	Collection   string
	Metric       models.DistanceMetric
	EmbedWorkers int
}

func NewService(
	splitter chunker.Splitter,
	embedder embeddings.Embedder,
	store vectorstore.Store,
	extractor *metadata.Extractor,
	logger *zap.Logger,
	opts Options,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.EmbedWorkers
	if workers <= 0 {
		workers = defaultEmbedWorkers
	}
	return &Service{
		splitter:   splitter,
		embedder:   embedder,
		store:      store,
		extractor:  extractor,
		logger:     logger,
		collection: opts.Collection,
		metric:     opts.Metric,
		workers:    workers,
	}
}

// IngestText runs the pipeline on raw text. Returns the persisted nodes in
// chunk order together with the merged document metadata.
func (s *Service) IngestText(ctx context.Context, text string, meta models.Metadata) ([]models.Node, models.Metadata, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.Metadata{}, fmt.Errorf("%w: text cannot be empty", models.ErrValidation)
	}
	if err := s.checkCollaborators(); err != nil {
		return nil, models.Metadata{}, err
	}

	merged := s.enrich(ctx, text, meta)
	doc := models.Document{Text: text, Metadata: merged}

	nodes, err := s.ingestDocuments(ctx, []models.Document{doc})
	if err != nil {
		return nil, models.Metadata{}, err
	}
	return nodes, merged, nil
}

// IngestFile parses a file into documents and runs the pipeline on them.
func (s *Service) IngestFile(ctx context.Context, path string, meta models.Metadata) ([]models.Node, models.Metadata, error) {
	if err := s.checkCollaborators(); err != nil {
		return nil, models.Metadata{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.Metadata{}, fmt.Errorf("read file: %w", err)
	}

	parser, err := ParserFor(DetectFormat(path))
	if err != nil {
		return nil, models.Metadata{}, err
	}
	docs, err := parser.Parse(ctx, DocumentPayload{Path: path, Data: data})
	if err != nil {
		return nil, models.Metadata{}, fmt.Errorf("parse document: %w", err)
	}
	if len(docs) == 0 {
		return nil, models.Metadata{}, fmt.Errorf("%w: document contains no text", models.ErrValidation)
	}

	merged := s.enrich(ctx, docs[0].Text, meta)
	for i := range docs {
		// Caller metadata wins; parser-set positional fields (page label,
		// filename) survive because the parser's values sit underneath.
		docs[i].Metadata = merged.Merge(docs[i].Metadata)
	}

	nodes, err := s.ingestDocuments(ctx, docs)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	return nodes, merged, nil
}

// enrich derives document-level metadata via the extractor and merges it
// underneath the caller-supplied metadata. Extraction is best-effort and
// never blocks ingestion.
func (s *Service) enrich(ctx context.Context, text string, meta models.Metadata) models.Metadata {
	if s.extractor == nil {
		return meta
	}
	fields := s.extractor.Extract(ctx, text)
	if cause, failed := fields["error"]; failed {
		s.logger.Warn("metadata enrichment degraded", zap.Any("cause", cause))
	}
	return meta.Merge(metadataFromFields(fields))
}

func (s *Service) ingestDocuments(ctx context.Context, docs []models.Document) ([]models.Node, error) {
	// Lazy collection creation: idempotent on both backends.
	if err := s.store.CreateCollection(ctx, s.collection, s.embedder.Dimension(), s.metric); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	all := make([]models.Node, 0, 16)
	for i := range docs {
		nodes, err := s.splitter.Split(ctx, docs[i])
		if err != nil {
			return nil, fmt.Errorf("chunk document: %w", err)
		}
		for j := range nodes {
			nodes[j].ChunkIndex = len(all) + j
		}
		all = append(all, nodes...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: chunking produced no nodes", models.ErrValidation)
	}

	if err := s.embedNodes(ctx, all); err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, s.collection, all); err != nil {
		// The write is not transactional: some nodes may already be
		// persisted and will sit in the collection unsearchable by this
		// document's remaining chunks.
		s.logger.Warn("possible partial write",
			zap.String("collection", s.collection),
			zap.Int("chunks", len(all)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("index nodes: %w", err)
	}

	s.logger.Info("ingested document",
		zap.String("collection", s.collection),
		zap.Int("chunks", len(all)),
	)
	return all, nil
}

// embedNodes computes embeddings through a bounded worker pool. Results are
// written back by index so chunk order is preserved regardless of completion
// order.
func (s *Service) embedNodes(ctx context.Context, nodes []models.Node) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for i := range nodes {
		i := i
		group.Go(func() error {
			vectors, err := s.embedder.Embed(ctx, []string{nodes[i].EmbedText()})
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", nodes[i].ChunkIndex, err)
			}
			if len(vectors) != 1 {
				return fmt.Errorf("embed chunk %d: expected 1 vector, got %d", nodes[i].ChunkIndex, len(vectors))
			}
			if dim := s.embedder.Dimension(); dim > 0 && len(vectors[0]) != dim {
				return fmt.Errorf("embed chunk %d: dimension mismatch: expected %d, got %d", nodes[i].ChunkIndex, dim, len(vectors[0]))
			}
			nodes[i].Embedding = vectors[0]
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		// Nothing was written yet for this call, but earlier documents of a
		// concurrent batch may already be persisted and unsearchable.
		s.logger.Warn("ingestion aborted during embedding", zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) checkCollaborators() error {
	if s.embedder == nil || s.store == nil || s.splitter == nil {
		return fmt.Errorf("%w: ingestion service not fully configured", models.ErrUnavailable)
	}
	return nil
}

func metadataFromFields(fields map[string]any) models.Metadata {
	meta := models.Metadata{
		DocumentType: stringField(fields, "document_type"),
		Category:     stringField(fields, "category"),
		Author:       stringField(fields, "author"),
		Date:         stringField(fields, "date"),
		Language:     stringField(fields, "language"),
		Summary:      stringField(fields, "summary"),
		Keywords:     stringsField(fields, "keywords"),
		Entities:     stringsField(fields, "entities"),
	}
	return meta
}

func stringField(fields map[string]any, key string) string {
	if value, ok := fields[key].(string); ok {
		return value
	}
	return ""
}

func stringsField(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if value, ok := item.(string); ok && value != "" {
			out = append(out, value)
		}
	}
	return out
}

