// Package chat answers questions over indexed documents.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/m4rc0z/securedoc-project/llm"
	"github.com/m4rc0z/securedoc-project/models"
	"github.com/m4rc0z/securedoc-project/retrieval"
)

// Stage names the pipeline step a query is in. Logged for observability.
type Stage string

const (
	StageReceived      Stage = "received"
	StageDirectContext Stage = "direct_context"
	StageRetrieving    Stage = "retrieving"
	StageReranking     Stage = "reranking"
	StageSynthesizing  Stage = "synthesizing"
	StageDone          Stage = "done"
)

const (
	defaultQueryTimeout = 60 * time.Second
	minDirectContext    = 10
	maxCitations        = 5

	timeoutAnswer = "I'm sorry, I couldn't search the documents fast enough to answer your question. Please try again."
	failureAnswer = "I'm sorry, something went wrong while answering your question. Please try again."

	timeoutSource         = "System: Timeout"
	providedContextSource = "Provided Context"
)

// Service runs the retrieve → rerank → synthesize pipeline. Ask always
// returns a well-formed answer; pipeline faults degrade to apology answers
// instead of errors.
type Service struct {
	retriever *retrieval.Retriever
	reranker  retrieval.Reranker
	llm       llm.Client
	logger    *zap.Logger

	rerankTopK   int
	retrieveTopK int
	queryTimeout time.Duration
	now          func() time.Time
}

type Options struct {
	RetrieveTopK int
	RerankTopK   int
	QueryTimeout time.Duration
}

func NewService(
	retriever *retrieval.Retriever,
	reranker retrieval.Reranker,
	client llm.Client,
	logger *zap.Logger,
	opts Options,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Service{
		retriever:    retriever,
		reranker:     reranker,
		llm:          client,
		logger:       logger,
		retrieveTopK: opts.RetrieveTopK,
		rerankTopK:   opts.RerankTopK,
		queryTimeout: timeout,
		now:          time.Now,
	}
}

// Ask answers a question. When providedContext is substantial the documents
// are bypassed and the answer is synthesized from it directly; otherwise the
// indexed collection is searched. The retrieve-to-synthesize span runs under
// the query timeout; exceeding it yields a timeout answer, not an error.
func (s *Service) Ask(ctx context.Context, question, providedContext string) (answer models.Answer) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("query pipeline panicked", zap.Any("panic", r))
			answer = models.Answer{Text: failureAnswer, Sources: []string{}}
		}
	}()

	question = strings.TrimSpace(question)
	if question == "" {
		return models.Answer{Text: failureAnswer, Sources: []string{}}
	}
	s.logger.Info("query received", zap.String("stage", string(StageReceived)))

	if len(strings.TrimSpace(providedContext)) > minDirectContext {
		return s.askWithProvidedContext(ctx, question, providedContext)
	}
	return s.askWithRetrieval(ctx, question)
}

func (s *Service) askWithProvidedContext(ctx context.Context, question, provided string) models.Answer {
	s.logger.Info("answering from provided context", zap.String("stage", string(StageDirectContext)))

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	contexts := splitProvidedContext(provided)
	text, err := s.synthesize(ctx, question, contexts)
	if err != nil {
		return s.degradedAnswer(err)
	}
	return models.Answer{Text: text, Sources: []string{providedContextSource}}
}

func (s *Service) askWithRetrieval(ctx context.Context, question string) models.Answer {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	s.logger.Info("retrieving candidates", zap.String("stage", string(StageRetrieving)))
	candidates, err := s.retriever.Retrieve(ctx, question, s.retrieveTopK)
	if err != nil {
		return s.degradedAnswer(err)
	}

	s.logger.Info("reranking candidates",
		zap.String("stage", string(StageReranking)),
		zap.Int("candidates", len(candidates)),
	)
	ranked := retrieval.RerankNodes(ctx, s.reranker, s.logger, question, candidates, s.rerankTopK)
	ranked = retrieval.ExpandToParent(ranked)

	s.logger.Info("synthesizing answer", zap.String("stage", string(StageSynthesizing)))
	text, err := s.synthesize(ctx, question, contextsFromNodes(ranked))
	if err != nil {
		return s.degradedAnswer(err)
	}

	s.logger.Info("query answered", zap.String("stage", string(StageDone)))
	return models.Answer{Text: text, Sources: citations(ranked)}
}

func (s *Service) synthesize(ctx context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		contexts = []string{"(no relevant documents found)"}
	}
	prompt := buildPrompt(question, contexts, s.now())
	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// degradedAnswer maps a pipeline fault to an apology answer. Deadline
// expiry gets its own wording and source marker.
func (s *Service) degradedAnswer(err error) models.Answer {
	if isTimeout(err) {
		s.logger.Warn("query timed out", zap.Error(err))
		return models.Answer{Text: timeoutAnswer, Sources: []string{timeoutSource}}
	}
	s.logger.Error("query pipeline failed", zap.Error(err))
	return models.Answer{Text: failureAnswer, Sources: []string{}}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), context.DeadlineExceeded.Error())
}

// citations renders sources in rank order, capped at maxCitations.
func citations(nodes []models.ScoredNode) []string {
	sources := make([]string, 0, min(len(nodes), maxCitations))
	for _, node := range nodes {
		if len(sources) == maxCitations {
			break
		}
		sources = append(sources, formatCitation(node))
	}
	return sources
}

func formatCitation(node models.ScoredNode) string {
	name := node.Node.Metadata.Filename
	if name == "" {
		name = "unknown source"
	}
	builder := &strings.Builder{}
	builder.WriteString(name)
	if page := node.Node.Metadata.PageLabel; page != "" {
		fmt.Fprintf(builder, ", page %s", page)
	}
	if node.Reranked {
		fmt.Fprintf(builder, " (score: %.2f)", node.RerankScore)
	} else {
		fmt.Fprintf(builder, " (score: %.2f)", node.Similarity)
	}
	return builder.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
