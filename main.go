package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/m4rc0z/securedoc-project/api"
	"github.com/m4rc0z/securedoc-project/chat"
	"github.com/m4rc0z/securedoc-project/chunker"
	"github.com/m4rc0z/securedoc-project/config"
	"github.com/m4rc0z/securedoc-project/database"
	"github.com/m4rc0z/securedoc-project/embeddings"
	"github.com/m4rc0z/securedoc-project/ingestion"
	"github.com/m4rc0z/securedoc-project/llm"
	"github.com/m4rc0z/securedoc-project/metadata"
	"github.com/m4rc0z/securedoc-project/models"
	"github.com/m4rc0z/securedoc-project/retrieval"
	"github.com/m4rc0z/securedoc-project/vectorstore"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "reset":
		resetCmd(cfg, logger, os.Args[2:])
	default:
		logger.Error("unknown command", zap.String("command", os.Args[1]))
		printUsage()
		os.Exit(1)
	}
}

// app bundles the singleton collaborators shared by all commands.
type app struct {
	store     vectorstore.Store
	embedder  embeddings.Embedder
	llm       llm.Client
	ingestion *ingestion.Service
	chat      *chat.Service
	reranker  retrieval.Reranker
	metric    models.DistanceMetric

	close func()
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	cleanup := func() {}
	if cfg.VectorStore == config.StorePostgres {
		pgPool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		cleanup = pgPool.Close

		store, err := vectorstore.New(cfg, pgPool)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("vector store setup: %w", err)
		}
		return finishApp(cfg, logger, store, cleanup)
	}

	store, err := vectorstore.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("vector store setup: %w", err)
	}
	return finishApp(cfg, logger, store, cleanup)
}

func finishApp(cfg config.Config, logger *zap.Logger, store vectorstore.Store, cleanup func()) (*app, error) {

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("llm setup: %w", err)
	}
	llmClient = llm.WithRetry(llmClient, cfg.LLM.Retries)

	var splitter chunker.Splitter
	switch cfg.Chunker {
	case config.ChunkerHierarchical:
		splitter = chunker.NewHierarchicalSplitter()
	default:
		splitter = chunker.NewSemanticSplitter(embedder)
	}

	metric := vectorstore.ParseMetric(cfg.Metric)
	extractor := metadata.NewExtractor(llmClient, cfg.ExtractTimeout, logger)

	ingestionService := ingestion.NewService(splitter, embedder, store, extractor, logger, ingestion.Options{
		Collection:   cfg.Collection,
		Metric:       metric,
		EmbedWorkers: cfg.EmbedWorkers,
	})

	var reranker retrieval.Reranker
	if cfg.Reranker.URL != "" {
		reranker = retrieval.NewCrossEncoderReranker(cfg.Reranker.URL, cfg.Reranker.Model)
	}

	retriever := retrieval.NewRetriever(embedder, store, cfg.Collection, cfg.RetrieveTopK)
	chatService := chat.NewService(retriever, reranker, llmClient, logger, chat.Options{
		RetrieveTopK: cfg.RetrieveTopK,
		RerankTopK:   cfg.Reranker.TopK,
		QueryTimeout: cfg.QueryTimeout,
	})

	return &app{
		store:     store,
		embedder:  embedder,
		llm:       llmClient,
		ingestion: ingestionService,
		chat:      chatService,
		reranker:  reranker,
		metric:    metric,
		close:     cleanup,
	}, nil
}

func serveCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "address to listen on")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse serve flags", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer application.close()

	server := api.NewServer(application.ingestion, application.chat, application.reranker, application.store, logger, api.ServerOptions{
		Collection: cfg.Collection,
		Dimension:  cfg.Embeddings.Dimension,
		Metric:     application.metric,
		RerankTopK: cfg.Reranker.TopK,
	})

	if err := server.Serve(ctx, *addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func ingestCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := flags.String("file", "", "path to the document to ingest")
	category := flags.String("category", "", "category to attach to the document")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse ingest flags", zap.Error(err))
	}
	if strings.TrimSpace(*path) == "" {
		logger.Fatal("ingest requires --file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer application.close()

	nodes, meta, err := application.ingestion.IngestFile(ctx, *path, models.Metadata{Category: *category})
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}

	fmt.Printf("Ingested %s: %d chunks\n", *path, len(nodes))
	for _, pair := range meta.Pairs() {
		fmt.Printf("  %s: %s\n", pair.Key, pair.Value)
	}
}

func askCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "question to answer from the indexed documents")
	providedContext := flags.String("context", "", "answer from this context instead of searching")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse ask flags", zap.Error(err))
	}
	if strings.TrimSpace(*question) == "" {
		logger.Fatal("ask requires --question")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer application.close()

	answer := application.chat.Ask(ctx, *question, *providedContext)

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for idx, source := range answer.Sources {
			fmt.Printf("%d. %s\n", idx+1, source)
		}
	}
}

func resetCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("reset", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse reset flags", zap.Error(err))
	}

	if !*confirmed {
		fmt.Printf("This will permanently delete all indexed chunks in %q. Continue? [y/N]: ", cfg.Collection)
		var answer string
		fmt.Scanln(&answer)
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("reset aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer application.close()

	if err := application.store.Reset(ctx, cfg.Collection, cfg.Embeddings.Dimension, application.metric); err != nil {
		logger.Fatal("reset failed", zap.Error(err))
	}
	fmt.Printf("Collection %q was reset\n", cfg.Collection)
}

func printUsage() {
	fmt.Println("Usage: securedoc <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API")
	fmt.Println("  ingest   Ingest a document into the vector collection (use --file)")
	fmt.Println("  ask      Answer a question from the indexed documents")
	fmt.Println("  reset    Drop and recreate the vector collection")
}
