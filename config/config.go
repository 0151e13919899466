// Package config loads process configuration from the environment, with an
// optional .env file overlay.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported collaborator providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	StorePostgres = "postgres"
	StoreQdrant   = "qdrant"

	ChunkerSemantic     = "semantic"
	ChunkerHierarchical = "hierarchical"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
	Retries  int
}

type RerankerConfig struct {
	URL   string
	Model string
	TopK  int
}

type Config struct {
	HTTPAddr string

	VectorStore  string
	Collection   string
	Metric       string
	PostgresDSN  string
	QdrantURL    string
	QdrantAPIKey string

	Embeddings EmbeddingsConfig
	LLM        LLMConfig
	Reranker   RerankerConfig

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Chunker string

	RetrieveTopK   int
	EmbedWorkers   int
	QueryTimeout   time.Duration
	ExtractTimeout time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		VectorStore:  getEnv("VECTOR_STORE", StorePostgres),
		Collection:   getEnv("VECTOR_COLLECTION", "securedoc_chunks"),
		Metric:       getEnv("VECTOR_METRIC", "l2"),
		PostgresDSN:  getEnv("POSTGRES_DSN", "postgres://localhost:5432/securedoc?sslmode=disable"),
		QdrantURL:    getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),

		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOllama),
			Model:     getEnv("EMBEDDINGS_MODEL", "all-minilm"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 384),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOllama),
			Model:    getEnv("LLM_MODEL", "llama3"),
			Retries:  getEnvInt("LLM_RETRIES", 3),
		},
		Reranker: RerankerConfig{
			URL:   getEnv("RERANKER_URL", ""),
			Model: getEnv("RERANKER_MODEL", "ms-marco-MiniLM-L-12-v2"),
			TopK:  getEnvInt("RERANK_TOP_K", 5),
		},

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		Chunker: getEnv("CHUNKER", ChunkerSemantic),

		RetrieveTopK:   getEnvInt("RETRIEVE_TOP_K", 8),
		EmbedWorkers:   getEnvInt("EMBED_WORKERS", 4),
		QueryTimeout:   getEnvDuration("QUERY_TIMEOUT", 60*time.Second),
		ExtractTimeout: getEnvDuration("EXTRACT_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
