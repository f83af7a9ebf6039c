package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Embedding backend selection: "local" (built-in model) or "remote"
	// (OpenAI API, requires OPENAI_API_KEY).
	EmbeddingBackend string `envconfig:"EMBEDDING_BACKEND" default:"local"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	LLMModel         string `envconfig:"LLM_MODEL"`

	// Vector store: SQLite file by default, Postgres+pgvector when
	// DATABASE_URL is set.
	VectorStorePath string `envconfig:"VECTOR_STORE_PATH" default:"./askdocs.db"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`

	RelevanceThreshold   float64 `envconfig:"RELEVANCE_THRESHOLD" default:"1.0"`
	ChunkMaxSize         int     `envconfig:"CHUNK_MAX_SIZE" default:"2000"`
	ChunkOverlap         int     `envconfig:"CHUNK_OVERLAP" default:"200"`
	SingleChunkThreshold int     `envconfig:"SINGLE_CHUNK_THRESHOLD" default:"3000"`
	DefaultTopK          int     `envconfig:"DEFAULT_TOP_K" default:"5"`

	EmbedWorkers int `envconfig:"EMBED_WORKERS" default:"4"`
	EmbedQueue   int `envconfig:"EMBED_QUEUE" default:"16"`

	// Document sources. DocsDir enables the filesystem source; the S3
	// settings enable the S3 source.
	DocsDir     string `envconfig:"DOCS_DIR"`
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"askdocs-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ASKDOCS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.EmbeddingBackend = strings.ToLower(strings.TrimSpace(cfg.EmbeddingBackend))
	switch cfg.EmbeddingBackend {
	case BackendLocal, BackendRemote:
	default:
		return nil, fmt.Errorf("invalid embedding backend %q (expected %q or %q)",
			cfg.EmbeddingBackend, BackendLocal, BackendRemote)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasPostgres() bool {
	return c.DatabaseURL != ""
}
