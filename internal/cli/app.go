// Package cli implements the askdocsd subcommands and the process wiring
// they share: one explicit application context built at startup holding the
// embedder, store, worker pool, pipeline, and chat service.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/domain"
	"github.com/askdocs/askdocs/internal/embedding"
	"github.com/askdocs/askdocs/internal/jobs"
	"github.com/askdocs/askdocs/internal/openai"
	"github.com/askdocs/askdocs/internal/service"
	"github.com/askdocs/askdocs/internal/source"
	pgstore "github.com/askdocs/askdocs/internal/store/pgvector"
	"github.com/askdocs/askdocs/internal/store/sqlite"
)

type app struct {
	cfg      *config.Config
	pipeline *service.Pipeline
	chat     *service.Chat
	src      source.Source

	pool    *jobs.Pool
	closers []func() error
}

type appOptions struct {
	// migrate controls whether Postgres schema migrations run on startup.
	migrate bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}

	var embedder service.EmbeddingProvider
	var llm service.LLMClient

	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(openai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			ChatModel: cfg.LLMModel,
		})
		llm = client
		if cfg.EmbeddingBackend == config.BackendRemote {
			embedder = client
		}
	}
	if embedder == nil {
		if cfg.EmbeddingBackend == config.BackendRemote {
			return nil, domain.ErrEmbeddingUnavailable
		}
		embedder = embedding.NewLocal()
	}

	var store service.VectorStore
	if cfg.HasPostgres() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Println("connected to database")

		if opts.migrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		pg := pgstore.New(pool)
		a.closers = append(a.closers, pg.Close)
		store = pg
	} else {
		sq, err := sqlite.Open(cfg.VectorStorePath)
		if err != nil {
			return nil, err
		}
		log.Printf("vector store opened at %s", cfg.VectorStorePath)
		a.closers = append(a.closers, sq.Close)
		store = sq
	}

	a.pool = jobs.NewPool(cfg.EmbedWorkers, cfg.EmbedQueue)
	a.pool.Start()

	a.pipeline = service.NewPipeline(embedder, store, a.pool, service.PipelineConfig{
		Chunk: service.ChunkConfig{
			MaxSize: cfg.ChunkMaxSize,
			Overlap: cfg.ChunkOverlap,
		},
		SingleChunkThreshold: cfg.SingleChunkThreshold,
		RelevanceThreshold:   cfg.RelevanceThreshold,
		DefaultTopK:          cfg.DefaultTopK,
	})
	a.chat = service.NewChat(a.pipeline, service.NewSynthesizer(llm))

	if cfg.DocsDir != "" {
		a.src = source.NewFS(cfg.DocsDir)
	} else if cfg.HasS3() {
		s3src, err := source.NewS3(ctx, source.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create S3 source: %w", err)
		}
		a.src = s3src
	}

	return a, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Stop()
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: at version %d", version)
	}

	return nil
}
