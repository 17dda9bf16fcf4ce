package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/cloo-solutions/ragchat/internal/jobs"
	"github.com/cloo-solutions/ragchat/internal/logging"
	"github.com/cloo-solutions/ragchat/internal/openai"
	"github.com/cloo-solutions/ragchat/internal/prompts"
	"github.com/cloo-solutions/ragchat/internal/repository"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/cloo-solutions/ragchat/internal/storage"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"github.com/cloo-solutions/ragchat/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// app holds the services shared by serve and ingest.
type app struct {
	cfg         *config.Config
	pool        *pgxpool.Pool
	workers     *jobs.Pool
	prompts     *prompts.Store
	model       *openai.Client
	store       *vectorstore.Manager
	docs        *storage.Documents
	initializer *service.Initializer
	closers     []func()
}

// setupApp loads configuration, installs logging and tracing, connects to the
// database and constructs the ingestion services.
func setupApp(ctx context.Context, cmd *cobra.Command, migrate bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}

	logCloser := logging.Setup(logging.Config{Level: cfg.Logging.Level, File: cfg.Logging.File})
	a.closers = append(a.closers, func() { _ = logCloser.Close() })

	if cfg.HasSentry() {
		// Default to 10% sampling in production, 100% elsewhere
		sampleRate := 1.0
		if cfg.Environment == "production" {
			sampleRate = 0.1
		}
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Server.Debug,
		})
		if err != nil {
			slog.Warn("telemetry init failed, continuing without tracing", "error", err)
		} else {
			a.closers = append(a.closers, shutdownTelemetry)
		}
	}

	a.prompts, err = prompts.Load(cfg.IO.PromptDir, cfg.IO.PromptVersion)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pool, err = database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.pool.Close)
	slog.Info("connected to database")

	if migrate {
		if err := database.RunMigrations(cfg.DatabaseURL, migrationsDir); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	var objects storage.ObjectStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		slog.Info("S3 bucket ready", "bucket", s3Client.Bucket())
		objects = s3Client
	}

	a.workers = jobs.NewPool(cfg.Server.Workers)
	a.model = openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.Model.APIKey,
		BaseURL:             cfg.Model.BaseURL,
		ChatModel:           cfg.Model.Name,
		ExtractModel:        cfg.Model.ExtractName,
		EmbeddingModel:      cfg.Embedding.Model,
		EmbeddingDimensions: cfg.Embedding.Dimensions,
		Temperature:         cfg.Model.Temperature,
		Streaming:           cfg.Model.Streaming,
		Timeout:             cfg.ModelTimeout(),
	})
	a.store = vectorstore.NewManager(
		repository.NewVectorRepository(a.pool),
		a.model,
		vectorstore.WithBatchSize(cfg.Processing.BatchSize),
		vectorstore.WithPool(a.workers),
	)
	a.docs = storage.NewDocuments(cfg.IO.DataDir, cfg.IO.SourceFile, cfg.IO.ProcessedFile, objects)

	extractor := service.NewExtractor(a.model, a.docs, a.prompts.Extract(), a.workers)
	chunkCfg := service.DefaultChunkConfig()
	chunkCfg.ChunkSize = cfg.Processing.ChunkSize
	chunkCfg.Overlap = cfg.Processing.ChunkOverlap
	a.initializer = service.NewInitializer(extractor, a.docs, a.store, cfg.Processing.Collection, chunkCfg, a.workers)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// history selects the conversation checkpointer.
func (a *app) history() service.Checkpointer {
	if a.cfg.History.Backend == "postgres" {
		return repository.NewConversationRepository(a.pool)
	}
	return service.NewMemoryCheckpointer()
}

func printResult(w io.Writer, result *service.IngestionResult) {
	state := "populated"
	if result.Skipped {
		state = "up to date"
	}
	fmt.Fprintf(w, "collection %q %s: %d records (extracted: %t)\n", result.Collection, state, result.Records, result.Extracted)
}
