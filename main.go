package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docsift/features/file"
	"docsift/features/ingest"
	"docsift/features/query"
	"docsift/internal/adapter/gemini"
	"docsift/internal/chunk"
	"docsift/internal/config"
	"docsift/internal/logger"
	"docsift/internal/middleware"
	"docsift/internal/parser"
	"docsift/internal/retrieval"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/panjf2000/ants/v2"
)

func main() {
	// Structured logger with correlation-id propagation
	slog.SetDefault(slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Database
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", cfg.BootstrapRetryAttempts)
		time.Sleep(retryDelay)
	}
	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}

	// Migrations
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		slog.Error("failed to create migration driver", "error", err)
		os.Exit(1)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		slog.Error("failed to create migration instance", "error", err)
		os.Exit(1)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied successfully")

	if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
		slog.Error("failed to create upload directory", "error", err, "path", cfg.UploadDir)
		os.Exit(1)
	}

	// Embedding client
	embedder, err := gemini.NewEmbedder(context.Background(), cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		slog.Error("failed to create embedding client", "error", err)
		os.Exit(1)
	}
	defer embedder.Close()

	// Worker pool, sized to hardware parallelism unless overridden
	pool, err := ants.NewPool(cfg.Workers())
	if err != nil {
		slog.Error("failed to create worker pool", "error", err)
		os.Exit(1)
	}

	// Stores & services
	chunkStore := chunk.NewPostgresStore(db)
	fileRepo := file.NewPostgresRepo(db)

	fileService := file.NewService(fileRepo, cfg.UploadDir)
	fileHandler := file.NewHandler(fileService, cfg.MaxUploadSizeMB, cfg.AllowedFileExts)

	docParser := parser.New(cfg.ChunkWindowLines)
	processor := ingest.NewProcessor(docParser, embedder, chunkStore, cfg.UploadDir)
	orchestrator := ingest.NewOrchestrator(fileRepo, processor, pool, cfg.MaxRetryAttempts)
	ingestHandler := ingest.NewHandler(orchestrator)

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, chunkStore, cfg.SearchTopK, queryLogger)
	queryHandler := query.NewHandler(retrievalService)

	// Routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/files", middleware.CorrelationID(middleware.CORS(fileHandler.Upload)))
	mux.Handle("GET /api/v1/files", middleware.CorrelationID(middleware.CORS(fileHandler.List)))
	mux.Handle("POST /api/v1/files/process", middleware.CorrelationID(middleware.CORS(ingestHandler.ProcessFiles)))
	mux.Handle("GET /api/v1/search", middleware.CorrelationID(middleware.CORS(queryHandler.SearchText)))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	// Drain outstanding workers; files still in_progress at this point stay
	// there and need an explicit reset before they become eligible again.
	if err := pool.ReleaseTimeout(30 * time.Second); err != nil {
		slog.Warn("worker pool did not drain cleanly", "error", err)
	}
	slog.Info("shutdown complete")
}
