package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jharjadi/doc-context/internal/cache"
	"github.com/jharjadi/doc-context/internal/config"
	"github.com/jharjadi/doc-context/internal/db"
	"github.com/jharjadi/doc-context/internal/handler"
	"github.com/jharjadi/doc-context/internal/middleware"
	"github.com/jharjadi/doc-context/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Connect to database with retry
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.StartupChecks(ctx, pool); err != nil {
		slog.Error("startup checks failed", "error", err)
		os.Exit(1)
	}

	// Tokenizer and sentence model are loaded once and shared
	tok, err := service.NewTokenAccountant()
	if err != nil {
		slog.Error("failed to load tokenizer", "error", err)
		os.Exit(1)
	}
	var seg service.SentenceSegmenter
	if punkt, err := service.NewPunktSegmenter(); err != nil {
		slog.Warn("sentence model unavailable, chunking by paragraph", "error", err)
	} else {
		seg = punkt
	}

	// Embedding backends: hosted when a key is configured, local sidecar always
	var hosted service.EmbeddingProvider
	if cfg.HostedEmbeddingsEnabled() {
		hosted = service.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel, cfg.OpenAIBaseURL)
	}
	local := service.NewSidecarEmbedder(cfg.EmbedEndpoint, cfg.EmbedTimeout)
	embedders := service.NewEmbedders(hosted, local)

	// Shared index store is optional; without it indexes live in process only
	var (
		store       cache.Store
		storePinger handler.Pinger
	)
	redisCtx, cancelRedis := context.WithTimeout(ctx, 5*time.Second)
	redisStore, err := cache.NewRedisStore(redisCtx, cfg.RedisURL)
	cancelRedis()
	if err != nil {
		slog.Warn("index store unavailable, using in-process cache only", "error", err)
	} else {
		defer redisStore.Close()
		store, storePinger = redisStore, redisStore
	}
	indexes := cache.NewIndexCache(store, cache.Options{
		Size:     cfg.IndexCacheSize,
		LocalTTL: cfg.IndexCacheTTL,
		StoreTTL: cfg.RedisCacheTTL,
	})

	assembler := service.NewAssembler(tok, service.NewChunker(tok, seg), service.NewRetriever(embedders),
		service.AssemblerConfig{
			ChunkTargetTokens:  cfg.ChunkTargetTokens,
			ChunkOverlapTokens: cfg.ChunkOverlapTokens,
		})

	docStore := db.NewDocumentStore(pool)
	docHandler := handler.NewDocumentHandler(docStore, indexes, tok, cfg.UploadDir, cfg.MaxFileSizeBytes())
	queryHandler := handler.NewQueryHandler(docStore, indexes, assembler, cfg.RAGTopK)

	// Build router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handler.Health(pool, storePinger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", queryHandler.Handle)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", docHandler.Upload)
			r.Get("/", docHandler.List)
			r.Get("/{id}", docHandler.Get)
			r.Delete("/{id}", docHandler.Delete)
		})
	})

	slog.Info("embedding configuration",
		"preferred_backend", embedders.Preferred(),
		"hosted_model", cfg.OpenAIEmbedModel,
		"local_endpoint", cfg.EmbedEndpoint,
		"index_store", store != nil,
	)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Graceful shutdown
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("shutting down server...")

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(cancelCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
