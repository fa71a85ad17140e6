// Package config loads all environment variables for the document context service.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the document context API service.
type Config struct {
	// Server
	APIHost  string `env:"API_HOST" envDefault:"0.0.0.0"`
	APIPort  string `env:"API_PORT" envDefault:"8000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Shared index store
	RedisURL      string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisCacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"1h"`

	// In-process index cache
	IndexCacheSize int           `env:"INDEX_CACHE_SIZE" envDefault:"64"`
	IndexCacheTTL  time.Duration `env:"INDEX_CACHE_TTL" envDefault:"30m"`

	// Hosted embeddings; an empty key selects the local backend
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIEmbedModel string `env:"OPENAI_EMBED_MODEL" envDefault:"text-embedding-3-small"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`

	// Local embedding sidecar
	EmbedEndpoint string        `env:"EMBED_ENDPOINT" envDefault:"http://embed:8001/embed"`
	EmbedTimeout  time.Duration `env:"EMBED_TIMEOUT" envDefault:"30s"`

	// Uploads
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"/tmp/sdch_uploads"`
	MaxFileSizeMB int    `env:"MAX_FILE_SIZE_MB" envDefault:"50"`

	// Assembly
	RAGTopK            int `env:"RAG_TOP_K" envDefault:"10"`
	ChunkTargetTokens  int `env:"CHUNK_TARGET_TOKENS" envDefault:"512"`
	ChunkOverlapTokens int `env:"CHUNK_OVERLAP_TOKENS" envDefault:"50"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	// Timeouts
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"` // uploads of large files
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present; real
// environment variables win.
func Load() (*Config, error) {
	cfg, err := LoadStandalone()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

// LoadStandalone is Load without the database requirement, for tools that
// work on local files only.
func LoadStandalone() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.RAGTopK < 1 {
		return nil, fmt.Errorf("RAG_TOP_K must be positive, got %d", cfg.RAGTopK)
	}
	if cfg.ChunkTargetTokens < 1 {
		return nil, fmt.Errorf("CHUNK_TARGET_TOKENS must be positive, got %d", cfg.ChunkTargetTokens)
	}
	if cfg.ChunkOverlapTokens < 0 || cfg.ChunkOverlapTokens >= cfg.ChunkTargetTokens {
		return nil, fmt.Errorf("CHUNK_OVERLAP_TOKENS must be in [0, %d), got %d", cfg.ChunkTargetTokens, cfg.ChunkOverlapTokens)
	}

	return cfg, nil
}

// Addr returns the listen address as "host:port".
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.APIHost, c.APIPort)
}

// MaxFileSizeBytes returns the max upload size in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// HostedEmbeddingsEnabled reports whether a hosted embedding credential is set.
func (c *Config) HostedEmbeddingsEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
