package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

// Config is built once at process start and handed to constructors by
// reference; core logic never reads the environment directly.
type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"docsift"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"docsift"`

	ServerPort    int    `envconfig:"SERVER_PORT" default:"8080"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	EmbeddingDim   int    `envconfig:"EMBEDDING_DIM" default:"1024"`

	UploadDir       string   `envconfig:"UPLOAD_DIR" default:"uploads/pdfs"`
	AllowedFileExts []string `envconfig:"ALLOWED_FILE_EXTS" default:".pdf"`
	MaxUploadSizeMB int64    `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`

	// WorkerCount bounds the per-file worker pool; 0 means one worker per
	// available CPU.
	WorkerCount int `envconfig:"WORKER_COUNT" default:"0"`

	// MaxRetryAttempts caps how often a failed file is re-picked by later
	// cycles; 0 means retry without limit.
	MaxRetryAttempts int `envconfig:"MAX_RETRY_ATTEMPTS" default:"0"`

	ChunkWindowLines int `envconfig:"CHUNK_WINDOW_LINES" default:"10"`

	SearchTopK   int    `envconfig:"SEARCH_TOP_K" default:"20"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may also come from the shell, so a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if c.ChunkWindowLines <= 0 {
		return fmt.Errorf("CHUNK_WINDOW_LINES must be positive, got %d", c.ChunkWindowLines)
	}
	if c.SearchTopK <= 0 {
		return fmt.Errorf("SEARCH_TOP_K must be positive, got %d", c.SearchTopK)
	}
	return nil
}

// Workers resolves the effective worker pool size.
func (c *Config) Workers() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	return runtime.NumCPU()
}
