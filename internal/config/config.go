package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the complete application configuration, loaded from the
// environment once at startup.
type Config struct {
	Database  DatabaseConfig
	OpenAI    OpenAIConfig
	Server    ServerConfig
	Index     IndexConfig
	Retrieval RetrievalConfig
	Data      DataConfig
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL string
}

// OpenAIConfig holds provider credentials and model choices.
type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// IndexConfig tunes embedding ingestion.
type IndexConfig struct {
	BatchSize       int
	MaxAttempts     int
	BackoffBase     time.Duration
	InterBatchDelay time.Duration
}

// RetrievalConfig tunes query-time evidence gathering.
type RetrievalConfig struct {
	DefaultK          int
	SignificanceLevel float64
}

// DataConfig points at the offline record source.
type DataConfig struct {
	SourcePath string // .xlsx workbook or directory of per-domain CSVs
	KeyColumn  string // optional; first column when empty
}

// Load reads configuration from environment variables. DATABASE_URL and
// OPENAI_API_KEY are required; everything else has a default.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	return &Config{
		Database: DatabaseConfig{URL: dbURL},
		OpenAI: OpenAIConfig{
			APIKey:         apiKey,
			EmbeddingModel: getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			ChatModel:      getEnvOrDefault("CHAT_MODEL", "gpt-4o-mini"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Index: IndexConfig{
			BatchSize:       getEnvIntOrDefault("INDEX_BATCH_SIZE", 100),
			MaxAttempts:     getEnvIntOrDefault("INDEX_MAX_ATTEMPTS", 3),
			BackoffBase:     getEnvDurationOrDefault("INDEX_BACKOFF_BASE", 500*time.Millisecond),
			InterBatchDelay: getEnvDurationOrDefault("INDEX_INTER_BATCH_DELAY", 200*time.Millisecond),
		},
		Retrieval: RetrievalConfig{
			DefaultK:          getEnvIntOrDefault("RETRIEVAL_K", 5),
			SignificanceLevel: getEnvFloatOrDefault("SIGNIFICANCE_LEVEL", 0.05),
		},
		Data: DataConfig{
			SourcePath: getEnvOrDefault("DATA_SOURCE", ""),
			KeyColumn:  getEnvOrDefault("DATA_KEY_COLUMN", ""),
		},
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
