package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Record store (SQLite)
	SQLitePath string

	// Relationship store (Neo4j)
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Similarity store
	VectorBackend   string // "sqlite" or "weaviate"
	WeaviateHost    string
	WeaviateScheme  string
	WeaviateAPIKey  string
	WeaviateClass   string

	// Embedding provider (OpenAI-compatible)
	OpenAIBaseURL       string
	OpenAIAPIKey        string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbedConcurrency    int

	// Tunables
	SimilarityThreshold float64 // minimum semantic score surfaced by search
	SearchTimeoutMS     int     // per-request fan-out deadline
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		SQLitePath:          getEnv("SQLITE_PATH", "knowledge.db"),
		Neo4jURI:            getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:           getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", "password"),
		VectorBackend:       getEnv("VECTOR_BACKEND", "sqlite"),
		WeaviateHost:        getEnv("WEAVIATE_HOST", "localhost:8081"),
		WeaviateScheme:      getEnv("WEAVIATE_SCHEME", "http"),
		WeaviateAPIKey:      getEnv("WEAVIATE_API_KEY", ""),
		WeaviateClass:       getEnv("WEAVIATE_CLASS", "KnowledgeEntity"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		EmbedConcurrency:    getEnvInt("EMBED_CONCURRENCY", 4),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.5),
		SearchTimeoutMS:     getEnvInt("SEARCH_TIMEOUT_MS", 3000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required")
	}
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.VectorBackend != "sqlite" && c.VectorBackend != "weaviate" {
		return fmt.Errorf("VECTOR_BACKEND must be sqlite or weaviate, got %q", c.VectorBackend)
	}
	if c.VectorBackend == "weaviate" && c.WeaviateHost == "" {
		return fmt.Errorf("WEAVIATE_HOST is required when VECTOR_BACKEND=weaviate")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("EMBEDDING_MODEL is required")
	}
	if c.EmbedConcurrency < 1 {
		return fmt.Errorf("EMBED_CONCURRENCY must be positive")
	}
	if c.SearchTimeoutMS < 1 {
		return fmt.Errorf("SEARCH_TIMEOUT_MS must be positive")
	}
	// OpenAI API key is optional when running against a local gateway
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
