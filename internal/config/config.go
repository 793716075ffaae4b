package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"document-qa/internal/models"
)

// Config is loaded and validated once at startup and passed read-only
// into every component. Components do not re-validate it, except the
// chunker's defensive overlap check.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	RAG      RAGConfig      `yaml:"rag"`
	EmbedLLM LLMConfig      `yaml:"embedding"`
	GenLLM   LLMConfig      `yaml:"generation"`
	VectorDB VectorDBConfig `yaml:"vector_db"`
	Database DatabaseConfig `yaml:"database"`
	Upload   UploadConfig   `yaml:"upload"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type RAGConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	TopK                int     `yaml:"top_k"`
	MaxTopK             int     `yaml:"max_top_k"`
	MinScore            float32 `yaml:"min_score"`
	QueryTimeoutSeconds int     `yaml:"query_timeout_seconds"`
	IngestTimeoutSecs   int     `yaml:"ingest_timeout_seconds"`
}

// LLMConfig describes one model backend. Provider is "ollama" or
// "openai" (any OpenAI-compatible endpoint). An empty Model on the
// generation side selects the deterministic fallback composer.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type VectorDBConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type UploadConfig struct {
	Dir           string `yaml:"dir"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
}

// LoadConfig reads the YAML file at path, applies environment
// overrides for secrets, fills defaults and validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("EMBEDDING_KEY"); v != "" {
		c.EmbedLLM.Key = v
	}
	if v := os.Getenv("GENERATION_KEY"); v != "" {
		c.GenLLM.Key = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 500
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.MaxTopK == 0 {
		c.RAG.MaxTopK = 20
	}
	if c.RAG.QueryTimeoutSeconds == 0 {
		c.RAG.QueryTimeoutSeconds = 60
	}
	if c.RAG.IngestTimeoutSecs == 0 {
		c.RAG.IngestTimeoutSecs = 300
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.GenLLM.Provider == "" {
		c.GenLLM.Provider = "ollama"
	}
	if c.VectorDB.Path == "" {
		c.VectorDB.Path = "./chromem_db"
	}
	if c.VectorDB.Collection == "" {
		c.VectorDB.Collection = "rag_documents"
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxFileSizeMB == 0 {
		c.Upload.MaxFileSizeMB = 100
	}
}

// Validate checks every constraint once. Violations are wrapped with
// models.ErrInvalidConfiguration and name the offending field.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be greater than 0, got %d",
			models.ErrInvalidConfiguration, c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must be non-negative, got %d",
			models.ErrInvalidConfiguration, c.RAG.ChunkOverlap)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be less than chunk_size (%d)",
			models.ErrInvalidConfiguration, c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be greater than 0, got %d",
			models.ErrInvalidConfiguration, c.RAG.TopK)
	}
	if c.RAG.MaxTopK < c.RAG.TopK {
		return fmt.Errorf("%w: max_top_k (%d) must not be less than top_k (%d)",
			models.ErrInvalidConfiguration, c.RAG.MaxTopK, c.RAG.TopK)
	}
	if c.EmbedLLM.Model == "" {
		return fmt.Errorf("%w: embedding.model is required", models.ErrInvalidConfiguration)
	}
	if c.VectorDB.Collection == "" {
		return fmt.Errorf("%w: vector_db.collection is required", models.ErrInvalidConfiguration)
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("%w: upload.max_file_size_mb must be greater than 0, got %d",
			models.ErrInvalidConfiguration, c.Upload.MaxFileSizeMB)
	}
	return nil
}

func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.RAG.QueryTimeoutSeconds) * time.Second
}

func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.RAG.IngestTimeoutSecs) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxFileSizeMB) * 1024 * 1024
}
