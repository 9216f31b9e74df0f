package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	RAG      RAGConfig     `yaml:"rag"`
	EmbedLLM LLMConfig     `yaml:"embed_llm"`
	ChatLLM  LLMConfig     `yaml:"chat_llm"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"` // chromem or pgvector
	DBPath      string `yaml:"db_path"`
	Collection  string `yaml:"collection"`
	UploadDir   string `yaml:"upload_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
	PostgresKey string `yaml:"postgres_key"`
	Debug       bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

type LLMConfig struct {
	Provider       string `yaml:"provider"` // ollama or openai
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	Key            string `yaml:"key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

const (
	defaultAddr         = ":4000"
	defaultDriver       = "chromem"
	defaultDBPath       = "./chromemdb"
	defaultCollection   = "document_collection"
	defaultUploadDir    = "./uploads"
	defaultChunkSize    = 1024
	defaultChunkOverlap = 80
	defaultTopK         = 4
	defaultTimeout      = 120
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultDriver
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = defaultDBPath
	}
	if c.Storage.Collection == "" {
		c.Storage.Collection = defaultCollection
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = defaultUploadDir
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.EmbedLLM.TimeoutSeconds == 0 {
		c.EmbedLLM.TimeoutSeconds = defaultTimeout
	}
	if c.ChatLLM.TimeoutSeconds == 0 {
		c.ChatLLM.TimeoutSeconds = defaultTimeout
	}
}

func (c *Config) Validate() error {
	if c.Storage.Driver != "chromem" && c.Storage.Driver != "pgvector" {
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	if c.Storage.Driver == "pgvector" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("postgres_dsn is required for the pgvector driver")
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.RAG.TopK)
	}
	return nil
}
