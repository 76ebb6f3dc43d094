package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig configures a language or embedding model endpoint.
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerMinute int     `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// Dimension is only meaningful for embedding models.
	Dimension int `yaml:"dimension" mapstructure:"dimension"`
}

// Timeout returns the per-call timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type RAGConfig struct {
	TextTopK           int    `yaml:"text_top_k" mapstructure:"text_top_k"`
	ImageTopK          int    `yaml:"image_top_k" mapstructure:"image_top_k"`
	MaxAgentIterations int    `yaml:"max_agent_iterations" mapstructure:"max_agent_iterations"`
	AgentTimeoutSecs   int    `yaml:"agent_timeout_secs" mapstructure:"agent_timeout_secs"`
	ChunkSize          int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap       int    `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	CaptionMaxChars    int    `yaml:"caption_max_chars" mapstructure:"caption_max_chars"`
	LookupConcurrency  int    `yaml:"lookup_concurrency" mapstructure:"lookup_concurrency"`
	EncryptionKey      string `yaml:"encryption_key" mapstructure:"encryption_key"`
}

// AgentTimeout bounds the whole tool-using agent tier.
func (c RAGConfig) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutSecs) * time.Second
}

type VectorStoreConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"`
	Path            string `yaml:"path" mapstructure:"path"`
	InMemory        bool   `yaml:"in_memory" mapstructure:"in_memory"`
	Compress        bool   `yaml:"compress" mapstructure:"compress"`
	TextCollection  string `yaml:"text_collection" mapstructure:"text_collection"`
	ImageCollection string `yaml:"image_collection" mapstructure:"image_collection"`
	// DSN is used by the pgvector backend.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

type MetadataStoreConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"`
	DSN        string `yaml:"dsn" mapstructure:"dsn"`
	Driver     string `yaml:"driver" mapstructure:"driver"`
	Password   string `yaml:"password" mapstructure:"password"`
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	Debug      bool   `yaml:"debug" mapstructure:"debug"`
}

// IngestConfig holds the defaults used to build an EmbeddingConfig for image ingestion.
type IngestConfig struct {
	ImageWeight           float64 `yaml:"image_weight" mapstructure:"image_weight"`
	SimilarityThreshold   float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	BatchSize             int     `yaml:"batch_size" mapstructure:"batch_size"`
	UseDimReduction       bool    `yaml:"use_dim_reduction" mapstructure:"use_dim_reduction"`
	OutputDim             int     `yaml:"output_dim" mapstructure:"output_dim"`
	UseEmbeddingAlignment bool    `yaml:"use_embedding_alignment" mapstructure:"use_embedding_alignment"`
	VisionModel           string  `yaml:"vision_model" mapstructure:"vision_model"`
}

type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

type Config struct {
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	EmbedLLM      LLMConfig           `yaml:"embed_llm" mapstructure:"embed_llm"`
	RAG           RAGConfig           `yaml:"rag" mapstructure:"rag"`
	VectorStore   VectorStoreConfig   `yaml:"vector_store" mapstructure:"vector_store"`
	MetadataStore MetadataStoreConfig `yaml:"metadata_store" mapstructure:"metadata_store"`
	Ingest        IngestConfig        `yaml:"ingest" mapstructure:"ingest"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
}

const (
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"

	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// LoadConfig reads the YAML config at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else {
		cfg.Ingest.UseDimReduction = true
		cfg.Ingest.UseEmbeddingAlignment = true
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config populated with defaults only.
func Default() *Config {
	cfg := Config{Ingest: IngestConfig{UseDimReduction: true, UseEmbeddingAlignment: true}}
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}

	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = ProviderOllama
	}
	if cfg.EmbedLLM.BaseURL == "" && cfg.EmbedLLM.Provider == ProviderOllama {
		cfg.EmbedLLM.BaseURL = "http://localhost:11434"
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "all-minilm"
	}
	if cfg.EmbedLLM.Dimension == 0 {
		cfg.EmbedLLM.Dimension = 384
	}
	if cfg.EmbedLLM.TimeoutSecs == 0 {
		cfg.EmbedLLM.TimeoutSecs = 30
	}

	if cfg.RAG.TextTopK == 0 {
		cfg.RAG.TextTopK = 5
	}
	if cfg.RAG.ImageTopK == 0 {
		cfg.RAG.ImageTopK = 3
	}
	if cfg.RAG.MaxAgentIterations == 0 {
		cfg.RAG.MaxAgentIterations = 3
	}
	if cfg.RAG.AgentTimeoutSecs == 0 {
		cfg.RAG.AgentTimeoutSecs = 120
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.CaptionMaxChars == 0 {
		cfg.RAG.CaptionMaxChars = 100
	}
	if cfg.RAG.LookupConcurrency == 0 {
		cfg.RAG.LookupConcurrency = 4
	}

	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = BackendChromem
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "./chromemdb"
	}
	if cfg.VectorStore.TextCollection == "" {
		cfg.VectorStore.TextCollection = "combined_text_collection"
	}
	if cfg.VectorStore.ImageCollection == "" {
		cfg.VectorStore.ImageCollection = "combined_embeddings_7"
	}

	if cfg.MetadataStore.Backend == "" {
		cfg.MetadataStore.Backend = BackendSQLite
	}
	if cfg.MetadataStore.DSN == "" && cfg.MetadataStore.Backend == BackendSQLite {
		cfg.MetadataStore.DSN = "./lecture_images.db"
	}
	if cfg.MetadataStore.Driver == "" {
		cfg.MetadataStore.Driver = "pgdriver"
	}
	if cfg.MetadataStore.Database == "" {
		cfg.MetadataStore.Database = "lecture_images"
	}
	if cfg.MetadataStore.Collection == "" {
		cfg.MetadataStore.Collection = "pdf_images_7"
	}

	if cfg.Ingest.ImageWeight == 0 {
		cfg.Ingest.ImageWeight = 0.3
	}
	if cfg.Ingest.SimilarityThreshold == 0 {
		cfg.Ingest.SimilarityThreshold = 0.98
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 8
	}
	if cfg.Ingest.OutputDim == 0 {
		cfg.Ingest.OutputDim = 512
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate reports configuration values that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderGoogleAI:
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	switch c.EmbedLLM.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.EmbedLLM.Provider)
	}
	switch c.VectorStore.Backend {
	case BackendChromem, BackendPgvector:
	default:
		return fmt.Errorf("unsupported vector store backend: %s", c.VectorStore.Backend)
	}
	switch c.MetadataStore.Backend {
	case BackendSQLite, BackendPostgres, BackendMongo:
	default:
		return fmt.Errorf("unsupported metadata store backend: %s", c.MetadataStore.Backend)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.RAG.EncryptionKey != "" && len(c.RAG.EncryptionKey) != 32 {
		return fmt.Errorf("encryption_key must be 32 bytes long")
	}
	return nil
}
