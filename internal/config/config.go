package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TokenEnv    string `yaml:"token_env"`
	MaxTokens   int    `yaml:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	KeyEnv   string `yaml:"key_env"`
}

type RAGConfig struct {
	ChunkSize         int `yaml:"chunk_size"`
	ChunkOverlap      int `yaml:"chunk_overlap"`
	StoreChunkSize    int `yaml:"store_chunk_size"`
	TopK              int `yaml:"top_k"`
	FileContextBudget int `yaml:"file_context_budget"`
	MemoryTurns       int `yaml:"memory_turns"`
	PreviewLen        int `yaml:"preview_len"`
}

type StoreConfig struct {
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	Debug      bool   `yaml:"debug"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RAG       RAGConfig       `yaml:"rag"`
	Store     StoreConfig     `yaml:"store"`
}

func LoadConfig(path string) (*Config, error) {
	// tokens may live in a local .env instead of the shell environment
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Token resolves the completion API token from the configured env variable.
func (c *LLMConfig) Token() string {
	return os.Getenv(c.TokenEnv)
}

// Key resolves the embedding API key from the configured env variable.
func (c *EmbeddingConfig) Key() string {
	return os.Getenv(c.KeyEnv)
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://router.huggingface.co"
	}
	if cfg.LLM.TokenEnv == "" {
		cfg.LLM.TokenEnv = "HF_TOKEN"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2000
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.KeyEnv == "" {
		cfg.Embedding.KeyEnv = "EMBEDDING_API_KEY"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 600
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 80
	}
	if cfg.RAG.StoreChunkSize == 0 {
		cfg.RAG.StoreChunkSize = 2000
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.RAG.FileContextBudget == 0 {
		cfg.RAG.FileContextBudget = 3000
	}
	if cfg.RAG.MemoryTurns == 0 {
		cfg.RAG.MemoryTurns = 5
	}
	if cfg.RAG.PreviewLen == 0 {
		cfg.RAG.PreviewLen = 120
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "chromem"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./vectordb"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "documents"
	}
}
