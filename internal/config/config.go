package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIAddr           string  `yaml:"api_addr" toml:"api_addr"`
	OpenAIAPIKey      string  `yaml:"-" toml:"-"`
	OpenAIBaseURL     string  `yaml:"openai_base_url" toml:"openai_base_url"`
	VectorStore       string  `yaml:"vector_store" toml:"vector_store"`
	QdrantURL         string  `yaml:"qdrant_url" toml:"qdrant_url"`
	QdrantAPIKey      string  `yaml:"-" toml:"-"`
	Collection        string  `yaml:"collection" toml:"collection"`
	EmbedProvider     string  `yaml:"embed_provider" toml:"embed_provider"`
	EmbedModel        string  `yaml:"embed_model" toml:"embed_model"`
	EmbedDim          int     `yaml:"embed_dim" toml:"embed_dim"`
	EmbedBatch        int     `yaml:"embed_batch" toml:"embed_batch"`
	EmbedParallelism  int     `yaml:"embed_parallelism" toml:"embed_parallelism"`
	LLMProvider       string  `yaml:"llm_provider" toml:"llm_provider"`
	ChatModel         string  `yaml:"chat_model" toml:"chat_model"`
	Temperature       float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens" toml:"max_tokens"`
	ProviderRPS       float64 `yaml:"provider_rps" toml:"provider_rps"`
	ChunkSize         int     `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap" toml:"chunk_overlap"`
	TopK              int     `yaml:"top_k" toml:"top_k"`
	PostgresURL       string  `yaml:"postgres_url" toml:"postgres_url"`
	SQLitePath        string  `yaml:"sqlite_path" toml:"sqlite_path"`
	TemporalAddress   string  `yaml:"temporal_address" toml:"temporal_address"`
	TemporalTaskQueue string  `yaml:"temporal_task_queue" toml:"temporal_task_queue"`
	MaxUploadBytes    int64   `yaml:"max_upload_bytes" toml:"max_upload_bytes"`
}

// Defaults returns the configuration used when neither a config file nor
// environment variables override a field.
func Defaults() Config {
	return Config{
		APIAddr:           ":8080",
		OpenAIBaseURL:     "https://api.openai.com/v1",
		VectorStore:       "qdrant",
		QdrantURL:         "http://localhost:6333",
		Collection:        "text",
		EmbedProvider:     "openai",
		EmbedModel:        "text-embedding-3-large",
		EmbedDim:          3072,
		EmbedBatch:        64,
		EmbedParallelism:  4,
		LLMProvider:       "openai",
		ChatModel:         "gpt-4o-mini",
		Temperature:       0.7,
		MaxTokens:         1000,
		ChunkSize:         1000,
		ChunkOverlap:      200,
		TopK:              3,
		TemporalTaskQueue: "notebookllm",
		MaxUploadBytes:    32 << 20,
	}
}

// Load builds the process configuration: defaults, then the optional YAML or
// TOML file named by NOTEBOOK_CONFIG_FILE, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("NOTEBOOK_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}
	if err := unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIAddr = getenv("NOTEBOOK_API_ADDR", cfg.APIAddr)
	cfg.OpenAIAPIKey = getenv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = strings.TrimRight(getenv("OPENAI_BASE_URL", cfg.OpenAIBaseURL), "/")
	cfg.VectorStore = strings.ToLower(getenv("NOTEBOOK_VECTOR_STORE", cfg.VectorStore))
	cfg.QdrantURL = strings.TrimRight(getenv("QDRANT_URL", cfg.QdrantURL), "/")
	cfg.QdrantAPIKey = getenv("QDRANT_API_KEY", cfg.QdrantAPIKey)
	cfg.Collection = getenv("NOTEBOOK_COLLECTION", cfg.Collection)
	cfg.EmbedProvider = getenv("NOTEBOOK_EMBED_PROVIDER", cfg.EmbedProvider)
	cfg.EmbedModel = getenv("NOTEBOOK_EMBED_MODEL", cfg.EmbedModel)
	cfg.EmbedDim = getenvInt("NOTEBOOK_EMBED_DIM", cfg.EmbedDim)
	cfg.EmbedBatch = getenvInt("NOTEBOOK_EMBED_BATCH", cfg.EmbedBatch)
	cfg.EmbedParallelism = getenvInt("NOTEBOOK_EMBED_PARALLELISM", cfg.EmbedParallelism)
	cfg.LLMProvider = getenv("NOTEBOOK_LLM_PROVIDER", cfg.LLMProvider)
	cfg.ChatModel = getenv("NOTEBOOK_CHAT_MODEL", cfg.ChatModel)
	cfg.Temperature = getenvFloat("NOTEBOOK_TEMPERATURE", cfg.Temperature)
	cfg.MaxTokens = getenvInt("NOTEBOOK_MAX_TOKENS", cfg.MaxTokens)
	cfg.ProviderRPS = getenvFloat("NOTEBOOK_PROVIDER_RPS", cfg.ProviderRPS)
	cfg.ChunkSize = getenvInt("NOTEBOOK_CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getenvInt("NOTEBOOK_CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.TopK = getenvInt("NOTEBOOK_TOP_K", cfg.TopK)
	cfg.PostgresURL = getenv("NOTEBOOK_POSTGRES_URL", cfg.PostgresURL)
	cfg.SQLitePath = getenv("NOTEBOOK_SQLITE_PATH", cfg.SQLitePath)
	cfg.TemporalAddress = getenv("NOTEBOOK_TEMPORAL_ADDRESS", cfg.TemporalAddress)
	cfg.TemporalTaskQueue = getenv("NOTEBOOK_TEMPORAL_TASK_QUEUE", cfg.TemporalTaskQueue)
	cfg.MaxUploadBytes = int64(getenvInt("NOTEBOOK_MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
}

func getenv(k, fallback string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(k string, fallback float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}
