package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

// Provider identifies an inference backend variant.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Backend identifies a vector store implementation.
type Backend string

const (
	BackendQdrant Backend = "qdrant"
	BackendSQLite Backend = "sqlite"
)

type Config struct {
	Arxiv    ArxivConfig
	Vectors  VectorConfig
	LLM      LLMConfig
	OpenAI   OpenAIConfig
	Ollama   OllamaConfig
	Services ServiceConfig
	APO      APOConfig
	Log      LogConfig
}

type ArxivConfig struct {
	// Default ingestion query and document cap.
	Query   string
	MaxDocs int

	// Search tool result cap and per-summary truncation.
	SearchMaxResults int
	SummaryMaxLength int

	// Per-chunk truncation for retrieved context.
	ChunkMaxLength int

	// When true the ingestion pipeline also fetches and extracts paper PDFs.
	FullText bool
}

type VectorConfig struct {
	Backend    Backend
	QdrantURL  string
	Collection string
	SQLitePath string
}

type LLMConfig struct {
	ChatProvider  Provider
	EmbedProvider Provider
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string

	// HTTP Basic auth for company API gateways. When both are set the
	// Authorization header carries base64(username:password) and APIKey
	// may be empty.
	AuthUsername string
	AuthPassword string

	// Optional attribution headers for OpenRouter-style gateways.
	HTTPReferer string
	XTitle      string
}

type OllamaConfig struct {
	BaseURL    string
	Model      string
	EmbedModel string
}

type ServiceConfig struct {
	AgentHost string
	AgentPort int

	IndexHost string
	IndexPort int

	IngestionHost string
	IngestionPort int
}

type APOConfig struct {
	// Path the trainer writes the best prompt to, and the agent reads it
	// from when UseOptimizedPrompt is set.
	OptimizedPromptPath string
	UseOptimizedPrompt  bool

	Iterations          int
	SamplesPerIteration int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Arxiv: ArxivConfig{
			Query:            "quantum computing",
			MaxDocs:          5,
			SearchMaxResults: 5,
			SummaryMaxLength: 400,
			ChunkMaxLength:   1000,
		},
		Vectors: VectorConfig{
			Backend:    BackendQdrant,
			QdrantURL:  "http://localhost:6333",
			Collection: "arxiv_papers",
			SQLitePath: "arxrag.db",
		},
		LLM: LLMConfig{
			ChatProvider:  ProviderOpenAI,
			EmbedProvider: ProviderOpenAI,
		},
		OpenAI: OpenAIConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "mistral-nemo",
			EmbedModel: "nomic-embed-text",
		},
		Services: ServiceConfig{
			AgentHost:     "0.0.0.0",
			AgentPort:     9010,
			IndexHost:     "0.0.0.0",
			IndexPort:     9020,
			IngestionHost: "0.0.0.0",
			IngestionPort: 9030,
		},
		APO: APOConfig{
			OptimizedPromptPath: "optimized_prompt.txt",
			UseOptimizedPrompt:  true,
			Iterations:          2,
			SamplesPerIteration: 3,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, an optional .env file, and
// environment variables. Environment variables always win over .env values
// (godotenv.Load does not override variables already present in the
// environment).
//
// The returned Config is constructed once at process start and passed to all
// collaborators; there is no global settings cache.
func Load() (Config, error) {
	// Missing .env is fine; env vars alone are a complete configuration.
	_ = godotenv.Load()

	cfg := defaults()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that cannot be expressed per key.
func (c Config) Validate() error {
	switch c.LLM.ChatProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported LLM provider %q (supported: openai, ollama)", c.LLM.ChatProvider)
	}
	switch c.LLM.EmbedProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported embedding provider %q (supported: openai, ollama)", c.LLM.EmbedProvider)
	}
	switch c.Vectors.Backend {
	case BackendQdrant, BackendSQLite:
	default:
		return fmt.Errorf("unsupported vector backend %q (supported: qdrant, sqlite)", c.Vectors.Backend)
	}

	usesOpenAI := c.LLM.ChatProvider == ProviderOpenAI || c.LLM.EmbedProvider == ProviderOpenAI
	hasBasicAuth := c.OpenAI.AuthUsername != "" && c.OpenAI.AuthPassword != ""
	if usesOpenAI && c.OpenAI.APIKey == "" && !hasBasicAuth {
		return fmt.Errorf(
			"missing required config: OPENAI_API_KEY is not set. " +
				"Add your OpenAI API key to the environment or .env file " +
				"(example: OPENAI_API_KEY=sk-...), or configure gateway Basic auth " +
				"via OPENAI_AUTH_USERNAME and OPENAI_AUTH_PASSWORD")
	}
	return nil
}
