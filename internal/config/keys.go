package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

// specs maps every configuration key to its environment variable. The env
// names mirror the service's deployment surface one to one.
var specs = []keySpec{
	{
		key: "arxiv.query", typ: kString, env: "ARXIV_QUERY",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.Query = v.(string) },
		extract: func(cfg Config) any { return cfg.Arxiv.Query },
	},
	{
		key: "arxiv.max_docs", typ: kInt, env: "ARXIV_MAX_DOCS",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.MaxDocs = v.(int) },
		extract: func(cfg Config) any { return cfg.Arxiv.MaxDocs },
	},
	{
		key: "arxiv.search_max_results", typ: kInt, env: "ARXIV_SEARCH_MAX_RESULTS",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.SearchMaxResults = v.(int) },
		extract: func(cfg Config) any { return cfg.Arxiv.SearchMaxResults },
	},
	{
		key: "arxiv.summary_max_length", typ: kInt, env: "ARXIV_SUMMARY_MAX_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.SummaryMaxLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Arxiv.SummaryMaxLength },
	},
	{
		key: "arxiv.chunk_max_length", typ: kInt, env: "RAG_CHUNK_MAX_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.ChunkMaxLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Arxiv.ChunkMaxLength },
	},
	{
		key: "arxiv.full_text", typ: kBool, env: "ARXIV_FETCH_FULL_TEXT",
		apply:   func(cfg *Config, v any) { cfg.Arxiv.FullText = v.(bool) },
		extract: func(cfg Config) any { return cfg.Arxiv.FullText },
	},
	{
		key: "vectors.backend", typ: kString, env: "VECTOR_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Vectors.Backend = Backend(v.(string)) },
		extract: func(cfg Config) any { return string(cfg.Vectors.Backend) },
	},
	{
		key: "vectors.qdrant_url", typ: kString, env: "QDRANT_URL",
		apply:   func(cfg *Config, v any) { cfg.Vectors.QdrantURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Vectors.QdrantURL },
	},
	{
		key: "vectors.collection", typ: kString, env: "QDRANT_COLLECTION",
		apply:   func(cfg *Config, v any) { cfg.Vectors.Collection = v.(string) },
		extract: func(cfg Config) any { return cfg.Vectors.Collection },
	},
	{
		key: "vectors.sqlite_path", typ: kString, env: "SQLITE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Vectors.SQLitePath = v.(string) },
		extract: func(cfg Config) any { return cfg.Vectors.SQLitePath },
	},
	{
		key: "llm.provider", typ: kString, env: "LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.ChatProvider = Provider(v.(string)) },
		extract: func(cfg Config) any { return string(cfg.LLM.ChatProvider) },
	},
	{
		key: "llm.embedding_provider", typ: kString, env: "EMBEDDING_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.EmbedProvider = Provider(v.(string)) },
		extract: func(cfg Config) any { return string(cfg.LLM.EmbedProvider) },
	},
	{
		key: "openai.api_key", typ: kString, env: "OPENAI_API_KEY", secret: true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.base_url", typ: kString, env: "OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.model", typ: kString, env: "OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.Model },
	},
	{
		key: "openai.embedding_model", typ: kString, env: "OPENAI_EMBEDDING_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.EmbeddingModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.EmbeddingModel },
	},
	{
		key: "openai.auth_username", typ: kString, env: "OPENAI_AUTH_USERNAME", secret: true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.AuthUsername = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.AuthUsername },
	},
	{
		key: "openai.auth_password", typ: kString, env: "OPENAI_AUTH_PASSWORD", secret: true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.AuthPassword = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.AuthPassword },
	},
	{
		key: "openai.http_referer", typ: kString, env: "OPENROUTER_HTTP_REFERER",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.HTTPReferer = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.HTTPReferer },
	},
	{
		key: "openai.x_title", typ: kString, env: "OPENROUTER_X_TITLE",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.XTitle = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.XTitle },
	},
	{
		key: "ollama.base_url", typ: kString, env: "OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "services.agent_host", typ: kString, env: "AGENT_HOST",
		apply:   func(cfg *Config, v any) { cfg.Services.AgentHost = v.(string) },
		extract: func(cfg Config) any { return cfg.Services.AgentHost },
	},
	{
		key: "services.agent_port", typ: kInt, env: "AGENT_PORT",
		apply:   func(cfg *Config, v any) { cfg.Services.AgentPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Services.AgentPort },
	},
	{
		key: "services.index_host", typ: kString, env: "INDEX_HOST",
		apply:   func(cfg *Config, v any) { cfg.Services.IndexHost = v.(string) },
		extract: func(cfg Config) any { return cfg.Services.IndexHost },
	},
	{
		key: "services.index_port", typ: kInt, env: "INDEX_PORT",
		apply:   func(cfg *Config, v any) { cfg.Services.IndexPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Services.IndexPort },
	},
	{
		key: "services.ingestion_host", typ: kString, env: "INGESTION_HOST",
		apply:   func(cfg *Config, v any) { cfg.Services.IngestionHost = v.(string) },
		extract: func(cfg Config) any { return cfg.Services.IngestionHost },
	},
	{
		key: "services.ingestion_port", typ: kInt, env: "INGESTION_PORT",
		apply:   func(cfg *Config, v any) { cfg.Services.IngestionPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Services.IngestionPort },
	},
	{
		key: "apo.optimized_prompt_path", typ: kString, env: "APO_OPTIMIZED_PROMPT_PATH",
		apply:   func(cfg *Config, v any) { cfg.APO.OptimizedPromptPath = v.(string) },
		extract: func(cfg Config) any { return cfg.APO.OptimizedPromptPath },
	},
	{
		key: "apo.use_optimized_prompt", typ: kBool, env: "APO_USE_OPTIMIZED_PROMPT",
		apply:   func(cfg *Config, v any) { cfg.APO.UseOptimizedPrompt = v.(bool) },
		extract: func(cfg Config) any { return cfg.APO.UseOptimizedPrompt },
	},
	{
		key: "apo.iterations", typ: kInt, env: "APO_ITERATIONS",
		apply:   func(cfg *Config, v any) { cfg.APO.Iterations = v.(int) },
		extract: func(cfg Config) any { return cfg.APO.Iterations },
	},
	{
		key: "apo.samples_per_iteration", typ: kInt, env: "APO_SAMPLES_PER_ITERATION",
		apply:   func(cfg *Config, v any) { cfg.APO.SamplesPerIteration = v.(int) },
		extract: func(cfg Config) any { return cfg.APO.SamplesPerIteration },
	},
	{
		key: "log.level", typ: kString, env: "LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) error {
	for _, s := range specs {
		raw, ok := os.LookupEnv(s.env)
		if !ok || raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			i, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid integer in %s: %w", s.env, err)
			}
			s.apply(cfg, i)
		case kBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("invalid boolean in %s: %w", s.env, err)
			}
			s.apply(cfg, b)
		}
	}
	return nil
}

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all non-secret config key/value pairs from the current config.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}
