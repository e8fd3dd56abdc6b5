package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"
)

var (
	configOnce  sync.Once
	configValue *Config
)

// Load reads the environment-based configuration once.
func Load() *Config {
	configOnce.Do(func() {
		_ = godotenv.Load()
		configValue = buildConfig()
	})
	return configValue
}

// ProvideConfig loads and validates the configuration.
func ProvideConfig() (*Config, error) {
	cfg := Load()
	if cfg == nil {
		return nil, errors.New("config not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	models := []string{
		c.Gemini.DefaultModel,
		c.Gemini.RouteModel,
		c.Gemini.AnswerModel,
		c.Gemini.GenerateModel,
		c.Gemini.VerifyModel,
	}
	for _, model := range models {
		if model == "" {
			continue
		}
		if !isGemini3(model) {
			return fmt.Errorf("gemini 3 only: model=%s", model)
		}
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf(
			"rag chunk overlap must be smaller than chunk size: size=%d overlap=%d",
			c.RAG.ChunkSize,
			c.RAG.ChunkOverlap,
		)
	}
	return nil
}

// LogEnvStatus logs the effective environment state.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	envFilePresent := fileExists(".env")
	primaryKey := maskSecret(cfg.Gemini.PrimaryKey())
	logger.Debug(
		"env_status",
		"env_file", envFilePresent,
		"gemini_keys", len(cfg.Gemini.APIKeys),
		"primary_key", primaryKey,
		"model", cfg.Gemini.DefaultModel,
		"embed_model", cfg.Gemini.EmbedModel,
		"timeout", cfg.Gemini.TimeoutSeconds,
		"session_store_url", cfg.SessionStore.URL,
		"db_host", cfg.Database.Host,
		"db_name", cfg.Database.Name,
		"session_ttl", cfg.Session.SessionTTLMinutes,
		"history_pairs", cfg.Session.HistoryMaxPairs,
		"memory_enabled", cfg.Memory.Enabled,
		"synth_attempts", cfg.Synth.StageMaxAttempts,
	)

	if len(cfg.Gemini.APIKeys) == 0 {
		logger.Error("env_missing_google_api_key")
	}
}

func buildConfig() *Config {
	return &Config{
		Gemini: GeminiConfig{
			APIKeys:         parseAPIKeys(),
			DefaultModel:    getEnvString("GEMINI_MODEL", "gemini-3-flash-preview"),
			RouteModel:      getEnvString("GEMINI_ROUTE_MODEL", ""),
			AnswerModel:     getEnvString("GEMINI_ANSWER_MODEL", ""),
			GenerateModel:   getEnvString("GEMINI_GENERATE_MODEL", ""),
			VerifyModel:     getEnvString("GEMINI_VERIFY_MODEL", ""),
			EmbedModel:      getEnvString("GEMINI_EMBED_MODEL", "gemini-embedding-001"),
			Temperature:     getEnvFloat("GEMINI_TEMPERATURE", 0.7),
			MaxOutputTokens: getEnvInt("GEMINI_MAX_TOKENS", 8192),
			Thinking: ThinkingConfig{
				LevelDefault:  getEnvString("GEMINI_THINKING_LEVEL", "low"),
				LevelRoute:    getEnvString("GEMINI_THINKING_LEVEL_ROUTE", "low"),
				LevelAnswer:   getEnvString("GEMINI_THINKING_LEVEL_ANSWER", "low"),
				LevelGenerate: getEnvString("GEMINI_THINKING_LEVEL_GENERATE", "low"),
				LevelVerify:   getEnvString("GEMINI_THINKING_LEVEL_VERIFY", "low"),
			},
			MaxRetries:       max(1, getEnvInt("GEMINI_MAX_RETRIES", 6)),
			TimeoutSeconds:   getEnvInt("GEMINI_TIMEOUT", 60),
			ModelCacheSize:   getEnvInt("GEMINI_MODEL_CACHE_SIZE", 20),
			FailoverAttempts: max(1, getEnvInt("GEMINI_FAILOVER_ATTEMPTS", 2)),
		},
		Session: SessionConfig{
			MaxSessions:       getEnvInt("MAX_SESSIONS", 50),
			SessionTTLMinutes: getEnvInt("SESSION_TTL_MINUTES", 1440),
			HistoryMaxPairs:   getEnvNonNegativeInt("SESSION_HISTORY_MAX_PAIRS", 10),
		},
		SessionStore: SessionStoreConfig{
			URL:                 getEnvString("SESSION_STORE_URL", "redis://localhost:6379"),
			Enabled:             getEnvBool("SESSION_STORE_ENABLED", true),
			Required:            getEnvBool("SESSION_STORE_REQUIRED", false),
			DisableCache:        getEnvBool("SESSION_STORE_DISABLE_CACHE", false),
			ConnectMaxAttempts:  max(1, getEnvNonNegativeInt("SESSION_STORE_CONNECT_MAX_ATTEMPTS", 6)),
			ConnectRetrySeconds: getEnvNonNegativeInt("SESSION_STORE_CONNECT_RETRY_SECONDS", 5),
		},
		Memory: MemoryConfig{
			Enabled:       getEnvBool("MEMORY_ENABLED", true),
			MaxEntries:    max(1, getEnvNonNegativeInt("MEMORY_MAX_ENTRIES", 200)),
			TTLMinutes:    getEnvNonNegativeInt("MEMORY_TTL_MINUTES", 43200),
			RetrieveTopK:  max(1, getEnvNonNegativeInt("MEMORY_RETRIEVE_TOP_K", 5)),
			MinSimilarity: getEnvFloat("MEMORY_MIN_SIMILARITY", 0.0),
		},
		RAG: RAGConfig{
			ChunkSize:    max(1, getEnvNonNegativeInt("RAG_CHUNK_SIZE", 1000)),
			ChunkOverlap: getEnvNonNegativeInt("RAG_CHUNK_OVERLAP", 200),
			RetrieveTopK: max(1, getEnvNonNegativeInt("RAG_RETRIEVE_TOP_K", 4)),
		},
		Synth: SynthConfig{
			StageMaxAttempts:  max(1, getEnvNonNegativeInt("SYNTH_STAGE_MAX_ATTEMPTS", 3)),
			ArchiveTTLMinutes: getEnvNonNegativeInt("SYNTH_ARCHIVE_TTL_MINUTES", 10080),
			ParallelSections:  getEnvBool("SYNTH_PARALLEL_SECTIONS", true),
		},
		Guard: GuardConfig{
			Enabled:         getEnvBool("GUARD_ENABLED", true),
			Threshold:       getEnvFloat("GUARD_THRESHOLD", 0.85),
			RulepacksDir:    getEnvString("RULEPACKS_DIR", "rulepacks"),
			CacheMaxSize:    getEnvInt("GUARD_CACHE_SIZE", 10000),
			CacheTTLSeconds: getEnvInt("GUARD_CACHE_TTL", 3600),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			LogDir:     getEnvString("LOG_DIR", ""),
			MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 1),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 30),
			MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 7),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
		},
		HTTP: HTTPConfig{
			Host:         getEnvString("HTTP_HOST", "127.0.0.1"),
			Port:         getEnvInt("HTTP_PORT", 40533),
			HTTP2Enabled: getEnvBool("HTTP2_ENABLED", true),
		},
		HTTPAuth: HTTPAuthConfig{
			APIKey: getEnvString("HTTP_API_KEY", ""),
		},
		HTTPRateLimit: HTTPRateLimitConfig{
			RequestsPerMinute: getEnvNonNegativeInt("HTTP_RATE_LIMIT_RPM", 0),
			CacheSize:         max(1, getEnvNonNegativeInt("HTTP_RATE_LIMIT_CACHE_SIZE", 10000)),
			CacheTTLSeconds:   max(1, getEnvNonNegativeInt("HTTP_RATE_LIMIT_CACHE_TTL_SECONDS", 120)),
		},
		Telemetry: readTelemetryConfig(),
		Database: DatabaseConfig{
			Host:                                 getEnvString("DB_HOST", "localhost"),
			Port:                                 getEnvInt("DB_PORT", 5432),
			Name:                                 getEnvString("DB_NAME", "mediexplain"),
			User:                                 getEnvString("DB_USER", "mediexplain"),
			Password:                             getEnvString("DB_PASSWORD", ""),
			MinPool:                              getEnvInt("DB_MIN_POOL", 1),
			MaxPool:                              getEnvInt("DB_MAX_POOL", 5),
			ConnMaxLifetimeMinutes:               getEnvNonNegativeInt("DB_CONN_MAX_LIFETIME_MINUTES", 60),
			ConnMaxIdleTimeMinutes:               getEnvNonNegativeInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
			UsageBatchEnabled:                    getEnvBool("DB_USAGE_BATCH_ENABLED", false),
			UsageBatchFlushIntervalSeconds:       max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_FLUSH_INTERVAL_SECONDS", 1)),
			UsageBatchFlushTimeoutSeconds:        max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_FLUSH_TIMEOUT_SECONDS", 5)),
			UsageBatchMaxPendingRequests:         max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_MAX_PENDING_REQUESTS", 50)),
			UsageBatchMaxBackoffSeconds:          getEnvNonNegativeInt("DB_USAGE_BATCH_MAX_BACKOFF_SECONDS", 60),
			UsageBatchErrorLogMaxIntervalSeconds: getEnvNonNegativeInt("DB_USAGE_BATCH_ERROR_LOG_MAX_INTERVAL_SECONDS", 60),
		},
	}
}
