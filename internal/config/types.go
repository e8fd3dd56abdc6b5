package config

import (
	"net"
	"net/url"
	"strconv"
)

const gemini3MinTemperature = 1.0

// ThinkingConfig holds per-task Gemini thinking levels.
type ThinkingConfig struct {
	LevelDefault  string
	LevelRoute    string
	LevelAnswer   string
	LevelGenerate string
	LevelVerify   string
}

// Level returns the thinking level for a task.
func (t ThinkingConfig) Level(task string) string {
	switch task {
	case "route":
		return t.LevelRoute
	case "answer":
		return t.LevelAnswer
	case "generate":
		return t.LevelGenerate
	case "verify":
		return t.LevelVerify
	default:
		return t.LevelDefault
	}
}

// GeminiConfig holds Gemini model settings.
type GeminiConfig struct {
	APIKeys          []string
	DefaultModel     string
	RouteModel       string
	AnswerModel      string
	GenerateModel    string
	VerifyModel      string
	EmbedModel       string
	Temperature      float64
	MaxOutputTokens  int
	Thinking         ThinkingConfig
	MaxRetries       int
	TimeoutSeconds   int
	ModelCacheSize   int
	FailoverAttempts int
}

// PrimaryKey returns the first configured API key.
func (g GeminiConfig) PrimaryKey() string {
	if len(g.APIKeys) == 0 {
		return ""
	}
	return g.APIKeys[0]
}

// ModelForTask returns the model for a task, falling back to the default.
func (g GeminiConfig) ModelForTask(task string) string {
	switch task {
	case "route":
		if g.RouteModel != "" {
			return g.RouteModel
		}
	case "answer":
		if g.AnswerModel != "" {
			return g.AnswerModel
		}
	case "generate":
		if g.GenerateModel != "" {
			return g.GenerateModel
		}
	case "verify":
		if g.VerifyModel != "" {
			return g.VerifyModel
		}
	}
	return g.DefaultModel
}

// TemperatureForModel clamps temperature to the model family minimum.
func (g GeminiConfig) TemperatureForModel(model string) float64 {
	if isGemini3(model) {
		return max(gemini3MinTemperature, g.Temperature)
	}
	return g.Temperature
}

// SessionConfig holds chat session settings.
type SessionConfig struct {
	MaxSessions       int
	SessionTTLMinutes int
	HistoryMaxPairs   int
}

// SessionStoreConfig holds Valkey connection settings.
type SessionStoreConfig struct {
	URL                 string
	Enabled             bool
	Required            bool
	DisableCache        bool
	ConnectMaxAttempts  int
	ConnectRetrySeconds int
}

// MemoryConfig holds conversation-memory settings.
type MemoryConfig struct {
	Enabled       bool
	MaxEntries    int
	TTLMinutes    int
	RetrieveTopK  int
	MinSimilarity float64
}

// RAGConfig holds reference-document retrieval settings.
type RAGConfig struct {
	ChunkSize    int
	ChunkOverlap int
	RetrieveTopK int
}

// SynthConfig holds synthetic-record pipeline settings.
type SynthConfig struct {
	StageMaxAttempts  int
	ArchiveTTLMinutes int
	ParallelSections  bool
}

// GuardConfig holds input screening settings.
type GuardConfig struct {
	Enabled         bool
	Threshold       float64
	RulepacksDir    string
	CacheMaxSize    int
	CacheTTLSeconds int
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host         string
	Port         int
	HTTP2Enabled bool
}

// HTTPAuthConfig holds API key auth settings.
type HTTPAuthConfig struct {
	APIKey   string
	Required bool
}

// HTTPRateLimitConfig holds request throttling settings.
type HTTPRateLimitConfig struct {
	RequestsPerMinute int
	CacheSize         int
	CacheTTLSeconds   int
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRate     float64
}

// DatabaseConfig holds DB connection and usage-recording settings.
type DatabaseConfig struct {
	Host                                 string
	Port                                 int
	Name                                 string
	User                                 string
	Password                             string
	MinPool                              int
	MaxPool                              int
	ConnMaxLifetimeMinutes               int
	ConnMaxIdleTimeMinutes               int
	UsageBatchEnabled                    bool
	UsageBatchFlushIntervalSeconds       int
	UsageBatchFlushTimeoutSeconds        int
	UsageBatchMaxPendingRequests         int
	UsageBatchMaxBackoffSeconds          int
	UsageBatchErrorLogMaxIntervalSeconds int
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	u := &url.URL{
		Scheme: "postgresql",
		Host:   host,
		Path:   "/" + d.Name,
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	} else {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// Config is the whole application configuration.
type Config struct {
	Gemini        GeminiConfig
	Session       SessionConfig
	SessionStore  SessionStoreConfig
	Memory        MemoryConfig
	RAG           RAGConfig
	Synth         SynthConfig
	Guard         GuardConfig
	Logging       LoggingConfig
	HTTP          HTTPConfig
	HTTPAuth      HTTPAuthConfig
	HTTPRateLimit HTTPRateLimitConfig
	Telemetry     TelemetryConfig
	Database      DatabaseConfig
}
