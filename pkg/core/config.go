// Package core provides the recall client facade over storage, embedding,
// classification, and search.
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/studyloop/recall/pkg/embedding"
)

// Config contains the complete configuration for a recall client.
//
// It includes settings for:
//   - Storage backend (sqlite, postgres, mysql)
//   - Embedding provider adapters and their fallback ordering
//   - Embedding cache (in-memory or Redis)
//   - Optional LLM-backed tier classification
//   - Search, health monitoring, and async write behavior
//
// Example:
//
//	config := &core.Config{
//	    Storage: core.StorageConfig{
//	        Provider: "sqlite",
//	        SQLite:   core.SQLiteConfig{DBPath: "./recall.db"},
//	    },
//	    Embedders: []core.EmbedderConfig{
//	        {Provider: "openai", APIKey: "sk-..."},
//	    },
//	    Embedding: core.EmbeddingConfig{
//	        DefaultProvider: "openai",
//	    },
//	}
type Config struct {
	// Storage selects and configures the memory store backend.
	Storage StorageConfig `json:"storage"`

	// Embedders lists the embedding provider adapters to register.
	// At least one is required.
	Embedders []EmbedderConfig `json:"embedders"`

	// Embedding configures provider ordering, timeouts, and limits.
	Embedding EmbeddingConfig `json:"embedding"`

	// Cache configures the embedding cache.
	Cache CacheConfig `json:"cache"`

	// LLM configures the optional model-based tier classifier. When the
	// provider is empty the keyword classifier is used.
	LLM LLMConfig `json:"llm,omitempty"`

	// Search configures search defaults.
	Search SearchConfig `json:"search"`

	// Monitor configures provider health probing.
	Monitor MonitorConfig `json:"monitor"`

	// Async configures the background write pool.
	Async AsyncConfig `json:"async"`

	// NodeID is the snowflake node identifier for memory ID generation.
	// Defaults to 1; give each process its own value when running several.
	NodeID int64 `json:"node_id,omitempty"`
}

// StorageConfig selects the memory store backend.
//
// Supported providers: sqlite, postgres, mysql
type StorageConfig struct {
	// Provider is the storage backend name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// TableName overrides the default "memories" table name.
	TableName string `json:"table_name,omitempty"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `json:"sqlite,omitempty"`

	// Postgres configures the postgres backend.
	Postgres PostgresConfig `json:"postgres,omitempty"`

	// MySQL configures the mysql backend.
	MySQL MySQLConfig `json:"mysql,omitempty"`
}

// SQLiteConfig configures the file-based sqlite backend.
type SQLiteConfig struct {
	// DBPath is the database file path. Defaults to "./recall.db".
	DBPath string `json:"db_path,omitempty"`
}

// PostgresConfig configures the postgres backend with pgvector similarity.
type PostgresConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"db_name,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty"`

	// Dimensions is the pgvector column width. Must match the embedding
	// provider's output. Defaults to 1536.
	Dimensions int `json:"dimensions,omitempty"`
}

// MySQLConfig configures the mysql backend.
type MySQLConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"db_name,omitempty"`
}

// EmbedderConfig configures one embedding provider adapter.
//
// Supported providers: openai, cohere, mistral, google, voyage, bedrock, qwen
//
// Example:
//
//	embedderConfig := core.EmbedderConfig{
//	    Provider:   "openai",
//	    APIKey:     "sk-...",
//	    Model:      "text-embedding-3-small",
//	    Dimensions: 1536,
//	}
type EmbedderConfig struct {
	// Provider is the embedding provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the provider. Bedrock uses the AWS
	// credential chain instead.
	APIKey string `json:"api_key,omitempty"`

	// Model is the embedding model name (uses provider default if empty).
	Model string `json:"model,omitempty"`

	// BaseURL overrides the provider's API endpoint (optional).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the vector dimension (uses provider default if zero).
	Dimensions int `json:"dimensions,omitempty"`

	// ProjectID is the Google Cloud project (google provider only).
	ProjectID string `json:"project_id,omitempty"`

	// Location is the Vertex AI region (google provider only).
	Location string `json:"location,omitempty"`

	// Region is the AWS region (bedrock provider only).
	Region string `json:"region,omitempty"`
}

// EmbeddingConfig configures provider selection and operating limits.
type EmbeddingConfig struct {
	// DefaultProvider is tried first when no provider is pinned.
	// Defaults to the first configured embedder.
	DefaultProvider string `json:"default_provider,omitempty"`

	// Fallbacks is the ordered provider chain tried after the default.
	Fallbacks []string `json:"fallbacks,omitempty"`

	// CallTimeoutSeconds bounds each per-provider attempt, retries
	// included. Defaults to 30.
	CallTimeoutSeconds int `json:"call_timeout_seconds,omitempty"`

	// Providers carries per-provider quotas, costs, and rate limits,
	// keyed by provider identifier.
	Providers map[string]ProviderLimits `json:"providers,omitempty"`
}

// ProviderLimits carries one provider's quotas, cost rate, and throughput cap.
type ProviderLimits struct {
	// DailyQuota is the request ceiling per day. 0 means unlimited.
	DailyQuota int64 `json:"daily_quota,omitempty"`

	// MonthlyQuota is the request ceiling per month. 0 means unlimited.
	MonthlyQuota int64 `json:"monthly_quota,omitempty"`

	// CostPer1MChars is the approximate provider cost per million input
	// characters, used for cost accounting only.
	CostPer1MChars float64 `json:"cost_per_1m_chars,omitempty"`

	// RequestsPerMinute caps provider throughput. 0 means unlimited.
	RequestsPerMinute float64 `json:"requests_per_minute,omitempty"`

	// Burst is the rate limiter burst size. Defaults to 1 when a rate
	// cap is set.
	Burst int `json:"burst,omitempty"`
}

// CacheConfig configures the embedding cache.
//
// Supported backends: memory (default), redis
type CacheConfig struct {
	// Backend is the cache backend name (memory, redis).
	Backend string `json:"backend,omitempty"`

	// Size is the in-memory cache capacity in entries. Defaults to 1000.
	Size int `json:"size,omitempty"`

	// TTLSeconds bounds entry age. Defaults to 3600.
	TTLSeconds int `json:"ttl_seconds,omitempty"`

	// Redis configures the redis backend.
	Redis RedisConfig `json:"redis,omitempty"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	// Addr is the Redis host:port.
	Addr string `json:"addr,omitempty"`

	// Password is the Redis password, if any.
	Password string `json:"password,omitempty"`

	// DB selects the Redis logical database.
	DB int `json:"db,omitempty"`
}

// LLMConfig configures the optional LLM provider used for tier
// classification.
//
// Supported providers: openai, anthropic, ollama
type LLMConfig struct {
	// Provider is the LLM provider name. Empty disables the LLM
	// classifier in favor of the keyword heuristic.
	Provider string `json:"provider,omitempty"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key,omitempty"`

	// Model is the model name to use (uses provider default if empty).
	Model string `json:"model,omitempty"`

	// BaseURL overrides the provider's API endpoint. OpenAI-compatible
	// services (DeepSeek, Qwen, vLLM) are reached through the openai
	// provider with their base URL set here.
	BaseURL string `json:"base_url,omitempty"`
}

// SearchConfig configures search defaults.
type SearchConfig struct {
	// MinSimilarity is the default similarity floor applied when a search
	// does not specify one. 0 keeps every candidate.
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

// MonitorConfig configures embedding provider health probing.
type MonitorConfig struct {
	// ProbeIntervalSeconds is the time between probe sweeps. Defaults
	// to 60.
	ProbeIntervalSeconds int `json:"probe_interval_seconds,omitempty"`

	// ProbeTimeoutSeconds bounds each canary call. Defaults to 5.
	ProbeTimeoutSeconds int `json:"probe_timeout_seconds,omitempty"`

	// TripThreshold is the consecutive-failure count that marks a
	// provider unhealthy. Defaults to 3.
	TripThreshold int `json:"trip_threshold,omitempty"`

	// RecoverySeconds is how long an unhealthy provider waits before a
	// recovery probe. Defaults to 30.
	RecoverySeconds int `json:"recovery_seconds,omitempty"`
}

// AsyncConfig configures the background write pool used by
// WriteMemoryAsync.
type AsyncConfig struct {
	// Workers is the number of background writers. Defaults to 4.
	Workers int `json:"workers,omitempty"`

	// QueueSize is the pending-write queue capacity. Defaults to 64.
	QueueSize int `json:"queue_size,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql) and DATABASE_TABLE
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL, EMBEDDING_DIMENSIONS
//   - EMBEDDING_FALLBACKS (comma-separated provider names); each fallback
//     reads <PROVIDER>_API_KEY, <PROVIDER>_EMBEDDING_MODEL, and so on
//   - <PROVIDER>_DAILY_QUOTA, <PROVIDER>_MONTHLY_QUOTA,
//     <PROVIDER>_COST_PER_1M_CHARS, <PROVIDER>_REQUESTS_PER_MINUTE
//   - CACHE_BACKEND (memory, redis), CACHE_SIZE, CACHE_TTL_SECONDS,
//     REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - SEARCH_MIN_SIMILARITY
//   - HEALTH_PROBE_INTERVAL_SECONDS, HEALTH_PROBE_TIMEOUT_SECONDS
//   - ASYNC_WORKERS, ASYNC_QUEUE_SIZE
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	storageCfg := storageFromEnv()

	// The default provider plus the fallback chain, duplicates removed.
	providers := []string{getEnvOrDefault("EMBEDDING_PROVIDER", "openai")}
	for _, name := range splitList(os.Getenv("EMBEDDING_FALLBACKS")) {
		if name != providers[0] {
			providers = append(providers, name)
		}
	}

	embedders := make([]EmbedderConfig, 0, len(providers))
	limits := make(map[string]ProviderLimits, len(providers))
	for i, name := range providers {
		embedders = append(embedders, embedderFromEnv(name, i == 0))
		limits[name] = limitsFromEnv(name)
	}

	config := &Config{
		Storage:   storageCfg,
		Embedders: embedders,
		Embedding: EmbeddingConfig{
			DefaultProvider:    providers[0],
			Fallbacks:          providers[1:],
			CallTimeoutSeconds: envInt("EMBEDDING_CALL_TIMEOUT_SECONDS", 0),
			Providers:          limits,
		},
		Cache: CacheConfig{
			Backend:    getEnvOrDefault("CACHE_BACKEND", "memory"),
			Size:       envInt("CACHE_SIZE", 0),
			TTLSeconds: envInt("CACHE_TTL_SECONDS", 0),
			Redis: RedisConfig{
				Addr:     os.Getenv("REDIS_ADDR"),
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       envInt("REDIS_DB", 0),
			},
		},
		LLM: LLMConfig{
			Provider: os.Getenv("LLM_PROVIDER"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    os.Getenv("LLM_MODEL"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		Search: SearchConfig{
			MinSimilarity: envFloat("SEARCH_MIN_SIMILARITY", 0),
		},
		Monitor: MonitorConfig{
			ProbeIntervalSeconds: envInt("HEALTH_PROBE_INTERVAL_SECONDS", 0),
			ProbeTimeoutSeconds:  envInt("HEALTH_PROBE_TIMEOUT_SECONDS", 0),
			TripThreshold:        envInt("HEALTH_TRIP_THRESHOLD", 0),
			RecoverySeconds:      envInt("HEALTH_RECOVERY_SECONDS", 0),
		},
		Async: AsyncConfig{
			Workers:   envInt("ASYNC_WORKERS", 0),
			QueueSize: envInt("ASYNC_QUEUE_SIZE", 0),
		},
		NodeID: int64(envInt("SNOWFLAKE_NODE_ID", 0)),
	}

	return config, nil
}

// storageFromEnv builds the storage configuration for the provider named
// by DATABASE_PROVIDER.
func storageFromEnv() StorageConfig {
	cfg := StorageConfig{
		Provider:  getEnvOrDefault("DATABASE_PROVIDER", "sqlite"),
		TableName: os.Getenv("DATABASE_TABLE"),
	}

	switch cfg.Provider {
	case "postgres":
		cfg.Postgres = PostgresConfig{
			Host:       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:       envInt("POSTGRES_PORT", 5432),
			User:       getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password:   os.Getenv("POSTGRES_PASSWORD"),
			DBName:     getEnvOrDefault("POSTGRES_DATABASE", "recall"),
			SSLMode:    getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
			Dimensions: envInt("POSTGRES_EMBEDDING_DIMS", 1536),
		}
	case "mysql":
		cfg.MySQL = MySQLConfig{
			Host:     getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			Port:     envInt("MYSQL_PORT", 3306),
			User:     getEnvOrDefault("MYSQL_USER", "root"),
			Password: os.Getenv("MYSQL_PASSWORD"),
			DBName:   getEnvOrDefault("MYSQL_DATABASE", "recall"),
		}
	default:
		cfg.SQLite = SQLiteConfig{
			DBPath: getEnvOrDefault("SQLITE_PATH", "./recall.db"),
		}
	}
	return cfg
}

// embedderFromEnv builds one adapter configuration from <PROVIDER>_*
// variables. The default provider additionally reads the unprefixed
// EMBEDDING_* variables.
func embedderFromEnv(provider string, isDefault bool) EmbedderConfig {
	prefix := strings.ToUpper(provider)

	cfg := EmbedderConfig{
		Provider:   provider,
		APIKey:     os.Getenv(prefix + "_API_KEY"),
		Model:      os.Getenv(prefix + "_EMBEDDING_MODEL"),
		BaseURL:    os.Getenv(prefix + "_EMBEDDING_BASE_URL"),
		Dimensions: envInt(prefix+"_EMBEDDING_DIMENSIONS", 0),
	}

	if isDefault {
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("EMBEDDING_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = os.Getenv("EMBEDDING_MODEL")
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("EMBEDDING_BASE_URL")
		}
		if cfg.Dimensions == 0 {
			cfg.Dimensions = envInt("EMBEDDING_DIMENSIONS", 0)
		}
	}

	switch provider {
	case "google":
		cfg.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
		cfg.Location = getEnvOrDefault("GOOGLE_LOCATION", "us-central1")
	case "bedrock":
		cfg.Region = getEnvOrDefault("BEDROCK_REGION", os.Getenv("AWS_REGION"))
	}

	return cfg
}

// limitsFromEnv reads one provider's quota, cost, and rate settings.
func limitsFromEnv(provider string) ProviderLimits {
	prefix := strings.ToUpper(provider)
	return ProviderLimits{
		DailyQuota:        int64(envInt(prefix+"_DAILY_QUOTA", 0)),
		MonthlyQuota:      int64(envInt(prefix+"_MONTHLY_QUOTA", 0)),
		CostPer1MChars:    envFloat(prefix+"_COST_PER_1M_CHARS", 0),
		RequestsPerMinute: envFloat(prefix+"_REQUESTS_PER_MINUTE", 0),
		Burst:             envInt(prefix+"_RATE_BURST", 0),
	}
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that all required fields are set:
//   - A storage provider must be specified
//   - At least one embedder must be configured, each with a provider name
//   - The default provider, when set, must be a configured embedder
//   - The redis cache backend requires an address
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Storage.Provider == "" {
		return NewMemoryError("Validate", fmt.Errorf("%w: storage provider is required", ErrInvalidConfig))
	}
	if len(c.Embedders) == 0 {
		return NewMemoryError("Validate", fmt.Errorf("%w: at least one embedder is required", ErrInvalidConfig))
	}

	names := make(map[string]bool, len(c.Embedders))
	for _, e := range c.Embedders {
		if e.Provider == "" {
			return NewMemoryError("Validate", fmt.Errorf("%w: embedder provider name is required", ErrInvalidConfig))
		}
		names[e.Provider] = true
	}

	if d := c.Embedding.DefaultProvider; d != "" && !names[d] {
		return NewMemoryError("Validate", fmt.Errorf("%w: default provider %q has no embedder", ErrInvalidConfig, d))
	}
	for _, f := range c.Embedding.Fallbacks {
		if !names[f] {
			return NewMemoryError("Validate", fmt.Errorf("%w: fallback provider %q has no embedder", ErrInvalidConfig, f))
		}
	}

	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return NewMemoryError("Validate", fmt.Errorf("%w: redis cache requires an address", ErrInvalidConfig))
	}

	return nil
}

// embeddingServiceConfig converts the public embedding settings into the
// embedding package's service configuration. The per-million character cost
// rate is scaled down to the per-character unit cost the tracker works in.
func (c *Config) embeddingServiceConfig() embedding.Config {
	providers := make(map[string]embedding.ProviderConfig, len(c.Embedding.Providers))
	for name, limits := range c.Embedding.Providers {
		providers[name] = embedding.ProviderConfig{
			DailyQuota:   limits.DailyQuota,
			MonthlyQuota: limits.MonthlyQuota,
			CostPerChar:  limits.CostPer1MChars / 1e6,
			RPS:          limits.RequestsPerMinute / 60,
			Burst:        limits.Burst,
		}
	}

	defaultProvider := c.Embedding.DefaultProvider
	if defaultProvider == "" && len(c.Embedders) > 0 {
		defaultProvider = c.Embedders[0].Provider
	}

	return embedding.Config{
		DefaultProvider: defaultProvider,
		Fallbacks:       c.Embedding.Fallbacks,
		CallTimeout:     time.Duration(c.Embedding.CallTimeoutSeconds) * time.Second,
		Providers:       providers,
	}
}

// monitorConfig converts the public monitor settings into the embedding
// package's monitor configuration.
func (c *Config) monitorConfig() embedding.MonitorConfig {
	return embedding.MonitorConfig{
		ProbeInterval: time.Duration(c.Monitor.ProbeIntervalSeconds) * time.Second,
		ProbeTimeout:  time.Duration(c.Monitor.ProbeTimeoutSeconds) * time.Second,
		Trip:          uint32(c.Monitor.TripThreshold),
		Recovery:      time.Duration(c.Monitor.RecoverySeconds) * time.Second,
	}
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envInt parses an integer environment variable, returning the default on
// absence or parse failure.
func envInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// envFloat parses a float environment variable, returning the default on
// absence or parse failure.
func envFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// splitList splits a comma-separated list, trimming blanks.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	// First check the current directory
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	// Check project root directory (search upward)
	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
