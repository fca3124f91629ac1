package core

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a MindMem client.
//
// Example:
//
//	config := &core.Config{
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        SQLitePath: "./mindmem.db",
//	    },
//	    LLM: core.LLMConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	    },
//	}
type Config struct {
	// Store contains memory store configuration.
	Store StoreConfig `json:"store"`

	// LLM contains text generation provider configuration.
	LLM LLMConfig `json:"llm"`

	// Embedder contains the optional embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// FallbackReply overrides the reply returned when text generation fails.
	// Empty uses DefaultFallbackReply.
	FallbackReply string `json:"fallback_reply,omitempty"`
}

// StoreConfig selects and configures the memory store backend.
//
// Supported providers: sqlite, postgres, mysql.
type StoreConfig struct {
	// Provider is the backend name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Table is the memories table name. Defaults to "memories".
	Table string `json:"table,omitempty"`

	// SQLitePath is the database file path (sqlite only).
	SQLitePath string `json:"sqlite_path,omitempty"`

	// Server connection settings (postgres and mysql).
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"db_name,omitempty"`

	// SSLMode applies to postgres only. Defaults to "disable".
	SSLMode string `json:"ssl_mode,omitempty"`
}

// LLMConfig configures the text generation provider.
//
// Supported providers: openai, ollama.
type LLMConfig struct {
	// Provider is the provider name (openai, ollama).
	Provider string `json:"provider"`

	// APIKey authenticates against the provider. Optional for ollama.
	APIKey string `json:"api_key"`

	// Model is the model name. Empty uses the provider default.
	Model string `json:"model,omitempty"`

	// BaseURL overrides the API endpoint.
	BaseURL string `json:"base_url,omitempty"`
}

// EmbedderConfig configures the optional embedding provider. Embeddings are
// attached to saved memories only when Enabled is true.
type EmbedderConfig struct {
	// Enabled turns embedding generation on.
	Enabled bool `json:"enabled"`

	// APIKey authenticates against the provider.
	APIKey string `json:"api_key,omitempty"`

	// Model is the embedding model name.
	Model string `json:"model,omitempty"`

	// BaseURL overrides the API endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the vector dimension. Defaults to 1536.
	Dimensions int `json:"dimensions,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function searches for a .env or .env.example file up to 5 directory
// levels up, loads it, and parses these variables:
//
//   - DATABASE_PROVIDER (sqlite, postgres, mysql; default sqlite)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE, POSTGRES_TABLE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE,
//     MYSQL_TABLE
//   - LLM_PROVIDER (openai, ollama; default openai), LLM_API_KEY, LLM_MODEL,
//     LLM_BASE_URL
//   - EMBEDDING_ENABLED, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL, EMBEDDING_DIMS
//   - FALLBACK_REPLY
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Store: StoreConfig{
			Provider: getEnvOrDefault("DATABASE_PROVIDER", "sqlite"),
		},
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", "openai"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    os.Getenv("LLM_MODEL"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		FallbackReply: os.Getenv("FALLBACK_REPLY"),
	}

	switch cfg.Store.Provider {
	case "sqlite":
		cfg.Store.SQLitePath = getEnvOrDefault("SQLITE_PATH", "./mindmem.db")
		cfg.Store.Table = getEnvOrDefault("SQLITE_TABLE", "memories")
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		cfg.Store.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		cfg.Store.Port = port
		cfg.Store.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		cfg.Store.Password = os.Getenv("POSTGRES_PASSWORD")
		cfg.Store.DBName = getEnvOrDefault("POSTGRES_DATABASE", "mindmem")
		cfg.Store.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
		cfg.Store.Table = getEnvOrDefault("POSTGRES_TABLE", "memories")
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		cfg.Store.Host = getEnvOrDefault("MYSQL_HOST", "127.0.0.1")
		cfg.Store.Port = port
		cfg.Store.User = getEnvOrDefault("MYSQL_USER", "root")
		cfg.Store.Password = os.Getenv("MYSQL_PASSWORD")
		cfg.Store.DBName = getEnvOrDefault("MYSQL_DATABASE", "mindmem")
		cfg.Store.Table = getEnvOrDefault("MYSQL_TABLE", "memories")
	}

	if enabled, _ := strconv.ParseBool(os.Getenv("EMBEDDING_ENABLED")); enabled {
		dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMS", "1536"))
		cfg.Embedder = EmbedderConfig{
			Enabled:    true,
			APIKey:     getEnvOrDefault("EMBEDDING_API_KEY", os.Getenv("LLM_API_KEY")),
			Model:      os.Getenv("EMBEDDING_MODEL"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
		}
	}

	return cfg, nil
}

// Validate checks that the configuration names a store and an LLM provider
// and that provider-specific required fields are present.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if c.Embedder.Enabled && c.Embedder.APIKey == "" {
		return NewPipelineError("Validate", ErrInvalidConfig)
	}
	return nil
}

// validateStore and validateLLM are split out so client construction with an
// injected collaborator can skip the corresponding check.
func (c *Config) validateStore() error {
	switch c.Store.Provider {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return NewPipelineError("Validate", ErrInvalidConfig)
		}
	case "postgres", "mysql":
		if c.Store.Host == "" || c.Store.DBName == "" {
			return NewPipelineError("Validate", ErrInvalidConfig)
		}
	default:
		return NewPipelineError("Validate", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return NewPipelineError("Validate", ErrInvalidConfig)
		}
	case "ollama":
	default:
		return NewPipelineError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for a .env or .env.example file, starting in the
// current directory and walking up to 5 parent directories.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

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
