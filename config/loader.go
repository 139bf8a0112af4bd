// Package config provides unified configuration loading for docflow,
// supporting YAML files with environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("DOCFLOW").
//	    Load()
//
// Precedence: defaults -> YAML file -> environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete docflow configuration.
type Config struct {
	// Server HTTP server settings
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Chat refinement loop settings
	Chat ChatConfig `yaml:"chat" env:"CHAT"`

	// LLM provider settings
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Qdrant vector store settings
	Qdrant QdrantConfig `yaml:"qdrant" env:"QDRANT"`

	// Redis session store settings
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database chat persistence settings
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log logging settings
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Listen address
	Addr string `yaml:"addr" env:"ADDR"`
	// Read timeout
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Idle timeout
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// ChatConfig configures the orchestration loop.
type ChatConfig struct {
	// Maximum refinement iterations per turn
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	// Minimum confidence to accept a sufficient verdict
	MinConfidence float64 `yaml:"min_confidence" env:"MIN_CONFIDENCE"`
	// Maximum refinement queries generated per round
	MaxRefinementQueries int `yaml:"max_refinement_queries" env:"MAX_REFINEMENT_QUERIES"`
	// Conversation history records supplied to the planner
	MaxHistoryRecords int `yaml:"max_history_records" env:"MAX_HISTORY_RECORDS"`
	// Token budget for the evaluation/synthesis context string
	ContextTokenBudget int `yaml:"context_token_budget" env:"CONTEXT_TOKEN_BUDGET"`
}

// LLMConfig configures the LLM provider.
type LLMConfig struct {
	// Base URL of an OpenAI-compatible endpoint
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// API key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Model name
	Model string `yaml:"model" env:"MODEL"`
	// Embedding model name
	EmbeddingModel string `yaml:"embedding_model" env:"EMBEDDING_MODEL"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// Max tokens per completion
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Per-call timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Max retry attempts per call
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// Client-side rate limit (requests per second, 0 disables)
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
}

// QdrantConfig configures the Qdrant retriever.
type QdrantConfig struct {
	// Host
	Host string `yaml:"host" env:"HOST"`
	// REST port
	Port int `yaml:"port" env:"PORT"`
	// API key (optional)
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Collection name
	Collection string `yaml:"collection" env:"COLLECTION"`
	// Per-request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	// Address
	Addr string `yaml:"addr" env:"ADDR"`
	// Password
	Password string `yaml:"password" env:"PASSWORD"`
	// Database number
	DB int `yaml:"db" env:"DB"`
	// Connection pool size
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// Session TTL
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
}

// DatabaseConfig configures chat turn persistence.
type DatabaseConfig struct {
	// SQLite database path (":memory:" for ephemeral)
	Path string `yaml:"path" env:"PATH"`
	// Max open connections
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// Max idle connections
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// Enable caller annotation
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "DOCFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a config validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads configuration with precedence defaults -> file -> env.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file falls back to defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads configuration and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	var errs []string

	if c.Chat.MaxIterations <= 0 {
		errs = append(errs, "chat.max_iterations must be positive")
	}
	if c.Chat.MinConfidence < 0 || c.Chat.MinConfidence > 1 {
		errs = append(errs, "chat.min_confidence must be in [0,1]")
	}
	if c.Chat.MaxRefinementQueries <= 0 {
		errs = append(errs, "chat.max_refinement_queries must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm.temperature must be in [0,2]")
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, "llm.max_retries must be non-negative")
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		errs = append(errs, "qdrant.port out of range")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
