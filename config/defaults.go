package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:   DefaultServerConfig(),
		Chat:     DefaultChatConfig(),
		LLM:      DefaultLLMConfig(),
		Qdrant:   DefaultQdrantConfig(),
		Redis:    DefaultRedisConfig(),
		Database: DefaultDatabaseConfig(),
		Log:      DefaultLogConfig(),
	}
}

// DefaultServerConfig returns the default HTTP server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultChatConfig returns the default orchestration loop configuration.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		MaxIterations:        3,
		MinConfidence:        0.7,
		MaxRefinementQueries: 4,
		MaxHistoryRecords:    2,
		ContextTokenBudget:   6000,
	}
}

// DefaultLLMConfig returns the default LLM provider configuration.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:        "https://api.openai.com/v1",
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		Temperature:    0.3,
		MaxTokens:      2000,
		Timeout:        60 * time.Second,
		MaxRetries:     3,
		RateLimitRPS:   5,
	}
}

// DefaultQdrantConfig returns the default Qdrant configuration.
func DefaultQdrantConfig() QdrantConfig {
	return QdrantConfig{
		Host:       "localhost",
		Port:       6333,
		Collection: "docflow_chunks",
		Timeout:    30 * time.Second,
	}
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		DB:         0,
		PoolSize:   10,
		SessionTTL: 24 * time.Hour,
	}
}

// DefaultDatabaseConfig returns the default persistence configuration.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Path:         "docflow.db",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		EnableCaller: false,
	}
}
