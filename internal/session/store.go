package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

const sessionPrefix = "session:"

// Config configures the Redis session store.
type Config struct {
	// Redis address
	Addr string `yaml:"addr" json:"addr"`

	// Password
	Password string `yaml:"password" json:"password"`

	// Database number
	DB int `yaml:"db" json:"db"`

	// Connection pool size
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// Session expiration
	SessionTTL time.Duration `yaml:"session_ttl" json:"session_ttl"`
}

// DefaultConfig returns the default session store configuration.
func DefaultConfig() Config {
	return Config{
		Addr:       "localhost:6379",
		DB:         0,
		PoolSize:   10,
		SessionTTL: 24 * time.Hour,
	}
}

// Store keeps per-session conversation history in Redis. Each session is a
// list of JSON-encoded turns under one key, refreshed to the TTL on every
// append.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore connects to Redis and returns a session store.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("session store initialized",
		zap.String("addr", cfg.Addr),
		zap.Duration("ttl", cfg.SessionTTL))

	return NewStoreWithClient(client, cfg.SessionTTL, logger), nil
}

// NewStoreWithClient wraps an existing Redis client. Used by tests.
func NewStoreWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "session_store")),
	}
}

// CreateSession allocates a new session and returns its ID.
func (s *Store) CreateSession(ctx context.Context) (string, error) {
	sessionID := uuid.NewString()

	createdAt := time.Now().UTC().Format(time.RFC3339)
	if err := s.client.Set(ctx, sessionPrefix+sessionID+":meta", createdAt, s.ttl).Err(); err != nil {
		return "", types.NewError(types.ErrUpstreamUnavailable, "failed to create session").WithCause(err)
	}

	s.logger.Info("session created", zap.String("session_id", sessionID))
	return sessionID, nil
}

// Exists reports whether sessionID has either metadata or history in Redis.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionPrefix+sessionID+":meta", sessionPrefix+sessionID).Result()
	if err != nil {
		return false, types.NewError(types.ErrUpstreamUnavailable, "failed to check session").WithCause(err)
	}
	return n > 0, nil
}

// AppendTurn appends one question/answer pair to the session history and
// refreshes the TTL. Callers treat failures as best-effort.
func (s *Store) AppendTurn(ctx context.Context, sessionID, question, answer string) error {
	payload, err := json.Marshal(types.ConversationTurn{Question: question, Answer: answer})
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}

	key := sessionPrefix + sessionID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return types.NewError(types.ErrSessionUpdateFailure, "failed to append session turn").WithCause(err)
	}

	s.logger.Debug("session turn appended", zap.String("session_id", sessionID))
	return nil
}

// History returns the most recent limit turns for sessionID, oldest first.
// limit <= 0 returns the full history. A missing session yields an empty
// history, not an error.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]types.ConversationTurn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := s.client.LRange(ctx, sessionPrefix+sessionID, start, -1).Result()
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamUnavailable, "failed to load session history").WithCause(err)
	}

	turns := make([]types.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn types.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			s.logger.Warn("skipping undecodable session turn",
				zap.String("session_id", sessionID),
				zap.Error(err))
			continue
		}
		turns = append(turns, turn)
	}

	return turns, nil
}

// Ping checks Redis connectivity, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
