package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config configures turn persistence.
type Config struct {
	// SQLite database path (":memory:" for ephemeral)
	Path string `yaml:"path" json:"path"`

	// Max open connections
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`

	// Max idle connections
	MaxIdleConns int `yaml:"max_idle_conns" json:"max_idle_conns"`
}

// TurnRecord is one completed chat turn.
type TurnRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       string    `gorm:"index;size:64" json:"session_id"`
	Question        string    `json:"question"`
	Answer          string    `json:"answer"`
	IsFallback      bool      `json:"is_fallback"`
	Iterations      int       `json:"iterations"`
	ConfidenceScore float64   `json:"confidence_score"`
	EvidenceCount   int       `json:"evidence_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName sets the table name.
func (TurnRecord) TableName() string { return "chat_turns" }

// Repository persists chat turns in SQLite through gorm.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (or creates) the database and migrates the schema.
func Open(cfg Config, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = "docflow.db"
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.AutoMigrate(&TurnRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Info("turn repository opened", zap.String("path", cfg.Path))

	return &Repository{
		db:     db,
		logger: logger.With(zap.String("component", "turn_repository")),
	}, nil
}

// SaveTurn persists one completed turn.
func (r *Repository) SaveTurn(ctx context.Context, record *TurnRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}
	r.logger.Debug("turn saved",
		zap.String("session_id", record.SessionID),
		zap.Bool("is_fallback", record.IsFallback))
	return nil
}

// TurnsBySession returns the most recent limit turns for a session, newest
// first. limit <= 0 returns all.
func (r *Repository) TurnsBySession(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	q := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []TurnRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	return records, nil
}

// Ping checks database connectivity, for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
