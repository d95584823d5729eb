package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// Config holds database pool configuration
type Config struct {
	URL         string
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
}

// ConfigFromAudit derives pool settings from the audit configuration.
func ConfigFromAudit(cfg domain.AuditConfig) Config {
	c := Config{
		URL:         cfg.PostgresURL,
		MaxConns:    int32(cfg.MaxOpenConns),
		MinConns:    1,
		MaxConnLife: cfg.ConnMaxLife,
		MaxConnIdle: 30 * time.Minute,
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 4
	}
	if c.MaxConnLife <= 0 {
		c.MaxConnLife = time.Hour
	}
	return c
}

// DB wraps the pgxpool.Pool with additional functionality
type DB struct {
	Pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewConnection creates a new database connection pool
func NewConnection(ctx context.Context, config Config, logger *logrus.Logger) (*DB, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.MaxConnLife
	poolConfig.MaxConnIdleTime = config.MaxConnIdle

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	db := &DB{
		Pool: pool,
		log:  logger,
	}
	if err := db.Health(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      poolConfig.ConnConfig.Host,
		"database":  poolConfig.ConnConfig.Database,
		"max_conns": config.MaxConns,
	}).Info("Database connection pool established")

	return db, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info("Database connection pool closed")
	}
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Stats returns connection pool statistics
func (db *DB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}

// LevelCount is the number of audited predictions at one risk level.
type LevelCount struct {
	Level domain.RiskLevel `json:"risk_level"`
	Count int64            `json:"count"`
}

// AuditSummary counts audited predictions per risk level, highest level first.
func (db *DB) AuditSummary(ctx context.Context) ([]LevelCount, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT risk_level, COUNT(*)
		FROM prediction_audit
		GROUP BY risk_level
	`)
	if err != nil {
		return nil, fmt.Errorf("querying audit summary: %w", err)
	}
	defer rows.Close()

	var counts []LevelCount
	for rows.Next() {
		var level string
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scanning audit summary: %w", err)
		}
		counts = append(counts, LevelCount{Level: domain.RiskLevel(level), Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Level.Rank() > counts[j].Level.Rank()
	})
	return counts, nil
}
