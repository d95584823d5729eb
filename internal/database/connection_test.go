package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func TestConfigFromAudit(t *testing.T) {
	cfg := ConfigFromAudit(domain.AuditConfig{PostgresURL: "postgres://localhost/audit"})
	assert.Equal(t, "postgres://localhost/audit", cfg.URL)
	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, time.Hour, cfg.MaxConnLife)

	cfg = ConfigFromAudit(domain.AuditConfig{MaxOpenConns: 12, ConnMaxLife: time.Minute})
	assert.Equal(t, int32(12), cfg.MaxConns)
	assert.Equal(t, time.Minute, cfg.MaxConnLife)
}

func TestNewConnection_MissingURL(t *testing.T) {
	_, err := NewConnection(context.Background(), Config{}, logrus.New())
	assert.Error(t, err)
}

func TestMigrateAudit_SkipsNonPostgres(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing

	assert.NoError(t, MigrateAudit(context.Background(), domain.AuditConfig{Driver: domain.AuditDriverSQLite}, logger))
	assert.NoError(t, MigrateAudit(context.Background(), domain.AuditConfig{Driver: domain.AuditDriverNone}, logger))
	assert.NoError(t, RollbackAudit(context.Background(), domain.AuditConfig{Driver: domain.AuditDriverSQLite}, logger))
}

func TestDatabaseConnection(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}
	if os.Getenv("SKIP_CONTAINER_TESTS") != "" {
		t.Skip("SKIP_CONTAINER_TESTS is set")
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel) // Reduce noise in tests

	auditCfg := domain.AuditConfig{
		Driver:         domain.AuditDriverPostgres,
		PostgresURL:    dsn,
		MigrationsPath: migrationsDir(t),
	}

	require.NoError(t, MigrateAudit(ctx, auditCfg, logger))
	// A second run is a no-op
	require.NoError(t, MigrateAudit(ctx, auditCfg, logger))

	runner, err := NewMigrationRunner(dsn, auditCfg.MigrationsPath, logger)
	require.NoError(t, err)
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, runner.Close())

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()
	_, err = sqlDB.ExecContext(ctx, `
		INSERT INTO prediction_audit (id, request_id, label, probability, risk_level, source)
		VALUES ('a', 'r1', 1, 0.8, 'High', 'http'),
		       ('b', 'r2', 0, 0.1, 'Low', 'mcp'),
		       ('c', 'r3', 0, 0.2, 'Low', 'cli')
	`)
	require.NoError(t, err)

	db, err := NewConnection(ctx, ConfigFromAudit(auditCfg), logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		t.Fatalf("Database health check failed: %v", err)
	}

	summary, err := db.AuditSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LevelCount{
		{Level: domain.HIGH_RISK, Count: 1},
		{Level: domain.LOW_RISK, Count: 2},
	}, summary)

	stats := db.Stats()
	if stats.TotalConns() == 0 {
		t.Error("Expected at least one connection in pool")
	}

	require.NoError(t, RollbackAudit(ctx, auditCfg, logger))
	runner, err = NewMigrationRunner(dsn, auditCfg.MigrationsPath, logger)
	require.NoError(t, err)
	defer runner.Close()
	version, _, err = runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
