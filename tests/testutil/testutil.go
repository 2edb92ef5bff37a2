// Package testutil provides common test utilities for the commerce
// middleware. It contains helpers for setting up databases, fake supplier
// connectors and seeded fixtures.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/event"
	"github.com/vde76ru/module-sub000/internal/infrastructure/persistence"
)

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a postgres-dialect GORM handle backed by sqlmock.
// The connection is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewSQLiteDB opens a private in-memory sqlite database with the full schema
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err, "Failed to open sqlite")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(context.Background(), db), "Failed to migrate schema")
	return db
}

// Env is a migrated database with a transaction scope and its outbox
type Env struct {
	DB     *gorm.DB
	Scope  uow.TransactionScope
	Outbox *event.GormOutboxRepository
	Logger *zap.Logger
}

// NewEnv creates a fresh sqlite-backed environment
func NewEnv(t *testing.T) *Env {
	t.Helper()

	db := NewSQLiteDB(t)
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	return &Env{
		DB:     db,
		Scope:  persistence.NewGormTransactionScope(db, event.NewOutboxPublisher(serializer)),
		Outbox: event.NewGormOutboxRepository(db),
		Logger: zap.NewNop(),
	}
}

// Repos returns pool-bound repositories
func (e *Env) Repos() uow.Repositories {
	return e.Scope.Repositories()
}

// OutboxTypes lists the event types written to the outbox, oldest first
func (e *Env) OutboxTypes(t *testing.T) []string {
	t.Helper()
	var entries []shared.OutboxEntry
	require.NoError(t, e.DB.Order("created_at ASC").Find(&entries).Error)
	types := make([]string, len(entries))
	for i, entry := range entries {
		types[i] = entry.EventType
	}
	return types
}

// CountOutbox counts outbox entries of one event type
func (e *Env) CountOutbox(t *testing.T, eventType string) int {
	t.Helper()
	n := 0
	for _, typ := range e.OutboxTypes(t) {
		if typ == eventType {
			n++
		}
	}
	return n
}

// NewTestUUID generates a deterministic UUID for testing.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// TestTenantID returns a standard tenant ID for tests.
func TestTenantID() uuid.UUID {
	return NewTestUUID("test-tenant")
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually retries a condition until it passes or times out.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}
