// Package testdb opens throwaway SQLite databases for store tests.
package testdb

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConcurrentConns is the pool size of databases opened by NewConcurrent
const ConcurrentConns = 8

// New opens an in-memory SQLite database and migrates models into it.
// The pool is pinned to one connection because every new connection to
// ":memory:" would see a different, empty database.
func New(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	return open(t, "file::memory:?_busy_timeout=5000", 1, models...)
}

// NewConcurrent opens a file-backed SQLite database in WAL mode with a pool
// of ConcurrentConns connections, so transactions from different goroutines
// really overlap. Write transactions begin IMMEDIATE and wait on the busy
// timeout instead of failing on lock upgrade.
func NewConcurrent(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate", path)
	return open(t, dsn, ConcurrentConns, models...)
}

func open(t *testing.T, dsn string, conns int, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models...))
	return db
}
