package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/gem-cascade/internal/config"
	"github.com/wfunc/gem-cascade/internal/errors"
)

func sqliteConfig(dsn string) *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Enabled:      true,
		Driver:       "sqlite",
		DSN:          dsn,
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	cfg := sqliteConfig("")
	cfg.Driver = "oracle"

	_, err := Open(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, errors.ErrConfigValidate, errors.GetCode(err))
}

func TestAutoMigrate_FileDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gem.db")

	db, err := Open(sqliteConfig(dbPath), zap.NewNop())
	require.NoError(t, err)
	assert.True(t, IsConnected(db))

	require.NoError(t, AutoMigrate(db, zap.NewNop()))
	assert.True(t, db.Migrator().HasTable("game_snapshots"))
	assert.True(t, db.Migrator().HasTable("swap_records"))

	// 迁移完成后锁文件被释放
	_, err = os.Stat(dbPath + ".migration.lock")
	assert.True(t, os.IsNotExist(err))

	// 重复迁移是幂等的
	require.NoError(t, AutoMigrate(db, zap.NewNop()))
}

func TestAutoMigrate_MemoryDatabaseSkipsLock(t *testing.T) {
	db, err := Open(sqliteConfig(":memory:"), zap.NewNop())
	require.NoError(t, err)

	assert.Empty(t, sqliteFilePath(db))
	require.NoError(t, AutoMigrate(db, zap.NewNop()))
}

func TestAutoMigrate_NilDB(t *testing.T) {
	err := AutoMigrate(nil, zap.NewNop())
	assert.Equal(t, errors.ErrDatabaseConnect, errors.GetCode(err))
}

func TestMigrationLock_StaleLockRemoved(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gem.db")
	lockPath := dbPath + ".migration.lock"

	require.NoError(t, os.WriteFile(lockPath, nil, 0644))
	old := time.Now().Add(-2 * lockStaleAge)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	lockFile, err := acquireMigrationLock(dbPath, zap.NewNop())
	require.NoError(t, err)
	releaseMigrationLock(lockFile, zap.NewNop())

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, parseLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, parseLogLevel("info"))
	assert.Equal(t, gormlogger.Info, parseLogLevel(""))
}

func TestIsConnected_Nil(t *testing.T) {
	assert.False(t, IsConnected(nil))
}
