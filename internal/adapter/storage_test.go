package adapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/config"
	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game"
	"github.com/wfunc/gem-cascade/internal/game/match"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Game.Persistence.Backend = "memory"
	cfg.Redis.KeyPrefix = "gem-cascade:"
	return cfg
}

func sqliteConfig(t *testing.T) *config.Config {
	cfg := baseConfig()
	cfg.Database = config.DatabaseConfig{
		Enabled:     true,
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "game.db"),
		LogLevel:    "silent",
		AutoMigrate: true,
	}
	cfg.Game.Persistence.Backend = "database"
	return cfg
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   Mode
	}{
		{"内存", func(*config.Config) {}, ModeStandalone},
		{"SQLite", func(c *config.Config) { c.Database.Enabled = true; c.Database.Driver = "sqlite" }, ModeStandalone},
		{"PostgreSQL", func(c *config.Config) { c.Database.Enabled = true; c.Database.Driver = "postgres" }, ModeOnline},
		{"Redis", func(c *config.Config) { c.Redis.Enabled = true }, ModeOnline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.modify(cfg)
			assert.Equal(t, tt.want, detectMode(cfg))
		})
	}
}

func TestNewStorage_Memory(t *testing.T) {
	s, err := NewStorage(context.Background(), baseConfig(), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, ModeStandalone, s.Mode)
	assert.Nil(t, s.DB)
	assert.Nil(t, s.Records())
	assert.Nil(t, s.Snapshots())
	assert.Nil(t, s.Purger())
	assert.IsType(t, &game.MemorySnapshotPersister{}, s.Persister)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNewStorage_SQLiteWithCache(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Game.Persistence.Cache = true
	ctx := context.Background()

	s, err := NewStorage(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	require.NotNil(t, s.DB)
	assert.NotNil(t, s.Records())
	assert.NotNil(t, s.Snapshots())
	assert.NotNil(t, s.Purger())
	assert.IsType(t, &game.CacheSnapshotPersister{}, s.Persister)
	assert.NoError(t, s.Ping(ctx))

	snapshot := &match.Snapshot{Board: [][]int{{0, 1}, {1, 0}}, Score: 90, Level: 1}
	require.NoError(t, s.Persister.Save(ctx, "s", snapshot))

	// 直接查库确认写穿
	stored, err := s.Repos.Snapshot().FindBySessionID(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(90), stored.Score)

	loaded, err := s.Persister.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, snapshot, loaded)

	require.NoError(t, s.Close())
	assert.Nil(t, s.DB)
}

func TestNewStorage_BackendValidation(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig()
	cfg.Game.Persistence.Backend = "database"
	_, err := NewStorage(ctx, cfg, zap.NewNop())
	assert.True(t, errors.Is(err, errors.ErrConfigValidate))

	cfg = baseConfig()
	cfg.Game.Persistence.Backend = "redis"
	_, err = NewStorage(ctx, cfg, zap.NewNop())
	assert.True(t, errors.Is(err, errors.ErrConfigValidate))

	cfg = baseConfig()
	cfg.Game.Persistence.Backend = "etcd"
	_, err = NewStorage(ctx, cfg, zap.NewNop())
	assert.True(t, errors.Is(err, errors.ErrConfigValidate))
}

func TestNewStorage_RedisUnreachable(t *testing.T) {
	cfg := baseConfig()
	cfg.Redis = config.RedisConfig{
		Enabled:     true,
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	}

	_, err := NewStorage(context.Background(), cfg, zap.NewNop())
	assert.True(t, errors.Is(err, errors.ErrCacheConnect))
}

func TestNewStorage_UnsupportedDriver(t *testing.T) {
	cfg := baseConfig()
	cfg.Database = config.DatabaseConfig{Enabled: true, Driver: "oracle"}

	_, err := NewStorage(context.Background(), cfg, zap.NewNop())
	assert.True(t, errors.Is(err, errors.ErrConfigValidate))
}
