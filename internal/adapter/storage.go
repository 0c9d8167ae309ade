package adapter

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/gem-cascade/internal/config"
	"github.com/wfunc/gem-cascade/internal/database"
	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game"
	"github.com/wfunc/gem-cascade/internal/repository"
)

// Mode 运行模式
// 支持双模式：线上版(MySQL/PostgreSQL+Redis) 和 单机版(内存/SQLite)
type Mode string

const (
	ModeStandalone Mode = "standalone"
	ModeOnline     Mode = "online"
)

// Storage 存储组件集合
type Storage struct {
	Mode  Mode
	DB    *gorm.DB              // 未启用数据库时为空
	Redis redis.UniversalClient // 未启用 Redis 时为空

	Repos     *repository.Manager
	Persister game.SnapshotPersister

	log *zap.Logger
}

// NewStorage 按配置打开数据库、Redis 并组装存档后端
func NewStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Storage, error) {
	s := &Storage{
		Mode: detectMode(cfg),
		log:  log,
	}

	if cfg.Database.Enabled {
		if err := s.openDatabase(&cfg.Database); err != nil {
			return nil, err
		}
	}

	if cfg.Redis.Enabled {
		client, err := NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Redis = client
	}

	persister, err := s.buildPersister(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Persister = persister

	log.Info("存储初始化完成",
		zap.String("mode", string(s.Mode)),
		zap.String("backend", cfg.Game.Persistence.Backend),
		zap.Bool("cache", cfg.Game.Persistence.Cache),
		zap.Bool("database", s.DB != nil),
		zap.Bool("redis", s.Redis != nil))

	return s, nil
}

func detectMode(cfg *config.Config) Mode {
	if cfg.Redis.Enabled {
		return ModeOnline
	}
	if cfg.Database.Enabled && !strings.HasPrefix(cfg.Database.Driver, "sqlite") {
		return ModeOnline
	}
	return ModeStandalone
}

func (s *Storage) openDatabase(cfg *config.DatabaseConfig) error {
	if err := database.Init(cfg); err != nil {
		return err
	}
	s.DB = database.DB

	if cfg.AutoMigrate {
		s.log.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(s.DB, s.log); err != nil {
			database.Close()
			s.DB = nil
			return err
		}
	}

	s.Repos = repository.NewManager(s.DB)
	return nil
}

// NewRedisClient 创建 Redis 客户端并检查连接
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, errors.ErrCacheConnect, "连接Redis失败: %s", cfg.Addr)
	}
	return client, nil
}

// buildPersister 选择存档后端；开启缓存时优先用 Redis 作缓存层
func (s *Storage) buildPersister(cfg *config.Config) (game.SnapshotPersister, error) {
	persistence := cfg.Game.Persistence

	var backend game.SnapshotPersister
	switch persistence.Backend {
	case "", "memory":
		return game.NewMemorySnapshotPersister(), nil
	case "database":
		if s.Repos == nil {
			return nil, errors.New(errors.ErrConfigValidate, "存档后端为 database 但数据库未启用")
		}
		backend = game.NewDatabaseSnapshotPersister(s.Repos.Snapshot())
	case "redis":
		if s.Redis == nil {
			return nil, errors.New(errors.ErrConfigValidate, "存档后端为 redis 但 Redis 未启用")
		}
		backend = game.NewRedisSnapshotPersister(s.Redis, cfg.Redis.KeyPrefix, persistence.TTL)
	default:
		return nil, errors.Newf(errors.ErrConfigValidate, "未知的存档后端 %q", persistence.Backend)
	}

	if !persistence.Cache {
		return backend, nil
	}

	var cache game.SnapshotPersister = game.NewMemorySnapshotPersister()
	if s.Redis != nil && persistence.Backend != "redis" {
		cache = game.NewRedisSnapshotPersister(s.Redis, cfg.Redis.KeyPrefix, persistence.TTL)
	}
	return game.NewCacheSnapshotPersister(cache, backend), nil
}

// Records 交换历史仓储，未启用数据库时为空
func (s *Storage) Records() repository.SwapRecordRepository {
	if s.Repos == nil {
		return nil
	}
	return s.Repos.SwapRecord()
}

// Snapshots 存档仓储，用于清理过期存档，未启用数据库时为空
func (s *Storage) Snapshots() repository.SnapshotRepository {
	if s.Repos == nil {
		return nil
	}
	return s.Repos.Snapshot()
}

// Purger 会话数据清除，未启用数据库时为空
func (s *Storage) Purger() game.SessionPurger {
	if s.Repos == nil {
		return nil
	}
	return s.Repos
}

// Ping 检查外部依赖
func (s *Storage) Ping(ctx context.Context) error {
	if s.DB != nil && !database.IsConnected(s.DB) {
		return errors.New(errors.ErrDatabaseConnect)
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, errors.ErrCacheConnect)
		}
	}
	return nil
}

// Close 关闭连接
func (s *Storage) Close() error {
	var firstErr error
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.log.Error("关闭Redis失败", zap.Error(err))
			firstErr = err
		}
		s.Redis = nil
	}
	if s.DB != nil {
		if err := database.Close(); err != nil {
			s.log.Error("关闭数据库失败", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
		s.DB = nil
	}
	return firstErr
}
