package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/wfunc/gem-cascade/internal/errors"
)

// EnvPrefix 环境变量前缀，例如 GEM_CASCADE_SERVER_PORT
const EnvPrefix = "GEM_CASCADE"

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Game      GameConfig      `mapstructure:"game"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Path              string        `mapstructure:"path"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// GameConfig 游戏配置
type GameConfig struct {
	Board       BoardConfig       `mapstructure:"board"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Session     SessionConfig     `mapstructure:"session"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// BoardConfig 棋盘配置
type BoardConfig struct {
	Width     int `mapstructure:"width"`
	Height    int `mapstructure:"height"`
	Colors    int `mapstructure:"colors"`
	MaxPasses int `mapstructure:"max_passes"`
}

// ScoringConfig 计分配置
type ScoringConfig struct {
	Plain     int64 `mapstructure:"plain"`
	Blast     int64 `mapstructure:"blast"`
	Beam      int64 `mapstructure:"beam"`
	Rainbow   int64 `mapstructure:"rainbow"`
	PerTile   int64 `mapstructure:"per_tile"`
	LevelStep int64 `mapstructure:"level_step"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	MaxSessions     int           `mapstructure:"max_sessions"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	HistoryLimit    int           `mapstructure:"history_limit"`
}

// PersistenceConfig 存档配置
type PersistenceConfig struct {
	Backend   string        `mapstructure:"backend"`   // memory / database / redis
	Cache     bool          `mapstructure:"cache"`     // 在后端之前加一层内存缓存
	TTL       time.Duration `mapstructure:"ttl"`       // redis 存档过期时间
	Retention time.Duration `mapstructure:"retention"` // 数据库存档保留期，<=0 不清理
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化全局配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		var loaded *Config
		loaded, v, err = load(configPath)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})
	return err
}

// Load 读取配置但不修改全局实例
func Load(configPath string) (*Config, error) {
	c, _, err := load(configPath)
	return c, err
}

func load(configPath string) (*Config, *viper.Viper, error) {
	vp := viper.New()

	if configPath != "" {
		vp.SetConfigFile(configPath)
	} else {
		vp.SetConfigName("config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath("./config")
		vp.AddConfigPath(".")
	}

	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	// 配置文件不存在时使用默认配置
	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, errors.Wrap(err, errors.ErrConfigLoad)
		}
	}

	c := &Config{}
	if err := vp.Unmarshal(c); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrConfigParse)
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	return c, vp, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/gem-cascade.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// Redis默认配置
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.key_prefix", "gem-cascade:")

	// WebSocket默认配置
	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.enable_compression", true)

	// 游戏默认配置
	v.SetDefault("game.board.width", 8)
	v.SetDefault("game.board.height", 8)
	v.SetDefault("game.board.colors", 7)
	v.SetDefault("game.board.max_passes", 50)
	v.SetDefault("game.scoring.plain", 50)
	v.SetDefault("game.scoring.blast", 100)
	v.SetDefault("game.scoring.beam", 150)
	v.SetDefault("game.scoring.rainbow", 250)
	v.SetDefault("game.scoring.per_tile", 10)
	v.SetDefault("game.scoring.level_step", 1000)
	v.SetDefault("game.session.max_sessions", 1000)
	v.SetDefault("game.session.idle_timeout", "30m")
	v.SetDefault("game.session.cleanup_interval", "1m")
	v.SetDefault("game.session.history_limit", 100)
	v.SetDefault("game.persistence.backend", "database")
	v.SetDefault("game.persistence.cache", true)
	v.SetDefault("game.persistence.ttl", "168h")
	v.SetDefault("game.persistence.retention", "720h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "gem-cascade.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Validate 校验配置
func (c *Config) Validate() error {
	board := c.Game.Board
	if board.Width < 3 || board.Height < 3 {
		return errors.Newf(errors.ErrConfigValidate, "棋盘尺寸 %dx%d 过小", board.Width, board.Height)
	}
	if board.Colors < 3 || board.Colors > 7 {
		return errors.Newf(errors.ErrConfigValidate, "颜色数 %d 应在 3~7 之间", board.Colors)
	}
	if board.MaxPasses <= 0 {
		return errors.New(errors.ErrConfigValidate, "max_passes 必须为正")
	}
	if c.Game.Scoring.LevelStep <= 0 {
		return errors.New(errors.ErrConfigValidate, "level_step 必须为正")
	}

	switch c.Game.Persistence.Backend {
	case "memory", "database", "redis":
	default:
		return errors.Newf(errors.ErrConfigValidate, "未知的存档后端 %q", c.Game.Persistence.Backend)
	}
	if c.Game.Persistence.Backend == "database" && !c.Database.Enabled {
		return errors.New(errors.ErrConfigValidate, "存档后端为 database 但数据库未启用")
	}
	if c.Game.Persistence.Backend == "redis" && !c.Redis.Enabled {
		return errors.New(errors.ErrConfigValidate, "存档后端为 redis 但 Redis 未启用")
	}
	return nil
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化，新配置校验失败时保留旧配置
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}

		fmt.Printf("配置已重新加载: %s\n", e.Name)
	})
	v.WatchConfig()
}

// GetString 获取字符串配置
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	return v.GetInt(key)
}
