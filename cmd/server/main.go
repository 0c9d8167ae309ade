package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/adapter"
	"github.com/wfunc/gem-cascade/internal/api"
	"github.com/wfunc/gem-cascade/internal/config"
	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game"
	"github.com/wfunc/gem-cascade/internal/game/match"
	"github.com/wfunc/gem-cascade/internal/logger"
	ws "github.com/wfunc/gem-cascade/internal/websocket"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	storage    *adapter.Storage
	sessions   *game.SessionManager
	hub        *ws.Hub
	httpServer *http.Server

	// 关闭控制
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	printStartInfo(cfg)

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动宝石消除服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	s.startServices()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.cfg.Server.Addr()),
		zap.String("websocket", s.cfg.WebSocket.Path),
	)

	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	storage, err := adapter.NewStorage(s.ctx, s.cfg, logger.WithModule("storage"))
	if err != nil {
		return err
	}
	s.storage = storage

	s.sessions = game.NewSessionManager(game.SessionManagerConfig{
		Logger:            logger.WithModule("game"),
		Engine:            engineConfig(&s.cfg.Game.Board),
		Rules:             scoreRules(&s.cfg.Game.Scoring),
		Persister:         storage.Persister,
		Records:           storage.Records(),
		Purger:            storage.Purger(),
		Snapshots:         storage.Snapshots(),
		SnapshotRetention: s.cfg.Game.Persistence.Retention,
		MaxSessions:       s.cfg.Game.Session.MaxSessions,
		IdleTimeout:       s.cfg.Game.Session.IdleTimeout,
		HistoryLimit:      s.cfg.Game.Session.HistoryLimit,
	})

	routerCfg := api.RouterConfig{
		Sessions: s.sessions,
		DB:       storage.DB,
		WSPath:   s.cfg.WebSocket.Path,
		Logger:   logger.WithModule("api"),
	}

	if s.cfg.WebSocket.Enabled {
		s.hub = ws.NewHub(s.cfg.WebSocket, logger.WithModule("websocket"))
		s.hub.SetMessageHandler(ws.NewGameMessageHandler(s.hub, s.sessions, logger.WithModule("websocket")))
		s.sessions.SetPublisher(s.hub)
		routerCfg.Hub = s.hub
	}

	gin.SetMode(ginMode(s.cfg.Server.Mode))
	router := api.NewRouter(routerCfg)

	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("所有组件初始化完成")
	return nil
}

func engineConfig(cfg *config.BoardConfig) match.EngineConfig {
	return match.EngineConfig{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Colors:    cfg.Colors,
		MaxPasses: cfg.MaxPasses,
	}
}

func scoreRules(cfg *config.ScoringConfig) game.ScoreRules {
	return game.ScoreRules{
		Plain:     cfg.Plain,
		Blast:     cfg.Blast,
		Beam:      cfg.Beam,
		Rainbow:   cfg.Rainbow,
		PerTile:   cfg.PerTile,
		LevelStep: cfg.LevelStep,
	}
}

func ginMode(mode string) string {
	switch mode {
	case "production", "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// startServices 启动服务
func (s *Server) startServices() {
	s.logger.Info("启动服务...")

	if s.hub != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.hub.Run(s.ctx)
		}()
	}

	s.sessions.StartCleanupTask(s.ctx, s.cfg.Game.Session.CleanupInterval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()

	s.logger.Info("所有服务启动完成")
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
		s.logger.Warn("服务异常，准备退出")
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP服务关闭失败", zap.Error(err))
	}

	// 关闭会话前先存档
	s.sessions.Shutdown(shutdownCtx)

	// 取消主上下文，触发所有goroutine退出
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	if err := s.storage.Close(); err != nil {
		s.logger.Error("关闭存储失败", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// reloadConfig 重新加载配置，目前只有日志级别支持热更新
func (s *Server) reloadConfig(newCfg *config.Config) {
	if newCfg.Log.Level != s.cfg.Log.Level {
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("日志级别已更新", zap.String("level", newCfg.Log.Level))
	}
	s.cfg.Log = newCfg.Log

	s.logger.Info("配置重新加载完成")
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("宝石消除游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("宝石消除游戏服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  gem-cascade-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  GEM_CASCADE_SERVER_PORT          HTTP端口")
	fmt.Println("  GEM_CASCADE_GAME_PERSISTENCE_BACKEND  存档后端 (memory/database/redis)")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  gem-cascade-server -config=/path/to/config.yaml")
	fmt.Println("  gem-cascade-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("                    宝石消除游戏后端服务器")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Printf("HTTP: %s | 存档: %s\n", cfg.Server.Addr(), cfg.Game.Persistence.Backend)
	fmt.Printf("棋盘: %dx%d | 颜色: %d\n", cfg.Game.Board.Width, cfg.Game.Board.Height, cfg.Game.Board.Colors)
	fmt.Println("═══════════════════════════════════════════════════════════════")
}
