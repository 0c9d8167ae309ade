package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/gem-cascade/internal/database"
	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game"
	"github.com/wfunc/gem-cascade/internal/middleware"
	ws "github.com/wfunc/gem-cascade/internal/websocket"
)

// RouterConfig 路由依赖
type RouterConfig struct {
	Sessions *game.SessionManager
	Hub      *ws.Hub  // 为空时不注册 WebSocket 路由
	DB       *gorm.DB // 为空时健康检查跳过数据库
	WSPath   string
	Logger   *zap.Logger
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	sessionHandler *SessionHandler
	wsHandler      *WebSocketHandler
	wsPath         string
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.WSPath == "" {
		cfg.WSPath = "/ws"
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	router := &Router{
		engine:         engine,
		db:             cfg.DB,
		sessionHandler: NewSessionHandler(cfg.Sessions, cfg.Logger),
		wsPath:         cfg.WSPath,
		log:            cfg.Logger,
	}
	if cfg.Hub != nil {
		router.wsHandler = NewWebSocketHandler(cfg.Hub, cfg.Logger)
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", r.sessionHandler.Create)
			sessions.GET("/:id", r.sessionHandler.Get)
			sessions.DELETE("/:id", r.sessionHandler.Close)
			sessions.POST("/:id/swap", r.sessionHandler.Swap)
			sessions.GET("/:id/hint", r.sessionHandler.Hint)
			sessions.GET("/:id/hints", r.sessionHandler.Hints)
			sessions.POST("/:id/reset", r.sessionHandler.Reset)
			sessions.POST("/:id/save", r.sessionHandler.Save)
			sessions.POST("/:id/load", r.sessionHandler.Load)
			sessions.GET("/:id/history", r.sessionHandler.History)
		}
	}

	if r.wsHandler != nil {
		r.engine.GET(r.wsPath, r.wsHandler.GameWebSocket)
		v1.GET("/ws/online", r.wsHandler.GetOnlineCount)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		respondError(c, errors.New(errors.ErrNotFound, "接口不存在"))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	if r.db != nil && !database.IsConnected(r.db) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"message":  "服务运行正常",
		"sessions": r.sessionHandler.sessions.ActiveSessions(),
	})
}

// Handler 返回 http.Handler，供 http.Server 使用
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
