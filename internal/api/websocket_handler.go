package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ws "github.com/wfunc/gem-cascade/internal/websocket"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub    *ws.Hub
	logger *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// GameWebSocket 游戏WebSocket连接，session_id 参数可选，连接后也可以发 subscribe
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if err := h.hub.Serve(c.Writer, c.Request, sessionID); err != nil {
		h.logger.Warn("WebSocket连接失败",
			zap.String("ip", c.ClientIP()),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	h.logger.Info("WebSocket连接建立",
		zap.String("ip", c.ClientIP()),
		zap.String("session_id", sessionID))
}

// GetOnlineCount 获取在线连接数
func (h *WebSocketHandler) GetOnlineCount(c *gin.Context) {
	resp := gin.H{"online_count": h.hub.GetOnlineCount()}
	if sessionID := c.Query("session_id"); sessionID != "" {
		resp["session_subscribers"] = h.hub.SessionSubscribers(sessionID)
	}
	c.JSON(http.StatusOK, resp)
}
