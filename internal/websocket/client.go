package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/logger"
)

// 错误定义
var (
	ErrClientNotFound       = errors.New("客户端未找到")
	ErrSessionNotSubscribed = errors.New("会话没有订阅者")
	ErrSendBufferFull       = errors.New("发送缓冲区已满")
)

// Client WebSocket客户端
type Client struct {
	ID   string          // 客户端ID
	Hub  *Hub            // Hub引用
	Conn *websocket.Conn // WebSocket连接
	Send chan []byte     // 发送通道

	mu        sync.RWMutex
	sessionID string // 订阅的游戏会话ID
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		ID:        uuid.New().String(),
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		sessionID: sessionID,
	}
}

// SessionID 当前订阅的游戏会话
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSessionID(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// Serve 升级HTTP连接并启动读写协程
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:    h.config.ReadBufferSize,
		WriteBufferSize:   h.config.WriteBufferSize,
		EnableCompression: h.config.EnableCompression,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败", zap.Error(err))
		return err
	}

	client := NewClient(h, conn, sessionID)
	if !h.Register(client) {
		conn.Close()
		return ErrClientNotFound
	}

	go client.WritePump()
	go client.ReadPump()
	return nil
}

// ReadPump 读取消息
//
// 退出时只注销，Send 关闭后由 WritePump 发完剩余消息和关闭帧再断开连接。
func (c *Client) ReadPump() {
	cfg := c.Hub.config
	defer c.Hub.Unregister(c)

	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		if !c.handleMessage(data) {
			break
		}
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	cfg := c.Hub.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				// Hub关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// 每条消息单独一帧，客户端按帧解析 JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息，返回 false 时断开连接
func (c *Client) handleMessage(data []byte) bool {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Warn("解析WebSocket消息失败",
			zap.String("client_id", c.ID),
			zap.Error(err))
		c.sendError("消息格式错误")
		return false
	}

	// 验证消息类型不为空
	if msg.Type == "" {
		c.sendError("消息类型不能为空")
		return false
	}

	msg.Timestamp = time.Now().Unix()
	logger.LogWebSocketMessage("receive", msg.Type, string(msg.Data))

	if msg.Type == MessageTypePing {
		c.SendMessage(MessageTypePong, nil)
		return true
	}

	if c.Hub.messageHandler == nil {
		c.sendError("不支持的消息类型: " + msg.Type)
		return true
	}
	c.Hub.messageHandler.HandleClientMessage(c, &msg)
	return true
}

// sendError 发送错误消息
func (c *Client) sendError(message string) {
	c.SendMessage(MessageTypeError, map[string]string{"error": message})
}

// SendMessage 发送消息给客户端
func (c *Client) SendMessage(msgType string, data interface{}) error {
	msg := &Message{
		Type:      msgType,
		SessionID: c.SessionID(),
		Timestamp: time.Now().Unix(),
	}
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = jsonData
	}

	return c.Hub.SendToClient(c.ID, msg)
}
