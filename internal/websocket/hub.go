package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/config"
	"github.com/wfunc/gem-cascade/internal/logger"
)

// MessageHandler 客户端消息处理器
type MessageHandler interface {
	HandleClientMessage(client *Client, msg *Message)
}

// Hub WebSocket连接管理中心
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 会话ID到客户端的映射
	sessionClients map[string]map[string]*Client

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// Run 退出后关闭
	done chan struct{}

	messageHandler MessageHandler
	config         config.WebSocketConfig
	logger         *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 消息类型，游戏事件直接使用 game 包的事件名
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 游戏消息
	MessageTypeSubscribe  = "subscribe"
	MessageTypeSubscribed = "subscribed"
	MessageTypeSwap       = "swap"
	MessageTypeHint       = "hint"
	MessageTypeState      = "state"
)

// NewHub 创建Hub
func NewHub(cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		sessionClients: make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		config:         withDefaults(cfg),
		logger:         logger,
	}
}

func withDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 1024
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = 1024
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	// ping 周期必须小于 pong 超时
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = cfg.PongTimeout * 9 / 10
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return cfg
}

// SetMessageHandler 设置消息处理器
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行Hub，ctx 取消后断开全部客户端
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	sessionID := client.SessionID()
	if sessionID != "" {
		h.attachLocked(client, sessionID)
	}
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("session_id", sessionID))

	// 发送连接成功消息
	client.SendMessage(MessageTypeConnected, map[string]string{"client_id": client.ID})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
		h.detachLocked(client)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	if ok {
		h.logger.Info("WebSocket客户端断开",
			zap.String("client_id", client.ID),
			zap.String("session_id", client.SessionID()))
	}
}

func (h *Hub) attachLocked(client *Client, sessionID string) {
	set, ok := h.sessionClients[sessionID]
	if !ok {
		set = make(map[string]*Client)
		h.sessionClients[sessionID] = set
	}
	set[client.ID] = client
	client.setSessionID(sessionID)
}

func (h *Hub) detachLocked(client *Client) {
	sessionID := client.SessionID()
	if sessionID == "" {
		return
	}
	if set, ok := h.sessionClients[sessionID]; ok {
		delete(set, client.ID)
		if len(set) == 0 {
			delete(h.sessionClients, sessionID)
		}
	}
}

// Subscribe 客户端切换订阅的游戏会话
func (h *Hub) Subscribe(client *Client, sessionID string) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.detachLocked(client)
	h.attachLocked(client, sessionID)
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
	h.sessionClients = make(map[string]map[string]*Client)
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToSession 发送消息给订阅了该游戏会话的所有客户端
func (h *Hub) SendToSession(sessionID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	clients := h.sessionClients[sessionID]
	if len(clients) == 0 {
		return ErrSessionNotSubscribed
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("会话客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("session_id", sessionID))
		}
	}
	return nil
}

// Publish 推送游戏事件，没有订阅者时直接丢弃
func (h *Hub) Publish(sessionID string, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("序列化游戏事件失败",
			zap.String("type", eventType),
			zap.Error(err))
		return
	}

	msg := &Message{
		Type:      eventType,
		SessionID: sessionID,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
	if err := h.SendToSession(sessionID, msg); err == nil {
		logger.LogWebSocketMessage("send", eventType, sessionID)
	}
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// SessionSubscribers 订阅某游戏会话的连接数
func (h *Hub) SessionSubscribers(sessionID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.sessionClients[sessionID])
}

// Register 注册客户端（公开方法）
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
