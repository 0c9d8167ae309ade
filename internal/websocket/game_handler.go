package websocket

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game"
	"github.com/wfunc/gem-cascade/internal/game/match"
)

// GameMessageHandler WebSocket游戏消息处理器
type GameMessageHandler struct {
	hub      *Hub
	sessions *game.SessionManager
	timeout  time.Duration
	logger   *zap.Logger
}

// SwapPayload 交换请求
type SwapPayload struct {
	From match.Position `json:"from"`
	To   match.Position `json:"to"`
}

// SubscribePayload 订阅请求
type SubscribePayload struct {
	SessionID string `json:"session_id"`
}

// HintPayload 提示响应
type HintPayload struct {
	Found bool        `json:"found"`
	Swap  *match.Swap `json:"swap,omitempty"`
}

// NewGameMessageHandler 创建游戏消息处理器
func NewGameMessageHandler(hub *Hub, sessions *game.SessionManager, logger *zap.Logger) *GameMessageHandler {
	return &GameMessageHandler{
		hub:      hub,
		sessions: sessions,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// HandleClientMessage 处理客户端消息
func (h *GameMessageHandler) HandleClientMessage(client *Client, msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.logger.Debug("收到WebSocket消息",
		zap.String("client_id", client.ID),
		zap.String("type", msg.Type))

	switch msg.Type {
	case MessageTypeSubscribe:
		h.handleSubscribe(client, msg)

	case MessageTypeSwap:
		h.handleSwap(ctx, client, msg)

	case MessageTypeHint:
		h.handleHint(ctx, client)

	case MessageTypeState:
		h.handleState(client)

	default:
		h.logger.Warn("收到不支持的消息类型",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
		client.sendError("不支持的消息类型: " + msg.Type)
	}
}

// handleSubscribe 订阅游戏会话
func (h *GameMessageHandler) handleSubscribe(client *Client, msg *Message) {
	sessionID := msg.SessionID
	if len(msg.Data) > 0 {
		var payload SubscribePayload
		if err := json.Unmarshal(msg.Data, &payload); err == nil && payload.SessionID != "" {
			sessionID = payload.SessionID
		}
	}

	info, err := h.sessions.Info(sessionID)
	if err != nil {
		h.sendAppError(client, err)
		return
	}

	h.hub.Subscribe(client, sessionID)
	client.SendMessage(MessageTypeSubscribed, info)
}

// handleSwap 执行交换，结果通过 Publish 推给所有订阅者
func (h *GameMessageHandler) handleSwap(ctx context.Context, client *Client, msg *Message) {
	sessionID, ok := h.requireSession(client)
	if !ok {
		return
	}

	var payload SwapPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		h.sendAppError(client, errors.Wrap(err, errors.ErrMessageFormat, "交换参数错误"))
		return
	}

	if _, err := h.sessions.Swap(ctx, sessionID, payload.From, payload.To); err != nil {
		h.sendAppError(client, err)
	}
}

// handleHint 提示
func (h *GameMessageHandler) handleHint(ctx context.Context, client *Client) {
	sessionID, ok := h.requireSession(client)
	if !ok {
		return
	}

	swap, found, err := h.sessions.Hint(ctx, sessionID)
	if err != nil {
		h.sendAppError(client, err)
		return
	}
	client.SendMessage(MessageTypeHint, HintPayload{Found: found, Swap: swap})
}

// handleState 当前棋盘和分数
func (h *GameMessageHandler) handleState(client *Client) {
	sessionID, ok := h.requireSession(client)
	if !ok {
		return
	}

	info, err := h.sessions.Info(sessionID)
	if err != nil {
		h.sendAppError(client, err)
		return
	}
	client.SendMessage(MessageTypeState, info)
}

func (h *GameMessageHandler) requireSession(client *Client) (string, bool) {
	sessionID := client.SessionID()
	if sessionID == "" {
		client.sendError("请先订阅游戏会话")
		return "", false
	}
	return sessionID, true
}

func (h *GameMessageHandler) sendAppError(client *Client, err error) {
	client.SendMessage(MessageTypeError, map[string]interface{}{
		"code":  errors.GetCode(err),
		"error": err.Error(),
	})
}
