package game

import (
	"time"

	"github.com/wfunc/gem-cascade/internal/game/match"
)

// 推送事件类型
const (
	EventSessionCreated = "session_created"
	EventSessionClosed  = "session_closed"
	EventSwapResolved   = "swap_resolved"
	EventBoardReset     = "board_reset"
	EventBoardLoaded    = "board_loaded"
)

// EventPublisher 会话事件推送（websocket hub 实现）
type EventPublisher interface {
	Publish(sessionID string, eventType string, data interface{})
}

// SwapResponse 交换响应
type SwapResponse struct {
	SessionID string            `json:"session_id"`
	Result    *match.SwapResult `json:"result"`
	Points    int64             `json:"points"`
	Score     int64             `json:"score"`
	Level     int               `json:"level"`
	Board     [][]int           `json:"board"`
	Variants  [][]int           `json:"variants"`
	HasMove   bool              `json:"has_move"`
}

// SessionInfo 会话信息
type SessionInfo struct {
	SessionID    string            `json:"session_id"`
	State        match.EngineState `json:"state"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Colors       int               `json:"colors"`
	Score        int64             `json:"score"`
	Level        int               `json:"level"`
	SwapCount    int               `json:"swap_count"`
	Board        [][]int           `json:"board"`
	Variants     [][]int           `json:"variants"`
	HasMove      bool              `json:"has_move"`
	StartTime    time.Time         `json:"start_time"`
	LastActivity time.Time         `json:"last_activity"`
}

// LoadResult 读档结果
//
// Restored 为 false 时存档不合法，会话已换成新的随机棋盘。
type LoadResult struct {
	Restored bool         `json:"restored"`
	Reason   string       `json:"reason,omitempty"`
	Session  *SessionInfo `json:"session"`
}
