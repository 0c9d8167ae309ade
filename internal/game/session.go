package game

import (
	"sync"
	"time"

	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game/match"
	"github.com/wfunc/gem-cascade/internal/models"
)

// Session 一局游戏：一个引擎加一个计分板
//
// 所有操作持有 mu，同一会话不会并发执行。
type Session struct {
	ID        string
	StartTime time.Time

	mu           sync.Mutex
	engine       *match.CascadeEngine
	ledger       *Ledger
	lastActivity time.Time
	swapCount    int
	history      []*models.SwapRecord // 未配置数据库时的内存历史
	historyLimit int
	closed       bool
}

func newSession(id string, engine *match.CascadeEngine, ledger *Ledger, historyLimit int) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		StartTime:    now,
		engine:       engine,
		ledger:       ledger,
		lastActivity: now,
		historyLimit: historyLimit,
	}
}

// lock 加锁并检查会话是否已关闭，成功后调用方负责解锁
func (s *Session) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.Newf(errors.ErrSessionClosed, "会话已关闭: %s", s.ID)
	}
	s.lastActivity = time.Now()
	return nil
}

// LastActivity 最后活动时间
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Info 会话信息
func (s *Session) Info() *SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() *SessionInfo {
	cfg := s.engine.Config()
	grid := s.engine.Grid()
	return &SessionInfo{
		SessionID:    s.ID,
		State:        s.engine.State(),
		Width:        cfg.Width,
		Height:       cfg.Height,
		Colors:       cfg.Colors,
		Score:        s.ledger.Score(),
		Level:        s.ledger.Level(),
		SwapCount:    s.swapCount,
		Board:        grid.ColorMatrix(),
		Variants:     grid.VariantMatrix(),
		HasMove:      s.engine.HasPossibleMove(),
		StartTime:    s.StartTime,
		LastActivity: s.lastActivity,
	}
}

func (s *Session) snapshotLocked() *match.Snapshot {
	snapshot := s.engine.Snapshot(s.ledger.Score(), s.ledger.Level())
	return &snapshot
}

// remember 记录内存历史，超出上限丢弃最旧的
func (s *Session) remember(record *models.SwapRecord) {
	s.history = append(s.history, record)
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
}

// recentHistory 最新在前分页
func (s *Session) recentHistory(offset, limit int) ([]*models.SwapRecord, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.history)
	out := make([]*models.SwapRecord, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out, int64(total)
}
