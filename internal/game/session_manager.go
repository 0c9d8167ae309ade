package game

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game/match"
	"github.com/wfunc/gem-cascade/internal/logger"
	"github.com/wfunc/gem-cascade/internal/models"
	"github.com/wfunc/gem-cascade/internal/repository"
)

// SessionManagerConfig 会话管理器配置
type SessionManagerConfig struct {
	Logger *zap.Logger
	Engine match.EngineConfig
	Rules  ScoreRules

	// 为空时使用内存存档
	Persister SnapshotPersister
	// 为空时历史只保存在内存
	Records repository.SwapRecordRepository
	// 为空时清除会话只删除存档和交换历史
	Purger SessionPurger
	// 为空或 SnapshotRetention<=0 时不清理过期存档
	Snapshots         repository.SnapshotRepository
	SnapshotRetention time.Duration
	Publisher         EventPublisher
	// 为空时使用加密随机数
	RandomFactory func(sessionID string) match.RandomGenerator

	MaxSessions  int
	IdleTimeout  time.Duration
	HistoryLimit int
}

// SessionPurger 在一个事务里删除会话的全部持久化数据
type SessionPurger interface {
	PurgeSession(ctx context.Context, sessionID string) error
}

// SessionManager 游戏会话管理器
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	logger    *zap.Logger
	config    SessionManagerConfig
	persister SnapshotPersister
	records   repository.SwapRecordRepository

	// 推送单独加锁，会话锁内也会推送
	pubMu     sync.RWMutex
	publisher EventPublisher
}

// NewSessionManager 创建会话管理器
func NewSessionManager(config SessionManagerConfig) *SessionManager {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Persister == nil {
		config.Persister = NewMemorySnapshotPersister()
	}
	if config.RandomFactory == nil {
		config.RandomFactory = func(string) match.RandomGenerator {
			return match.NewCryptoRandomGenerator()
		}
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 100
	}

	return &SessionManager{
		sessions:  make(map[string]*Session),
		logger:    config.Logger,
		config:    config,
		persister: config.Persister,
		records:   config.Records,
		publisher: config.Publisher,
	}
}

// SetPublisher 设置事件推送（hub 创建晚于管理器时使用）
func (sm *SessionManager) SetPublisher(publisher EventPublisher) {
	sm.pubMu.Lock()
	defer sm.pubMu.Unlock()
	sm.publisher = publisher
}

func (sm *SessionManager) publish(sessionID, eventType string, data interface{}) {
	sm.pubMu.RLock()
	publisher := sm.publisher
	sm.pubMu.RUnlock()
	if publisher != nil {
		publisher.Publish(sessionID, eventType, data)
	}
}

// CreateSession 创建新会话
func (sm *SessionManager) CreateSession(ctx context.Context) (*SessionInfo, error) {
	session, err := sm.createSession(uuid.NewString())
	if err != nil {
		return nil, err
	}
	info := session.Info()
	sm.publish(session.ID, EventSessionCreated, info)
	return info, nil
}

func (sm *SessionManager) createSession(sessionID string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	// 检查会话数量限制
	if sm.config.MaxSessions > 0 && len(sm.sessions) >= sm.config.MaxSessions {
		return nil, errors.Newf(errors.ErrSessionLimit, "会话数量已达上限: %d", sm.config.MaxSessions)
	}
	if _, exists := sm.sessions[sessionID]; exists {
		return nil, errors.Newf(errors.ErrAlreadyExists, "会话已存在: %s", sessionID)
	}

	engine := match.NewCascadeEngine(
		sm.config.Engine,
		sm.config.RandomFactory(sessionID),
		sm.logger.With(zap.String("session_id", sessionID)),
	)
	session := newSession(sessionID, engine, NewLedger(sm.config.Rules), sm.config.HistoryLimit)
	sm.sessions[sessionID] = session

	sm.logger.Info("创建游戏会话",
		zap.String("session_id", sessionID),
		zap.Int("active", len(sm.sessions)))

	return session, nil
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, errors.Newf(errors.ErrSessionNotFound, "会话不存在: %s", sessionID)
	}
	return session, nil
}

// Info 获取会话信息
func (sm *SessionManager) Info(sessionID string) (*SessionInfo, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Info(), nil
}

// Swap 执行交换，结果同步计分、记录并推送
func (sm *SessionManager) Swap(ctx context.Context, sessionID string, from, to match.Position) (*SwapResponse, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.lock(); err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	result, err := session.engine.Swap(from, to)
	if err != nil {
		sm.logger.Error("交换处理失败",
			zap.String("session_id", sessionID),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Error(err))
		return nil, err
	}

	points := session.ledger.RecordAll(result.Events)
	if result.Accepted {
		session.swapCount++
	}

	grid := session.engine.Grid()
	resp := &SwapResponse{
		SessionID: sessionID,
		Result:    result,
		Points:    points,
		Score:     session.ledger.Score(),
		Level:     session.ledger.Level(),
		Board:     grid.ColorMatrix(),
		Variants:  grid.VariantMatrix(),
		HasMove:   session.engine.HasPossibleMove(),
	}

	sm.storeRecord(ctx, session, buildSwapRecord(sessionID, resp))
	sm.publish(sessionID, EventSwapResolved, resp)

	logger.LogGameEvent("swap", sessionID, map[string]interface{}{
		"accepted": result.Accepted,
		"reason":   string(result.Reason),
		"passes":   result.Passes(),
		"removed":  result.RemovedCount(),
		"points":   points,
		"capped":   result.Capped,
	})

	return resp, nil
}

func buildSwapRecord(sessionID string, resp *SwapResponse) *models.SwapRecord {
	result := resp.Result
	events, _ := json.Marshal(result.Events)
	return &models.SwapRecord{
		SessionID:  sessionID,
		FromCol:    result.From.Col,
		FromRow:    result.From.Row,
		ToCol:      result.To.Col,
		ToRow:      result.To.Row,
		Accepted:   result.Accepted,
		Reason:     string(result.Reason),
		Passes:     result.Passes(),
		Removed:    result.RemovedCount(),
		Capped:     result.Capped,
		Points:     resp.Points,
		ScoreAfter: resp.Score,
		LevelAfter: resp.Level,
		Events:     string(events),
	}
}

// storeRecord 写入交换历史，失败只记录日志
func (sm *SessionManager) storeRecord(ctx context.Context, session *Session, record *models.SwapRecord) {
	if sm.records == nil {
		record.CreatedAt = time.Now()
		session.remember(record)
		return
	}
	start := time.Now()
	err := sm.records.Create(ctx, record)
	logger.LogDatabaseOperation("insert", "swap_records", time.Since(start), err)
	if err != nil {
		sm.logger.Error("保存交换记录失败",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
}

// Hint 随机给出一个可行交换
func (sm *SessionManager) Hint(ctx context.Context, sessionID string) (*match.Swap, bool, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, false, err
	}
	if err := session.lock(); err != nil {
		return nil, false, err
	}
	defer session.mu.Unlock()

	hint, ok := session.engine.Hint()
	if !ok {
		return nil, false, nil
	}
	return &hint, true, nil
}

// Hints 列出全部可行交换
func (sm *SessionManager) Hints(ctx context.Context, sessionID string) ([]match.Swap, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.lock(); err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	return session.engine.Hints(), nil
}

// Reset 新开一局：随机棋盘，分数清零
func (sm *SessionManager) Reset(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.lock(); err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	session.engine.Reset()
	session.ledger.Reset()
	session.swapCount = 0

	info := session.infoLocked()
	sm.publish(sessionID, EventBoardReset, info)
	logger.LogGameEvent("reset", sessionID, nil)
	return info, nil
}

// Save 保存存档
func (sm *SessionManager) Save(ctx context.Context, sessionID string) (*match.Snapshot, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.lock(); err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	snapshot := session.snapshotLocked()
	if err := sm.persister.Save(ctx, sessionID, snapshot); err != nil {
		sm.logger.Error("保存存档失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	logger.LogGameEvent("save", sessionID, map[string]interface{}{
		"score": snapshot.Score,
		"level": snapshot.Level,
	})
	return snapshot, nil
}

// Load 读档，存档不合法时换成随机棋盘并清零分数
func (sm *SessionManager) Load(ctx context.Context, sessionID string) (*LoadResult, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	snapshot, err := sm.persister.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.lock(); err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	result := sm.restoreLocked(session, snapshot)
	sm.publish(sessionID, EventBoardLoaded, result)
	return result, nil
}

func (sm *SessionManager) restoreLocked(session *Session, snapshot *match.Snapshot) *LoadResult {
	result := &LoadResult{}
	restored, verr := session.engine.Restore(*snapshot)
	if restored {
		session.ledger.Restore(snapshot.Score, snapshot.Level)
	} else {
		session.ledger.Reset()
		result.Reason = verr.Error()
	}
	session.swapCount = 0
	result.Restored = restored
	result.Session = session.infoLocked()

	logger.LogGameEvent("load", session.ID, map[string]interface{}{
		"restored": restored,
		"score":    result.Session.Score,
	})
	return result
}

// History 交换历史分页，最新在前
func (sm *SessionManager) History(ctx context.Context, sessionID string, page, pageSize int) ([]*models.SwapRecord, *repository.Pagination, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	p := repository.NewPagination(page, pageSize)
	if sm.records == nil {
		records, total := session.recentHistory(p.Offset(), p.PageSize)
		p.Total = total
		return records, p, nil
	}

	records, err := sm.records.ListBySession(ctx, sessionID, p)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询交换历史失败")
	}
	return records, p, nil
}

// CloseSession 关闭会话，关闭前保存存档
func (sm *SessionManager) CloseSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	if !exists {
		sm.mu.Unlock()
		return errors.Newf(errors.ErrSessionNotFound, "会话不存在: %s", sessionID)
	}
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	sm.closeSession(ctx, session, "closed")
	return nil
}

// PurgeSession 关闭会话并删除存档和交换历史，会话不存在时同样清理持久化数据
func (sm *SessionManager) PurgeSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if exists {
		session.mu.Lock()
		session.closed = true
		score := session.ledger.Score()
		session.mu.Unlock()

		sm.publish(sessionID, EventSessionClosed, map[string]interface{}{
			"reason": "purged",
			"score":  score,
		})
	}

	if err := sm.persister.Delete(ctx, sessionID); err != nil {
		return err
	}

	switch {
	case sm.config.Purger != nil:
		if err := sm.config.Purger.PurgeSession(ctx, sessionID); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseDelete, "清除会话数据失败")
		}
	case sm.records != nil:
		if _, err := sm.records.DeleteBySession(ctx, sessionID); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseDelete, "删除交换历史失败")
		}
	}

	sm.logger.Info("清除游戏会话",
		zap.String("session_id", sessionID),
		zap.Bool("active", exists))
	return nil
}

func (sm *SessionManager) closeSession(ctx context.Context, session *Session, reason string) {
	session.mu.Lock()
	session.closed = true
	snapshot := session.snapshotLocked()
	score, swaps := session.ledger.Score(), session.swapCount
	session.mu.Unlock()

	// 保存最终状态
	if err := sm.persister.Save(ctx, session.ID, snapshot); err != nil {
		sm.logger.Error("保存会话存档失败",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}

	sm.publish(session.ID, EventSessionClosed, map[string]interface{}{
		"reason": reason,
		"score":  score,
	})

	sm.logger.Info("关闭游戏会话",
		zap.String("session_id", session.ID),
		zap.String("reason", reason),
		zap.Int("swaps", swaps),
		zap.Int64("score", score))
}

// CleanupInactiveSessions 清理不活跃的会话，返回清理数量
func (sm *SessionManager) CleanupInactiveSessions(ctx context.Context) int {
	if sm.config.IdleTimeout <= 0 {
		return 0
	}

	now := time.Now()
	var expired []*Session

	sm.mu.Lock()
	for id, session := range sm.sessions {
		if now.Sub(session.LastActivity()) > sm.config.IdleTimeout {
			expired = append(expired, session)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, session := range expired {
		sm.closeSession(ctx, session, "idle")
	}
	return len(expired)
}

// PruneSnapshots 删除超过保留期未更新的存档，返回删除数量
func (sm *SessionManager) PruneSnapshots(ctx context.Context) (int64, error) {
	if sm.config.Snapshots == nil || sm.config.SnapshotRetention <= 0 {
		return 0, nil
	}

	n, err := sm.config.Snapshots.DeleteOlderThan(ctx, time.Now().Add(-sm.config.SnapshotRetention))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabaseDelete, "清理过期存档失败")
	}
	return n, nil
}

// StartCleanupTask 启动清理任务
func (sm *SessionManager) StartCleanupTask(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				sm.logger.Info("停止会话清理任务")
				return
			case <-ticker.C:
				if n := sm.CleanupInactiveSessions(ctx); n > 0 {
					sm.logger.Info("清理超时会话", zap.Int("count", n))
				}
				if n, err := sm.PruneSnapshots(ctx); err != nil {
					sm.logger.Error("清理过期存档失败", zap.Error(err))
				} else if n > 0 {
					sm.logger.Info("清理过期存档", zap.Int64("count", n))
				}
			}
		}
	}()
}

// ActiveSessions 获取活跃会话数
func (sm *SessionManager) ActiveSessions() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Shutdown 关闭全部会话
func (sm *SessionManager) Shutdown(ctx context.Context) {
	sm.mu.Lock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for id, session := range sm.sessions {
		sessions = append(sessions, session)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	for _, session := range sessions {
		sm.closeSession(ctx, session, "shutdown")
	}
}
