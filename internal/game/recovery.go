package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/errors"
)

// RecoverOrCreateSession 恢复或创建会话
//
// 内存中已有会话直接返回；否则按会话ID读取存档重建；没有存档时用该ID新建。
func (sm *SessionManager) RecoverOrCreateSession(ctx context.Context, sessionID string) (*LoadResult, error) {
	if sessionID == "" {
		info, err := sm.CreateSession(ctx)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Session: info}, nil
	}

	// 先尝试从内存获取
	if session, err := sm.GetSession(sessionID); err == nil {
		return &LoadResult{Restored: true, Session: session.Info()}, nil
	}

	snapshot, loadErr := sm.persister.Load(ctx, sessionID)
	if loadErr != nil && !errors.Is(loadErr, errors.ErrNotFound) {
		return nil, loadErr
	}

	session, err := sm.createSession(sessionID)
	if err != nil {
		return nil, err
	}

	if snapshot == nil {
		info := session.Info()
		sm.publish(sessionID, EventSessionCreated, info)
		return &LoadResult{Session: info}, nil
	}

	if err := session.lock(); err != nil {
		return nil, err
	}
	result := sm.restoreLocked(session, snapshot)
	session.mu.Unlock()

	sm.logger.Info("恢复游戏会话",
		zap.String("session_id", sessionID),
		zap.Bool("restored", result.Restored),
		zap.Int64("score", result.Session.Score))

	sm.publish(sessionID, EventBoardLoaded, result)
	return result, nil
}
