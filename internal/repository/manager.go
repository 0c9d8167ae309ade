package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（使用懒加载）
	snapshotOnce sync.Once
	snapshot     SnapshotRepository

	swapRecordOnce sync.Once
	swapRecord     SwapRecordRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Snapshot 获取存档仓储
func (m *Manager) Snapshot() SnapshotRepository {
	m.snapshotOnce.Do(func() {
		m.snapshot = NewSnapshotRepository(m.db)
	})
	return m.snapshot
}

// SwapRecord 获取交换历史仓储
func (m *Manager) SwapRecord() SwapRecordRepository {
	m.swapRecordOnce.Do(func() {
		m.swapRecord = NewSwapRecordRepository(m.db)
	})
	return m.swapRecord
}

// WithTransaction 在事务中执行，回调拿到绑定事务的管理器
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewManager(tx))
	})
}

// PurgeSession 删除会话的存档和交换历史
func (m *Manager) PurgeSession(ctx context.Context, sessionID string) error {
	return m.WithTransaction(ctx, func(tx *Manager) error {
		if err := tx.Snapshot().Delete(ctx, sessionID); err != nil {
			return err
		}
		_, err := tx.SwapRecord().DeleteBySession(ctx, sessionID)
		return err
	})
}
