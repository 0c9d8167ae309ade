package repository

import (
	"context"
	"time"

	"github.com/wfunc/gem-cascade/internal/models"
	"gorm.io/gorm"
)

// SnapshotRepository 存档仓储接口
type SnapshotRepository interface {
	BaseRepository
	Upsert(ctx context.Context, snapshot *models.GameSnapshot) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.GameSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// snapshotRepo 存档仓储实现
type snapshotRepo struct {
	*BaseRepo
}

// NewSnapshotRepository 创建存档仓储
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Upsert 按会话ID写入存档，已存在则覆盖
func (r *snapshotRepo) Upsert(ctx context.Context, snapshot *models.GameSnapshot) error {
	return r.db.WithContext(ctx).
		Where(models.GameSnapshot{SessionID: snapshot.SessionID}).
		// map 形式保证零分也会被写入
		Assign(map[string]interface{}{
			"width":  snapshot.Width,
			"height": snapshot.Height,
			"board":  snapshot.Board,
			"score":  snapshot.Score,
			"level":  snapshot.Level,
		}).
		FirstOrCreate(snapshot).Error
}

// FindBySessionID 根据会话ID查找
func (r *snapshotRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.GameSnapshot, error) {
	var snapshot models.GameSnapshot
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Delete 删除存档（物理删除，保证 session_id 唯一索引可复用）
func (r *snapshotRepo) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("session_id = ?", sessionID).
		Delete(&models.GameSnapshot{}).Error
}

// DeleteOlderThan 清理长时间未更新的存档
func (r *snapshotRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("updated_at < ?", before).
		Delete(&models.GameSnapshot{})
	return result.RowsAffected, result.Error
}

// Count 存档总数
func (r *snapshotRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GameSnapshot{}).Count(&count).Error
	return count, err
}
