package repository

import (
	"context"

	"github.com/wfunc/gem-cascade/internal/models"
	"gorm.io/gorm"
)

// SwapRecordRepository 交换历史仓储接口
type SwapRecordRepository interface {
	BaseRepository
	Create(ctx context.Context, record *models.SwapRecord) error
	ListBySession(ctx context.Context, sessionID string, p *Pagination) ([]*models.SwapRecord, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
	GetSessionStatistics(ctx context.Context, sessionID string) (*SwapStatistics, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

// SwapStatistics 会话交换统计
type SwapStatistics struct {
	TotalSwaps    int64 `json:"total_swaps"`
	AcceptedSwaps int64 `json:"accepted_swaps"`
	TotalPasses   int64 `json:"total_passes"`
	TotalRemoved  int64 `json:"total_removed"`
	TotalPoints   int64 `json:"total_points"`
	MaxPasses     int64 `json:"max_passes"`
}

// swapRecordRepo 交换历史仓储实现
type swapRecordRepo struct {
	*BaseRepo
}

// NewSwapRecordRepository 创建交换历史仓储
func NewSwapRecordRepository(db *gorm.DB) SwapRecordRepository {
	return &swapRecordRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 写入交换记录
func (r *swapRecordRepo) Create(ctx context.Context, record *models.SwapRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListBySession 按会话分页查询，最新在前
func (r *swapRecordRepo) ListBySession(ctx context.Context, sessionID string, p *Pagination) ([]*models.SwapRecord, error) {
	var records []*models.SwapRecord

	// 查询总数
	r.db.WithContext(ctx).
		Model(&models.SwapRecord{}).
		Where("session_id = ?", sessionID).
		Count(&p.Total)

	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id desc").
		Scopes(Paginate(p)).
		Find(&records).Error

	return records, err
}

// CountBySession 会话交换次数
func (r *swapRecordRepo) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SwapRecord{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

// GetSessionStatistics 会话统计
func (r *swapRecordRepo) GetSessionStatistics(ctx context.Context, sessionID string) (*SwapStatistics, error) {
	var stats SwapStatistics

	err := r.db.WithContext(ctx).
		Model(&models.SwapRecord{}).
		Where("session_id = ?", sessionID).
		Select(
			"COUNT(*) as total_swaps",
			"COALESCE(SUM(CASE WHEN accepted THEN 1 ELSE 0 END), 0) as accepted_swaps",
			"COALESCE(SUM(passes), 0) as total_passes",
			"COALESCE(SUM(removed), 0) as total_removed",
			"COALESCE(SUM(points), 0) as total_points",
			"COALESCE(MAX(passes), 0) as max_passes",
		).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteBySession 删除会话全部记录
func (r *swapRecordRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("session_id = ?", sessionID).
		Delete(&models.SwapRecord{})
	return result.RowsAffected, result.Error
}
