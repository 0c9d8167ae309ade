package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/models"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New(errors.ErrDatabaseConnect, "数据库未初始化")
	}

	// 文件型 sqlite 用锁文件避免多个进程同时迁移
	if dbPath := sqliteFilePath(db); dbPath != "" {
		cleanupStaleLocks(dbPath, log)
		lockFile, err := acquireMigrationLock(dbPath, log)
		if err != nil {
			log.Error("无法获取迁移锁", zap.Error(err))
			return errors.Wrap(err, errors.ErrDatabaseUpdate, "获取迁移锁失败")
		}
		defer releaseMigrationLock(lockFile, log)
	}

	log.Info("开始数据库迁移...")

	for _, model := range models.AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			log.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return errors.Wrapf(err, errors.ErrDatabaseUpdate, "迁移 %T 失败", model)
		}
		log.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	createIndexes(db, log)

	log.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建组合索引，失败只告警
func createIndexes(db *gorm.DB, log *zap.Logger) {
	indexes := map[string]string{
		"idx_swap_records_session_created": "CREATE INDEX IF NOT EXISTS idx_swap_records_session_created ON swap_records(session_id, created_at)",
		"idx_game_snapshots_updated":       "CREATE INDEX IF NOT EXISTS idx_game_snapshots_updated ON game_snapshots(updated_at)",
	}
	for name, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			log.Warn("创建索引失败", zap.String("index", name), zap.Error(err))
		}
	}
}
