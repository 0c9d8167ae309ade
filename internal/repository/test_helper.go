package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/gem-cascade/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 创建测试数据库（内存库，每个测试独立）
func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库按连接隔离，只保留一个连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(models.AllModels()...)
	require.NoError(t, err)

	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestSnapshot 创建测试存档
func CreateTestSnapshot(sessionID string, score int64) *models.GameSnapshot {
	return &models.GameSnapshot{
		SessionID: sessionID,
		Width:     3,
		Height:    3,
		Board:     "[[1,2,3],[2,3,1],[3,1,2]]",
		Score:     score,
		Level:     1,
	}
}

// CreateTestSwapRecords 为会话写入 n 条交换记录
func CreateTestSwapRecords(t *testing.T, repo SwapRecordRepository, sessionID string, n int) []*models.SwapRecord {
	records := make([]*models.SwapRecord, 0, n)
	for i := 0; i < n; i++ {
		record := &models.SwapRecord{
			SessionID: sessionID,
			FromCol:   i % 8,
			FromRow:   0,
			ToCol:     i % 8,
			ToRow:     1,
			Accepted:  i%2 == 0,
			Passes:    i % 3,
			Removed:   3 * (i % 3),
			Points:    int64(50 * (i % 3)),
			Events:    fmt.Sprintf(`[{"n":%d}]`, i),
		}
		if !record.Accepted {
			record.Reason = "no_combination"
		}
		require.NoError(t, repo.Create(context.Background(), record))
		records = append(records, record)
	}
	return records
}

// AssertSnapshot 比较存档内容
func AssertSnapshot(t *testing.T, expected, actual *models.GameSnapshot) {
	assert.Equal(t, expected.SessionID, actual.SessionID)
	assert.Equal(t, expected.Width, actual.Width)
	assert.Equal(t, expected.Height, actual.Height)
	assert.Equal(t, expected.Board, actual.Board)
	assert.Equal(t, expected.Score, actual.Score)
	assert.Equal(t, expected.Level, actual.Level)
}
