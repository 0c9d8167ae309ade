package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapRecordRepository_ListBySession(t *testing.T) {
	db := TestDB(t)
	repo := NewSwapRecordRepository(db)
	ctx := context.Background()

	records := CreateTestSwapRecords(t, repo, "s-1", 5)
	CreateTestSwapRecords(t, repo, "s-2", 2)

	p := NewPagination(1, 3)
	page, err := repo.ListBySession(ctx, "s-1", p)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.Total)
	require.Len(t, page, 3)
	// 最新在前
	assert.Equal(t, records[4].ID, page[0].ID)
	assert.Equal(t, records[2].ID, page[2].ID)

	p = NewPagination(2, 3)
	page, err = repo.ListBySession(ctx, "s-1", p)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, records[0].ID, page[1].ID)
}

func TestSwapRecordRepository_CountAndDelete(t *testing.T) {
	db := TestDB(t)
	repo := NewSwapRecordRepository(db)
	ctx := context.Background()

	CreateTestSwapRecords(t, repo, "s-1", 4)

	count, err := repo.CountBySession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	deleted, err := repo.DeleteBySession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	count, err = repo.CountBySession(ctx, "s-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSwapRecordRepository_GetSessionStatistics(t *testing.T) {
	db := TestDB(t)
	repo := NewSwapRecordRepository(db)

	CreateTestSwapRecords(t, repo, "s-1", 6)

	stats, err := repo.GetSessionStatistics(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalSwaps)
	assert.Equal(t, int64(3), stats.AcceptedSwaps)
	assert.Equal(t, int64(6), stats.TotalPasses)
	assert.Equal(t, int64(18), stats.TotalRemoved)
	assert.Equal(t, int64(300), stats.TotalPoints)
	assert.Equal(t, int64(2), stats.MaxPasses)
}

func TestPagination_Defaults(t *testing.T) {
	p := NewPagination(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 500)
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, 200, p.Offset())
}

func TestManager_PurgeSession(t *testing.T) {
	db := TestDB(t)
	m := NewManager(db)
	ctx := context.Background()

	require.NoError(t, m.Snapshot().Upsert(ctx, CreateTestSnapshot("s-1", 5)))
	CreateTestSwapRecords(t, m.SwapRecord(), "s-1", 3)
	CreateTestSwapRecords(t, m.SwapRecord(), "s-2", 1)

	require.NoError(t, m.PurgeSession(ctx, "s-1"))

	count, err := m.Snapshot().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	left, err := m.SwapRecord().CountBySession(ctx, "s-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)

	// 懒加载返回同一实例
	assert.Same(t, m.Snapshot(), m.Snapshot())
}
