package game

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game/match"
	"github.com/wfunc/gem-cascade/internal/models"
	"github.com/wfunc/gem-cascade/internal/repository"
)

// SnapshotPersister 存档持久化接口
type SnapshotPersister interface {
	Save(ctx context.Context, sessionID string, snapshot *match.Snapshot) error
	Load(ctx context.Context, sessionID string) (*match.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

func snapshotNotFound(sessionID string) error {
	return errors.Newf(errors.ErrNotFound, "存档不存在: %s", sessionID)
}

func copySnapshot(s *match.Snapshot) *match.Snapshot {
	out := &match.Snapshot{Score: s.Score, Level: s.Level}
	if s.Board != nil {
		out.Board = make([][]int, len(s.Board))
		for i, row := range s.Board {
			out.Board[i] = append([]int(nil), row...)
		}
	}
	return out
}

// MemorySnapshotPersister 内存存档（用于测试和单机模式）
type MemorySnapshotPersister struct {
	mu        sync.RWMutex
	snapshots map[string]*match.Snapshot
}

// NewMemorySnapshotPersister 创建内存持久化器
func NewMemorySnapshotPersister() *MemorySnapshotPersister {
	return &MemorySnapshotPersister{
		snapshots: make(map[string]*match.Snapshot),
	}
}

// Save 保存存档
func (p *MemorySnapshotPersister) Save(ctx context.Context, sessionID string, snapshot *match.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snapshots[sessionID] = copySnapshot(snapshot)
	return nil
}

// Load 加载存档
func (p *MemorySnapshotPersister) Load(ctx context.Context, sessionID string) (*match.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot, exists := p.snapshots[sessionID]
	if !exists {
		return nil, snapshotNotFound(sessionID)
	}
	return copySnapshot(snapshot), nil
}

// Delete 删除存档
func (p *MemorySnapshotPersister) Delete(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.snapshots, sessionID)
	return nil
}

// DatabaseSnapshotPersister 数据库存档
type DatabaseSnapshotPersister struct {
	repo repository.SnapshotRepository
}

// NewDatabaseSnapshotPersister 创建数据库持久化器
func NewDatabaseSnapshotPersister(repo repository.SnapshotRepository) *DatabaseSnapshotPersister {
	return &DatabaseSnapshotPersister{repo: repo}
}

// Save 保存存档到数据库
func (p *DatabaseSnapshotPersister) Save(ctx context.Context, sessionID string, snapshot *match.Snapshot) error {
	board, err := json.Marshal(snapshot.Board)
	if err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "序列化棋盘失败")
	}

	width := 0
	if len(snapshot.Board) > 0 {
		width = len(snapshot.Board[0])
	}

	record := &models.GameSnapshot{
		SessionID: sessionID,
		Width:     width,
		Height:    len(snapshot.Board),
		Board:     string(board),
		Score:     snapshot.Score,
		Level:     snapshot.Level,
	}
	if err := p.repo.Upsert(ctx, record); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate, "保存存档失败")
	}
	return nil
}

// Load 从数据库加载存档
func (p *DatabaseSnapshotPersister) Load(ctx context.Context, sessionID string) (*match.Snapshot, error) {
	record, err := p.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, snapshotNotFound(sessionID)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, "查询存档失败")
	}

	snapshot := &match.Snapshot{Score: record.Score, Level: record.Level}
	if err := json.Unmarshal([]byte(record.Board), &snapshot.Board); err != nil {
		// 棋盘损坏交给引擎按不合法存档处理
		snapshot.Board = nil
	}
	return snapshot, nil
}

// Delete 从数据库删除存档
func (p *DatabaseSnapshotPersister) Delete(ctx context.Context, sessionID string) error {
	if err := p.repo.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete, "删除存档失败")
	}
	return nil
}

// RedisSnapshotPersister Redis存档
type RedisSnapshotPersister struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSnapshotPersister 创建Redis持久化器，ttl<=0 表示不过期
func NewRedisSnapshotPersister(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSnapshotPersister {
	return &RedisSnapshotPersister{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (p *RedisSnapshotPersister) key(sessionID string) string {
	return p.prefix + "snapshot:" + sessionID
}

// Save 保存存档到Redis
func (p *RedisSnapshotPersister) Save(ctx context.Context, sessionID string, snapshot *match.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "序列化存档失败")
	}

	ttl := p.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := p.client.Set(ctx, p.key(sessionID), data, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCacheOperation, "写入Redis失败")
	}
	return nil
}

// Load 从Redis加载存档
func (p *RedisSnapshotPersister) Load(ctx context.Context, sessionID string) (*match.Snapshot, error) {
	data, err := p.client.Get(ctx, p.key(sessionID)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, snapshotNotFound(sessionID)
		}
		return nil, errors.Wrap(err, errors.ErrCacheOperation, "读取Redis失败")
	}

	return decodeSnapshot(data), nil
}

// decodeSnapshot 解析存档，损坏的部分置空交给引擎按不合法存档处理
func decodeSnapshot(data []byte) *match.Snapshot {
	var raw struct {
		Board json.RawMessage `json:"board"`
		Score int64           `json:"score"`
		Level int             `json:"level"`
	}
	snapshot := &match.Snapshot{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return snapshot
	}

	snapshot.Score = raw.Score
	snapshot.Level = raw.Level
	if err := json.Unmarshal(raw.Board, &snapshot.Board); err != nil {
		snapshot.Board = nil
	}
	return snapshot
}

// Delete 从Redis删除存档
func (p *RedisSnapshotPersister) Delete(ctx context.Context, sessionID string) error {
	if err := p.client.Del(ctx, p.key(sessionID)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCacheOperation, "删除Redis存档失败")
	}
	return nil
}

// CacheSnapshotPersister 带缓存的持久化器（装饰器模式）
type CacheSnapshotPersister struct {
	cache   SnapshotPersister // 缓存层（内存或Redis）
	storage SnapshotPersister // 存储层（数据库）
}

// NewCacheSnapshotPersister 创建带缓存的持久化器
func NewCacheSnapshotPersister(cache, storage SnapshotPersister) *CacheSnapshotPersister {
	return &CacheSnapshotPersister{
		cache:   cache,
		storage: storage,
	}
}

// Save 先写存储再写缓存，缓存失败不影响主流程
func (p *CacheSnapshotPersister) Save(ctx context.Context, sessionID string, snapshot *match.Snapshot) error {
	if err := p.storage.Save(ctx, sessionID, snapshot); err != nil {
		return err
	}
	_ = p.cache.Save(ctx, sessionID, snapshot)
	return nil
}

// Load 优先从缓存加载，未命中回源并回填
func (p *CacheSnapshotPersister) Load(ctx context.Context, sessionID string) (*match.Snapshot, error) {
	if snapshot, err := p.cache.Load(ctx, sessionID); err == nil {
		return snapshot, nil
	}

	snapshot, err := p.storage.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_ = p.cache.Save(ctx, sessionID, snapshot)
	return snapshot, nil
}

// Delete 同时删除缓存和存储
func (p *CacheSnapshotPersister) Delete(ctx context.Context, sessionID string) error {
	_ = p.cache.Delete(ctx, sessionID)
	return p.storage.Delete(ctx, sessionID)
}
