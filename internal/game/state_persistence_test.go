package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game/match"
	"github.com/wfunc/gem-cascade/internal/models"
	"github.com/wfunc/gem-cascade/internal/repository"
)

func testSnapshot() *match.Snapshot {
	return &match.Snapshot{
		Board: [][]int{{1, 2, 3}, {2, 3, 1}},
		Score: 420,
		Level: 1,
	}
}

// failingPersister 所有操作都失败
type failingPersister struct{}

func (failingPersister) Save(context.Context, string, *match.Snapshot) error {
	return errors.New(errors.ErrCacheOperation)
}

func (failingPersister) Load(context.Context, string) (*match.Snapshot, error) {
	return nil, errors.New(errors.ErrCacheOperation)
}

func (failingPersister) Delete(context.Context, string) error {
	return errors.New(errors.ErrCacheOperation)
}

func TestMemorySnapshotPersister(t *testing.T) {
	p := NewMemorySnapshotPersister()
	ctx := context.Background()

	snapshot := testSnapshot()
	require.NoError(t, p.Save(ctx, "s", snapshot))

	// 保存的是副本
	snapshot.Board[0][0] = 6
	loaded, err := p.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Board[0][0])

	loaded.Board[1][1] = 6
	again, err := p.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Board[1][1])

	require.NoError(t, p.Delete(ctx, "s"))
	_, err = p.Load(ctx, "s")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDatabaseSnapshotPersister(t *testing.T) {
	db := repository.TestDB(t)
	p := NewDatabaseSnapshotPersister(repository.NewSnapshotRepository(db))
	ctx := context.Background()

	_, err := p.Load(ctx, "s")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, p.Save(ctx, "s", testSnapshot()))

	var record models.GameSnapshot
	require.NoError(t, db.Where("session_id = ?", "s").First(&record).Error)
	assert.Equal(t, 3, record.Width)
	assert.Equal(t, 2, record.Height)

	loaded, err := p.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), loaded)

	require.NoError(t, p.Delete(ctx, "s"))
	_, err = p.Load(ctx, "s")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDatabaseSnapshotPersister_CorruptBoard(t *testing.T) {
	db := repository.TestDB(t)
	repo := repository.NewSnapshotRepository(db)
	p := NewDatabaseSnapshotPersister(repo)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.GameSnapshot{
		SessionID: "s",
		Width:     8,
		Height:    8,
		Board:     "not json",
		Score:     10,
		Level:     1,
	}))

	loaded, err := p.Load(ctx, "s")
	require.NoError(t, err)
	assert.Nil(t, loaded.Board)
	assert.Error(t, loaded.Validate(8, 8, 7))
}

func TestRedisSnapshotPersister_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	p := NewRedisSnapshotPersister(client, "gem-cascade:", time.Hour)
	ctx := context.Background()

	assert.Equal(t, "gem-cascade:snapshot:abc", p.key("abc"))

	err := p.Save(ctx, "abc", testSnapshot())
	assert.True(t, errors.Is(err, errors.ErrCacheOperation))

	_, err = p.Load(ctx, "abc")
	assert.True(t, errors.Is(err, errors.ErrCacheOperation))

	err = p.Delete(ctx, "abc")
	assert.True(t, errors.Is(err, errors.ErrCacheOperation))
}

// stubRedis 在命令层拦截 GET/SET/DEL，不建立真实连接
type stubRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newStubRedisClient(t *testing.T) (*redis.Client, *stubRedis) {
	t.Helper()
	stub := &stubRedis{data: make(map[string]string)}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(stub)
	t.Cleanup(func() { client.Close() })
	return client, stub
}

func (s *stubRedis) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (s *stubRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (s *stubRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		key, _ := cmd.Args()[1].(string)
		switch c := cmd.(type) {
		case *redis.StringCmd:
			v, ok := s.data[key]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		case *redis.StatusCmd:
			switch v := cmd.Args()[2].(type) {
			case []byte:
				s.data[key] = string(v)
			case string:
				s.data[key] = v
			}
			c.SetVal("OK")
		case *redis.IntCmd:
			delete(s.data, key)
			c.SetVal(1)
		default:
			return next(ctx, cmd)
		}
		return nil
	}
}

func TestRedisSnapshotPersister_RoundTrip(t *testing.T) {
	client, _ := newStubRedisClient(t)
	p := NewRedisSnapshotPersister(client, "gc:", 0)
	ctx := context.Background()

	_, err := p.Load(ctx, "s")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, p.Save(ctx, "s", testSnapshot()))
	loaded, err := p.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), loaded)

	require.NoError(t, p.Delete(ctx, "s"))
	_, err = p.Load(ctx, "s")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRedisSnapshotPersister_MalformedPayload(t *testing.T) {
	client, stub := newStubRedisClient(t)
	p := NewRedisSnapshotPersister(client, "gc:", 0)
	ctx := context.Background()

	stub.data["gc:snapshot:bad-board"] = `{"board":"oops","score":10}`
	loaded, err := p.Load(ctx, "bad-board")
	require.NoError(t, err)
	assert.Nil(t, loaded.Board)
	assert.Equal(t, int64(10), loaded.Score)
	assert.Error(t, loaded.Validate(8, 8, 7))

	stub.data["gc:snapshot:garbage"] = "not json"
	loaded, err = p.Load(ctx, "garbage")
	require.NoError(t, err)
	assert.Equal(t, &match.Snapshot{}, loaded)
}

func TestDecodeSnapshot(t *testing.T) {
	assert.Equal(t, &match.Snapshot{Board: [][]int{{1, 2}}, Score: 5, Level: 2},
		decodeSnapshot([]byte(`{"board":[[1,2]],"score":5,"level":2}`)))
	assert.Equal(t, &match.Snapshot{Level: 3}, decodeSnapshot([]byte(`{"board":{},"level":3}`)))
	assert.Equal(t, &match.Snapshot{}, decodeSnapshot([]byte(`[`)))
}

func TestCacheSnapshotPersister(t *testing.T) {
	ctx := context.Background()
	cache := NewMemorySnapshotPersister()
	storage := NewMemorySnapshotPersister()
	p := NewCacheSnapshotPersister(cache, storage)

	require.NoError(t, p.Save(ctx, "s", testSnapshot()))
	_, err := cache.Load(ctx, "s")
	require.NoError(t, err)

	// 缓存未命中时回源并回填
	require.NoError(t, cache.Delete(ctx, "s"))
	loaded, err := p.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(420), loaded.Score)
	_, err = cache.Load(ctx, "s")
	assert.NoError(t, err)

	require.NoError(t, p.Delete(ctx, "s"))
	_, err = storage.Load(ctx, "s")
	assert.Error(t, err)
	_, err = cache.Load(ctx, "s")
	assert.Error(t, err)
}

func TestCacheSnapshotPersister_CacheFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	storage := NewMemorySnapshotPersister()
	p := NewCacheSnapshotPersister(failingPersister{}, storage)

	require.NoError(t, p.Save(ctx, "s", testSnapshot()))
	loaded, err := p.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), loaded)
	require.NoError(t, p.Delete(ctx, "s"))

	broken := NewCacheSnapshotPersister(NewMemorySnapshotPersister(), failingPersister{})
	assert.Error(t, broken.Save(ctx, "s", testSnapshot()))
}
