package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/config"
	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game"
	"github.com/wfunc/gem-cascade/internal/game/match"
	"github.com/wfunc/gem-cascade/internal/repository"
	ws "github.com/wfunc/gem-cascade/internal/websocket"
)

type testServer struct {
	router   *Router
	sessions *game.SessionManager
	hub      *ws.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub(config.WebSocketConfig{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	sessions := game.NewSessionManager(game.SessionManagerConfig{
		Logger:    zap.NewNop(),
		Engine:    match.DefaultEngineConfig(),
		Rules:     game.DefaultScoreRules(),
		Publisher: hub,
		RandomFactory: func(string) match.RandomGenerator {
			return match.NewSeededRandomGenerator(11)
		},
	})
	hub.SetMessageHandler(ws.NewGameMessageHandler(hub, sessions, zap.NewNop()))

	return &testServer{
		router: NewRouter(RouterConfig{
			Sessions: sessions,
			Hub:      hub,
			Logger:   zap.NewNop(),
		}),
		sessions: sessions,
		hub:      hub,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.GetEngine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (s *testServer) create(t *testing.T) *game.SessionInfo {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var result game.LoadResult
	decode(t, w, &result)
	require.NotNil(t, result.Session)
	return result.Session
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code errors.ErrorCode) {
	t.Helper()
	assert.Equal(t, status, w.Code)
	var resp errors.ErrorResponse
	decode(t, w, &resp)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, code, resp.Error.Code)
	assert.Empty(t, resp.Error.Stack)
	assert.NotEmpty(t, resp.RequestID)
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	s.create(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "healthy", resp["status"])
	assert.EqualValues(t, 1, resp["sessions"])
}

func TestRouter_NoRoute(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/nope", nil)
	assertErrorCode(t, w, http.StatusNotFound, errors.ErrNotFound)
}

func TestSessionHandler_CreateGetClose(t *testing.T) {
	s := newTestServer(t)
	info := s.create(t)
	assert.Equal(t, 8, info.Width)
	assert.Equal(t, 1, info.Level)

	w := s.do(t, http.MethodGet, "/api/v1/sessions/"+info.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got game.SessionInfo
	decode(t, w, &got)
	assert.Equal(t, info.Board, got.Board)

	w = s.do(t, http.MethodDelete, "/api/v1/sessions/"+info.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+info.SessionID, nil)
	assertErrorCode(t, w, http.StatusNotFound, errors.ErrSessionNotFound)

	w = s.do(t, http.MethodDelete, "/api/v1/sessions/"+info.SessionID, nil)
	assertErrorCode(t, w, http.StatusNotFound, errors.ErrSessionNotFound)
}

func TestSessionHandler_ClosePurge(t *testing.T) {
	s := newTestServer(t)
	info := s.create(t)

	w := s.do(t, http.MethodDelete, "/api/v1/sessions/"+info.SessionID+"?purge=true", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+info.SessionID, nil)
	assertErrorCode(t, w, http.StatusNotFound, errors.ErrSessionNotFound)

	// 存档已删除，同一ID重新创建而不是恢复
	w = s.do(t, http.MethodPost, "/api/v1/sessions", CreateRequest{SessionID: info.SessionID})
	require.Equal(t, http.StatusCreated, w.Code)
	var result game.LoadResult
	decode(t, w, &result)
	assert.False(t, result.Restored)

	// 清除可重复执行
	w = s.do(t, http.MethodDelete, "/api/v1/sessions/missing?purge=1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSessionHandler_CreateRecoversClosedSession(t *testing.T) {
	s := newTestServer(t)
	info := s.create(t)

	// 关闭时自动存档
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/sessions/"+info.SessionID, nil).Code)

	w := s.do(t, http.MethodPost, "/api/v1/sessions", CreateRequest{SessionID: info.SessionID})
	require.Equal(t, http.StatusOK, w.Code)
	var result game.LoadResult
	decode(t, w, &result)
	assert.True(t, result.Restored)
	assert.Equal(t, info.Board, result.Session.Board)

	// 已在内存中
	w = s.do(t, http.MethodPost, "/api/v1/sessions", CreateRequest{SessionID: info.SessionID})
	require.Equal(t, http.StatusOK, w.Code)

	// 没有存档的新ID直接创建
	w = s.do(t, http.MethodPost, "/api/v1/sessions", CreateRequest{SessionID: "fresh"})
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &result)
	assert.False(t, result.Restored)
	assert.Equal(t, "fresh", result.Session.SessionID)
}

func TestSessionHandler_Swap(t *testing.T) {
	s := newTestServer(t)
	info := s.create(t)
	path := "/api/v1/sessions/" + info.SessionID

	w := s.do(t, http.MethodPost, path+"/swap", map[string]interface{}{"from": match.Pos(0, 0)})
	assertErrorCode(t, w, http.StatusBadRequest, errors.ErrInvalidParam)

	w = s.do(t, http.MethodPost, path+"/swap", SwapRequest{From: &match.Position{Col: 0, Row: 0}, To: &match.Position{Col: 3, Row: 3}})
	require.Equal(t, http.StatusOK, w.Code)
	var resp game.SwapResponse
	decode(t, w, &resp)
	assert.False(t, resp.Result.Accepted)
	assert.Equal(t, match.RejectNotAdjacent, resp.Result.Reason)
	assert.Zero(t, resp.Score)
	assert.Equal(t, info.Board, resp.Board)

	w = s.do(t, http.MethodGet, path+"/hint", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hint HintResponse
	decode(t, w, &hint)
	if !hint.Found {
		return
	}

	w = s.do(t, http.MethodPost, path+"/swap", SwapRequest{From: &hint.Swap.From, To: &hint.Swap.To})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.True(t, resp.Result.Accepted)
	assert.Positive(t, resp.Points)
	assert.Equal(t, resp.Points, resp.Score)
	assert.False(t, match.HasRun(match.GridFromColors(resp.Board)))

	w = s.do(t, http.MethodGet, path+"/history?page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history HistoryResponse
	decode(t, w, &history)
	assert.EqualValues(t, 2, history.Total)
	assert.Equal(t, 1, history.PageSize)
	require.Len(t, history.Records, 1)
	assert.True(t, history.Records[0].Accepted)
}

func TestSessionHandler_Hints(t *testing.T) {
	s := newTestServer(t)
	info := s.create(t)

	w := s.do(t, http.MethodGet, "/api/v1/sessions/"+info.SessionID+"/hints", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp HintsResponse
	decode(t, w, &resp)
	assert.Equal(t, len(resp.Swaps), resp.Count)
	assert.Equal(t, info.HasMove, resp.Count > 0)
	for _, swap := range resp.Swaps {
		assert.True(t, swap.From.IsAdjacent(swap.To))
	}
}

func TestSessionHandler_SaveLoadReset(t *testing.T) {
	s := newTestServer(t)
	info := s.create(t)
	path := "/api/v1/sessions/" + info.SessionID

	// 尚未存档
	w := s.do(t, http.MethodPost, path+"/load", nil)
	assertErrorCode(t, w, http.StatusNotFound, errors.ErrNotFound)

	w = s.do(t, http.MethodPost, path+"/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot match.Snapshot
	decode(t, w, &snapshot)
	assert.Equal(t, info.Board, snapshot.Board)

	w = s.do(t, http.MethodPost, path+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reset game.SessionInfo
	decode(t, w, &reset)
	assert.Zero(t, reset.Score)
	assert.Equal(t, 1, reset.Level)

	w = s.do(t, http.MethodPost, path+"/load", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result game.LoadResult
	decode(t, w, &result)
	assert.True(t, result.Restored)
	assert.Equal(t, info.Board, result.Session.Board)
}

func TestSessionHandler_HistoryDefaults(t *testing.T) {
	s := newTestServer(t)
	info := s.create(t)

	w := s.do(t, http.MethodGet, "/api/v1/sessions/"+info.SessionID+"/history?page=abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history HistoryResponse
	decode(t, w, &history)
	assert.Equal(t, 1, history.Page)
	assert.Equal(t, repository.DefaultPageSize, history.PageSize)
	assert.NotNil(t, history.Records)
	assert.Empty(t, history.Records)
}

func TestWebSocketHandler(t *testing.T) {
	s := newTestServer(t)
	info := s.create(t)

	server := httptest.NewServer(s.router.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session_id=" + info.SessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.MessageTypeConnected, msg.Type)

	// REST 操作推送到已订阅的连接
	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+info.SessionID+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, game.EventBoardReset, msg.Type)
	assert.Equal(t, info.SessionID, msg.SessionID)

	w = s.do(t, http.MethodGet, "/api/v1/ws/online?session_id="+info.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var online map[string]interface{}
	decode(t, w, &online)
	assert.EqualValues(t, 1, online["online_count"])
	assert.EqualValues(t, 1, online["session_subscribers"])
}
