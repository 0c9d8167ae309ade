package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/game"
	"github.com/wfunc/gem-cascade/internal/game/match"
	"github.com/wfunc/gem-cascade/internal/models"
	"github.com/wfunc/gem-cascade/internal/repository"
)

// SessionHandler 游戏会话处理器
type SessionHandler struct {
	sessions *game.SessionManager
	logger   *zap.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions *game.SessionManager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateRequest 创建会话请求，带 session_id 时按存档恢复
type CreateRequest struct {
	SessionID string `json:"session_id"`
}

// SwapRequest 交换请求
type SwapRequest struct {
	From *match.Position `json:"from" binding:"required"`
	To   *match.Position `json:"to" binding:"required"`
}

// HintResponse 提示响应
type HintResponse struct {
	Found bool        `json:"found"`
	Swap  *match.Swap `json:"swap,omitempty"`
}

// HintsResponse 全部可行交换
type HintsResponse struct {
	Swaps []match.Swap `json:"swaps"`
	Count int          `json:"count"`
}

// HistoryResponse 历史记录响应
type HistoryResponse struct {
	Records  []*models.SwapRecord `json:"records"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// Create 创建或恢复会话
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.Wrap(err, errors.ErrInvalidParam, "参数错误"))
			return
		}
	}

	result, err := h.sessions.RecoverOrCreateSession(c.Request.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("创建会话失败",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Restored {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// Get 会话信息
func (h *SessionHandler) Get(c *gin.Context) {
	info, err := h.sessions.Info(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Close 关闭会话；purge=true 时同时删除存档和交换历史
func (h *SessionHandler) Close(c *gin.Context) {
	closeFn := h.sessions.CloseSession
	if purge, _ := strconv.ParseBool(c.Query("purge")); purge {
		closeFn = h.sessions.PurgeSession
	}
	if err := closeFn(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Swap 交换两个宝石；被拒绝的交换同样返回 200
func (h *SessionHandler) Swap(c *gin.Context) {
	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam, "参数错误"))
		return
	}

	resp, err := h.sessions.Swap(c.Request.Context(), c.Param("id"), *req.From, *req.To)
	if err != nil {
		h.logger.Error("交换失败",
			zap.String("session_id", c.Param("id")),
			zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Hint 随机提示一步
func (h *SessionHandler) Hint(c *gin.Context) {
	swap, found, err := h.sessions.Hint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, HintResponse{Found: found, Swap: swap})
}

// Hints 全部可行交换
func (h *SessionHandler) Hints(c *gin.Context) {
	swaps, err := h.sessions.Hints(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if swaps == nil {
		swaps = []match.Swap{}
	}
	c.JSON(http.StatusOK, HintsResponse{Swaps: swaps, Count: len(swaps)})
}

// Reset 新开一局
func (h *SessionHandler) Reset(c *gin.Context) {
	info, err := h.sessions.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Save 存档
func (h *SessionHandler) Save(c *gin.Context) {
	snapshot, err := h.sessions.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Load 读档
func (h *SessionHandler) Load(c *gin.Context) {
	result, err := h.sessions.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// History 交换历史
func (h *SessionHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(repository.DefaultPageSize)))

	records, p, err := h.sessions.History(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []*models.SwapRecord{}
	}
	c.JSON(http.StatusOK, HistoryResponse{
		Records:  records,
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
}
