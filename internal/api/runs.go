package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/checker"
	"github.com/peterjiatong/csres-standard-review/internal/store"
)

type runsResponse struct {
	Items []store.RunLog `json:"items"`
}

// ListRuns 最近的运行记录
// GET /api/runs?limit=20
func (h *Handler) ListRuns(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "未启用运行记录"})
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须为正整数"})
			return
		}
		limit = n
	}

	items, err := h.store.RecentRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []store.RunLog{}
	}
	c.JSON(http.StatusOK, runsResponse{Items: items})
}

// GetRun 单次运行记录
// GET /api/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	rl, ok := h.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rl)
}

type runCodesResponse struct {
	RunID string              `json:"runId"`
	Items []store.CodeOutcome `json:"items"`
}

// ListRunCodes 一次运行中每个编号的处理结果
// GET /api/runs/:id/codes
func (h *Handler) ListRunCodes(c *gin.Context) {
	rl, ok := h.lookupRun(c)
	if !ok {
		return
	}
	items, err := h.store.CodeOutcomes(rl.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []store.CodeOutcome{}
	}
	c.JSON(http.StatusOK, runCodesResponse{RunID: rl.RunID, Items: items})
}

func (h *Handler) lookupRun(c *gin.Context) (*store.RunLog, bool) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "未启用运行记录"})
		return nil, false
	}
	rl, err := h.store.GetRunLog(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return rl, true
}

// StartRun 发起 update / check 运行 (SSE 流式响应)
// POST /api/runs/update, POST /api/runs/check
func (h *Handler) StartRun(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "未启用运行接口"})
		return
	}

	kind := c.Param("kind")
	var start func() <-chan checker.ProgressEvent
	switch kind {
	case store.KindUpdate:
		start = func() <-chan checker.ProgressEvent { return h.runner.Refresh(c.Request.Context(), h.updateOpts) }
	case store.KindCheck:
		start = func() <-chan checker.ProgressEvent { return h.runner.Check(c.Request.Context(), h.checkOpts) }
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("未知的运行类型: %s", kind)})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	if !h.tryAcquire() {
		c.JSON(http.StatusConflict, gin.H{"error": "已有运行正在进行"})
		return
	}
	defer h.release()

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.log.Info("run started via api", zap.String("kind", kind))
	for event := range start() {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
