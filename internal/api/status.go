package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peterjiatong/csres-standard-review/internal/acquisition"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized bool               `json:"initialized"` // 标准库工作簿可读
	DatasetPath string             `json:"datasetPath"`
	Standards   int                `json:"standards"` // 索引中的不同编号数
	Tables      acquisition.Counts `json:"tables"`
	LoadedAt    *time.Time         `json:"loadedAt,omitempty"`
	Running     bool               `json:"running"`
	Error       string             `json:"error,omitempty"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()

	resp := StatusResponse{DatasetPath: h.catalog.Path(), Running: running}
	ds, res, err := h.catalog.Snapshot()
	if err != nil {
		resp.Error = err.Error()
		c.JSON(http.StatusOK, resp)
		return
	}

	loaded := h.catalog.LoadedAt()
	resp.Initialized = true
	resp.Standards = res.Registry().Len()
	resp.Tables = ds.Counts()
	resp.LoadedAt = &loaded
	c.JSON(http.StatusOK, resp)
}
