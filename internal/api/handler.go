// Package api 标准库查询、引用检查与运行记录的 HTTP 接口
package api

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/checker"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
	"github.com/peterjiatong/csres-standard-review/internal/store"
)

// Runner 发起一次运行并返回进度通道，由 checker.Coordinator 实现
type Runner interface {
	Refresh(ctx context.Context, opts checker.Options) <-chan checker.ProgressEvent
	Check(ctx context.Context, opts checker.Options) <-chan checker.ProgressEvent
}

// Handler API 处理器
type Handler struct {
	catalog   *Catalog
	store     *store.Store
	extractor *parser.Extractor
	log       *zap.Logger

	runner     Runner
	updateOpts checker.Options
	checkOpts  checker.Options

	mu      sync.Mutex
	running bool
}

// Option Handler 可选项
type Option func(*Handler)

// WithRunner 允许通过接口发起 update / check 运行
func WithRunner(r Runner, update, check checker.Options) Option {
	return func(h *Handler) {
		h.runner = r
		h.updateOpts = update
		h.checkOpts = check
	}
}

// NewHandler 创建 API 处理器；st 为空时运行记录接口返回 503
func NewHandler(catalog *Catalog, st *store.Store, log *zap.Logger, opts ...Option) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		catalog:   catalog,
		store:     st,
		extractor: parser.NewExtractor(),
		log:       log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 标准库查询
	router.GET("/standards/:code", h.GetStandard)

	// 引用抽取与检查
	router.POST("/extract", h.Extract)
	router.POST("/check", h.Check)

	// 运行记录
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:id", h.GetRun)
	router.GET("/runs/:id/codes", h.ListRunCodes)
	router.POST("/runs/:kind", h.StartRun)
}

// tryAcquire 同一时间只允许一个运行
func (h *Handler) tryAcquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return false
	}
	h.running = true
	return true
}

func (h *Handler) release() {
	h.mu.Lock()
	h.running = false
	h.mu.Unlock()
}
