// Package checker 编排一次运行：刷新标准库（update）或检查报告（check），通过进度通道汇报。
package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/acquisition"
	"github.com/peterjiatong/csres-standard-review/internal/dataset"
	"github.com/peterjiatong/csres-standard-review/internal/lookup"
	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
	"github.com/peterjiatong/csres-standard-review/internal/registry"
	"github.com/peterjiatong/csres-standard-review/internal/store"
)

// 进度事件类型
const (
	EventStart     = "start"
	EventInfo      = "info"
	EventCodeStart = "code_start"
	EventCodeDone  = "code_done"
	EventDocument  = "document"
	EventDone      = "done"
	EventError     = "error"
)

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/code_start/code_done/document/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// Options 运行选项（路径均为最终路径）
type Options struct {
	Source      string // 读取的标准库工作簿
	Dest        string // 写出的标准库工作簿
	ReportsDir  string // 待检查报告目录（check）
	ArchiveDir  string // 标准库存档目录，为空时不存档
	ArchiveStem string
	OutputDir   string // 结果目录的上级
	ReportStem  string // 结果目录前缀
}

// Summary 一次运行的结果
type Summary struct {
	RunID        string             `json:"runId"`
	Kind         string             `json:"kind"`
	Documents    int                `json:"documents"`
	Mentions     int                `json:"mentions"`
	Codes        int                `json:"codes"`    // 本次检索的编号数
	Problems     int                `json:"problems"` // 未通过的引用数
	Tables       acquisition.Counts `json:"tables"`
	NewStandards int                `json:"newStandards"`
	DatasetPath  string             `json:"datasetPath"`
	ArchivePath  string             `json:"archivePath,omitempty"`
	ReportDir    string             `json:"reportDir,omitempty"`
	Duration     time.Duration      `json:"duration"`
}

// Coordinator 运行协调器
type Coordinator struct {
	src       lookup.Source
	store     *store.Store
	acq       acquisition.Config
	log       *zap.Logger
	extractor *parser.Extractor

	now   func() time.Time
	newID func() string
}

// NewCoordinator 创建运行协调器；st 为空时不记录运行日志
func NewCoordinator(src lookup.Source, st *store.Store, acq acquisition.Config, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		src:       src,
		store:     st,
		acq:       acq,
		log:       log,
		extractor: parser.NewExtractor(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Refresh 全量刷新标准库，返回进度通道。调用方需读完通道或取消 ctx。
func (c *Coordinator) Refresh(ctx context.Context, opts Options) <-chan ProgressEvent {
	return c.stream(ctx, func(emit emitFunc) (*Summary, error) {
		return c.RunRefresh(ctx, opts, emit)
	})
}

// Check 检查报告中的标准引用，返回进度通道。调用方需读完通道或取消 ctx。
func (c *Coordinator) Check(ctx context.Context, opts Options) <-chan ProgressEvent {
	return c.stream(ctx, func(emit emitFunc) (*Summary, error) {
		return c.RunCheck(ctx, opts, emit)
	})
}

type emitFunc func(ProgressEvent)

func (c *Coordinator) stream(ctx context.Context, run func(emitFunc) (*Summary, error)) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		emit := func(e ProgressEvent) {
			c.sendProgress(ctx, progressChan, e)
		}
		// RunRefresh / RunCheck 自己发送 done / error
		_, _ = run(emit)
	}()

	return progressChan
}

// sendProgress 发送进度事件，ctx 取消后不再阻塞
func (c *Coordinator) sendProgress(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}

// run 一次运行的公共部分：运行日志、开始/结束事件
type run struct {
	c       *Coordinator
	opts    Options
	emit    emitFunc
	summary *Summary
	logID   int64
	started time.Time
	log     *zap.Logger
}

func (c *Coordinator) begin(kind, message string, opts Options, emit emitFunc) *run {
	if emit == nil {
		emit = func(ProgressEvent) {}
	}
	r := &run{
		c:       c,
		opts:    opts,
		emit:    emit,
		summary: &Summary{RunID: c.newID(), Kind: kind},
		started: c.now(),
	}
	r.log = c.log.With(zap.String("run_id", r.summary.RunID), zap.String("kind", kind))

	if c.store != nil {
		id, err := c.store.CreateRunLog(kind, r.summary.RunID)
		if err != nil {
			r.log.Warn("failed to create run log", zap.Error(err))
		}
		r.logID = id
	}

	r.log.Info(message)
	r.event(EventStart, message, map[string]string{"run_id": r.summary.RunID, "kind": kind})
	return r
}

func (r *run) event(typ, message string, data interface{}) {
	r.emit(ProgressEvent{Type: typ, Message: message, Data: data, Timestamp: r.c.now()})
}

func (r *run) info(message string, data interface{}) {
	r.log.Info(message)
	r.event(EventInfo, message, data)
}

// fail 结束运行并发送 error 事件
func (r *run) fail(err error) (*Summary, error) {
	r.summary.Duration = r.c.now().Sub(r.started)
	r.log.Error("run failed", zap.Error(err))
	r.finishLog(store.StatusFailed, err.Error())
	r.event(EventError, err.Error(), r.summary)
	return r.summary, err
}

// done 结束运行并发送 done 事件
func (r *run) done(message string) (*Summary, error) {
	r.summary.Duration = r.c.now().Sub(r.started)
	r.log.Info(message,
		zap.Int("matched", r.summary.Tables.Matched),
		zap.Int("failed", r.summary.Tables.Failed),
		zap.Int("errors", r.summary.Tables.Errors),
	)
	r.finishLog(store.StatusCompleted, "")
	r.event(EventDone, message, r.summary)
	return r.summary, nil
}

func (r *run) finishLog(status, message string) {
	if r.c.store == nil || r.logID == 0 {
		return
	}
	s := r.summary
	counts := store.RunCounts{
		Documents: s.Documents,
		Mentions:  s.Mentions,
		Codes:     s.Codes,
		Matched:   s.Tables.Matched,
		Failed:    s.Tables.Failed,
		DateEmpty: s.Tables.DateEmpty,
		Errors:    s.Tables.Errors,
	}
	if err := r.c.store.FinishRunLog(r.logID, counts, status, message); err != nil {
		r.log.Warn("failed to finish run log", zap.Error(err))
	}
}

// acquire 处理若干批编号，逐个发送 code_start / code_done 并记录到运行日志
func (r *run) acquire(ctx context.Context, batches ...acquisition.Batch) (*acquisition.Tables, error) {
	p := acquisition.New(r.c.src, r.c.acq, r.log)
	p.OnCodeStart(func(batch string, index, total int, code string) {
		r.event(EventCodeStart, fmt.Sprintf("[%s %d/%d] %s", batch, index, total, code), map[string]interface{}{
			"batch": batch, "index": index, "total": total, "code": code,
		})
	})
	progress := func(batch string, index, total int, o acquisition.Outcome) {
		r.summary.Codes++
		r.event(EventCodeDone, fmt.Sprintf("[%s %d/%d] %s: %s", batch, index, total, o.Code, o.Kind), map[string]interface{}{
			"batch": batch, "index": index, "total": total, "code": o.Code,
			"outcome": o.Kind.String(), "hits": len(o.Hits), "message": o.Message,
		})
		if r.c.store != nil && r.logID != 0 {
			err := r.c.store.InsertCodeOutcome(r.logID, store.CodeOutcome{
				Code: o.Code, Batch: batch, Outcome: o.Kind.String(),
				Hits: len(o.Hits), Attempts: o.Attempts, Message: o.Message,
			})
			if err != nil {
				r.log.Warn("failed to record code outcome", zap.String("code", o.Code), zap.Error(err))
			}
		}
	}

	if err := p.Run(ctx, progress, batches...); err != nil {
		return nil, err
	}
	t := p.Tables()
	t.Dedup()
	return t, nil
}

// saveDataset 写出标准库，并另存一份存档
func (r *run) saveDataset(ds *dataset.Dataset) error {
	opts := r.opts
	if err := dataset.Save(opts.Dest, ds); err != nil {
		return err
	}
	r.summary.DatasetPath = opts.Dest
	r.info(fmt.Sprintf("已经保存标准库至 %s", opts.Dest), map[string]string{"path": opts.Dest})

	if opts.ArchiveDir == "" {
		return nil
	}
	archive, err := dataset.ArchivePath(opts.ArchiveDir, opts.ArchiveStem, r.c.now())
	if err != nil {
		return err
	}
	if err := dataset.Save(archive, ds); err != nil {
		return err
	}
	r.summary.ArchivePath = archive
	r.info(fmt.Sprintf("额外保存存档文件: %s", archive), map[string]string{"path": archive})
	return nil
}

// BuildRegistry 由数据集构建索引，重复编号记警告
func BuildRegistry(ds *dataset.Dataset, log *zap.Logger) *registry.Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return registry.Build(ds.Matched, registry.WithDuplicateHandler(func(code string, first, later model.RegistryEntry) {
		log.Warn("duplicate code in dataset, later row wins",
			zap.String("code", code),
			zap.String("first_status", string(first.Status)),
			zap.String("later_status", string(later.Status)),
		)
	}))
}

// LoadRegistry 读取标准库工作簿并构建索引
func LoadRegistry(path string, log *zap.Logger) (*registry.Registry, *dataset.Dataset, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return BuildRegistry(ds, log), ds, nil
}
