// Package acquisition 标准库采集流水线：逐个编号远程检索，结果按类别写入四张累积表。
//
// 单线程顺序执行：所有编号共用一个检索客户端（连接和 cookie），编号之间固定间隔。
package acquisition

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/lookup"
	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/retry"
)

// OutcomeKind 单个编号的处理结果类别
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNoResult
	OutcomeTooMany
	OutcomeAccessDenied
	OutcomeHardError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoResult:
		return "no_result"
	case OutcomeTooMany:
		return "too_many"
	case OutcomeAccessDenied:
		return "access_denied"
	default:
		return "hard_error"
	}
}

// Outcome 单个编号的处理结果
type Outcome struct {
	Kind           OutcomeKind
	Code           string
	Hits           []model.LookupHit
	Message        string
	RequestHeader  string
	ResponseHeader string
	Attempts       int
}

// Config 流水线配置
type Config struct {
	Outer     retry.Policy     // 单个编号整体重试（默认 1+9 次，间隔 5 秒）
	CodePause time.Duration    // 编号之间的间隔
	Sleep     retry.SleepFunc  // 为空时真实等待
	Now       func() time.Time // 结果添加日期
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Outer:     retry.Policy{MaxAttempts: 10, Pause: 5 * time.Second},
		CodePause: time.Second,
	}
}

// Batch 一批待处理编号
type Batch struct {
	Label    string
	Codes    []string
	KnownBad bool // 这批编号此前无搜索结果
}

// ProgressFunc 每处理完一个编号回调一次
type ProgressFunc func(batch string, index, total int, o Outcome)

// StartFunc 开始处理一个编号前回调
type StartFunc func(batch string, index, total int, code string)

// Pipeline 采集流水线
type Pipeline struct {
	src     lookup.Source
	cfg     Config
	log     *zap.Logger
	tables  *Tables
	onStart StartFunc
}

// New 创建流水线
func New(src lookup.Source, cfg Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = retry.Sleep
	}
	if cfg.Outer.Sleep == nil {
		cfg.Outer.Sleep = cfg.Sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{src: src, cfg: cfg, log: log, tables: &Tables{}}
}

// Tables 累积结果
func (p *Pipeline) Tables() *Tables {
	return p.tables
}

// OnCodeStart 设置编号开始处理时的回调
func (p *Pipeline) OnCodeStart(fn StartFunc) {
	p.onStart = fn
}

// Run 先做一次连通性探测，再按顺序处理每一批编号。探测失败时不处理任何编号。
func (p *Pipeline) Run(ctx context.Context, progress ProgressFunc, batches ...Batch) error {
	if err := p.src.Probe(ctx); err != nil {
		p.log.Error("probe failed, run aborted", zap.Error(err))
		return err
	}

	first := true
	for _, b := range batches {
		for i, code := range b.Codes {
			if !first {
				if err := p.cfg.Sleep(ctx, p.cfg.CodePause); err != nil {
					return err
				}
			}
			first = false

			p.log.Info("processing code", zap.String("batch", b.Label), zap.Int("index", i+1), zap.Int("total", len(b.Codes)), zap.String("code", code))
			if p.onStart != nil {
				p.onStart(b.Label, i+1, len(b.Codes), code)
			}
			o := p.ProcessCode(ctx, code, b.KnownBad)
			if progress != nil {
				progress(b.Label, i+1, len(b.Codes), o)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessCode 处理一个编号并写入结果表。
// 无结果/结果过多直接记录不重试；拒绝访问及其他故障整体重试，用尽后记入报错表。
func (p *Pipeline) ProcessCode(ctx context.Context, code string, knownBad bool) Outcome {
	attempts := 0
	hits, err := retry.Do(ctx, p.cfg.Outer, func(attempt int) ([]model.LookupHit, error) {
		attempts = attempt
		hits, err := p.src.Lookup(ctx, code, knownBad)
		if err != nil && retryable(err) && attempt < p.cfg.Outer.Attempts() {
			p.log.Warn("lookup attempt failed", zap.String("code", code), zap.Int("attempt", attempt), zap.Int("max", p.cfg.Outer.Attempts()), zap.Error(err))
		}
		return hits, err
	}, func(_ []model.LookupHit, err error) bool {
		return err != nil && retryable(err)
	})

	o := classify(code, hits, err)
	o.Attempts = attempts
	p.tables.Record(o, p.cfg.Now().Format("01_02"))

	switch o.Kind {
	case OutcomeSuccess:
		for _, h := range hits {
			if h.MissingDates() {
				p.log.Warn("hit has no publish/implement/withdraw date", zap.String("code", code), zap.String("hit", h.Code))
			}
		}
		p.log.Debug("code processed", zap.String("code", code), zap.Int("hits", len(hits)))
	case OutcomeNoResult, OutcomeTooMany:
		p.log.Warn("code not found", zap.String("code", code), zap.String("reason", o.Message))
	default:
		p.log.Error("code failed", zap.String("code", code), zap.String("kind", o.Kind.String()), zap.Int("attempts", attempts), zap.String("error", o.Message))
	}
	return o
}

func retryable(err error) bool {
	if ce, ok := lookup.AsCrawlError(err); ok {
		return !ce.Permanent()
	}
	return true
}

func classify(code string, hits []model.LookupHit, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Code: code, Hits: hits}
	}

	ce, ok := lookup.AsCrawlError(err)
	if !ok {
		return Outcome{
			Kind:           OutcomeHardError,
			Code:           code,
			Message:        fmt.Sprintf("%v", err),
			RequestHeader:  lookup.FormatHeader(nil),
			ResponseHeader: lookup.FormatHeader(nil),
		}
	}

	o := Outcome{
		Code:           code,
		Message:        ce.Message,
		RequestHeader:  lookup.FormatHeader(ce.RequestHeader),
		ResponseHeader: lookup.FormatHeader(ce.ResponseHeader),
	}
	switch ce.Kind {
	case lookup.KindNoResult:
		o.Kind = OutcomeNoResult
	case lookup.KindTooMany:
		o.Kind = OutcomeTooMany
	default:
		o.Kind = OutcomeAccessDenied
	}
	return o
}
