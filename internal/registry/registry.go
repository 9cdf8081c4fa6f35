// Package registry 标准库内存索引：编号 → 状态、名称、替代情况。
//
// Registry 由 Build 一次性构建，之后只读；数据集变化时构建新的 Registry 替换旧值。
package registry

import (
	"sort"
	"strings"

	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
)

// amendmentMarker 修改单分隔符
const amendmentMarker = "/XG"

// Registry 标准库索引
type Registry struct {
	entries map[string]model.RegistryEntry
	order   []string // 首次出现顺序
}

// DuplicateFunc 数据集中出现重复编号时回调（first 为先出现的行，later 为覆盖它的行）
type DuplicateFunc func(code string, first, later model.RegistryEntry)

type options struct {
	onDuplicate DuplicateFunc
}

// Option 构建选项
type Option func(*options)

// WithDuplicateHandler 设置重复编号回调
func WithDuplicateHandler(fn DuplicateFunc) Option {
	return func(o *options) {
		o.onDuplicate = fn
	}
}

// Build 从“有搜索结果的标准”行构建索引。
// 所有字段去首尾空白，名称半角化，编号去空白；重复编号后出现的行覆盖先出现的行。
func Build(rows []model.MatchedRow, opts ...Option) *Registry {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		entries: make(map[string]model.RegistryEntry, len(rows)),
		order:   make([]string, 0, len(rows)),
	}
	for _, row := range rows {
		code := parser.StripSpaces(row.Code)
		if code == "" {
			continue
		}
		entry := model.RegistryEntry{
			Code:        code,
			Title:       parser.NormalizeTitle(strings.TrimSpace(row.Title)),
			Status:      model.Status(strings.TrimSpace(row.Status)),
			Replacement: strings.TrimSpace(row.Replacement),
		}
		if prev, ok := r.entries[code]; ok {
			if o.onDuplicate != nil {
				o.onDuplicate(code, prev, entry)
			}
		} else {
			r.order = append(r.order, code)
		}
		r.entries[code] = entry
	}
	return r
}

// Lookup 查询编号（编号需已去空白）
func (r *Registry) Lookup(code string) (model.RegistryEntry, bool) {
	if r == nil {
		return model.RegistryEntry{}, false
	}
	e, ok := r.entries[code]
	return e, ok
}

// Has 编号是否收录
func (r *Registry) Has(code string) bool {
	_, ok := r.Lookup(code)
	return ok
}

// Len 收录数量
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Codes 按数据集中首次出现的顺序返回全部编号
func (r *Registry) Codes() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// AmendmentsOf 返回同一基准标准的全部修改单编号（升序）
func (r *Registry) AmendmentsOf(base string) []string {
	if r == nil {
		return nil
	}
	prefix := base + amendmentMarker
	var out []string
	for code := range r.entries {
		if strings.HasPrefix(code, prefix) {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// Missing 返回不在索引中的编号，保持输入顺序
func (r *Registry) Missing(codes []string) []string {
	var out []string
	for _, c := range codes {
		if !r.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// SplitAmendment 拆分修改单编号：GB1-2020/XG1-2021 → (GB1-2020, "1-2021", true)
func SplitAmendment(code string) (base, tail string, isAmendment bool) {
	base, tail, isAmendment = strings.Cut(code, amendmentMarker)
	return base, tail, isAmendment
}
