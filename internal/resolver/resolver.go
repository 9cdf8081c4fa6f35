// Package resolver 对照标准库检查单条标准引用：是否收录、是否现行、名称是否一致。
package resolver

import (
	"fmt"

	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
	"github.com/peterjiatong/csres-standard-review/internal/registry"
)

// 检查结论文字
const (
	MsgNoExist   = "标准库未收录（标准编号有误或不存在）"
	MsgNameWrong = "名称不符"
	MsgOK        = "OK"
)

// Verdict 一条引用及其检查结果
type Verdict struct {
	Mention      model.Mention     `json:"mention"`
	Result       model.CheckResult `json:"result"`
	Warning      Warning           `json:"warning"`
	CorrectTitle string            `json:"correctTitle,omitempty"` // 名称不符时标准库中的名称
}

// Resolver 绑定一个标准库索引的检查器
type Resolver struct {
	reg *registry.Registry
}

// New 创建检查器
func New(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// Registry 当前使用的索引
func (r *Resolver) Registry() *registry.Registry {
	return r.reg
}

// Check 检查单条引用
func (r *Resolver) Check(m model.Mention) Verdict {
	warn := Relation(r.reg, m.Code)
	v := Verdict{Mention: m, Warning: warn, Result: decide(r.reg, m, warn)}
	if v.Result.Status == model.CheckNameWrong {
		if e, ok := r.reg.Lookup(m.Code); ok {
			v.CorrectTitle = e.Title
		}
	}
	return v
}

// CheckAll 按输入顺序检查全部引用
func (r *Resolver) CheckAll(mentions []model.Mention) []Verdict {
	out := make([]Verdict, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, r.Check(m))
	}
	return out
}

// Resolve 检查单条引用，返回结论
func Resolve(reg *registry.Registry, m model.Mention) model.CheckResult {
	return decide(reg, m, Relation(reg, m.Code))
}

func decide(reg *registry.Registry, m model.Mention, warn Warning) model.CheckResult {
	entry, ok := reg.Lookup(m.Code)
	if !ok {
		return model.CheckResult{Status: model.CheckNoExist, Message: MsgNoExist}
	}

	if !entry.Status.InForce() {
		msg := fmt.Sprintf("状态异常（%s）", entry.Status)
		if entry.Replacement != "" {
			msg += " | 替代情况：" + entry.Replacement
		}
		return model.CheckResult{Status: model.CheckStatusWrong, Message: msg, Warning: warn.Text()}
	}

	sameTitle := parser.SameTitle(m.Title, entry.Title)
	switch {
	case warn.Present() && !sameTitle:
		return model.CheckResult{Status: model.CheckNameWrong, Message: warn.Text() + " | " + MsgNameWrong, Warning: warn.Text()}
	case warn.Present():
		return model.CheckResult{Status: model.CheckOK, Message: MsgOK + "；" + warn.Text(), Warning: warn.Text()}
	case !sameTitle:
		return model.CheckResult{Status: model.CheckNameWrong, Message: MsgNameWrong}
	default:
		return model.CheckResult{Status: model.CheckOK, Message: MsgOK}
	}
}
