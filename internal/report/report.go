// Package report 生成文本报告：逐份报告的标准检查结果、本次新增标准统计。
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
	"github.com/peterjiatong/csres-standard-review/internal/resolver"
)

// 报告文件名
const (
	CheckReportFile  = "标准检查报告.txt"
	NewStdReportFile = "标准更新报告.txt"
)

const (
	sectionRule = 50
	newStdRule  = 78
	manualCheck = "(本条标准问题需手动排查）"
)

// TitleFunc 按编号查询标准库中的原始名称
type TitleFunc func(code string) (string, bool)

// DocumentResult 一份报告的检查结果
type DocumentResult struct {
	Name     string
	Verdicts []resolver.Verdict
}

// CheckWriter 标准检查报告
type CheckWriter struct {
	w      *bufio.Writer
	titles TitleFunc
}

// NewCheckWriter 创建检查报告写入器；titles 为空时使用检查结果中的名称
func NewCheckWriter(w io.Writer, titles TitleFunc) *CheckWriter {
	return &CheckWriter{w: bufio.NewWriter(w), titles: titles}
}

// WriteDocument 写入一份报告的检查结果
func (c *CheckWriter) WriteDocument(doc DocumentResult) error {
	fmt.Fprintln(c.w, strings.Repeat("-", sectionRule))
	fmt.Fprintln(c.w, Header(doc.Name, len(doc.Verdicts)))
	for i, v := range doc.Verdicts {
		fmt.Fprintln(c.w, c.line(i+1, v))
	}
	return c.w.Flush()
}

// Close 写入结尾分隔线
func (c *CheckWriter) Close() error {
	fmt.Fprintln(c.w, strings.Repeat("-", sectionRule))
	return c.w.Flush()
}

// Header 报告标题行
func Header(name string, n int) string {
	return fmt.Sprintf("\n📄 %s —— 共发现 %d 条标准引用", name, n)
}

func (c *CheckWriter) line(idx int, v resolver.Verdict) string {
	flag := "❌"
	if v.Result.OK() {
		flag = "✅"
	}
	prefix := fmt.Sprintf("%2d. %s %-25s | ", idx, flag, v.Mention.Original)

	if v.Result.Status != model.CheckNameWrong {
		return fmt.Sprintf("%s%-10s", prefix, v.Result.Message)
	}

	title, ok := c.correctTitle(v)
	if !ok {
		return prefix + manualCheck
	}
	return fmt.Sprintf("%s%-10s \t (正确名称应为：%s)", prefix, v.Result.Message, title)
}

func (c *CheckWriter) correctTitle(v resolver.Verdict) (string, bool) {
	if c.titles != nil {
		return c.titles(v.Mention.Code)
	}
	return v.CorrectTitle, v.CorrectTitle != ""
}

// WriteNewStandards 新增标准统计：matched 中编号（去空白）不在 known 内的行。
// 没有新增时不写入任何内容，返回 0。
func WriteNewStandards(w io.Writer, matched []model.MatchedRow, known map[string]struct{}, now time.Time) (int, error) {
	fresh := NewStandards(matched, known)
	if len(fresh) == 0 {
		return 0, nil
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "新增标准统计（%s） 共 %d 条\n", now.Format("01_02"), len(fresh))
	fmt.Fprintln(bw, strings.Repeat("-", newStdRule))
	for _, r := range fresh {
		fmt.Fprintf(bw, "%-20s%-6s标准名称: %s\n", r.Code, r.Status, r.Title)
	}
	return len(fresh), bw.Flush()
}

// NewStandards 不在 known 中的行，保持原顺序
func NewStandards(matched []model.MatchedRow, known map[string]struct{}) []model.MatchedRow {
	var out []model.MatchedRow
	for _, r := range matched {
		if _, ok := known[parser.StripSpaces(r.Code)]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ReportDir 在 base 下创建当天下一个可用的结果目录 <stem>_<MM_DD>_<n>
func ReportDir(base, stem string, now time.Time) (string, error) {
	day := now.Format("01_02")
	for n := 1; ; n++ {
		dir := filepath.Join(base, fmt.Sprintf("%s_%s_%d", stem, day, n))
		if _, err := os.Stat(dir); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create report dir %s: %w", dir, err)
		}
		return dir, nil
	}
}
