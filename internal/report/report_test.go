package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/resolver"
)

func verdict(original, code string, status model.CheckStatus, msg string) resolver.Verdict {
	return resolver.Verdict{
		Mention: model.Mention{Original: original, Code: code},
		Result:  model.CheckResult{Status: status, Message: msg},
	}
}

func TestCheckWriter_Lines(t *testing.T) {
	t.Parallel()

	titles := map[string]string{"GB3096-2008": "声环境质量标准"}
	var buf bytes.Buffer
	cw := NewCheckWriter(&buf, func(code string) (string, bool) {
		s, ok := titles[code]
		return s, ok
	})

	require.NoError(t, cw.WriteDocument(DocumentResult{
		Name: "环评报告.docx",
		Verdicts: []resolver.Verdict{
			verdict("GB 3838-2002", "GB3838-2002", model.CheckOK, "OK"),
			verdict("GB 3096-2008", "GB3096-2008", model.CheckNameWrong, "名称不符"),
			verdict("GB 1-2000", "GB1-2000", model.CheckNameWrong, "名称不符"),
			verdict("GB 8978-1988", "GB8978-1988", model.CheckStatusWrong, "状态异常（作废）"),
		},
	}))
	require.NoError(t, cw.Close())

	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 8)
	assert.Equal(t, strings.Repeat("-", 50), lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "📄 环评报告.docx —— 共发现 4 条标准引用", lines[2])
	assert.Equal(t, " 1. ✅ GB 3838-2002"+strings.Repeat(" ", 13)+" | OK        ", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], " 2. ❌ GB 3096-2008"))
	assert.True(t, strings.HasSuffix(lines[4], "(正确名称应为：声环境质量标准)"))
	assert.True(t, strings.HasSuffix(lines[5], "| (本条标准问题需手动排查）"))
	assert.Contains(t, lines[6], "状态异常（作废）")
	assert.Equal(t, strings.Repeat("-", 50), lines[7])
}

func TestCheckWriter_FallsBackToVerdictTitle(t *testing.T) {
	t.Parallel()

	v := verdict("GB 3096-2008", "GB3096-2008", model.CheckNameWrong, "名称不符")
	v.CorrectTitle = "声环境质量标准"

	var buf bytes.Buffer
	cw := NewCheckWriter(&buf, nil)
	require.NoError(t, cw.WriteDocument(DocumentResult{Name: "a.docx", Verdicts: []resolver.Verdict{v}}))
	assert.Contains(t, buf.String(), "(正确名称应为：声环境质量标准)")
}

func TestCheckWriter_EmptyDocument(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cw := NewCheckWriter(&buf, nil)
	require.NoError(t, cw.WriteDocument(DocumentResult{Name: "空.docx"}))
	assert.Contains(t, buf.String(), "📄 空.docx —— 共发现 0 条标准引用")
}

func TestWriteNewStandards(t *testing.T) {
	t.Parallel()

	matched := []model.MatchedRow{
		{Code: "GB 3838-2002", Title: "地表水环境质量标准", Status: "现行"},
		{Code: "GB 3096-2008", Title: "声环境质量标准", Status: "现行"},
	}
	known := map[string]struct{}{"GB3838-2002": {}}
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.Local)

	var buf bytes.Buffer
	n, err := WriteNewStandards(&buf, matched, known, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want := "新增标准统计（10_15） 共 1 条\n" +
		strings.Repeat("-", 78) + "\n" +
		"GB 3096-2008        现行    标准名称: 声环境质量标准\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteNewStandards_NothingNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := WriteNewStandards(&buf, []model.MatchedRow{{Code: "A 1"}}, map[string]struct{}{"A1": {}}, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, buf.String())
}

func TestReportDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.Local)

	d1, err := ReportDir(base, "检查结果", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "检查结果_10_15_1"), d1)

	d2, err := ReportDir(base, "检查结果", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "检查结果_10_15_2"), d2)

	info, err := os.Stat(d2)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
