package resolver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/registry"
)

func buildRegistry(rows ...model.MatchedRow) *registry.Registry {
	return registry.Build(rows)
}

func current(code, title string) model.MatchedRow {
	return model.MatchedRow{Code: code, Title: title, Status: string(model.StatusCurrent)}
}

func TestRelation_EnglishEdition(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(current("GB/T 1234-2019", "试验方法"), current("GB/T 1234-2019E", "Test method"))

	w := Relation(reg, "GB/T1234-2019")
	assert.Equal(t, EnglishEditionExists, w.Kind)
	assert.Equal(t, []string{"GB/T1234-2019E"}, w.Codes)
	assert.Contains(t, w.Text(), "GB/T1234-2019E")

	// 英文版本身不再提示英文版
	assert.False(t, Relation(reg, "GB/T1234-2019E").Present())
}

func TestCheck_EnglishEditionWarningAttached(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(current("GB/T 1234-2019", "试验方法"), current("GB/T 1234-2019E", "Test method"))
	v := New(reg).Check(model.Mention{Code: "GB/T1234-2019", Title: "试验方法"})

	assert.Equal(t, model.CheckOK, v.Result.Status)
	assert.Equal(t, "OK；(发现英文版 GB/T1234-2019E)", v.Result.Message)
	assert.Equal(t, "(发现英文版 GB/T1234-2019E)", v.Result.Warning)
}

func TestRelation_AmendmentChain(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(
		current("GB 1-2020", "基础标准"),
		current("GB 1-2020/XG1-2021", "第1号修改单"),
		current("GB 1-2020/XG2-2023", "第2号修改单"),
	)

	w := Relation(reg, "GB1-2020/XG1-2021")
	assert.Equal(t, NewerAmendmentExists, w.Kind)
	assert.Equal(t, []string{"GB1-2020/XG2-2023"}, w.Codes)
	assert.Equal(t, "(存在更新的序号修改单：GB1-2020/XG2-2023)", w.Text())

	w = Relation(reg, "GB1-2020/XG2-2023")
	assert.Equal(t, AlreadyLatestAmendment, w.Kind)
	assert.Equal(t, "（已是最新修改单）", w.Text())

	w = Relation(reg, "GB1-2020")
	assert.Equal(t, AmendmentsExist, w.Kind)
	assert.Equal(t, "(存在 2 个修改单：GB1-2020/XG1-2021, GB1-2020/XG2-2023)", w.Text())
}

func TestRelation_UnparsableAmendmentIndex(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(current("GB 1-2020/XG1-2021", "第1号修改单"))

	// 序号无法解析按 -1 处理，任何合法序号都更新
	w := Relation(reg, "GB1-2020/XGA-2021")
	assert.Equal(t, NewerAmendmentExists, w.Kind)
	assert.Equal(t, []string{"GB1-2020/XG1-2021"}, w.Codes)
}

func TestRelation_NoWarning(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(current("GB 3838-2002", "地表水环境质量标准"))
	w := Relation(reg, "GB3838-2002")
	assert.False(t, w.Present())
	assert.Empty(t, w.Text())
}

// 同时满足“存在英文版”和“存在修改单”时只给出英文版提醒
func TestRelation_EnglishEditionShadowsAmendments(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(
		current("GB 1-2020", "基础标准"),
		current("GB 1-2020E", "Basic standard"),
		current("GB 1-2020/XG1-2021", "第1号修改单"),
	)

	w := Relation(reg, "GB1-2020")
	assert.Equal(t, EnglishEditionExists, w.Kind)
	assert.Equal(t, []string{"GB1-2020E"}, w.Codes)
}

func TestResolve_NoExistIgnoresWarning(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(current("GB 1-2020E", "Basic standard"))
	res := Resolve(reg, model.Mention{Code: "GB1-2020", Title: "基础标准"})

	assert.Equal(t, model.CheckNoExist, res.Status)
	assert.Equal(t, MsgNoExist, res.Message)
	assert.Empty(t, res.Warning)
}

func TestResolve_StatusWrongWithReplacement(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(
		model.MatchedRow{Code: "GB 3838-1988", Title: "地面水环境质量标准", Status: "作废", Replacement: "被GB 3838-2002代替"},
		model.MatchedRow{Code: "GB 3096-1993", Title: "城市区域环境噪声标准", Status: "废止"},
	)

	res := Resolve(reg, model.Mention{Code: "GB3838-1988", Title: "地面水环境质量标准"})
	assert.Equal(t, model.CheckStatusWrong, res.Status)
	assert.Equal(t, "状态异常（作废） | 替代情况：被GB 3838-2002代替", res.Message)

	res = Resolve(reg, model.Mention{Code: "GB3096-1993", Title: "城市区域环境噪声标准"})
	assert.Equal(t, "状态异常（废止）", res.Message)
}

func TestResolve_UpcomingIsInForce(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(model.MatchedRow{Code: "GB 5749-2022", Title: "生活饮用水卫生标准", Status: "即将实施"})
	res := Resolve(reg, model.Mention{Code: "GB5749-2022", Title: "生活饮用水卫生标准"})
	assert.True(t, res.OK())
	assert.Equal(t, MsgOK, res.Message)
}

func TestResolve_NameWrong(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(
		current("GB 3838-2002", "地表水环境质量标准"),
		current("GB 1-2020", "基础标准"),
		current("GB 1-2020/XG1-2021", "第1号修改单"),
	)

	v := New(reg).Check(model.Mention{Code: "GB3838-2002", Title: "地表水质量标准"})
	assert.Equal(t, model.CheckNameWrong, v.Result.Status)
	assert.Equal(t, MsgNameWrong, v.Result.Message)
	assert.Equal(t, "地表水环境质量标准", v.CorrectTitle)

	v = New(reg).Check(model.Mention{Code: "GB1-2020", Title: "其他名称"})
	assert.Equal(t, model.CheckNameWrong, v.Result.Status)
	assert.Equal(t, "(存在 1 个修改单：GB1-2020/XG1-2021) | 名称不符", v.Result.Message)
}

func TestResolve_TitleComparedAfterNormalization(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(current("GB 3095-2012", "环境空气质量标准（含第1号修改单）"))
	res := Resolve(reg, model.Mention{Code: "GB3095-2012", Title: "环境空气质量标准 (含第1号修改单)"})
	assert.Equal(t, model.CheckOK, res.Status)
}

func TestCheckAll_KeepsOrderAndReportsMissing(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(current("GB 3838-2002", "地表水环境质量标准"))
	mentions := []model.Mention{
		{Code: "GB9999-2099", Title: "不存在"},
		{Code: "GB3838-2002", Title: "地表水环境质量标准"},
	}

	got := New(reg).CheckAll(mentions)
	require.Len(t, got, 2)
	assert.Equal(t, model.CheckNoExist, got[0].Result.Status)
	assert.Equal(t, model.CheckOK, got[1].Result.Status)
	assert.Equal(t, mentions[0], got[0].Mention)
}

func TestWarningKind_JSON(t *testing.T) {
	t.Parallel()

	w := Warning{Kind: NewerAmendmentExists, Codes: []string{"GB1-2000/XG2-2020"}}
	b, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"newer_amendment_exists","codes":["GB1-2000/XG2-2020"]}`, string(b))

	var got Warning
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, w, got)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"bogus"}`), &got))
}
