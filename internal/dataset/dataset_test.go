package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/peterjiatong/csres-standard-review/internal/acquisition"
	"github.com/peterjiatong/csres-standard-review/internal/model"
)

func sampleDataset() *Dataset {
	return &Dataset{
		Matched: []model.MatchedRow{
			{Code: "GB 3838-2002", Title: "地表水环境质量标准", Status: "现行", PublishDate: "2002-04-28", ImplementDate: "2002-06-01", Added: "09_01"},
			{Code: "HJ 91.1-2019", Title: "污水监测技术规范", Status: "现行", Added: "09_01"},
			{Code: "GB 8978-1988", Title: "污水综合排放标准", Status: "作废", WithdrawDate: "2025-01-01", Replacement: "被 GB 8978-2024 代替", Added: "09_01"},
		},
		Failed:    []model.FailedRow{{Code: "GB9999-2099", Message: "无搜索结果", Added: "09_01"}},
		DateEmpty: []model.DateEmptyRow{{Code: "HJ 91.1-2019", DetailHTML: "<html><body>x</body></html>", Added: "09_01"}},
		Errors:    []model.ErrorRow{{Code: "GB 1-2000", Message: "timeout", RequestHeader: "{}", ResponseHeader: "{}", Added: "09_01"}},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "standard_details.xlsx")
	want := sampleDataset()
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("dataset mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_LayoutAndFormatting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.xlsx")
	require.NoError(t, Save(path, sampleDataset()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{model.SheetMatched, model.SheetFailed, model.SheetErrors, model.SheetDateEmpty}, f.GetSheetList())

	rows, err := f.GetRows(model.SheetFailed)
	require.NoError(t, err)
	assert.Equal(t, []string{"标准编号", "错误信息", "结果添加日期"}, rows[0])

	styleID, err := f.GetCellStyle(model.SheetMatched, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	// 标准编号列最长 "GB 3838-2002" 12 个字符
	w, err := f.GetColWidth(model.SheetMatched, "A")
	require.NoError(t, err)
	assert.Equal(t, 14.0, w)

	// 较短的列不小于 10
	w, err = f.GetColWidth(model.SheetFailed, "C")
	require.NoError(t, err)
	assert.Equal(t, 10.0, w)
}

func TestColumnWidth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10, columnWidth(0))
	assert.Equal(t, 10, columnWidth(8))
	assert.Equal(t, 11, columnWidth(9))
	assert.Equal(t, 255, columnWidth(100000))
}

func TestLoad_MissingDiagnosticSheetsTolerated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "src.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", model.SheetMatched))
	require.NoError(t, f.SetSheetRow(model.SheetMatched, "A1", &[]interface{}{"标准编号", "标准名称", "状态", "替代情况"}))
	require.NoError(t, f.SetSheetRow(model.SheetMatched, "A2", &[]interface{}{" GB 3096-2008 ", "声环境质量标准", "现行"}))
	require.NoError(t, f.SetSheetRow(model.SheetMatched, "A3", &[]interface{}{"", "空编号"}))
	_, err := f.NewSheet(model.SheetFailed)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(model.SheetFailed, "A1", &[]interface{}{"标准编号", "错误信息"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ds, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ds.Matched, 1)
	assert.Equal(t, model.MatchedRow{Code: "GB 3096-2008", Title: "声环境质量标准", Status: "现行"}, ds.Matched[0])
	assert.Empty(t, ds.Failed)
	assert.Empty(t, ds.Errors)
	assert.Empty(t, ds.DateEmpty)
}

func TestLoad_RequiredSheetMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", model.SheetMatched))
	require.NoError(t, f.SetSheetRow(model.SheetMatched, "A1", &[]interface{}{"标准编号"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrSheetMissing)
}

func TestLoad_FileMissing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "none.xlsx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCodes(t *testing.T) {
	t.Parallel()

	ds := sampleDataset()
	assert.Equal(t, []string{"GB3838-2002", "HJ91.1-2019", "GB8978-1988"}, ds.MatchedCodes())
	assert.Equal(t, []string{"GB9999-2099"}, ds.FailedCodes())

	known := ds.KnownCodes()
	assert.Len(t, known, 3)
	assert.Contains(t, known, "HJ91.1-2019")

	title, ok := ds.TitleOf("GB3838-2002")
	assert.True(t, ok)
	assert.Equal(t, "地表水环境质量标准", title)
	_, ok = ds.TitleOf("GB1-1")
	assert.False(t, ok)
}

func TestMerge_AppendsAndKeepsFirst(t *testing.T) {
	t.Parallel()

	ds := sampleDataset()
	ds.Merge(&acquisition.Tables{
		Matched: []model.MatchedRow{
			{Code: "GB 3838-2002", Title: "重复", Added: "10_15"},
			{Code: "GB 3096-2008", Title: "声环境质量标准", Added: "10_15"},
		},
		Failed: []model.FailedRow{{Code: "GB9999-2099", Message: "无搜索结果", Added: "10_15"}},
	})

	require.Len(t, ds.Matched, 4)
	assert.Equal(t, "地表水环境质量标准", ds.Matched[0].Title)
	assert.Equal(t, "GB 3096-2008", ds.Matched[3].Code)
	require.Len(t, ds.Failed, 1)
	assert.Equal(t, "09_01", ds.Failed[0].Added)
}

func TestFromTables(t *testing.T) {
	t.Parallel()

	ds := FromTables(&acquisition.Tables{
		Matched: []model.MatchedRow{{Code: "A 1"}, {Code: "A 1"}},
	})
	assert.Len(t, ds.Matched, 1)
	assert.Empty(t, ds.Failed)
}

func TestArchivePath_NextFreeIndex(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "log_excel")
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.Local)

	p1, err := ArchivePath(dir, "standard_details", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "standard_details_10_15_1.xlsx"), p1)

	require.NoError(t, os.WriteFile(p1, nil, 0o644))
	p2, err := ArchivePath(dir, "standard_details", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "standard_details_10_15_2.xlsx"), p2)
}
