// Package dataset 标准库工作簿（xlsx）读写。
//
// 工作簿固定四张表：有搜索结果、无搜索结果或结果过多、报错、无详细日期，后两张只用于排查。
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/peterjiatong/csres-standard-review/internal/acquisition"
	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
)

// ErrSheetMissing 工作簿缺少必需的表
var ErrSheetMissing = errors.New("dataset: required sheet missing")

const (
	minColWidth = 10
	maxColWidth = 255 // excelize 列宽上限
)

var (
	matchedHeaders = []string{
		model.ColCode, model.ColTitle, model.ColStatus, model.ColPublishDate,
		model.ColImplementDate, model.ColWithdrawDate, model.ColReplacement, model.ColAdded,
	}
	failedHeaders    = []string{model.ColCode, model.ColErrorMessage, model.ColAdded}
	errorHeaders     = []string{model.ColCode, model.ColErrorMessage, model.ColRequestHeader, model.ColRespHeader, model.ColAdded}
	dateEmptyHeaders = []string{model.ColCode, model.ColDetailHTML, model.ColAdded}
)

// Dataset 标准库全部数据，行顺序即工作簿顺序
type Dataset struct {
	Matched   []model.MatchedRow
	Failed    []model.FailedRow
	DateEmpty []model.DateEmptyRow
	Errors    []model.ErrorRow
}

// Load 读取标准库工作簿。前两张表必须存在，排查用的两张表缺失时视为空。
func Load(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	ds := &Dataset{}

	rows, err := sheetRows(f, model.SheetMatched, true)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		ds.Matched = append(ds.Matched, model.MatchedRow{
			Code:          r.get(model.ColCode),
			Title:         r.get(model.ColTitle),
			Status:        r.get(model.ColStatus),
			PublishDate:   r.get(model.ColPublishDate),
			ImplementDate: r.get(model.ColImplementDate),
			WithdrawDate:  r.get(model.ColWithdrawDate),
			Replacement:   r.get(model.ColReplacement),
			Added:         r.get(model.ColAdded),
		})
	}

	if rows, err = sheetRows(f, model.SheetFailed, true); err != nil {
		return nil, err
	}
	for _, r := range rows {
		ds.Failed = append(ds.Failed, model.FailedRow{
			Code:    r.get(model.ColCode),
			Message: r.get(model.ColErrorMessage),
			Added:   r.get(model.ColAdded),
		})
	}

	if rows, err = sheetRows(f, model.SheetErrors, false); err != nil {
		return nil, err
	}
	for _, r := range rows {
		ds.Errors = append(ds.Errors, model.ErrorRow{
			Code:           r.get(model.ColCode),
			Message:        r.get(model.ColErrorMessage),
			RequestHeader:  r.get(model.ColRequestHeader),
			ResponseHeader: r.get(model.ColRespHeader),
			Added:          r.get(model.ColAdded),
		})
	}

	if rows, err = sheetRows(f, model.SheetDateEmpty, false); err != nil {
		return nil, err
	}
	for _, r := range rows {
		ds.DateEmpty = append(ds.DateEmpty, model.DateEmptyRow{
			Code:       r.get(model.ColCode),
			DetailHTML: r.get(model.ColDetailHTML),
			Added:      r.get(model.ColAdded),
		})
	}

	return ds, nil
}

// FromTables 用一次运行的结果表构建数据集（全量刷新）
func FromTables(t *acquisition.Tables) *Dataset {
	ds := &Dataset{}
	ds.Merge(t)
	return ds
}

// Merge 把一次运行的结果追加到已有行之后，并按编号去重（先出现的保留）
func (d *Dataset) Merge(t *acquisition.Tables) {
	if t != nil {
		d.Matched = append(d.Matched, t.Matched...)
		d.Failed = append(d.Failed, t.Failed...)
		d.DateEmpty = append(d.DateEmpty, t.DateEmpty...)
		d.Errors = append(d.Errors, t.Errors...)
	}
	merged := acquisition.Tables{Matched: d.Matched, Failed: d.Failed, DateEmpty: d.DateEmpty, Errors: d.Errors}
	merged.Dedup()
	d.Matched, d.Failed, d.DateEmpty, d.Errors = merged.Matched, merged.Failed, merged.DateEmpty, merged.Errors
}

// KnownCodes 已收录编号集合（“有搜索结果的标准”，去空白）
func (d *Dataset) KnownCodes() map[string]struct{} {
	known := make(map[string]struct{}, len(d.Matched))
	for _, c := range d.MatchedCodes() {
		known[c] = struct{}{}
	}
	return known
}

// Counts 各表行数
func (d *Dataset) Counts() acquisition.Counts {
	return acquisition.Counts{
		Matched:   len(d.Matched),
		Failed:    len(d.Failed),
		DateEmpty: len(d.DateEmpty),
		Errors:    len(d.Errors),
	}
}

// MatchedCodes “有搜索结果的标准”编号，去空白，保持表内顺序
func (d *Dataset) MatchedCodes() []string {
	out := make([]string, 0, len(d.Matched))
	for _, r := range d.Matched {
		if c := parser.StripSpaces(r.Code); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// FailedCodes “无搜索结果或搜索结果过多的标准”编号，去空白，保持表内顺序
func (d *Dataset) FailedCodes() []string {
	out := make([]string, 0, len(d.Failed))
	for _, r := range d.Failed {
		if c := parser.StripSpaces(r.Code); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// TitleOf 按编号（忽略空白）查“有搜索结果的标准”中的名称
func (d *Dataset) TitleOf(code string) (string, bool) {
	code = parser.StripSpaces(code)
	for _, r := range d.Matched {
		if parser.StripSpaces(r.Code) == code {
			return r.Title, true
		}
	}
	return "", false
}

// Save 写出四张表，表头加粗，列宽按最长内容自适应
func Save(path string, d *Dataset) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]string
	}{
		{model.SheetMatched, matchedHeaders, matchedValues(d.Matched)},
		{model.SheetFailed, failedHeaders, failedValues(d.Failed)},
		{model.SheetErrors, errorHeaders, errorValues(d.Errors)},
		{model.SheetDateEmpty, dateEmptyHeaders, dateEmptyValues(d.DateEmpty)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, s.headers, s.rows, bold); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", s.name, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save dataset %s: %w", path, err)
	}
	return nil
}

// ArchivePath 当天下一个可用的存档路径：<dir>/<stem>_<MM_DD>_<n>.xlsx，n 从 1 开始
func ArchivePath(dir, stem string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create dir %s: %w", dir, err)
	}
	day := now.Format("01_02")
	for n := 1; ; n++ {
		p := filepath.Join(dir, fmt.Sprintf("%s_%s_%d.xlsx", stem, day, n))
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return p, nil
		} else if err != nil {
			return "", err
		}
	}
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string, headerStyle int) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}

	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
		for j, v := range row {
			if n := utf8.RuneCountInString(v); n > widths[j] {
				widths[j] = n
			}
		}
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(columnWidth(w))); err != nil {
			return err
		}
	}
	return nil
}

// columnWidth max(最长内容+2, 10)，不超过 excelize 上限
func columnWidth(maxLen int) int {
	w := max(maxLen+2, minColWidth)
	return min(w, maxColWidth)
}

func setRow(f *excelize.File, sheet string, rowNo int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(sheet, cell, &row)
}

func matchedValues(rows []model.MatchedRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Code, r.Title, r.Status, r.PublishDate, r.ImplementDate, r.WithdrawDate, r.Replacement, r.Added})
	}
	return out
}

func failedValues(rows []model.FailedRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Code, r.Message, r.Added})
	}
	return out
}

func errorValues(rows []model.ErrorRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Code, r.Message, r.RequestHeader, r.ResponseHeader, r.Added})
	}
	return out
}

func dateEmptyValues(rows []model.DateEmptyRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Code, r.DetailHTML, r.Added})
	}
	return out
}

// sheetRow 一行数据，按表头名取值
type sheetRow struct {
	index  map[string]int
	values []string
}

func (r sheetRow) get(header string) string {
	i, ok := r.index[header]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

// sheetRows 读取表内数据行（跳过表头和编号为空的行）
func sheetRows(f *excelize.File, sheet string, required bool) ([]sheetRow, error) {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if required {
			return nil, fmt.Errorf("%w: %s", ErrSheetMissing, sheet)
		}
		return nil, nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	if _, ok := index[model.ColCode]; !ok {
		return nil, fmt.Errorf("sheet %s has no %s column", sheet, model.ColCode)
	}

	out := make([]sheetRow, 0, len(rows)-1)
	for _, values := range rows[1:] {
		r := sheetRow{index: index, values: values}
		if r.get(model.ColCode) == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
