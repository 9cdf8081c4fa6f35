package acquisition

import (
	"github.com/peterjiatong/csres-standard-review/internal/model"
)

// Tables 一次运行累积的四张结果表，只由流水线追加
type Tables struct {
	Matched   []model.MatchedRow
	Failed    []model.FailedRow
	DateEmpty []model.DateEmptyRow
	Errors    []model.ErrorRow
}

// Record 把单个编号的处理结果写入对应的表
func (t *Tables) Record(o Outcome, added string) {
	switch o.Kind {
	case OutcomeSuccess:
		for _, h := range o.Hits {
			t.Matched = append(t.Matched, model.MatchedRowFromHit(h, added))
			if h.MissingDates() {
				t.DateEmpty = append(t.DateEmpty, model.DateEmptyRow{Code: h.Code, DetailHTML: h.DetailHTML, Added: added})
			}
		}
	case OutcomeNoResult, OutcomeTooMany:
		t.Failed = append(t.Failed, model.FailedRow{Code: o.Code, Message: o.Message, Added: added})
	default:
		t.Errors = append(t.Errors, model.ErrorRow{
			Code:           o.Code,
			Message:        o.Message,
			RequestHeader:  o.RequestHeader,
			ResponseHeader: o.ResponseHeader,
			Added:          added,
		})
	}
}

// Dedup 每张表按编号去重，保留首次出现的行
func (t *Tables) Dedup() {
	t.Matched = dedupBy(t.Matched, func(r model.MatchedRow) string { return r.Code })
	t.Failed = dedupBy(t.Failed, func(r model.FailedRow) string { return r.Code })
	t.DateEmpty = dedupBy(t.DateEmpty, func(r model.DateEmptyRow) string { return r.Code })
	t.Errors = dedupBy(t.Errors, func(r model.ErrorRow) string { return r.Code })
}

// Counts 各表行数
func (t *Tables) Counts() Counts {
	return Counts{
		Matched:   len(t.Matched),
		Failed:    len(t.Failed),
		DateEmpty: len(t.DateEmpty),
		Errors:    len(t.Errors),
	}
}

// Counts 结果表行数统计
type Counts struct {
	Matched   int `json:"matched"`
	Failed    int `json:"failed"`
	DateEmpty int `json:"dateEmpty"`
	Errors    int `json:"errors"`
}

func dedupBy[T any](rows []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
