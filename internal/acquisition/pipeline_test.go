package acquisition

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterjiatong/csres-standard-review/internal/lookup"
	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/retry"
)

type lookupResult struct {
	hits []model.LookupHit
	err  error
}

// fakeSource 按编号返回预设结果序列，最后一个结果重复使用
type fakeSource struct {
	probeErr error
	results  map[string][]lookupResult
	calls    map[string]int
	order    []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{results: map[string][]lookupResult{}, calls: map[string]int{}}
}

func (f *fakeSource) Probe(context.Context) error { return f.probeErr }

func (f *fakeSource) Lookup(_ context.Context, code string, _ bool) ([]model.LookupHit, error) {
	f.order = append(f.order, code)
	seq := f.results[code]
	n := f.calls[code]
	f.calls[code] = n + 1
	if len(seq) == 0 {
		return nil, &lookup.CrawlError{Kind: lookup.KindNoResult, Code: code, Message: lookup.MsgNoResult}
	}
	if n >= len(seq) {
		n = len(seq) - 1
	}
	return seq[n].hits, seq[n].err
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local) }

func newTestPipeline(src lookup.Source, pauses *[]time.Duration) *Pipeline {
	cfg := DefaultConfig()
	cfg.Now = fixedNow
	cfg.Sleep = func(_ context.Context, d time.Duration) error {
		if pauses != nil {
			*pauses = append(*pauses, d)
		}
		return nil
	}
	return New(src, cfg, nil)
}

func hit(code, title string) model.LookupHit {
	return model.LookupHit{Code: code, Title: title, Status: model.StatusCurrent, PublishDate: "2002-04-28", ImplementDate: "2002-06-01"}
}

func TestProcessCode_SuccessAppendsHits(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	noDates := model.LookupHit{Code: "GB 3838-2002E", Title: "Environmental quality standards", Status: model.StatusCurrent, DetailHTML: "<html/>"}
	src.results["GB3838-2002"] = []lookupResult{{hits: []model.LookupHit{hit("GB 3838-2002", "地表水环境质量标准"), noDates}}}

	p := newTestPipeline(src, nil)
	o := p.ProcessCode(context.Background(), "GB3838-2002", false)

	assert.Equal(t, OutcomeSuccess, o.Kind)
	tb := p.Tables()
	require.Len(t, tb.Matched, 2)
	assert.Equal(t, "10_15", tb.Matched[0].Added)
	assert.Equal(t, "地表水环境质量标准", tb.Matched[0].Title)
	require.Len(t, tb.DateEmpty, 1)
	assert.Equal(t, model.DateEmptyRow{Code: "GB 3838-2002E", DetailHTML: "<html/>", Added: "10_15"}, tb.DateEmpty[0])
	assert.Empty(t, tb.Failed)
	assert.Empty(t, tb.Errors)
}

func TestProcessCode_NoResultAndTooManyAreNotRetried(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.results["GB9999-2099"] = []lookupResult{{err: &lookup.CrawlError{Kind: lookup.KindNoResult, Code: "GB9999-2099", Message: lookup.MsgNoResult}}}
	src.results["GB"] = []lookupResult{{err: &lookup.CrawlError{Kind: lookup.KindTooMany, Code: "GB", Message: lookup.MsgTooMany}}}

	var pauses []time.Duration
	p := newTestPipeline(src, &pauses)

	assert.Equal(t, OutcomeNoResult, p.ProcessCode(context.Background(), "GB9999-2099", false).Kind)
	assert.Equal(t, OutcomeTooMany, p.ProcessCode(context.Background(), "GB", false).Kind)

	assert.Equal(t, 1, src.calls["GB9999-2099"])
	assert.Equal(t, 1, src.calls["GB"])
	assert.Empty(t, pauses)
	assert.Equal(t, []model.FailedRow{
		{Code: "GB9999-2099", Message: lookup.MsgNoResult, Added: "10_15"},
		{Code: "GB", Message: lookup.MsgTooMany, Added: "10_15"},
	}, p.Tables().Failed)
}

func TestProcessCode_AccessDeniedRetriedThenRecordedWithHeaders(t *testing.T) {
	t.Parallel()

	req := http.Header{"User-Agent": []string{"ua"}}
	resp := http.Header{"Server": []string{"nginx"}}
	src := newFakeSource()
	src.results["GB3838-2002"] = []lookupResult{{err: &lookup.CrawlError{
		Kind: lookup.KindAccessDenied, Code: "GB3838-2002", Message: lookup.MsgAccessDenied,
		RequestHeader: req, ResponseHeader: resp,
	}}}

	var pauses []time.Duration
	p := newTestPipeline(src, &pauses)
	o := p.ProcessCode(context.Background(), "GB3838-2002", false)

	assert.Equal(t, OutcomeAccessDenied, o.Kind)
	assert.Equal(t, 10, src.calls["GB3838-2002"])
	assert.Equal(t, 10, o.Attempts)
	require.Len(t, pauses, 9)
	assert.Equal(t, 5*time.Second, pauses[0])

	require.Len(t, p.Tables().Errors, 1)
	row := p.Tables().Errors[0]
	assert.Equal(t, lookup.MsgAccessDenied, row.Message)
	assert.Equal(t, `{"User-Agent":"ua"}`, row.RequestHeader)
	assert.Equal(t, `{"Server":"nginx"}`, row.ResponseHeader)
}

func TestProcessCode_TransientFailureRecovers(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.results["GB3096-2008"] = []lookupResult{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
		{hits: []model.LookupHit{hit("GB 3096-2008", "声环境质量标准")}},
	}

	p := newTestPipeline(src, nil)
	o := p.ProcessCode(context.Background(), "GB3096-2008", false)

	assert.Equal(t, OutcomeSuccess, o.Kind)
	assert.Equal(t, 3, o.Attempts)
	assert.Len(t, p.Tables().Matched, 1)
	assert.Empty(t, p.Tables().Errors)
}

func TestProcessCode_UnexpectedFailureExhausted(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.results["GB3096-2008"] = []lookupResult{{err: errors.New("timeout")}}

	p := newTestPipeline(src, nil)
	o := p.ProcessCode(context.Background(), "GB3096-2008", false)

	assert.Equal(t, OutcomeHardError, o.Kind)
	require.Len(t, p.Tables().Errors, 1)
	assert.Equal(t, model.ErrorRow{Code: "GB3096-2008", Message: "timeout", RequestHeader: "{}", ResponseHeader: "{}", Added: "10_15"}, p.Tables().Errors[0])
}

func TestRun_ProbeFailureAbortsBeforeAnyCode(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.probeErr = lookup.ErrProbeTimeout

	p := newTestPipeline(src, nil)
	err := p.Run(context.Background(), nil, Batch{Codes: []string{"GB3838-2002"}})

	assert.ErrorIs(t, err, lookup.ErrProbeTimeout)
	assert.Empty(t, src.order)
}

func TestRun_SequentialWithPauseBetweenCodes(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.results["A1"] = []lookupResult{{hits: []model.LookupHit{hit("A 1", "甲")}}}
	src.results["B2"] = []lookupResult{{hits: []model.LookupHit{hit("B 2", "乙")}}}

	var (
		pauses  []time.Duration
		seen    []string
		started []string
	)
	p := newTestPipeline(src, &pauses)
	p.OnCodeStart(func(batch string, i, n int, code string) {
		started = append(started, code)
	})
	err := p.Run(context.Background(), func(batch string, i, n int, o Outcome) {
		seen = append(seen, batch+":"+o.Code+":"+o.Kind.String())
	},
		Batch{Label: "matched", Codes: []string{"A1", "B2"}},
		Batch{Label: "failed", Codes: []string{"C3"}, KnownBad: true},
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2", "C3"}, src.order)
	assert.Equal(t, src.order, started)
	assert.Equal(t, []string{"matched:A1:success", "matched:B2:success", "failed:C3:no_result"}, seen)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, pauses)
	assert.Equal(t, Counts{Matched: 2, Failed: 1}, p.Tables().Counts())
}

func TestTables_DedupFirstSeenWins(t *testing.T) {
	t.Parallel()

	tb := &Tables{
		Matched: []model.MatchedRow{{Code: "A", Title: "first"}, {Code: "B"}, {Code: "A", Title: "second"}},
		Failed:  []model.FailedRow{{Code: "X"}, {Code: "X"}},
		Errors:  []model.ErrorRow{{Code: "E", Message: "1"}, {Code: "E", Message: "2"}},
	}
	tb.Dedup()

	require.Len(t, tb.Matched, 2)
	assert.Equal(t, "first", tb.Matched[0].Title)
	assert.Len(t, tb.Failed, 1)
	assert.Equal(t, "1", tb.Errors[0].Message)
}

func TestOuterPolicyDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, retry.Policy{MaxAttempts: 10, Pause: 5 * time.Second}, cfg.Outer)
	assert.Equal(t, time.Second, cfg.CodePause)
}
