package checker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterjiatong/csres-standard-review/internal/acquisition"
	"github.com/peterjiatong/csres-standard-review/internal/dataset"
	"github.com/peterjiatong/csres-standard-review/internal/report"
	"github.com/peterjiatong/csres-standard-review/internal/store"
)

// RunRefresh 全量刷新：逐个重新检索“有搜索结果”和“无搜索结果”两张表中的编号，
// 结果从空表开始累积，去重后写出标准库和存档，并生成新增标准报告。
// 探测失败或 ctx 取消时不写出任何文件。
func (c *Coordinator) RunRefresh(ctx context.Context, opts Options, emit func(ProgressEvent)) (*Summary, error) {
	r := c.begin(store.KindUpdate, "开始更新标准库", opts, emit)

	old, err := dataset.Load(opts.Source)
	if err != nil {
		return r.fail(fmt.Errorf("读取标准库失败: %w", err))
	}
	matched, failed := old.MatchedCodes(), old.FailedCodes()
	known := old.KnownCodes()
	r.info(fmt.Sprintf("原工作簿中“有搜索结果的标准”表长度为:%d, “无搜索结果或搜索结果过多的标准”表长度为:%d", len(matched), len(failed)),
		map[string]int{"matched": len(matched), "failed": len(failed)})

	tables, err := r.acquire(ctx,
		acquisition.Batch{Label: "matched", Codes: matched},
		acquisition.Batch{Label: "failed", Codes: failed, KnownBad: true},
	)
	if err != nil {
		return r.fail(err)
	}

	ds := dataset.FromTables(tables)
	r.summary.Tables = tables.Counts()
	if err := r.saveDataset(ds); err != nil {
		return r.fail(err)
	}

	if err := r.newStandardsReport(ds, known, ""); err != nil {
		return r.fail(err)
	}

	return r.done(fmt.Sprintf("更新完成：%d 个有搜索结果的标准，%d 个无搜索结果或搜索结果过多的标准，%d 个标准出错",
		r.summary.Tables.Matched, r.summary.Tables.Failed, r.summary.Tables.Errors))
}

// newStandardsReport 写出新增标准报告；dir 为空时仅在有新增时新建结果目录
func (r *run) newStandardsReport(ds *dataset.Dataset, known map[string]struct{}, dir string) error {
	fresh := report.NewStandards(ds.Matched, known)
	r.summary.NewStandards = len(fresh)
	if len(fresh) == 0 {
		r.info("本次运行没有新增的标准记录", nil)
		return nil
	}

	if dir == "" {
		var err error
		if dir, err = report.ReportDir(r.opts.OutputDir, r.opts.ReportStem, r.c.now()); err != nil {
			return err
		}
		r.summary.ReportDir = dir
	}

	path := filepath.Join(dir, report.NewStdReportFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := report.WriteNewStandards(f, ds.Matched, known, r.c.now()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.info(fmt.Sprintf("已生成新增标准报告: %s", path), map[string]interface{}{"path": path, "count": len(fresh)})
	return nil
}
