package checker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/acquisition"
	"github.com/peterjiatong/csres-standard-review/internal/dataset"
	"github.com/peterjiatong/csres-standard-review/internal/docx"
	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
	"github.com/peterjiatong/csres-standard-review/internal/report"
	"github.com/peterjiatong/csres-standard-review/internal/resolver"
	"github.com/peterjiatong/csres-standard-review/internal/store"
)

// DocumentSummary 一份报告的检查统计（document 事件数据）
type DocumentSummary struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
	Problems int    `json:"problems"`
}

type extracted struct {
	doc      parser.Document
	mentions []model.Mention
}

// RunCheck 检查报告：抽取全部引用，先补充检索标准库未收录的编号并写回标准库，
// 再用更新后的标准库逐条检查，写出检查报告和新增标准报告。
func (c *Coordinator) RunCheck(ctx context.Context, opts Options, emit func(ProgressEvent)) (*Summary, error) {
	r := c.begin(store.KindCheck, "开始检查报告中的标准", opts, emit)

	ds, err := dataset.Load(opts.Source)
	if err != nil {
		return r.fail(fmt.Errorf("读取标准库失败: %w", err))
	}
	known := ds.KnownCodes()
	reg := BuildRegistry(ds, r.log)

	docs, err := r.extractAll(opts.ReportsDir)
	if err != nil {
		return r.fail(err)
	}

	var all []model.Mention
	for _, d := range docs {
		all = append(all, d.mentions...)
	}
	codes := parser.UniqueCodes(all)
	var work []string
	for _, code := range codes {
		if !reg.Has(code) {
			work = append(work, code)
		}
	}
	r.info(fmt.Sprintf("共 %d 份报告，%d 个不同编号，待检索 %d 个", len(docs), len(codes), len(work)),
		map[string]int{"documents": len(docs), "codes": len(codes), "work": len(work)})

	if len(work) > 0 {
		tables, err := r.acquire(ctx, acquisition.Batch{Label: "new", Codes: work})
		if err != nil {
			return r.fail(err)
		}
		ds.Merge(tables)
	}
	r.summary.Tables = ds.Counts()
	if err := r.saveDataset(ds); err != nil {
		return r.fail(err)
	}

	res := resolver.New(BuildRegistry(ds, r.log))
	dir, err := report.ReportDir(opts.OutputDir, opts.ReportStem, c.now())
	if err != nil {
		return r.fail(err)
	}
	r.summary.ReportDir = dir

	if err := r.writeCheckReport(filepath.Join(dir, report.CheckReportFile), docs, res, ds); err != nil {
		return r.fail(err)
	}
	if err := r.newStandardsReport(ds, known, dir); err != nil {
		return r.fail(err)
	}

	return r.done(fmt.Sprintf("检查完成：%d 份报告，%d 条引用，%d 条有问题", r.summary.Documents, r.summary.Mentions, r.summary.Problems))
}

// extractAll 读取目录下全部 .docx 并抽取引用；无法读取的文件记警告后跳过
func (r *run) extractAll(dir string) ([]extracted, error) {
	paths, err := docx.List(dir)
	if err != nil {
		return nil, err
	}

	out := make([]extracted, 0, len(paths))
	for _, p := range paths {
		doc, err := docx.ReadFile(p)
		if err != nil {
			r.log.Warn("skip unreadable report", zap.String("path", p), zap.Error(err))
			r.event(EventInfo, fmt.Sprintf("跳过无法读取的报告 %s: %v", filepath.Base(p), err), map[string]string{"path": p})
			continue
		}
		mentions := r.c.extractor.Extract(doc)
		r.log.Debug("extracted mentions", zap.String("document", doc.Name), zap.Int("mentions", len(mentions)))
		out = append(out, extracted{doc: doc, mentions: mentions})
	}
	return out, nil
}

func (r *run) writeCheckReport(path string, docs []extracted, res *resolver.Resolver, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := report.NewCheckWriter(f, ds.TitleOf)
	for _, d := range docs {
		verdicts := res.CheckAll(d.mentions)
		problems := 0
		for _, v := range verdicts {
			if !v.Result.OK() {
				problems++
			}
		}
		if err := cw.WriteDocument(report.DocumentResult{Name: d.doc.Name, Verdicts: verdicts}); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		r.summary.Documents++
		r.summary.Mentions += len(verdicts)
		r.summary.Problems += problems

		msg := strings.TrimSpace(report.Header(d.doc.Name, len(verdicts)))
		r.log.Info("document checked", zap.String("document", d.doc.Name), zap.Int("mentions", len(verdicts)), zap.Int("problems", problems))
		r.event(EventDocument, msg, DocumentSummary{Name: d.doc.Name, Mentions: len(verdicts), Problems: problems})
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.info(fmt.Sprintf("结果已写入 %s", path), map[string]string{"path": path})
	return nil
}
