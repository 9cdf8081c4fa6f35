package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/peterjiatong/csres-standard-review/internal/checker"
)

// printProgress 把进度事件逐行打印到终端，返回 done 事件携带的结果
func printProgress(out io.Writer, events <-chan checker.ProgressEvent) (*checker.Summary, error) {
	var (
		summary *checker.Summary
		runErr  error
	)
	for e := range events {
		switch e.Type {
		case checker.EventCodeStart:
			fmt.Fprintf(out, "正在处理 %s\n", e.Message)
		case checker.EventCodeDone:
			fmt.Fprintf(out, "  %s\n", e.Message)
		case checker.EventDocument:
			fmt.Fprintf(out, "%s\n", e.Message)
		case checker.EventDone:
			summary, _ = e.Data.(*checker.Summary)
			fmt.Fprintln(out, e.Message)
			printSummary(out, summary)
		case checker.EventError:
			runErr = errors.New(e.Message)
		default:
			fmt.Fprintln(out, e.Message)
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if summary == nil {
		// 通道在 done 之前关闭：ctx 已取消
		return nil, errors.New("运行被中断")
	}
	return summary, nil
}

func printSummary(out io.Writer, s *checker.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintf(out, "有搜索结果: %d, 无搜索结果或结果过多: %d, 日期为空: %d, 出错: %d\n",
		s.Tables.Matched, s.Tables.Failed, s.Tables.DateEmpty, s.Tables.Errors)
	if s.NewStandards > 0 {
		fmt.Fprintf(out, "新增标准: %d\n", s.NewStandards)
	}
	if s.ReportDir != "" {
		fmt.Fprintf(out, "结果目录: %s\n", s.ReportDir)
	}
}
