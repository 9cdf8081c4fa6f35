package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/api"
	"github.com/peterjiatong/csres-standard-review/internal/checker"
	"github.com/peterjiatong/csres-standard-review/internal/config"
	"github.com/peterjiatong/csres-standard-review/internal/server"
	"github.com/peterjiatong/csres-standard-review/internal/util"
)

func runUpdate(cmd *cobra.Command, _ []string) error {
	return runWorkflow(cmd.OutOrStdout(), updateLogStem, func(a *app, c *checker.Coordinator) (<-chan checker.ProgressEvent, func()) {
		ctx, cancel := signalContext()
		return c.Refresh(ctx, runOptions(a.cfg, a.cfg.Paths.UpdateStem)), cancel
	})
}

func runCheck(cmd *cobra.Command, _ []string) error {
	return runWorkflow(cmd.OutOrStdout(), checkLogStem, func(a *app, c *checker.Coordinator) (<-chan checker.ProgressEvent, func()) {
		ctx, cancel := signalContext()
		return c.Check(ctx, runOptions(a.cfg, a.cfg.Paths.CheckStem)), cancel
	})
}

type startFunc func(a *app, c *checker.Coordinator) (<-chan checker.ProgressEvent, func())

func runWorkflow(out io.Writer, logStem string, start startFunc) error {
	a, err := setup(logStem)
	if err != nil {
		return err
	}
	defer a.close()

	if a.logPath != "" {
		fmt.Fprintf(out, "日志文件: %s\n", a.logPath)
	}

	c, err := a.coordinator()
	if err != nil {
		return err
	}

	events, cancel := start(a, c)
	defer cancel()

	began := time.Now()
	summary, err := printProgress(out, events)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "程序运行时间: %s\n", time.Since(began).Round(time.Second))

	if openResult && summary != nil && summary.ReportDir != "" {
		if err := util.Open(summary.ReportDir); err != nil {
			a.log.Warn("failed to open report dir", zap.String("dir", summary.ReportDir), zap.Error(err))
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(serveLogStem)
	if err != nil {
		return err
	}
	defer a.close()

	if servePort > 0 {
		a.cfg.Server.Port = servePort
	}

	c, err := a.coordinator()
	if err != nil {
		return err
	}
	srv := server.NewServer(a.cfg, a.store, a.log.Named("http"),
		api.WithRunner(c, runOptions(a.cfg, a.cfg.Paths.UpdateStem), runOptions(a.cfg, a.cfg.Paths.CheckStem)))

	out := cmd.OutOrStdout()
	url := fmt.Sprintf("http://localhost:%d/api/status", a.cfg.Server.Port)
	fmt.Fprintf(out, "服务启动中，监听端口 %d ...\n", a.cfg.Server.Port)
	fmt.Fprintf(out, "标准库: %s\n", a.cfg.DestPath())
	if openResult {
		if err := util.Open(url); err != nil {
			fmt.Fprintf(out, "无法自动打开浏览器，请手动访问: %s\n", url)
		}
	}
	fmt.Fprintln(out, "按 Ctrl+C 停止服务...")

	ctx, cancel := signalContext()
	defer cancel()
	if err := srv.Run(ctx, fmt.Sprintf(":%d", a.cfg.Server.Port)); err != nil {
		return fmt.Errorf("服务启动失败: %w", err)
	}
	fmt.Fprintln(out, "服务已停止")
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !forceWrite {
		return fmt.Errorf("%s 已存在，使用 --force 覆盖", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "已写出默认配置: %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, info, err := config.LoadConfigWithInfo(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if info.FromFile {
		fmt.Fprintf(out, "# 配置文件: %s\n", info.Path)
	} else {
		fmt.Fprintf(out, "# 配置文件 %s 不存在，使用默认配置\n", info.Path)
	}
	for _, f := range info.EnvFiles {
		fmt.Fprintf(out, "# 已读取: %s\n", f)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	_, err = out.Write(buf.Bytes())
	return err
}
