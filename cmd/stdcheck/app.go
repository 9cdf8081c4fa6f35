package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/acquisition"
	"github.com/peterjiatong/csres-standard-review/internal/checker"
	"github.com/peterjiatong/csres-standard-review/internal/config"
	"github.com/peterjiatong/csres-standard-review/internal/logging"
	"github.com/peterjiatong/csres-standard-review/internal/lookup"
	"github.com/peterjiatong/csres-standard-review/internal/retry"
	"github.com/peterjiatong/csres-standard-review/internal/store"
)

// 日志文件前缀
const (
	updateLogStem = "update_std_log"
	checkLogStem  = "check_report_log"
	serveLogStem  = "serve_log"
)

// app 一次命令运行所需的全部依赖
type app struct {
	cfg     *config.AppConfig
	info    config.LoadConfigInfo
	log     *zap.Logger
	logPath string
	store   *store.Store
}

func setup(logStem string) (*app, error) {
	cfg, info, err := config.LoadConfigWithInfo(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if err := config.EnsureDirs(cfg); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	log, logPath, err := logging.New(logging.Options{
		Dir:     cfg.Resolve(cfg.Paths.LogDir),
		Stem:    logStem,
		Level:   cfg.Logging.Level,
		Verbose: verbose,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("打开运行记录失败: %w", err)
	}

	log.Info("程序开始运行",
		zap.String("config", info.Path),
		zap.Bool("config_from_file", info.FromFile),
		zap.Strings("env_files", info.EnvFiles),
		zap.String("source", cfg.SourcePath()),
		zap.String("dest", cfg.DestPath()),
	)
	if cfg.Credentials.Username == "" || cfg.Credentials.Password == "" {
		log.Warn("csres credentials not set, detail pages may be denied",
			zap.String("username_env", config.EnvUsername), zap.String("password_env", config.EnvPassword))
	}

	return &app{cfg: cfg, info: info, log: log, logPath: logPath, store: st}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// coordinator 创建联网检索的运行协调器
func (a *app) coordinator() (*checker.Coordinator, error) {
	client, err := lookup.NewClient(lookupConfig(a.cfg), a.log.Named("lookup"))
	if err != nil {
		return nil, err
	}
	return checker.NewCoordinator(client, a.store, acquisitionConfig(a.cfg), a.log), nil
}

func lookupConfig(cfg *config.AppConfig) lookup.Config {
	l := cfg.Lookup
	return lookup.Config{
		BaseURL:        l.BaseURL,
		SearchPath:     l.SearchPath,
		DeniedURL:      l.DeniedURL,
		Username:       cfg.Credentials.Username,
		Password:       cfg.Credentials.Password,
		DialTimeout:    l.DialTimeout.Duration,
		RequestTimeout: l.RequestTimeout.Duration,
		ProbeTimeout:   l.ProbeTimeout.Duration,
		MaxResults:     l.MaxResults,
		SearchRetry:    retry.Policy{MaxAttempts: l.SearchAttempts, Pause: l.SearchPause.Duration},
		DetailRetry:    retry.Policy{MaxAttempts: l.DetailAttempts, Pause: l.DetailPause.Duration},
	}
}

func acquisitionConfig(cfg *config.AppConfig) acquisition.Config {
	acq := acquisition.DefaultConfig()
	acq.Outer = retry.Policy{MaxAttempts: cfg.Acquisition.Attempts, Pause: cfg.Acquisition.Pause.Duration}
	acq.CodePause = cfg.Acquisition.CodePause.Duration
	return acq
}

// runOptions 由配置得到运行选项；reportStem 区分 update / check 的结果目录
func runOptions(cfg *config.AppConfig, reportStem string) checker.Options {
	p := cfg.Paths
	return checker.Options{
		Source:      cfg.SourcePath(),
		Dest:        cfg.DestPath(),
		ReportsDir:  cfg.Resolve(p.ReportsDir),
		ArchiveDir:  cfg.Resolve(p.ArchiveDir),
		ArchiveStem: p.ArchiveStem,
		OutputDir:   cfg.Resolve(p.OutputDir),
		ReportStem:  reportStem,
	}
}

// signalContext Ctrl+C 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
