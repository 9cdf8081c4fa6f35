// Package logging 构建 zap 日志：每次运行一个日志文件 log/<stem>_<MM_DD>_<n>.txt，可选同时输出到 stderr。
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志选项
type Options struct {
	Dir     string // 日志目录，为空时只输出到 stderr
	Stem    string // 文件名前缀，如 update_std_log
	Level   string // debug/info/warn/error
	Verbose bool   // 强制 debug
	Console bool   // 同时输出到 stderr
	Now     func() time.Time
}

// New 创建日志，返回日志文件路径（未写文件时为空）
func New(opts Options) (*zap.Logger, string, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return nil, "", fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	enabler := zap.NewAtomicLevelAt(level)

	var (
		cores []zapcore.Core
		path  string
	)

	if opts.Dir != "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		p, err := NextPath(opts.Dir, opts.Stem, ".txt", now())
		if err != nil {
			return nil, "", err
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open log file: %w", err)
		}
		path = p

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), enabler))
	}

	if opts.Console || opts.Dir == "" {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), enabler))
	}

	return zap.New(zapcore.NewTee(cores...)), path, nil
}

// NextPath 当天下一个可用的文件路径 <dir>/<stem>_<MM_DD>_<n><ext>，n 从 1 开始
func NextPath(dir, stem, ext string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}
	day := now.Format("01_02")
	for n := 1; ; n++ {
		p := filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", stem, day, n, ext))
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return p, nil
		} else if err != nil {
			return "", err
		}
	}
}
