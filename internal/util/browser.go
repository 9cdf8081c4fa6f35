package util

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// launcher 一条打开命令
type launcher struct {
	name string
	args []string
}

// launchers 按平台给出依次尝试的打开命令
func launchers(goos, target string) []launcher {
	switch goos {
	case "windows":
		// rundll32 调用 url.dll，Windows 7 上比 cmd /c start 稳定
		return []launcher{
			{"rundll32", []string{"url.dll,FileProtocolHandler", target}},
			{"explorer", []string{target}},
		}
	case "darwin":
		return []launcher{{"open", []string{target}}}
	default:
		return []launcher{
			{"xdg-open", []string{target}},
			{"gio", []string{"open", target}},
			{"sensible-browser", []string{target}},
		}
	}
}

// resolveTarget 网址原样返回，本地路径转为绝对路径
func resolveTarget(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target
	}
	return abs
}

// Open 用系统默认程序打开结果目录或服务地址，依次尝试本平台的打开命令
func Open(target string) error {
	target = resolveTarget(target)

	var errs []error
	for _, l := range launchers(runtime.GOOS, target) {
		cmd := exec.Command(l.name, l.args...)
		if err := cmd.Start(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.name, err))
			continue
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
	return fmt.Errorf("failed to open %s: %w", target, errors.Join(errs...))
}
