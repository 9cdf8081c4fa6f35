// Package retry 固定间隔、有限次数的重试策略，检索请求、详情请求和单个编号的整体处理共用。
package retry

import (
	"context"
	"time"
)

// SleepFunc 等待函数，测试中可替换为空操作
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy 重试策略
type Policy struct {
	MaxAttempts int           // 总尝试次数（含第一次）
	Pause       time.Duration // 两次尝试之间的固定间隔
	Sleep       SleepFunc     // 为空时使用 Sleep
}

// Attempts 有效尝试次数，至少 1 次
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Sleep 阻塞等待 d，ctx 取消时提前返回
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoSleep 不等待
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Do 执行 op，直到 retryable 返回 false 或次数用尽。
// 用尽时返回最后一次的结果和错误；attempt 从 1 开始。
func Do[T any](ctx context.Context, p Policy, op func(attempt int) (T, error), retryable func(T, error) bool) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var (
		v   T
		err error
	)
	n := p.Attempts()
	for attempt := 1; attempt <= n; attempt++ {
		v, err = op(attempt)
		if !retryable(v, err) || attempt == n {
			return v, err
		}
		if serr := sleep(ctx, p.Pause); serr != nil {
			return v, serr
		}
	}
	return v, err
}
