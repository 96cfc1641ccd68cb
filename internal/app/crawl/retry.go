package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/fetch"
)

const DefaultRetryDelay = 2 * time.Second

// Scheduler 是延迟任务调度器；ctx 即取消令牌，取消后 Delay 立即返回 ctx.Err()。
type Scheduler interface {
	Delay(ctx context.Context, d time.Duration) error
}

// TimerScheduler 用真实计时器等待。
type TimerScheduler struct{}

func (TimerScheduler) Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DropError 表示作品被永久丢弃（远端给出了明确状态，或重试次数耗尽）。
type DropError struct {
	Failure domain.ItemFailure
	Err     error
}

func (e *DropError) Error() string {
	return fmt.Sprintf("丢弃作品 %s：%s", e.Failure.ID, e.Failure.Message)
}

func (e *DropError) Unwrap() error { return e.Err }

// RetryController 决定一次失败是重试还是丢弃。
//
// - 有状态码（*fetch.StatusError）：丢弃，并给出按状态码区分的诊断
// - 无状态码：Delay 之后原地重试同一个 id；MaxRetries<=0 表示不设上限
// - ctx 被取消：返回 ctx.Err()，由上层按“中止”处理（不计入丢弃）
type RetryController struct {
	Delay      time.Duration
	MaxRetries int
	Scheduler  Scheduler

	// OnRetry 在每次安排重试前调用（attempt 从 1 开始）。
	OnRetry func(id domain.WorkID, attempt int, delay time.Duration, err error)
}

func (rc RetryController) drop(id domain.WorkID, status int, msg string, err error) error {
	return &DropError{
		Failure: domain.ItemFailure{ID: id, StatusCode: status, Message: msg},
		Err:     err,
	}
}

// attempt 执行 fn，直到成功、被丢弃或被中止。
func attempt[T any](ctx context.Context, rc RetryController, id domain.WorkID, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	sched := rc.Scheduler
	if sched == nil {
		sched = TimerScheduler{}
	}

	for n := 1; ; n++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		status, permanent := fetch.Classify(err)
		if permanent {
			return zero, rc.drop(id, status, fetch.Diagnose(status, id), err)
		}
		if rc.MaxRetries > 0 && n > rc.MaxRetries {
			return zero, rc.drop(id, 0, fmt.Sprintf("重试 %d 次后仍失败，放弃：%v", rc.MaxRetries, err), err)
		}

		if rc.OnRetry != nil {
			rc.OnRetry(id, n, rc.Delay, err)
		}
		if err := sched.Delay(ctx, rc.Delay); err != nil {
			return zero, err
		}
	}
}
