package fetch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// StatusError 表示远端返回了明确的状态（拒绝访问/不存在/限流等）。
// 该作品不会被重试，由上层丢弃并输出诊断信息。
type StatusError struct {
	ID         domain.WorkID
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "status error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// TransientError 表示没有可用状态的失败（超时、连接被重置、读 body 中断）。
type TransientError struct {
	ID  domain.WorkID
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient failure"
	}
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// Classify 把抓取错误归类为永久或瞬时。
//
// - *StatusError：permanent=true，status 为其状态码
// - 其它任何错误：permanent=false，status=0
func Classify(err error) (status int, permanent bool) {
	if err == nil {
		return 0, false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
