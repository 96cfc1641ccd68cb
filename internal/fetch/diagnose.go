package fetch

import (
	"fmt"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// Diagnose 按状态码给出可操作的提示（用于永久失败的诊断信号）。
func Diagnose(status int, id domain.WorkID) string {
	switch status {
	case 0:
		return fmt.Sprintf("作品 %s 无法访问：请求未得到响应（可能被浏览器插件或代理拦截）", id)
	case 400:
		return fmt.Sprintf("作品 %s 无法访问：HTTP 400（作品可能已被删除，或需要登录才能查看）", id)
	case 403:
		return fmt.Sprintf("作品 %s 无法访问：HTTP 403（无权访问，可能仅限关注者或已设为私密）", id)
	case 404:
		return fmt.Sprintf("作品 %s 无法访问：HTTP 404（作品不存在或已被删除）", id)
	case 429:
		return fmt.Sprintf("作品 %s 无法访问：HTTP 429（触发限流）。建议降低并发或调低 rate_per_second", id)
	default:
		return fmt.Sprintf("作品 %s 无法访问：HTTP %d", id, status)
	}
}
