package fetch

import (
	"context"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// Client 是核心流程唯一依赖的抓取能力。
//
// 约束：
// - 不做重试、不做缓存决策（重试由 crawl 的 RetryController 统一控制）
// - 失败必须可区分：*StatusError 表示远端明确拒绝（永久），其余错误视为瞬时
// - 单次请求的超时由实现自己负责
type Client interface {
	FetchItem(ctx context.Context, id domain.WorkID) (domain.ItemDetail, error)
	FetchAnimationMeta(ctx context.Context, id domain.WorkID) (domain.AnimationMeta, error)
}
