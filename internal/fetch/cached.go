package fetch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

const (
	kindItem      = "item"
	kindAnimation = "ugoira_meta"
)

// Store 是详情缓存的最小读写接口（见 internal/infra/cache）。
type Store interface {
	Get(ctx context.Context, kind string, id domain.WorkID, maxAge time.Duration) ([]byte, bool, error)
	Put(ctx context.Context, kind string, id domain.WorkID, data []byte) error
}

type cachedClient struct {
	inner  Client
	store  Store
	maxAge time.Duration
}

// Cached 为 inner 包一层只读优先的缓存：命中则不再打网络；未命中时抓取成功才写回。
// 失败（无论永久还是瞬时）都不写缓存。缓存读写错误只会退化为直连，不影响结果。
func Cached(inner Client, store Store, maxAge time.Duration) Client {
	if store == nil {
		return inner
	}
	return &cachedClient{inner: inner, store: store, maxAge: maxAge}
}

func (c *cachedClient) FetchItem(ctx context.Context, id domain.WorkID) (domain.ItemDetail, error) {
	if b, ok, err := c.store.Get(ctx, kindItem, id, c.maxAge); err == nil && ok {
		var d domain.ItemDetail
		if e := json.Unmarshal(b, &d); e == nil {
			return d, nil
		}
		// 坏缓存：忽略，走网络（成功后覆盖）。
	}

	d, err := c.inner.FetchItem(ctx, id)
	if err != nil {
		return domain.ItemDetail{}, err
	}
	if b, e := json.Marshal(d); e == nil {
		_ = c.store.Put(ctx, kindItem, id, b)
	}
	return d, nil
}

func (c *cachedClient) FetchAnimationMeta(ctx context.Context, id domain.WorkID) (domain.AnimationMeta, error) {
	if b, ok, err := c.store.Get(ctx, kindAnimation, id, c.maxAge); err == nil && ok {
		var m domain.AnimationMeta
		if e := json.Unmarshal(b, &m); e == nil {
			return m, nil
		}
	}

	m, err := c.inner.FetchAnimationMeta(ctx, id)
	if err != nil {
		return domain.AnimationMeta{}, err
	}
	if b, e := json.Marshal(m); e == nil {
		_ = c.store.Put(ctx, kindAnimation, id, b)
	}
	return m, nil
}
