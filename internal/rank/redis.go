package rank

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

const DefaultRedisKey = "pxcrawl:rank"

// RedisIndex 把排名保存在一个 Redis hash 中（field=作品 id，value=排名），
// 让多次抓取（或多个进程）共享同一份排行榜数据。
type RedisIndex struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

func NewRedisIndex(addr, key string, log *zap.Logger) *RedisIndex {
	return newRedisIndex(redis.NewClient(&redis.Options{Addr: addr}), key, log)
}

func newRedisIndex(c *redis.Client, key string, log *zap.Logger) *RedisIndex {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultRedisKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisIndex{client: c, key: key, log: log}
}

// Lookup 查询失败（网络错误、值非法）视为无排名：排名只是展示信息，不影响抓取结果。
func (r *RedisIndex) Lookup(ctx context.Context, id domain.WorkID) (int, bool) {
	v, err := r.client.HGet(ctx, r.key, string(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		r.log.Warn("查询排名失败", zap.String("id", string(id)), zap.Error(err))
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		r.log.Warn("排名值非法", zap.String("id", string(id)), zap.String("value", v))
		return 0, false
	}
	return n, true
}

// Publish 把内存索引写入 Redis hash。
func (r *RedisIndex) Publish(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(entries)*2)
	for _, e := range entries {
		values = append(values, string(e.ID), strconv.Itoa(e.Rank))
	}
	if err := r.client.HSet(ctx, r.key, values...).Err(); err != nil {
		return fmt.Errorf("redis hset failure: %w", err)
	}
	return nil
}

func (r *RedisIndex) Close() error {
	return r.client.Close()
}
