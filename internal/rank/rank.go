package rank

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// Index 是 作品 id -> 排名 的外部映射；缺失的作品没有排名标签。
type Index interface {
	Lookup(ctx context.Context, id domain.WorkID) (int, bool)
}

// Label 把排名格式化为 "#N"；缺失时返回空串。
func Label(n int, ok bool) string {
	if !ok || n <= 0 {
		return ""
	}
	return "#" + strconv.Itoa(n)
}

// None 是空索引。
type None struct{}

func (None) Lookup(context.Context, domain.WorkID) (int, bool) { return 0, false }

// Memory 是进程内索引，由排行榜来源在播种阶段填充。
type Memory struct {
	mu sync.RWMutex
	m  map[domain.WorkID]int
}

func NewMemory() *Memory {
	return &Memory{m: map[domain.WorkID]int{}}
}

// Set 记录排名；同一 id 重复出现时保留最靠前的排名。
func (x *Memory) Set(id domain.WorkID, n int) {
	if n <= 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.m == nil {
		x.m = map[domain.WorkID]int{}
	}
	if old, ok := x.m[id]; ok && old <= n {
		return
	}
	x.m[id] = n
}

func (x *Memory) Lookup(_ context.Context, id domain.WorkID) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n, ok := x.m[id]
	return n, ok
}

// Reset 清空索引。
func (x *Memory) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.m = map[domain.WorkID]int{}
}

// Entry 是一条排名。
type Entry struct {
	ID   domain.WorkID
	Rank int
}

// Entries 按排名升序导出（排名相同按 id）。
func (x *Memory) Entries() []Entry {
	x.mu.RLock()
	out := make([]Entry, 0, len(x.m))
	for id, n := range x.m {
		out = append(out, Entry{ID: id, Rank: n})
	}
	x.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Chain 依次查询多个索引，返回第一个命中的排名。
type Chain []Index

func (c Chain) Lookup(ctx context.Context, id domain.WorkID) (int, bool) {
	for _, idx := range c {
		if idx == nil {
			continue
		}
		if n, ok := idx.Lookup(ctx, id); ok {
			return n, true
		}
	}
	return 0, false
}
