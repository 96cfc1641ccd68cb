package crawl

import (
	"sync"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// Queue 是共享的待抓取队列：只在播种时写入，之后只出不进。
//
// DequeueOne 对并发 worker 是原子的：同一个 id 不会交给两个 worker。
// 重试不会把 id 放回队列，而是由持有它的 worker 原地再试。
type Queue struct {
	mu    sync.Mutex
	items []domain.WorkID
	head  int
}

func NewQueue(ids []domain.WorkID) *Queue {
	return &Queue{items: append([]domain.WorkID(nil), ids...)}
}

// DequeueOne 取出队首；seq 是该 id 在播种序列中的位置。队列为空时 ok=false，且之后一直为空。
func (q *Queue) DequeueOne() (id domain.WorkID, seq int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.items) {
		return "", 0, false
	}
	seq = q.head
	id = q.items[seq]
	q.head++
	return id, seq, true
}

// Len 返回剩余数量。
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
