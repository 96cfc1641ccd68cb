package crawl

import "sync"

// Barrier 在所有 worker 都到达后触发一次完成信号。
//
// 约束：
// - 每个 worker 退出时调用且只调用一次 Arrive
// - 计数达到 total 时触发（恰好一次），随后计数归零、进入未布防状态
// - 未布防时的 Arrive 被忽略；Arm 重新布防，便于同一个 PipelineState 顺序复用
type Barrier struct {
	mu       sync.Mutex
	total    int
	finished int
	armed    bool
	fired    int
	done     chan struct{}
}

func NewBarrier(total int) *Barrier {
	b := &Barrier{}
	b.Arm(total)
	return b
}

// Arm 以 total 个参与者重新布防；total<=0 时立即触发。
func (b *Barrier) Arm(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total = total
	b.finished = 0
	b.armed = true
	b.done = make(chan struct{})
	if total <= 0 {
		b.fireLocked()
	}
}

// Arrive 记录一个 worker 完成；返回 true 表示本次调用触发了完成信号。
func (b *Barrier) Arrive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.armed {
		return false
	}
	b.finished++
	if b.finished < b.total {
		return false
	}
	b.fireLocked()
	return true
}

func (b *Barrier) fireLocked() {
	b.fired++
	b.finished = 0
	b.armed = false
	close(b.done)
}

// Done 在完成信号触发后关闭。
func (b *Barrier) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Fired 返回累计触发次数。
func (b *Barrier) Fired() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fired
}

// Pending 返回尚未到达的参与者数（未布防时为 0）。
func (b *Barrier) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.armed {
		return 0
	}
	return b.total - b.finished
}
