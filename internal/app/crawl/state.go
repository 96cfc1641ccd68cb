package crawl

import (
	"sync"
	"sync/atomic"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// PipelineState 是一次抓取的全部可变状态，由 worker pool 持有并在本次运行内共享。
//
// 共享写入点只有：队列出队（Queue 内部加锁）、完成计数（Barrier）、结果/失败追加（mu）。
// 其它计数用原子操作，只用于报告统计。
type PipelineState struct {
	Queue          *Queue
	MaxConcurrency int
	Workers        int
	Barrier        *Barrier

	mu       sync.Mutex
	records  []domain.ResultRecord
	failures []domain.ItemFailure
	done     int

	dequeued  atomic.Int64
	retries   atomic.Int64
	filtered  atomic.Int64
	works     atomic.Int64
	discarded atomic.Int64
}

// NewPipelineState 创建新的运行状态；worker 数 = min(maxConcurrency, 队列长度)。
func NewPipelineState(ids []domain.WorkID, maxConcurrency int) *PipelineState {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	workers := len(ids)
	if workers > maxConcurrency {
		workers = maxConcurrency
	}
	return &PipelineState{
		Queue:          NewQueue(ids),
		MaxConcurrency: maxConcurrency,
		Workers:        workers,
		Barrier:        NewBarrier(workers),
		records:        make([]domain.ResultRecord, 0, len(ids)),
	}
}

// emit 追加一个作品的记录，返回（已完成作品数, 累计记录数）。
func (s *PipelineState) emit(recs []domain.ResultRecord) (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recs...)
	s.done++
	return s.done, len(s.records)
}

// fail 记录永久失败，返回（已完成作品数, 累计记录数）。
func (s *PipelineState) fail(f domain.ItemFailure) (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
	s.done++
	return s.done, len(s.records)
}

// discard 记录一个因中止被放弃的作品（不计入已完成），返回（已完成作品数, 累计记录数）。
func (s *PipelineState) discard() (done, total int) {
	s.discarded.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, len(s.records)
}

func (s *PipelineState) snapshot() ([]domain.ResultRecord, []domain.ItemFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ResultRecord(nil), s.records...), append([]domain.ItemFailure(nil), s.failures...)
}

func (s *PipelineState) summary(seeded int) domain.ReportSummary {
	return domain.ReportSummary{
		Seeded:    seeded,
		Workers:   s.Workers,
		Dequeued:  int(s.dequeued.Load()),
		Retries:   int(s.retries.Load()),
		Filtered:  int(s.filtered.Load()),
		Works:     int(s.works.Load()),
		Discarded: int(s.discarded.Load()),
	}
}
