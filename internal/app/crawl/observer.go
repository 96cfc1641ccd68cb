package crawl

import (
	"time"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// ItemStatus 是一个作品处理完成后的结局。
type ItemStatus string

const (
	ItemEmitted   ItemStatus = "emitted"
	ItemFiltered  ItemStatus = "filtered"
	ItemDropped   ItemStatus = "dropped"
	ItemDiscarded ItemStatus = "discarded"
)

// ItemProgress 描述一个作品处理完成时的进度。
type ItemProgress struct {
	ID      domain.WorkID
	Status  ItemStatus
	Records int // 本作品产出的记录数

	Done         int // 已处理完成的作品数（含过滤/丢弃）
	Seeded       int
	TotalRecords int // 截至目前累计的记录数
	Elapsed      time.Duration
}

// Observer 把“运行进度/阶段/条目结果”从核心流程中解耦出来。
//
// 约束：
// - crawl 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 实现必须并发安全：OnRetry/OnItemFailed/OnItemDone 可能来自多个 goroutine
// - 每次运行 OnEmpty 与 OnFinish 二者恰好调用其一，且只调用一次
type Observer interface {
	// OnStart 在 worker 启动之前调用。
	OnStart(seeded, workers int)
	// OnRetry 在安排一次延迟重试前调用。
	OnRetry(id domain.WorkID, attempt int, delay time.Duration, err error)
	// OnItemFailed 是永久失败的诊断信号（状态码 + id）。
	OnItemFailed(f domain.ItemFailure)
	// OnItemDone 在每个作品处理完成后调用。
	OnItemDone(p ItemProgress)
	// OnEmpty：没有任何 id，或所有作品都被丢弃/过滤。
	OnEmpty(r domain.CrawlReport)
	// OnFinish：正常完成（或被中止）且至少产出一条记录。
	OnFinish(r domain.CrawlReport)
}

type nopObserver struct{}

func (nopObserver) OnStart(int, int) {}
func (nopObserver) OnRetry(domain.WorkID, int, time.Duration, error) {}
func (nopObserver) OnItemFailed(domain.ItemFailure) {}
func (nopObserver) OnItemDone(ItemProgress) {}
func (nopObserver) OnEmpty(domain.CrawlReport) {}
func (nopObserver) OnFinish(domain.CrawlReport) {}
