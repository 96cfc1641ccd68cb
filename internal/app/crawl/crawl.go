package crawl

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/pxcrawl/internal/app"
	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/fetch"
	"github.com/John-Robertt/pxcrawl/internal/filter"
	"github.com/John-Robertt/pxcrawl/internal/rank"
	"github.com/John-Robertt/pxcrawl/internal/source"
)

// DefaultMaxConcurrency 是 worker 数的上限。
const DefaultMaxConcurrency = 10

// Options 是核心流程识别的配置（由 config 层校验后传入）。
type Options struct {
	RunID string

	MaxConcurrency   int
	PerWorkPageLimit int
	RetryDelay       time.Duration
	MaxRetries       int
	AnimatedExt      string

	// Ordering 为空时使用来源偏好的排序，再退回 seq。
	Ordering domain.Ordering
}

// Deps 是核心流程依赖的外部协作者；除 Client 外都可以为 nil。
type Deps struct {
	Client    fetch.Client
	Filter    filter.Engine
	Ranks     rank.Index
	Observer  Observer
	Logger    *zap.Logger
	Scheduler Scheduler

	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Filter == nil {
		d.Filter = filter.AcceptAll{}
	}
	if d.Ranks == nil {
		d.Ranks = rank.None{}
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Scheduler == nil {
		d.Scheduler = TimerScheduler{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Run 用来源播种并执行一次抓取。
//
// 列表阶段失败直接返回 error（此时尚未开始抓取）；之后的所有作品级错误都被吸收进报告。
func Run(ctx context.Context, src source.Source, opts Options, deps Deps) (domain.CrawlReport, error) {
	ids, err := src.ProduceIdentifiers(ctx)
	src.ResetListingState()
	if err != nil {
		return domain.CrawlReport{}, err
	}

	if opts.Ordering == "" {
		if o, ok := src.(source.Ordered); ok {
			opts.Ordering = o.Ordering()
		}
	}
	if r, ok := src.(source.Ranked); ok {
		if deps.Ranks == nil {
			deps.Ranks = r.RankIndex()
		} else {
			deps.Ranks = rank.Chain{r.RankIndex(), deps.Ranks}
		}
	}

	rep := Execute(ctx, ids, opts, deps)
	rep.Source = src.Name()
	return rep, nil
}

// Execute 对给定 id 序列执行 抓取 -> 分类 -> 汇总。
//
// 流程：按 min(MaxConcurrency, 队列长度) 启动 worker；每个 worker 循环出队并同步处理
// （含重试），直到队列为空；所有 worker 到达屏障后恰好触发一次完成，随后排序并生成报告。
func Execute(ctx context.Context, ids []domain.WorkID, opts Options, deps Deps) domain.CrawlReport {
	deps = deps.withDefaults()
	log := deps.Logger

	queue, dups := app.Seed(ids)
	if len(dups) > 0 {
		log.Info("忽略重复的作品 id", zap.Int("count", len(dups)))
	}

	rep := domain.CrawlReport{
		RunID:     opts.RunID,
		StartedAt: deps.Now(),
	}

	if len(queue) == 0 {
		rep.Outcome = domain.OutcomeEmpty
		rep.Message = "没有可抓取的作品 id"
		rep.FinishedAt = deps.Now()
		rep.Finalize()
		log.Info("抓取结束：结果为空", zap.String("reason", rep.Message))
		deps.Observer.OnEmpty(rep)
		return rep
	}

	if deps.Client == nil {
		rep.Outcome = domain.OutcomeInvalid
		rep.Message = "fetch client 不能为空"
		rep.Summary.Seeded = len(queue)
		rep.FinishedAt = deps.Now()
		rep.Finalize()
		deps.Observer.OnFinish(rep)
		return rep
	}

	st := NewPipelineState(queue, opts.MaxConcurrency)
	deps.Observer.OnStart(len(queue), st.Workers)
	log.Info("开始抓取", zap.Int("seeded", len(queue)), zap.Int("workers", st.Workers))

	w := &worker{
		st:     st,
		opts:   opts,
		deps:   deps,
		seeded: len(queue),
		retry: RetryController{
			Delay:      opts.RetryDelay,
			MaxRetries: opts.MaxRetries,
			Scheduler:  deps.Scheduler,
		},
	}
	if w.retry.Delay <= 0 {
		w.retry.Delay = DefaultRetryDelay
	}
	w.retry.OnRetry = w.onRetry

	// 所有 worker 先启动，再开始出队。
	var wg sync.WaitGroup
	wg.Add(st.Workers)
	for i := 0; i < st.Workers; i++ {
		go func() {
			defer wg.Done()
			w.loop(ctx)
			st.Barrier.Arrive()
		}()
	}
	<-st.Barrier.Done()
	wg.Wait()

	records, failures := st.snapshot()
	aborted := ctx.Err() != nil && (st.Queue.Len() > 0 || st.discarded.Load() > 0)

	ordering := opts.Ordering
	if ordering == "" {
		ordering = domain.OrderSeq
	}
	rep.Records = Sort(records, ordering)
	rep.Failures = failures
	rep.Summary = st.summary(len(queue))
	rep.Outcome = outcomeOf(aborted, len(records))
	switch rep.Outcome {
	case domain.OutcomeAborted:
		rep.Message = "抓取被中止：" + context.Cause(ctx).Error()
	case domain.OutcomeEmpty:
		rep.Message = "所有作品都被过滤或丢弃，没有产出任何记录"
	}
	rep.FinishedAt = deps.Now()
	rep.Finalize()

	log.Info("抓取结束",
		zap.String("outcome", rep.Outcome),
		zap.Int("records", rep.Summary.Records),
		zap.Int("dropped", rep.Summary.Dropped),
		zap.Int("filtered", rep.Summary.Filtered),
		zap.Int("retries", rep.Summary.Retries),
	)
	if rep.Outcome == domain.OutcomeEmpty {
		deps.Observer.OnEmpty(rep)
	} else {
		deps.Observer.OnFinish(rep)
	}
	return rep
}

type worker struct {
	st     *PipelineState
	opts   Options
	deps   Deps
	retry  RetryController
	seeded int
}

func (w *worker) loop(ctx context.Context) {
	for {
		// 中止信号在每次出队前检查。
		if ctx.Err() != nil {
			return
		}
		id, seq, ok := w.st.Queue.DequeueOne()
		if !ok {
			return
		}
		w.st.dequeued.Add(1)
		w.process(ctx, id, seq)
	}
}

func (w *worker) onRetry(id domain.WorkID, attempt int, delay time.Duration, err error) {
	w.st.retries.Add(1)
	w.deps.Logger.Warn("抓取失败，稍后重试",
		zap.String("id", string(id)),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(err),
	)
	w.deps.Observer.OnRetry(id, attempt, delay, err)
}

// process 处理一个 id，直到它产出记录、被过滤、被丢弃或被中止。
func (w *worker) process(ctx context.Context, id domain.WorkID, seq int) {
	started := time.Now()
	client := w.deps.Client

	d, err := attempt(ctx, w.retry, id, func(ctx context.Context) (domain.ItemDetail, error) {
		return client.FetchItem(ctx, id)
	})
	if err != nil {
		w.settleError(id, err, started)
		return
	}

	if !w.deps.Filter.Check(d.Criteria()) {
		w.st.filtered.Add(1)
		w.deps.Logger.Debug("作品被过滤", zap.String("id", string(id)))
		done, total := w.st.emit(nil)
		w.progress(id, ItemFiltered, 0, done, total, started)
		return
	}

	var anim *domain.AnimationMeta
	if d.Kind() == domain.KindAnimated {
		m, err := attempt(ctx, w.retry, id, func(ctx context.Context) (domain.AnimationMeta, error) {
			return client.FetchAnimationMeta(ctx, id)
		})
		if err != nil {
			w.settleError(id, err, started)
			return
		}
		anim = &m
	}

	n, ok := w.deps.Ranks.Lookup(ctx, id)
	recs := Expand(id, seq, d, anim, ExpandOptions{
		PerWorkPageLimit: w.opts.PerWorkPageLimit,
		AnimatedExt:      w.opts.AnimatedExt,
		RankLabel:        rank.Label(n, ok),
	})

	w.st.works.Add(1)
	done, total := w.st.emit(recs)
	w.progress(id, ItemEmitted, len(recs), done, total, started)
}

func (w *worker) settleError(id domain.WorkID, err error, started time.Time) {
	var de *DropError
	if errors.As(err, &de) {
		w.deps.Logger.Warn("作品被丢弃",
			zap.String("id", string(id)),
			zap.Int("status", de.Failure.StatusCode),
			zap.String("diagnosis", de.Failure.Message),
			zap.Error(de.Err),
		)
		w.deps.Observer.OnItemFailed(de.Failure)
		done, total := w.st.fail(de.Failure)
		w.progress(id, ItemDropped, 0, done, total, started)
		return
	}

	// 只剩中止一种可能：等待重试或抓取中的 id 被放弃，不算丢弃。
	done, total := w.st.discard()
	w.deps.Logger.Info("抓取中止，放弃作品", zap.String("id", string(id)), zap.Error(err))
	w.progress(id, ItemDiscarded, 0, done, total, started)
}

func (w *worker) progress(id domain.WorkID, status ItemStatus, records, done, total int, started time.Time) {
	w.deps.Observer.OnItemDone(ItemProgress{
		ID:           id,
		Status:       status,
		Records:      records,
		Done:         done,
		Seeded:       w.seeded,
		TotalRecords: total,
		Elapsed:      time.Since(started),
	})
}
