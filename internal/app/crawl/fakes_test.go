package crawl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/fetch"
)

var errNetwork = errors.New("connection reset by peer")

// script 描述一个 id 的抓取剧本：先依次返回 errs，再返回成功结果。
type script struct {
	detail   domain.ItemDetail
	errs     []error
	anim     domain.AnimationMeta
	animErrs []error
	latency  time.Duration
}

type fakeClient struct {
	mu        sync.Mutex
	scripts   map[domain.WorkID]*script
	itemCalls map[domain.WorkID]int
	animCalls map[domain.WorkID]int

	inflight    atomic.Int32
	maxInflight atomic.Int32

	// beforeFetch 在每次 FetchItem 开始时调用（用于构造并发场景）。
	beforeFetch func(ctx context.Context, id domain.WorkID)
}

func newFakeClient(scripts map[domain.WorkID]*script) *fakeClient {
	return &fakeClient{
		scripts:   scripts,
		itemCalls: map[domain.WorkID]int{},
		animCalls: map[domain.WorkID]int{},
	}
}

func (c *fakeClient) FetchItem(ctx context.Context, id domain.WorkID) (domain.ItemDetail, error) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		m := c.maxInflight.Load()
		if n <= m || c.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if c.beforeFetch != nil {
		c.beforeFetch(ctx, id)
	}

	c.mu.Lock()
	call := c.itemCalls[id]
	c.itemCalls[id]++
	sc := c.scripts[id]
	c.mu.Unlock()

	if sc == nil {
		return domain.ItemDetail{}, &fetch.StatusError{ID: id, StatusCode: 404}
	}
	if sc.latency > 0 {
		select {
		case <-ctx.Done():
			return domain.ItemDetail{}, &fetch.TransientError{ID: id, Err: ctx.Err()}
		case <-time.After(sc.latency):
		}
	}
	if call < len(sc.errs) {
		return domain.ItemDetail{}, sc.errs[call]
	}
	return sc.detail, nil
}

func (c *fakeClient) FetchAnimationMeta(ctx context.Context, id domain.WorkID) (domain.AnimationMeta, error) {
	c.mu.Lock()
	call := c.animCalls[id]
	c.animCalls[id]++
	sc := c.scripts[id]
	c.mu.Unlock()

	if sc == nil {
		return domain.AnimationMeta{}, &fetch.StatusError{ID: id, StatusCode: 404}
	}
	if call < len(sc.animErrs) {
		return domain.AnimationMeta{}, sc.animErrs[call]
	}
	return sc.anim, nil
}

func (c *fakeClient) calls(id domain.WorkID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemCalls[id]
}

func (c *fakeClient) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.itemCalls {
		n += v
	}
	return n
}

// fakeScheduler 不真正等待，只记录延迟。
type fakeScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	hook   func()
}

func (s *fakeScheduler) Delay(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ctx.Err()
}

func (s *fakeScheduler) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type recordingObserver struct {
	mu sync.Mutex

	startCalls  int
	seeded      int
	workers     int
	retries     []domain.WorkID
	failed      []domain.ItemFailure
	items       []ItemProgress
	emptyCalls  int
	finishCalls int
	last        domain.CrawlReport
}

func (o *recordingObserver) OnStart(seeded, workers int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
	o.seeded, o.workers = seeded, workers
}

func (o *recordingObserver) OnRetry(id domain.WorkID, attempt int, delay time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, id)
}

func (o *recordingObserver) OnItemFailed(f domain.ItemFailure) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, f)
}

func (o *recordingObserver) OnItemDone(p ItemProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, p)
}

func (o *recordingObserver) OnEmpty(r domain.CrawlReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emptyCalls++
	o.last = r
}

func (o *recordingObserver) OnFinish(r domain.CrawlReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finishCalls++
	o.last = r
}

func staticWork(id string, pages int) *script {
	return &script{detail: domain.ItemDetail{
		ID:          domain.WorkID(id),
		Type:        domain.TypeManga,
		Title:       "title-" + id,
		UserID:      "7",
		UserName:    "artist",
		Width:       1000,
		Height:      800,
		PageCount:   pages,
		Bookmarks:   100,
		Tags:        []domain.Tag{{Name: "風景", Translation: "scenery"}},
		CreatedAt:   time.Date(2024, 5, 6, 12, 0, 0, 0, time.FixedZone("JST", 9*3600)),
		OriginalURL: "https://i.pximg.net/img-original/img/2024/05/06/12/00/00/" + id + "_p0.png",
	}}
}

func animatedWork(id string) *script {
	return &script{
		detail: domain.ItemDetail{
			ID:          domain.WorkID(id),
			Type:        domain.TypeUgoira,
			PageCount:   1,
			Bookmarks:   50,
			OriginalURL: "https://i.pximg.net/img-original/img/2024/05/06/12/00/00/" + id + "_ugoira0.jpg",
		},
		anim: domain.AnimationMeta{
			SourceURL: "https://i.pximg.net/img-zip-ugoira/img/" + id + "_ugoira1920x1080.zip",
			MimeType:  "image/jpeg",
			Frames:    []domain.Frame{{File: "000000.jpg", Delay: 100}, {File: "000001.jpg", Delay: 80}},
		},
	}
}

func ids(xs ...string) []domain.WorkID {
	out := make([]domain.WorkID, 0, len(xs))
	for _, x := range xs {
		out = append(out, domain.WorkID(x))
	}
	return out
}
