package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/pxcrawl/internal/app/crawl"
	"github.com/John-Robertt/pxcrawl/internal/config"
	"github.com/John-Robertt/pxcrawl/internal/domain"
)

var _ crawl.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// - 所有过程信息写到 stderr，不污染 stdout 的 JSON 输出契约
// - 事件驱动：crawl 层只发事件，CLI 决定如何展示
// - keepalive：长时间没有作品完成（例如都在等待重试）时定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	seeded  int
	done    int
	ok      int
	fail    int
	skip    int
	records int
	retries int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

// PrintConfig 在抓取开始前打印生效配置。
func (p *progressUI) PrintConfig(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] pxcrawl crawl (%s)\n", now.Format("15:04:05"), eff.Source)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  want: %s\n", formatWant(eff.Want))
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.MaxConcurrency)
	fmt.Fprintf(p.w, "  retry_delay: %s\n", eff.RetryDelay)
	fmt.Fprintf(p.w, "  sort: %s\n", orDefault(string(eff.Sort), "随来源"))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  cache: %s\n", onOff(eff.CacheEnabled))
	if len(eff.Filter.IncludeTags) > 0 || len(eff.Filter.ExcludeTags) > 0 {
		fmt.Fprintf(p.w, "  tags: include=%s exclude=%s\n",
			formatStringListJSON(eff.Filter.IncludeTags), formatStringListJSON(eff.Filter.ExcludeTags))
	}
	if eff.RecordsPath != "" {
		fmt.Fprintf(p.w, "  records: %s (%s)\n", eff.RecordsPath, eff.OutputFormat)
	}
	if eff.OutputPath != "" {
		fmt.Fprintf(p.w, "  report: %s\n", eff.OutputPath)
	}
	fmt.Fprintln(p.w)
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnStart(seeded, workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = time.Now()
	}
	p.seeded = seeded
	p.workers = workers
	fmt.Fprintf(p.w, "执行: workers=%d seeded=%d\n\n", workers, seeded)
	if seeded > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnRetry(id domain.WorkID, attempt int, delay time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.retries++
	fmt.Fprintf(p.w, "重试: %s 第 %d 次，%s 后再试：%s\n", id, attempt, formatShortDuration(delay), truncate(errString(err), 120))
	p.lastPrinted = time.Now()
}

// OnItemFailed 不单独输出：状态在 OnItemDone 打印，诊断信息随最终报告写到 stderr。
func (p *progressUI) OnItemFailed(domain.ItemFailure) {}

func (p *progressUI) OnItemDone(ip crawl.ItemProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = ip.Done
	p.records = ip.TotalRecords

	var status string
	switch ip.Status {
	case crawl.ItemEmitted:
		p.ok++
		status = "OK"
	case crawl.ItemFiltered:
		p.skip++
		status = "SKIP"
	case crawl.ItemDropped:
		p.fail++
		status = "FAIL"
	case crawl.ItemDiscarded:
		status = "ABORT"
	default:
		status = strings.ToUpper(string(ip.Status))
	}

	if ip.Status == crawl.ItemEmitted {
		fmt.Fprintf(p.w, "[%d/%d] %s %s records=%d (%s)\n",
			ip.Done, ip.Seeded, ip.ID, status, ip.Records, formatShortDuration(ip.Elapsed))
	} else {
		fmt.Fprintf(p.w, "[%d/%d] %s %s (%s)\n",
			ip.Done, ip.Seeded, ip.ID, status, formatShortDuration(ip.Elapsed))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnEmpty(r domain.CrawlReport) { p.finish(r) }

func (p *progressUI) OnFinish(r domain.CrawlReport) { p.finish(r) }

func (p *progressUI) finish(r domain.CrawlReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 结束后停止 ticker，避免在最终输出之后又冒出 keepalive。
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
	elapsed := time.Duration(0)
	if !p.startedAt.IsZero() {
		elapsed = time.Since(p.startedAt)
	}
	fmt.Fprintf(p.w, "\n结束: outcome=%s records=%d elapsed=%s\n", r.Outcome, r.Summary.Records, formatElapsed(elapsed))
	p.lastPrinted = time.Now()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stop := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					p.printProgressLocked()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (p *progressUI) printProgressLocked() {
	active := p.workers
	if remain := p.seeded - p.done; remain < active {
		active = remain
	}
	fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d skip=%d fail=%d records=%d retries=%d active=%d elapsed=%s\n",
		p.done, p.seeded, p.ok, p.skip, p.fail, p.records, p.retries, active, formatElapsed(time.Since(p.startedAt)),
	)
	p.lastPrinted = time.Now()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func formatWant(n int) string {
	if n < 0 {
		return "不限"
	}
	return fmt.Sprint(n)
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// truncate 按字符（而不是字节）截断，避免切坏多字节标题。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
