package httpx

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout      = 20 * time.Second
	defaultMaxBodyBytes = 8 << 20
)

var (
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")
	ErrBodyTooLarge        = errors.New("response body too large")
)

// Options 描述抓取用 HTTP client 的网络策略。
type Options struct {
	ProxyURL string
	Timeout  time.Duration

	// RatePerSecond<=0 表示不限速；Burst<=0 时取 1。
	RatePerSecond float64
	Burst         int

	// Header 会附加到每个请求（例如 Cookie / Referer），请求自身已设置的同名 Header 优先。
	Header http.Header
}

// Transport 把“UA 池 + 代理 + 限速 + 公共 Header”固化为统一策略。
//
// 不做重试：是否重试由上层根据错误类型决定（见 crawl.RetryController）。
type Transport struct {
	Base *http.Transport

	ua      *uaPool
	limiter *rate.Limiter
	header  http.Header
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	for k, vs := range t.header {
		if r.Header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.ua.random())
	}
	if r.Header.Get("Accept-Encoding") == "" {
		// 显式声明后 net/http 不再自动解 gzip，统一交给 ReadBody。
		r.Header.Set("Accept-Encoding", "gzip, br")
	}
	return t.Base.RoundTrip(r)
}

// NewClient 构造抓取用 HTTP client。
//
// 规则：
// - proxyURL 非空：走代理，且禁用 keep-alive（代理池轮换依赖每请求新连接）
// - 内置 UA 池：每个请求随机 UA
// - 可选令牌桶限速（所有 worker 共享一个桶）
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   16,
	}

	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("parse proxy url: 缺少 scheme 或 host：%q", p)
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
	}

	tr := &Transport{
		Base:   base,
		ua:     globalUA,
		header: opts.Header.Clone(),
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		tr.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// ReadBody 读取并按 Content-Encoding 解码响应体，最多读取 maxBytes（<=0 取默认 8MiB）。
// 调用方负责关闭 resp.Body。
func ReadBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}

	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "", "identity":
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedEncoding, resp.Header.Get("Content-Encoding"))
	}

	b, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, maxBytes)
	}
	return b, nil
}

// IsMalformedBody 报告 ReadBody 的错误是否由响应内容本身决定（同一响应重读结果不变）。
// 读取中途的连接中断等 I/O 错误不属于此类。
func IsMalformedBody(err error) bool {
	return errors.Is(err, ErrUnsupportedEncoding) ||
		errors.Is(err, ErrBodyTooLarge) ||
		errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, gzip.ErrChecksum)
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
