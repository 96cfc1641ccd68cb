package page

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/source"
)

const (
	Name = "page"

	// DefaultMaxPages 是 Want=-1（抓到空页为止）时的安全上限。
	DefaultMaxPages = 100

	placeholder = "{page}"
)

var artworkHrefRE = regexp.MustCompile(`/artworks/([0-9]{1,12})(?:[/?#]|$)`)

// Source 逐页抓取 HTML 列表页（搜索结果、用户作品页……），提取其中的作品链接。
//
// 约束：
// - URL 必须包含 {page} 占位符
// - Want 是页数；-1 表示一直抓到出现空页为止（最多 MaxPages 页）
// - 同一作品在多页中重复出现时只保留第一次
type Source struct {
	HTTP      *http.Client
	URL       string
	StartPage int
	Want      int
	MaxPages  int

	// 列表阶段的临时状态。
	nextPage int
	seen     map[domain.WorkID]struct{}
}

var (
	_ source.Source    = (*Source)(nil)
	_ source.Describer = (*Source)(nil)
)

func (s *Source) Name() string { return Name }

func (s *Source) Describe() string { return "逐页抓取 HTML 列表页（URL 含 {page}）并提取作品链接" }

func (s *Source) ProduceIdentifiers(ctx context.Context) ([]domain.WorkID, error) {
	tmpl := strings.TrimSpace(s.URL)
	if !strings.Contains(tmpl, placeholder) {
		return nil, &source.Error{Source: Name, Stage: "config", Err: fmt.Errorf("page.url 必须包含 %s：%q", placeholder, tmpl)}
	}
	if s.Want == 0 || s.Want < -1 {
		return nil, &source.Error{Source: Name, Stage: "config", Err: fmt.Errorf("want 必须 >= 1 或为 -1：%d", s.Want)}
	}

	pages := s.Want
	if pages == -1 {
		pages = s.MaxPages
		if pages <= 0 {
			pages = DefaultMaxPages
		}
	}
	s.nextPage = s.StartPage
	if s.nextPage <= 0 {
		s.nextPage = 1
	}
	s.seen = map[domain.WorkID]struct{}{}

	out := make([]domain.WorkID, 0, 64)
	for i := 0; i < pages; i++ {
		u := strings.ReplaceAll(tmpl, placeholder, strconv.Itoa(s.nextPage))
		body, err := source.Get(ctx, s.HTTP, u, "text/html")
		if err != nil {
			return nil, &source.Error{Source: Name, Stage: "fetch", Err: err}
		}
		ids, err := ExtractIDs(body)
		if err != nil {
			return nil, &source.Error{Source: Name, Stage: "parse", Err: err}
		}
		s.nextPage++

		if len(ids) == 0 {
			// 空页意味着已经翻到底。
			break
		}
		for _, id := range ids {
			if _, ok := s.seen[id]; ok {
				continue
			}
			s.seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Source) ResetListingState() {
	s.nextPage = 0
	s.seen = nil
}

// ExtractIDs 按文档顺序提取页面中的作品 id（页内去重）。
func ExtractIDs(html []byte) ([]domain.WorkID, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := map[domain.WorkID]struct{}{}
	out := make([]domain.WorkID, 0, 48)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		m := artworkHrefRE.FindStringSubmatch(strings.TrimSpace(href))
		if m == nil {
			return
		}
		id, ok := domain.ParseWorkID(m[1])
		if !ok {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	})
	return out, nil
}
