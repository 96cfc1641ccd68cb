package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/rank"
	"github.com/John-Robertt/pxcrawl/internal/source"
)

const (
	Name = "ranking"

	DefaultBaseURL = "https://www.pixiv.net"

	// maxPages 防止 next 字段异常时无限翻页（排行榜最多 500 名，每页 50）。
	maxPages = 20
)

var (
	modes = map[string]struct{}{
		"daily": {}, "weekly": {}, "monthly": {}, "rookie": {}, "original": {},
		"daily_ai": {}, "male": {}, "female": {},
	}
	contents = map[string]struct{}{
		"all": {}, "illust": {}, "manga": {}, "ugoira": {},
	}
	dateRE = regexp.MustCompile(`^[0-9]{8}$`)
)

// Source 抓取排行榜 JSON，按名次产出作品 id，并把名次写入内存 RankIndex。
//
// 约束：
// - Want 是作品数；-1 表示整个榜单
// - RankIndex 在下一次 ProduceIdentifiers 之前保持有效（抓取阶段需要它）
type Source struct {
	HTTP    *http.Client
	BaseURL string
	Mode    string // daily/weekly/...，默认 daily
	Content string // all/illust/manga/ugoira，默认 all
	Date    string // YYYYMMDD，空表示最新
	Want    int

	index *rank.Memory

	// 列表阶段的临时状态。
	nextPage int
}

var (
	_ source.Source    = (*Source)(nil)
	_ source.Ranked    = (*Source)(nil)
	_ source.Ordered   = (*Source)(nil)
	_ source.Describer = (*Source)(nil)
)

func (s *Source) Name() string { return Name }

func (s *Source) Describe() string { return "抓取排行榜，按名次产出作品并附带 #名次 标签" }

// Ordering 排行榜结果默认按名次排序。
func (s *Source) Ordering() domain.Ordering { return domain.OrderRank }

func (s *Source) RankIndex() rank.Index {
	if s.index == nil {
		s.index = rank.NewMemory()
	}
	return s.index
}

// Entries 导出本次榜单的名次（用于发布到共享 RankIndex）。
func (s *Source) Entries() []rank.Entry {
	if s.index == nil {
		return nil
	}
	return s.index.Entries()
}

type rankingPage struct {
	Contents []struct {
		IllustID json.Number `json:"illust_id"`
		Rank     int         `json:"rank"`
	} `json:"contents"`
	// next 在最后一页为 false。
	Next json.RawMessage `json:"next"`
}

func (s *Source) ProduceIdentifiers(ctx context.Context) ([]domain.WorkID, error) {
	mode, content, err := s.normalized()
	if err != nil {
		return nil, &source.Error{Source: Name, Stage: "config", Err: err}
	}
	if s.Want == 0 || s.Want < -1 {
		return nil, &source.Error{Source: Name, Stage: "config", Err: fmt.Errorf("want 必须 >= 1 或为 -1：%d", s.Want)}
	}

	if s.index == nil {
		s.index = rank.NewMemory()
	}
	s.index.Reset()
	s.nextPage = 1

	out := make([]domain.WorkID, 0, 64)
	for i := 0; i < maxPages && s.nextPage > 0; i++ {
		u := s.pageURL(mode, content, s.nextPage)
		body, err := source.Get(ctx, s.HTTP, u, "application/json")
		if err != nil {
			return nil, &source.Error{Source: Name, Stage: "fetch", Err: err}
		}

		var pg rankingPage
		if err := json.Unmarshal(body, &pg); err != nil {
			return nil, &source.Error{Source: Name, Stage: "parse", Err: err}
		}
		for _, c := range pg.Contents {
			id, ok := domain.ParseWorkID(c.IllustID.String())
			if !ok {
				continue
			}
			s.index.Set(id, c.Rank)
			out = append(out, id)
			if s.Want > 0 && len(out) >= s.Want {
				return out, nil
			}
		}
		s.nextPage = parseNext(pg.Next)
	}
	return out, nil
}

func (s *Source) ResetListingState() {
	s.nextPage = 0
}

func (s *Source) normalized() (mode, content string, err error) {
	mode = strings.ToLower(strings.TrimSpace(s.Mode))
	if mode == "" {
		mode = "daily"
	}
	if _, ok := modes[mode]; !ok {
		return "", "", fmt.Errorf("未知 ranking.mode：%q", s.Mode)
	}
	content = strings.ToLower(strings.TrimSpace(s.Content))
	if content == "" {
		content = "all"
	}
	if _, ok := contents[content]; !ok {
		return "", "", fmt.Errorf("未知 ranking.content：%q", s.Content)
	}
	if d := strings.TrimSpace(s.Date); d != "" && !dateRE.MatchString(d) {
		return "", "", fmt.Errorf("ranking.date 必须是 YYYYMMDD：%q", s.Date)
	}
	return mode, content, nil
}

func (s *Source) pageURL(mode, content string, p int) string {
	base := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	q := url.Values{}
	q.Set("mode", mode)
	if content != "all" {
		q.Set("content", content)
	}
	if d := strings.TrimSpace(s.Date); d != "" {
		q.Set("date", d)
	}
	q.Set("p", strconv.Itoa(p))
	q.Set("format", "json")
	return base + "/ranking.php?" + q.Encode()
}

func parseNext(raw json.RawMessage) int {
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
