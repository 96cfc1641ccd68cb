package pixiv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/fetch"
	"github.com/John-Robertt/pxcrawl/internal/infra/httpx"
)

const DefaultBaseURL = "https://www.pixiv.net"

var _ fetch.Client = (*Client)(nil)

// Client 通过站点的 ajax JSON 接口获取作品详情与动图元数据。
//
// 约束：
// - 不做重试、不做缓存（由上层统一实现）
// - 非 2xx、error=true 或响应体无法解码时返回 *fetch.StatusError；传输层失败返回 *fetch.TransientError
type Client struct {
	HTTP    *http.Client
	BaseURL string

	// TagLanguage 决定取哪种语言的标签译名（BCP-47，默认 en）。
	TagLanguage string
}

func (c *Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

type envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"body"`
}

type illustBody struct {
	IllustID      string    `json:"illustId"`
	IllustTitle   string    `json:"illustTitle"`
	IllustType    int       `json:"illustType"`
	CreateDate    string    `json:"createDate"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	PageCount     int       `json:"pageCount"`
	BookmarkCount int       `json:"bookmarkCount"`
	// bookmarkData 未收藏时为 null。
	BookmarkData json.RawMessage `json:"bookmarkData"`
	URLs         struct {
		Original string `json:"original"`
	} `json:"urls"`
	Tags struct {
		Tags []struct {
			Tag         string            `json:"tag"`
			Translation map[string]string `json:"translation"`
		} `json:"tags"`
	} `json:"tags"`
}

type ugoiraBody struct {
	Src         string         `json:"src"`
	OriginalSrc string         `json:"originalSrc"`
	MimeType    string         `json:"mime_type"`
	Frames      []domain.Frame `json:"frames"`
}

// FetchItem 获取作品详情：GET {base}/ajax/illust/{id}
func (c *Client) FetchItem(ctx context.Context, id domain.WorkID) (domain.ItemDetail, error) {
	u := c.baseURL() + "/ajax/illust/" + string(id)
	var body illustBody
	if err := c.getJSON(ctx, id, u, &body); err != nil {
		return domain.ItemDetail{}, err
	}

	lang := translationKey(c.TagLanguage)
	tags := make([]domain.Tag, 0, len(body.Tags.Tags))
	for _, t := range body.Tags.Tags {
		tags = append(tags, domain.Tag{
			Name:        t.Tag,
			Translation: strings.TrimSpace(t.Translation[lang]),
		})
	}

	workID := id
	if parsed, ok := domain.ParseWorkID(body.IllustID); ok {
		workID = parsed
	}

	return domain.ItemDetail{
		ID:          workID,
		Type:        domain.ItemType(body.IllustType),
		Title:       body.IllustTitle,
		UserID:      body.UserID,
		UserName:    body.UserName,
		Width:       body.Width,
		Height:      body.Height,
		PageCount:   body.PageCount,
		Bookmarks:   body.BookmarkCount,
		Bookmarked:  isBookmarked(body.BookmarkData),
		Tags:        tags,
		CreatedAt:   parseCreateDate(body.CreateDate),
		OriginalURL: body.URLs.Original,
	}, nil
}

// FetchAnimationMeta 获取动图元数据：GET {base}/ajax/illust/{id}/ugoira_meta
func (c *Client) FetchAnimationMeta(ctx context.Context, id domain.WorkID) (domain.AnimationMeta, error) {
	u := c.baseURL() + "/ajax/illust/" + string(id) + "/ugoira_meta"
	var body ugoiraBody
	if err := c.getJSON(ctx, id, u, &body); err != nil {
		return domain.AnimationMeta{}, err
	}
	src := body.OriginalSrc
	if src == "" {
		src = body.Src
	}
	return domain.AnimationMeta{
		SourceURL: src,
		MimeType:  body.MimeType,
		Frames:    body.Frames,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, id domain.WorkID, u string, out any) error {
	if c.HTTP == nil {
		return errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", c.baseURL()+"/artworks/"+string(id))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &fetch.TransientError{ID: id, Err: err}
	}
	defer resp.Body.Close()

	b, err := httpx.ReadBody(resp, 0)
	if err != nil {
		// 编码不支持、压缩头损坏、超出上限：重试也会得到同样结果。
		if httpx.IsMalformedBody(err) {
			return &fetch.StatusError{ID: id, URL: u, StatusCode: resp.StatusCode, Message: "read body: " + err.Error()}
		}
		return &fetch.TransientError{ID: id, Err: fmt.Errorf("read body: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(b, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if decodeErr == nil {
			msg = env.Message
		}
		return &fetch.StatusError{ID: id, URL: u, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return &fetch.StatusError{ID: id, URL: u, StatusCode: resp.StatusCode, Message: "响应不是合法 JSON：" + decodeErr.Error()}
	}
	if env.Error {
		return &fetch.StatusError{ID: id, URL: u, StatusCode: resp.StatusCode, Message: env.Message}
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return &fetch.StatusError{ID: id, URL: u, StatusCode: resp.StatusCode, Message: "body 结构不符合预期：" + err.Error()}
	}
	return nil
}

// parseCreateDate 宽松解析发布时间：缺失或格式不符时返回零值，不影响其余字段。
func parseCreateDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isBookmarked(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// translationKey 把配置的语言规范化为站点 translation 字段使用的键（只取基础语言，例如 "en"、"zh"）。
func translationKey(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "en"
	}
	t, err := language.Parse(tag)
	if err != nil {
		return strings.ToLower(tag)
	}
	base, _ := t.Base()
	return base.String()
}
