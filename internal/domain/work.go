package domain

import (
	"regexp"
	"strings"
	"time"
)

// WorkID 是远端作品的唯一主键（纯数字，例如 "112233445"）。
//
// 约束：入队时在同一次抓取内唯一；重试期间同一个 worker 可能再次使用它。
type WorkID string

var workIDRE = regexp.MustCompile(`^[0-9]{1,12}$`)

// ParseWorkID 校验并解析作品 id。
func ParseWorkID(s string) (WorkID, bool) {
	s = strings.TrimSpace(s)
	if !workIDRE.MatchString(s) {
		return "", false
	}
	return WorkID(s), true
}

// ItemType 与远端 illustType 取值一致。
type ItemType int

const (
	TypeIllust ItemType = 0
	TypeManga  ItemType = 1
	TypeUgoira ItemType = 2 // 动图
)

func (t ItemType) String() string {
	switch t {
	case TypeIllust:
		return "illust"
	case TypeManga:
		return "manga"
	case TypeUgoira:
		return "ugoira"
	default:
		return "unknown"
	}
}

// ParseItemType 接受名称（illust/manga/ugoira）。
func ParseItemType(s string) (ItemType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "illust", "illustration":
		return TypeIllust, true
	case "manga":
		return TypeManga, true
	case "ugoira", "animated":
		return TypeUgoira, true
	default:
		return 0, false
	}
}

// IsAnimated 判断是否为动图作品。
func (t ItemType) IsAnimated() bool { return t == TypeUgoira }

// Kind 是分类器使用的三种形态。
type Kind string

const (
	KindStaticSingle Kind = "static-single"
	KindStaticMulti  Kind = "static-multi"
	KindAnimated     Kind = "animated"
)

// Tag 是作品标签；Translation 为空表示没有对应语言的译名。
type Tag struct {
	Name        string
	Translation string
}

// ItemDetail 是抓取到的单个作品详情（已规范化，不含站点原始 JSON 结构）。
type ItemDetail struct {
	ID         WorkID
	Type       ItemType
	Title      string
	UserID     string
	UserName   string
	Width      int
	Height     int
	PageCount  int
	Bookmarks  int
	Bookmarked bool
	Tags       []Tag
	CreatedAt  time.Time

	// OriginalURL 是第 0 页的原图 URL，其它页通过替换页码得到。
	OriginalURL string
}

// Kind 按类型与页数推导分类形态。
func (d ItemDetail) Kind() Kind {
	if d.Type.IsAnimated() {
		return KindAnimated
	}
	if d.PageCount > 1 {
		return KindStaticMulti
	}
	return KindStaticSingle
}

// TagNames 返回原始标签名（保持输入顺序）。
func (d ItemDetail) TagNames() []string {
	out := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		out = append(out, t.Name)
	}
	return out
}

// TranslatedTags 返回“标签 + 译名”交错的列表：每个标签后紧跟它的译名（若有）。
func (d ItemDetail) TranslatedTags() []string {
	out := make([]string, 0, len(d.Tags)*2)
	for _, t := range d.Tags {
		out = append(out, t.Name)
		if t.Translation != "" {
			out = append(out, t.Translation)
		}
	}
	return out
}

// Criteria 投影出过滤器需要的字段。
func (d ItemDetail) Criteria() FilterCriteria {
	return FilterCriteria{
		Type:       d.Type,
		Tags:       d.TagNames(),
		Bookmarks:  d.Bookmarks,
		Bookmarked: d.Bookmarked,
		Width:      d.Width,
		Height:     d.Height,
	}
}

// FilterCriteria 是过滤引擎的输入。
type FilterCriteria struct {
	Type       ItemType
	Tags       []string
	Bookmarks  int
	Bookmarked bool
	Width      int
	Height     int
}

// Frame 是动图的一帧；Delay 单位为毫秒。
type Frame struct {
	File  string `json:"file"`
	Delay int    `json:"delay"`
}

// AnimationMeta 是动图的附加元数据（帧列表 + 源压缩包地址）。
type AnimationMeta struct {
	SourceURL string
	MimeType  string
	Frames    []Frame
}
