package domain

import "strings"

// AnimationInfo 随动图记录一起输出，供下游合成 gif/webm。
type AnimationInfo struct {
	Frames   []Frame `json:"frames"`
	MimeType string  `json:"mime_type"`
}

// ResultRecord 是一个可下载单元。
//
// 约束：ID 在一次抓取内唯一；静态作品为 "<id>_p<页码>"，动图为作品 id 本身。
type ResultRecord struct {
	ID             string   `json:"id"`
	WorkID         WorkID   `json:"work_id"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Tags           []string `json:"tags"`
	TagsTranslated []string `json:"tags_translated"`
	UserID         string   `json:"user_id"`
	User           string   `json:"user"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Ext            string   `json:"ext"`
	Bookmarks      int      `json:"bookmarks"`
	Date           string   `json:"date"`
	Type           ItemType `json:"type"`
	Rank           string   `json:"rank"`

	Animation *AnimationInfo `json:"animation,omitempty"`

	// Seq 是作品在种子队列中的位置，Page 是页码；二者决定默认排序，不对外输出。
	Seq  int `json:"-"`
	Page int `json:"-"`
}

// RankNumber 解析 "#12" 形式的排名；无排名返回 false。
func (r ResultRecord) RankNumber() (int, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(r.Rank), "#")
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Ordering 是结果集的最终排序方式。
type Ordering string

const (
	OrderSeq       Ordering = "seq"
	OrderRank      Ordering = "rank"
	OrderBookmarks Ordering = "bookmarks"
)

// ParseOrdering 校验排序名称；空串视为未指定。
func ParseOrdering(s string) (Ordering, bool) {
	switch o := Ordering(strings.ToLower(strings.TrimSpace(s))); o {
	case "", OrderSeq, OrderRank, OrderBookmarks:
		return o, true
	default:
		return "", false
	}
}
