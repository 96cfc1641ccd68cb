package crawl

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

const DefaultAnimatedExt = "zip"

// ExpandOptions 是把一个作品展开为结果记录所需的参数。
type ExpandOptions struct {
	// PerWorkPageLimit<=0 表示不限制。
	PerWorkPageLimit int
	AnimatedExt      string
	RankLabel        string
}

// Expand 把一个作品详情展开为结果记录。
//
// - 静态作品：min(页数, 限制) 条，id 为 "<base>_p<i>"，URL 由第 0 页原图地址替换页码得到
// - 动图：一条，id 为 base，URL 为动图源压缩包；anim 为 nil 时不产出
//
// seq 是作品在播种队列中的位置，用于默认排序。
func Expand(base domain.WorkID, seq int, d domain.ItemDetail, anim *domain.AnimationMeta, opts ExpandOptions) []domain.ResultRecord {
	proto := domain.ResultRecord{
		WorkID:         base,
		Title:          d.Title,
		Tags:           d.TagNames(),
		TagsTranslated: d.TranslatedTags(),
		UserID:         d.UserID,
		User:           d.UserName,
		Width:          d.Width,
		Height:         d.Height,
		Bookmarks:      d.Bookmarks,
		Date:           formatDate(d),
		Type:           d.Type,
		Rank:           opts.RankLabel,
		Seq:            seq,
	}

	if d.Kind() == domain.KindAnimated {
		if anim == nil {
			return nil
		}
		r := proto
		r.ID = string(base)
		r.URL = anim.SourceURL
		r.Ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(opts.AnimatedExt)), ".")
		if r.Ext == "" {
			r.Ext = DefaultAnimatedExt
		}
		r.Animation = &domain.AnimationInfo{
			Frames:   append([]domain.Frame(nil), anim.Frames...),
			MimeType: anim.MimeType,
		}
		return []domain.ResultRecord{r}
	}

	n := EffectivePageCount(d.PageCount, opts.PerWorkPageLimit)
	out := make([]domain.ResultRecord, 0, n)
	for i := 0; i < n; i++ {
		r := proto
		r.ID = string(base) + "_p" + strconv.Itoa(i)
		r.URL = PageURL(d.OriginalURL, i)
		r.Ext = ExtOf(r.URL)
		r.Page = i
		out = append(out, r)
	}
	return out
}

// EffectivePageCount 返回静态作品实际展开的页数：limit>0 时取 min(pageCount, limit)。
// 页数缺失（<=0）按 1 页处理。
func EffectivePageCount(pageCount, limit int) int {
	if pageCount < 1 {
		pageCount = 1
	}
	if limit > 0 && limit < pageCount {
		return limit
	}
	return pageCount
}

// PageURL 把第 0 页原图地址中的页码替换为 i（优先替换 "_p0"）。
func PageURL(original string, i int) string {
	if i == 0 {
		return original
	}
	p := strconv.Itoa(i)
	if strings.Contains(original, "_p0") {
		return strings.Replace(original, "_p0", "_p"+p, 1)
	}
	return strings.Replace(original, "p0", "p"+p, 1)
}

// ExtOf 取 URL 路径最后一段的扩展名（小写，不含点）。
func ExtOf(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

func formatDate(d domain.ItemDetail) string {
	if d.CreatedAt.IsZero() {
		return ""
	}
	return d.CreatedAt.Format("2006-01-02")
}
