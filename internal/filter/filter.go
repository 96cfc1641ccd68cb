package filter

import (
	"strings"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// Engine 决定一个作品是否进入结果集。
type Engine interface {
	Check(c domain.FilterCriteria) bool
}

// AcceptAll 不过滤任何作品。
type AcceptAll struct{}

func (AcceptAll) Check(domain.FilterCriteria) bool { return true }

// Bookmarked 的三种取值。
const (
	BookmarkedAny = "any"
	BookmarkedYes = "yes"
	BookmarkedNo  = "no"
)

// Rules 是基于配置的过滤规则；零值表示不过滤。
//
// 标签比较不区分大小写；IncludeTags 要求命中其中任意一个，ExcludeTags 命中任意一个即拒绝。
type Rules struct {
	Types        []domain.ItemType
	MinBookmarks int
	IncludeTags  []string
	ExcludeTags  []string
	Bookmarked   string
	MinWidth     int
	MinHeight    int
}

var _ Engine = Rules{}

func (r Rules) Check(c domain.FilterCriteria) bool {
	if len(r.Types) > 0 && !containsType(r.Types, c.Type) {
		return false
	}
	if r.MinBookmarks > 0 && c.Bookmarks < r.MinBookmarks {
		return false
	}
	if r.MinWidth > 0 && c.Width < r.MinWidth {
		return false
	}
	if r.MinHeight > 0 && c.Height < r.MinHeight {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(r.Bookmarked)) {
	case BookmarkedYes:
		if !c.Bookmarked {
			return false
		}
	case BookmarkedNo:
		if c.Bookmarked {
			return false
		}
	}

	if len(r.ExcludeTags) > 0 && anyTag(c.Tags, r.ExcludeTags) {
		return false
	}
	if len(r.IncludeTags) > 0 && !anyTag(c.Tags, r.IncludeTags) {
		return false
	}
	return true
}

func containsType(types []domain.ItemType, t domain.ItemType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func anyTag(have []string, want []string) bool {
	for _, w := range want {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		for _, h := range have {
			if strings.EqualFold(strings.TrimSpace(h), w) {
				return true
			}
		}
	}
	return false
}

// Func 把普通函数适配为 Engine，便于测试与组合。
type Func func(domain.FilterCriteria) bool

func (f Func) Check(c domain.FilterCriteria) bool { return f(c) }
