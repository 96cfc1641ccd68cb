package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

func TestRules_ZeroValueAcceptsEverything(t *testing.T) {
	assert.True(t, Rules{}.Check(domain.FilterCriteria{}))
	assert.True(t, AcceptAll{}.Check(domain.FilterCriteria{Bookmarks: -1}))
}

func TestRules_Check(t *testing.T) {
	base := domain.FilterCriteria{
		Type:       domain.TypeIllust,
		Tags:       []string{"風景", "Original"},
		Bookmarks:  120,
		Bookmarked: false,
		Width:      1920,
		Height:     1080,
	}

	cases := []struct {
		name  string
		rules Rules
		want  bool
	}{
		{"类型命中", Rules{Types: []domain.ItemType{domain.TypeIllust, domain.TypeManga}}, true},
		{"类型不命中", Rules{Types: []domain.ItemType{domain.TypeUgoira}}, false},
		{"收藏数不足", Rules{MinBookmarks: 121}, false},
		{"收藏数刚好", Rules{MinBookmarks: 120}, true},
		{"宽度不足", Rules{MinWidth: 2000}, false},
		{"高度不足", Rules{MinHeight: 1081}, false},
		{"只要已收藏", Rules{Bookmarked: BookmarkedYes}, false},
		{"只要未收藏", Rules{Bookmarked: BookmarkedNo}, true},
		{"包含标签（忽略大小写）", Rules{IncludeTags: []string{"original"}}, true},
		{"包含标签不命中", Rules{IncludeTags: []string{"R-18"}}, false},
		{"排除标签命中", Rules{ExcludeTags: []string{"風景"}}, false},
		{"空白标签被忽略", Rules{IncludeTags: []string{" "}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rules.Check(base))
		})
	}
}

func TestFunc(t *testing.T) {
	var e Engine = Func(func(c domain.FilterCriteria) bool { return c.Bookmarks >= 10 })
	assert.False(t, e.Check(domain.FilterCriteria{Bookmarks: 9}))
	assert.True(t, e.Check(domain.FilterCriteria{Bookmarks: 10}))
}
