package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

func recordIDs(recs []domain.ResultRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestExpand_StaticRespectsPageLimit(t *testing.T) {
	d := staticWork("W1", 5).detail

	recs := Expand("W1", 3, d, nil, ExpandOptions{PerWorkPageLimit: 2})
	assert.Equal(t, []string{"W1_p0", "W1_p1"}, recordIDs(recs))
	assert.Equal(t, "https://i.pximg.net/img-original/img/2024/05/06/12/00/00/W1_p1.png", recs[1].URL)
	assert.Equal(t, "png", recs[1].Ext)
	assert.Equal(t, 3, recs[1].Seq)
	assert.Equal(t, 1, recs[1].Page)
	assert.Equal(t, "2024-05-06", recs[0].Date)
	assert.Equal(t, []string{"風景"}, recs[0].Tags)
	assert.Equal(t, []string{"風景", "scenery"}, recs[0].TagsTranslated)
	assert.Nil(t, recs[0].Animation)

	recs = Expand("W1", 0, d, nil, ExpandOptions{PerWorkPageLimit: 0})
	assert.Len(t, recs, 5)
	assert.Equal(t, "W1_p4", recs[4].ID)

	recs = Expand("W1", 0, d, nil, ExpandOptions{PerWorkPageLimit: 10})
	assert.Len(t, recs, 5, "限制大于页数时取页数")
}

func TestExpand_SinglePageStillSuffixed(t *testing.T) {
	d := staticWork("7", 1).detail
	d.Type = domain.TypeIllust
	recs := Expand("7", 0, d, nil, ExpandOptions{})
	assert.Equal(t, []string{"7_p0"}, recordIDs(recs))
	assert.Equal(t, d.OriginalURL, recs[0].URL)
}

func TestExpand_Animated(t *testing.T) {
	sc := animatedWork("W2")
	recs := Expand("W2", 1, sc.detail, &sc.anim, ExpandOptions{AnimatedExt: ".WebM", RankLabel: "#3", PerWorkPageLimit: 1})
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "W2", r.ID)
	assert.Equal(t, sc.anim.SourceURL, r.URL)
	assert.Equal(t, "webm", r.Ext)
	assert.Equal(t, "#3", r.Rank)
	require.NotNil(t, r.Animation)
	assert.Len(t, r.Animation.Frames, 2)
	assert.Equal(t, "image/jpeg", r.Animation.MimeType)

	recs = Expand("W2", 1, sc.detail, &sc.anim, ExpandOptions{})
	assert.Equal(t, DefaultAnimatedExt, recs[0].Ext)

	assert.Empty(t, Expand("W2", 1, sc.detail, nil, ExpandOptions{}), "缺少动图元数据时不产出")
}

func TestEffectivePageCount(t *testing.T) {
	assert.Equal(t, 2, EffectivePageCount(5, 2))
	assert.Equal(t, 5, EffectivePageCount(5, 0))
	assert.Equal(t, 5, EffectivePageCount(5, -1))
	assert.Equal(t, 1, EffectivePageCount(0, 0))
}

func TestPageURL(t *testing.T) {
	u := "https://i.pximg.net/img-original/img/2024/01/01/00/00/00/100_p0.jpg"
	assert.Equal(t, u, PageURL(u, 0))
	assert.Equal(t, "https://i.pximg.net/img-original/img/2024/01/01/00/00/00/100_p12.jpg", PageURL(u, 12))
	assert.Equal(t, "https://x/100p3.jpg", PageURL("https://x/100p0.jpg", 3))
}

func TestExtOf(t *testing.T) {
	assert.Equal(t, "jpg", ExtOf("https://i.pximg.net/a/100_p0.JPG?foo=bar.png"))
	assert.Equal(t, "zip", ExtOf("https://i.pximg.net/a/100_ugoira1920x1080.zip"))
	assert.Equal(t, "", ExtOf("https://i.pximg.net/a/noext"))
}
