package pixiv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/fetch"
)

const illustJSON = `{
  "error": false,
  "message": "",
  "body": {
    "illustId": "1001",
    "illustTitle": "夕焼け",
    "illustType": 1,
    "createDate": "2024-05-06T12:34:56+09:00",
    "userId": "77",
    "userName": "artist",
    "width": 1200,
    "height": 800,
    "pageCount": 3,
    "bookmarkCount": 345,
    "bookmarkData": {"id": "1", "private": false},
    "urls": {"original": "https://i.pximg.net/img-original/img/2024/05/06/12/34/56/1001_p0.png"},
    "tags": {"tags": [
      {"tag": "風景", "translation": {"en": "scenery", "zh": "风景"}},
      {"tag": "オリジナル"}
    ]}
  }
}`

const ugoiraJSON = `{
  "error": false,
  "message": "",
  "body": {
    "src": "https://i.pximg.net/img-zip-ugoira/1002_ugoira600x600.zip",
    "originalSrc": "https://i.pximg.net/img-zip-ugoira/1002_ugoira1920x1080.zip",
    "mime_type": "image/jpeg",
    "frames": [{"file": "000000.jpg", "delay": 100}, {"file": "000001.jpg", "delay": 120}]
  }
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ajax/illust/1001":
			_, _ = w.Write([]byte(illustJSON))
		case "/ajax/illust/1002/ugoira_meta":
			_, _ = w.Write([]byte(ugoiraJSON))
		case "/ajax/illust/403":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":true,"message":"forbidden","body":[]}`))
		case "/ajax/illust/500":
			_, _ = w.Write([]byte(`{"error":true,"message":"作品已删除","body":[]}`))
		case "/ajax/illust/1003":
			_, _ = w.Write([]byte(strings.Replace(illustJSON, `"2024-05-06T12:34:56+09:00"`, `""`, 1)))
		case "/ajax/illust/zstd":
			w.Header().Set("Content-Encoding", "zstd")
			_, _ = w.Write([]byte(`{"error":false,"body":{}}`))
		case "/ajax/illust/html":
			_, _ = w.Write([]byte(`<html>verify</html>`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetchItem_ParsesDetail(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c := &Client{HTTP: srv.Client(), BaseURL: srv.URL, TagLanguage: "zh-Hans"}
	d, err := c.FetchItem(context.Background(), "1001")
	require.NoError(t, err)

	assert.Equal(t, domain.WorkID("1001"), d.ID)
	assert.Equal(t, domain.TypeManga, d.Type)
	assert.Equal(t, 3, d.PageCount)
	assert.Equal(t, 345, d.Bookmarks)
	assert.True(t, d.Bookmarked)
	assert.Equal(t, "2024-05-06", d.CreatedAt.Format("2006-01-02"))
	require.Len(t, d.Tags, 2)
	assert.Equal(t, "风景", d.Tags[0].Translation, "zh-Hans 应映射到 zh")
	assert.Empty(t, d.Tags[1].Translation)
	assert.Contains(t, d.OriginalURL, "1001_p0.png")
}

func TestFetchAnimationMeta_PrefersOriginalSrc(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c := &Client{HTTP: srv.Client(), BaseURL: srv.URL}
	m, err := c.FetchAnimationMeta(context.Background(), "1002")
	require.NoError(t, err)
	assert.Contains(t, m.SourceURL, "1920x1080")
	assert.Equal(t, "image/jpeg", m.MimeType)
	assert.Len(t, m.Frames, 2)
}

func TestFetchItem_StatusErrorsArePermanent(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := &Client{HTTP: srv.Client(), BaseURL: srv.URL}

	for id, wantStatus := range map[domain.WorkID]int{"403": 403, "404": 404, "500": 200, "html": 200} {
		_, err := c.FetchItem(context.Background(), id)
		status, permanent := fetch.Classify(err)
		assert.True(t, permanent, "id=%s err=%v", id, err)
		assert.Equal(t, wantStatus, status, "id=%s", id)
	}
}

func TestFetchItem_UndecodableBodyIsPermanent(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := &Client{HTTP: srv.Client(), BaseURL: srv.URL}

	_, err := c.FetchItem(context.Background(), "zstd")
	require.Error(t, err)
	status, permanent := fetch.Classify(err)
	assert.True(t, permanent, "不支持的编码重试也不会成功：%v", err)
	assert.Equal(t, 200, status)
	assert.Contains(t, err.Error(), "read body")
}

func TestFetchItem_EmptyCreateDateKeepsOtherFields(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := &Client{HTTP: srv.Client(), BaseURL: srv.URL}

	d, err := c.FetchItem(context.Background(), "1003")
	require.NoError(t, err)
	assert.True(t, d.CreatedAt.IsZero())
	assert.Equal(t, "夕焼け", d.Title)
	assert.Equal(t, 3, d.PageCount)
}

func TestParseCreateDate(t *testing.T) {
	assert.True(t, parseCreateDate("").IsZero())
	assert.True(t, parseCreateDate("昨天").IsZero())
	got := parseCreateDate("2024-05-06T12:34:56+09:00")
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.May, got.Month())
}

func TestFetchItem_NetworkErrorIsTransient(t *testing.T) {
	srv := newServer(t)
	url := srv.URL
	srv.Close() // 连接被拒绝

	c := &Client{HTTP: &http.Client{Timeout: time.Second}, BaseURL: url}
	_, err := c.FetchItem(context.Background(), "1001")
	require.Error(t, err)

	_, permanent := fetch.Classify(err)
	assert.False(t, permanent)
	var te *fetch.TransientError
	assert.True(t, errors.As(err, &te))
}

func TestTranslationKey(t *testing.T) {
	assert.Equal(t, "en", translationKey(""))
	assert.Equal(t, "en", translationKey("EN-us"))
	assert.Equal(t, "ko", translationKey("ko"))
}
