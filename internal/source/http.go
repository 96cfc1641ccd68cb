package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/pxcrawl/internal/infra/httpx"
)

// HTTPStatusError 表示列表页返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d url=%s", e.StatusCode, e.URL)
}

// Get 抓取一个列表页并返回解压后的 body。
// 不做重试：列表阶段失败直接终止本次抓取，由用户决定是否重跑。
func Get(ctx context.Context, c *http.Client, u string, accept string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(accept) != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return httpx.ReadBody(resp, 0)
}
