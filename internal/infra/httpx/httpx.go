package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "CXRKit/1.0"

// NewDownloadClient 构造用于归档下载的 HTTP client。
//
// 规则：
// - 不做任何重试：单个归档失败即整次 fetch 失败（上层契约，无断点续传）
// - timeout 是整次请求（含 body 读取）的总超时；0 表示不设总超时，
//   只靠握手/响应头超时兜底（大归档下载常见做法，但必须是显式选择）
// - proxyURL 非空：必须走代理
func NewDownloadClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy.url 无效：%q", proxyURL)
		}
		base.Proxy = http.ProxyURL(u)
	}

	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{
		Transport: base,
		Timeout:   timeout,
	}, nil
}

// Get 发起一次 GET 并校验 2xx；调用方负责 Close resp.Body。
func Get(ctx context.Context, c *http.Client, rawURL string) (*http.Response, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d（%s）", resp.StatusCode, rawURL)
	}
	return resp, nil
}
