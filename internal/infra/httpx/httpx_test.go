package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewDownloadClient_Timeout(t *testing.T) {
	c, err := NewDownloadClient("", 90*time.Second)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if c.Timeout != 90*time.Second {
		t.Fatalf("期望总超时 90s，实际=%v", c.Timeout)
	}

	// 0 表示不设总超时（大归档下载允许长时间传输）。
	c, err = NewDownloadClient("", 0)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if c.Timeout != 0 {
		t.Fatalf("期望无总超时，实际=%v", c.Timeout)
	}
}

func TestNewDownloadClient_InvalidProxy(t *testing.T) {
	if _, err := NewDownloadClient("not a url", 0); err == nil {
		t.Fatal("非法 proxy.url 应当报错")
	}
}

func TestGet_StatusCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			_, _ = w.Write([]byte("body"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := NewDownloadClient("", 0)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	resp, err := Get(context.Background(), c, srv.URL+"/ok")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	_ = resp.Body.Close()

	if _, err := Get(context.Background(), c, srv.URL+"/missing"); err == nil {
		t.Fatal("HTTP 404 应当报错")
	}
}
