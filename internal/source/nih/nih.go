package nih

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/CXRKit/internal/archive"
	"github.com/John-Robertt/CXRKit/internal/domain"
	"github.com/John-Robertt/CXRKit/internal/infra/httpx"
	"github.com/John-Robertt/CXRKit/internal/source"
)

// archiveLinks 是 12 个归档的固定下载地址。
//
// 顺序就是上游发布页列出的顺序，严禁调整：下载文件按位置命名
// （images_01 … images_12），与上游文档/校验清单逐一对应。
// 页面：https://nihcc.app.box.com/v/ChestXray-NIHCC
var archiveLinks = []string{
	"https://nihcc.box.com/shared/static/vfk49d74nhbxq3nqjg0900w5nvkorp5c.gz",
	"https://nihcc.box.com/shared/static/i28rlmbvmfjbl8p2n3ril0pptcmcu9d1.gz",
	"https://nihcc.box.com/shared/static/f1t00wrtdk94satdfb9olcolqx20z2jp.gz",
	"https://nihcc.box.com/shared/static/0aowwzs5lhjrceb3qp67ahp0rd1l1etg.gz",
	"https://nihcc.box.com/shared/static/v5e3goj22zr6h8tzualxfsqlqaygfbsn.gz",
	"https://nihcc.box.com/shared/static/asi7ikud9jwnkrnkj99jnpfkjdes7l6l.gz",
	"https://nihcc.box.com/shared/static/jn1b4mw4n6lnh74ovmcjb8y48h8xj07n.gz",
	"https://nihcc.box.com/shared/static/tvpxmn7qyrgl0w8wfh9kqfjskv6nmm1j.gz",
	"https://nihcc.box.com/shared/static/upyy3ml7qdumlgk2rfcvlb9k6gvqq2pj.gz",
	"https://nihcc.box.com/shared/static/l6nilvfa9cg3s28tqv1qc1olm3gnz54p.gz",
	"https://nihcc.box.com/shared/static/hhq8fkdgvcari67vfhs7ppg2w6ni4jze.gz",
	"https://nihcc.box.com/shared/static/ioqwiy20ihqwyr8pf4c24eazhh281pbu.gz",
}

// Source 下载 NIH ChestXray14 的 12 个图片归档（tar.gz），按需就地解压。
//
// 可选：Options.ManifestURL 指向一个 HTML 清单页时，链接列表从该页刷新
// （上游偶尔轮换分享链接；清单里的链接同样按文档顺序排列）。
type Source struct{}

func (Source) Name() string { return "nih" }

func (Source) Fetch(ctx context.Context, c *http.Client, opt source.Options, p source.Progress) ([]domain.ArchiveResult, error) {
	links := archiveLinks
	if strings.TrimSpace(opt.ManifestURL) != "" {
		refreshed, err := fetchManifestLinks(ctx, c, opt.ManifestURL)
		if err != nil {
			return nil, fmt.Errorf("刷新归档清单失败：%w", err)
		}
		if len(refreshed) != len(archiveLinks) {
			return nil, fmt.Errorf("清单链接数不符：期望 %d，实际 %d（拒绝部分下载）", len(archiveLinks), len(refreshed))
		}
		links = refreshed
	}

	results := make([]domain.ArchiveResult, 0, len(links))
	for i, link := range links {
		// 位置命名：与上游文档一一对应，顺序即语义。
		name := fmt.Sprintf("images_%02d.tar.gz", i+1)

		started := time.Now()
		var sinkFn func(size int64) io.Writer
		if p != nil {
			idx, total := i+1, len(links)
			sinkFn = func(size int64) io.Writer {
				return p.OnArchiveStart(idx, total, name, size)
			}
		}
		written, err := source.Download(ctx, c, link, opt.Dest, name, sinkFn)
		if err != nil {
			// 单个归档失败即整次失败：没有部分成功的记账。
			return results, fmt.Errorf("下载 %s 失败：%w", name, err)
		}
		if p != nil {
			p.OnArchiveDone(i+1, len(links), name, written, time.Since(started))
		}

		res := domain.ArchiveResult{
			Name:  name,
			URL:   link,
			Bytes: written,
		}
		if opt.Extract {
			if err := archive.Extract(filepath.Join(opt.Dest, name), opt.Dest); err != nil {
				return append(results, res), fmt.Errorf("解压 %s 失败：%w", name, err)
			}
			res.Extracted = true
		}
		results = append(results, res)
	}
	return results, nil
}

func fetchManifestLinks(ctx context.Context, c *http.Client, manifestURL string) ([]string, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, err
	}

	resp, err := httpx.Get(ctx, c, manifestURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseManifest(base, html)
}

// parseManifest 从 HTML 清单页提取归档链接（按文档顺序）。
// 识别规则：href 以 .gz 结尾的 <a> 标签；相对链接按清单页地址解析为绝对地址
//（HTML 页面里的下载链接通常是相对路径）；重复链接去重（保留首次出现的位置）。
func parseManifest(base *url.URL, html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, 16)
	links := make([]string, 0, 16)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if !strings.HasSuffix(strings.ToLower(href), ".gz") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	if len(links) == 0 {
		return nil, fmt.Errorf("清单页里没有 .gz 链接（页面结构变化？）")
	}
	return links, nil
}
