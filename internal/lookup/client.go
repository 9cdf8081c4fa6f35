// Package lookup 标准信息远程检索（www.csres.com）：按编号检索结果列表，再逐条抓取详情页日期和替代情况。
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/retry"
)

// Source 远程检索边界，采集流水线只依赖该接口
type Source interface {
	// Probe 连通性探测，失败时整个运行中止
	Probe(ctx context.Context) error
	// Lookup 检索一个编号，返回全部命中记录；失败为 *CrawlError 或临时错误
	Lookup(ctx context.Context, code string, knownBad bool) ([]model.LookupHit, error)
}

// Config 检索客户端配置
type Config struct {
	BaseURL        string
	SearchPath     string
	DeniedURL      string // 拒绝访问页
	Username       string
	Password       string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
	MaxResults     int
	SearchRetry    retry.Policy
	DetailRetry    retry.Policy
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://www.csres.com/",
		SearchPath:     "s.jsp",
		DeniedURL:      "http://www.csres.com/error/noright.html",
		DialTimeout:    5 * time.Second,
		RequestTimeout: 35 * time.Second,
		ProbeTimeout:   20 * time.Second,
		MaxResults:     20,
		SearchRetry:    retry.Policy{MaxAttempts: 5, Pause: 2 * time.Second},
		DetailRetry:    retry.Policy{MaxAttempts: 5, Pause: 2 * time.Second},
	}
}

// 浏览器请求头
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language": "zh-CN,zh;q=0.9,ja-CN;q=0.8,ja;q=0.7,en-CN;q=0.6,en;q=0.5",
	"Connection":      "keep-alive",
}

// Client 检索客户端。一次运行共用一个连接池和一套 cookie。
type Client struct {
	cfg        Config
	base       *url.URL
	http       *http.Client
	authCookie string
	log        *zap.Logger
}

var _ Source = (*Client)(nil)

// NewClient 创建检索客户端
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: 30 * time.Second}).DialContext

	c := &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		// userName 带引号，按原样写入请求头，避免被 net/http 的 cookie 清洗去掉
		authCookie: fmt.Sprintf(`source=%s; userName="%s"; userPass=%s`, base.Host, cfg.Username, cfg.Password),
		log:        log,
	}
	log.Info("cookie jar ready", zap.String("host", base.Host))
	return c, nil
}

// Probe 访问首页，确认网络和站点可用
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	if _, err := c.fetch(ctx, c.base.String()); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrProbeTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	c.log.Info("probe ok", zap.String("url", c.base.String()))
	return nil
}

// Lookup 检索编号并抓取每条结果的详情
func (c *Client) Lookup(ctx context.Context, code string, knownBad bool) ([]model.LookupHit, error) {
	rows, err := c.search(ctx, code, knownBad)
	if err != nil {
		return nil, err
	}

	hits := make([]model.LookupHit, 0, len(rows))
	for _, row := range rows {
		if row.Href == "" {
			c.log.Warn("result row has no detail link, skipped", zap.String("code", code), zap.String("hit", row.Code))
			continue
		}
		hit, err := c.detail(ctx, code, row)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// SearchURL 检索地址，关键字按 GBK 编码
func (c *Client) SearchURL(keyword string, pageNum int) (string, error) {
	kw, err := simplifiedchinese.GBK.NewEncoder().String(keyword)
	if err != nil {
		return "", fmt.Errorf("gbk encode %q: %w", keyword, err)
	}
	u := c.base.ResolveReference(&url.URL{Path: c.cfg.SearchPath})
	u.RawQuery = fmt.Sprintf("keyword=%s&pageNum=%d", url.QueryEscape(kw), pageNum)
	return u.String(), nil
}

func (c *Client) search(ctx context.Context, code string, knownBad bool) ([]resultRow, error) {
	searchURL, err := c.SearchURL(code, 1)
	if err != nil {
		return nil, err
	}

	var last *page
	_, err = retry.Do(ctx, c.cfg.SearchRetry, func(attempt int) (*page, error) {
		p, err := c.fetch(ctx, searchURL)
		if err != nil {
			c.log.Warn("search request failed", zap.String("code", code), zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		}
		p.rows = parseResultRows(p.doc)
		last = p
		return p, nil
	}, func(p *page, err error) bool {
		if err != nil {
			return true
		}
		if c.rejected(p) {
			return true
		}
		// 已知无结果的编号：未被拒绝且无结果时直接判定，不再重试
		return len(p.rows) == 0 && !knownBad
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if last == nil {
		return nil, fmt.Errorf("search %s: %w", code, err)
	}

	switch {
	case c.rejected(last):
		return nil, newCrawlError(KindAccessDenied, code, MsgAccessDenied, last)
	case len(last.rows) == 0:
		return nil, newCrawlError(KindNoResult, code, MsgNoResult, last)
	case len(last.rows) > c.cfg.MaxResults:
		return nil, newCrawlError(KindTooMany, code, MsgTooMany, last)
	}
	return last.rows, nil
}

func (c *Client) detail(ctx context.Context, code string, row resultRow) (model.LookupHit, error) {
	ref, err := url.Parse(row.Href)
	if err != nil {
		return model.LookupHit{}, fmt.Errorf("detail link %q: %w", row.Href, err)
	}
	detailURL := c.base.ResolveReference(ref).String()

	var last *page
	_, err = retry.Do(ctx, c.cfg.DetailRetry, func(attempt int) (*page, error) {
		p, err := c.fetch(ctx, detailURL)
		if err != nil {
			c.log.Warn("detail request failed", zap.String("code", code), zap.String("url", detailURL), zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		}
		last = p
		return p, nil
	}, func(p *page, err error) bool {
		return err != nil || c.rejected(p) || !hasDates(p.doc)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.LookupHit{}, ctxErr
	}
	if last == nil {
		return model.LookupHit{}, fmt.Errorf("detail %s: %w", detailURL, err)
	}
	if c.rejected(last) {
		return model.LookupHit{}, newCrawlError(KindAccessDenied, code, MsgDetailAccessDenied, last)
	}

	status := model.Status(row.Status)
	hit := model.LookupHit{
		Code:       row.Code,
		Title:      row.Title,
		Status:     status,
		DetailHTML: last.raw,
	}
	hit.PublishDate, _ = textAfter(last.doc, labelPublishDate)
	hit.ImplementDate, _ = textAfter(last.doc, labelImplementDate)
	if status.Withdrawn() {
		hit.WithdrawDate, _ = textAfter(last.doc, labelWithdrawDate)
		hit.Replacement, _ = textAfter(last.doc, labelReplacement)
	}
	return hit, nil
}

// page 一次请求的结果
type page struct {
	finalURL       string
	doc            *html.Node
	raw            string
	rows           []resultRow
	requestHeader  http.Header
	responseHeader http.Header
}

func (c *Client) rejected(p *page) bool {
	return p != nil && p.finalURL == c.cfg.DeniedURL
}

func (c *Client) fetch(ctx context.Context, rawURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("Referer", c.base.String())
	req.Header.Set("Cookie", c.authCookie)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, raw, err := decodeHTML(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return &page{
		finalURL:       resp.Request.URL.String(),
		doc:            doc,
		raw:            raw,
		requestHeader:  resp.Request.Header.Clone(),
		responseHeader: resp.Header.Clone(),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
