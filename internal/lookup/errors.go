package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind 检索失败分类
type Kind string

const (
	// KindNoResult 无搜索结果
	KindNoResult Kind = "no_result"
	// KindTooMany 搜索结果过多（大于 20 个）
	KindTooMany Kind = "too_many"
	// KindAccessDenied 被重定向到拒绝访问页
	KindAccessDenied Kind = "access_denied"
)

// 错误信息，与标准库工作簿中的“错误信息”列一致
const (
	MsgNoResult           = "无搜索结果"
	MsgTooMany            = "搜索结果过多（大于20个），请检查"
	MsgAccessDenied       = "网站拒绝我们访问（www.csres.com/error/noright.html）"
	MsgDetailAccessDenied = "子页面拒绝我们访问（www.csres.com/error/noright.html）"
)

var (
	// ErrProbeTimeout 连通性探测超时，整个运行中止
	ErrProbeTimeout = errors.New("lookup: probe timed out")
	// ErrProbeFailed 连通性探测失败，整个运行中止
	ErrProbeFailed = errors.New("lookup: probe failed")
)

// CrawlError 已分类的检索失败，附带最后一次请求/响应头用于排查
type CrawlError struct {
	Kind           Kind
	Code           string
	Message        string
	RequestHeader  http.Header
	ResponseHeader http.Header
}

// Error implements error
func (e *CrawlError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Permanent NoResult / TooMany 不是临时故障，不再整体重试
func (e *CrawlError) Permanent() bool {
	return e.Kind == KindNoResult || e.Kind == KindTooMany
}

// AsCrawlError 提取 CrawlError
func AsCrawlError(err error) (*CrawlError, bool) {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// FormatHeader 把请求/响应头格式化为 JSON 文本，写入诊断表（Cookie 不落盘）
func FormatHeader(h http.Header) string {
	if len(h) == 0 {
		return "{}"
	}
	flat := make(map[string]string, len(h))
	for k, v := range h {
		if k == "Cookie" {
			flat[k] = "<redacted>"
			continue
		}
		if len(v) == 1 {
			flat[k] = v[0]
			continue
		}
		b, _ := json.Marshal(v)
		flat[k] = string(b)
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return fmt.Sprint(flat)
	}
	return string(b)
}

func newCrawlError(kind Kind, code, msg string, p *page) *CrawlError {
	ce := &CrawlError{Kind: kind, Code: code, Message: msg}
	if p != nil {
		ce.RequestHeader = p.requestHeader
		ce.ResponseHeader = p.responseHeader
	}
	return ce
}
