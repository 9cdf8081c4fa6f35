package lookup

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// 详情页表格标签
const (
	labelPublishDate   = "发布日期"
	labelImplementDate = "实施日期"
	labelWithdrawDate  = "作废日期"
	labelReplacement   = "替代情况"
)

// resultRow 检索结果列表中的一行
type resultRow struct {
	Code   string
	Title  string
	Status string
	Href   string
}

// decodeHTML 按 Content-Type / meta 声明的编码（站点为 GBK）解码并解析
func decodeHTML(body io.Reader, contentType string) (*html.Node, string, error) {
	r, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, "", err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return nil, "", err
	}
	return doc, string(raw), nil
}

// parseResultRows 提取 table.heng 中 bgcolor=#FFFFFF 的结果行
func parseResultRows(doc *html.Node) []resultRow {
	var rows []resultRow
	walk(doc, func(n *html.Node) bool {
		if !isElement(n, "table") || !hasClass(n, "heng") {
			return true
		}
		walk(n, func(tr *html.Node) bool {
			if isElement(tr, "tr") && strings.EqualFold(attr(tr, "bgcolor"), "#FFFFFF") {
				rows = append(rows, parseResultRow(tr))
				return false
			}
			return true
		})
		return false
	})
	return rows
}

func parseResultRow(tr *html.Node) resultRow {
	var tds []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "td") {
			tds = append(tds, c)
		}
	}

	row := resultRow{}
	if a := find(tr, func(n *html.Node) bool { return isElement(n, "a") }); a != nil {
		row.Href = attr(a, "href")
	}
	if len(tds) > 0 {
		row.Code = textOf(tds[0])
		row.Status = textOf(tds[len(tds)-1])
	}
	if len(tds) > 1 {
		row.Title = textOf(tds[1])
	}
	return row
}

// textAfter 找到包含标签的单元格，返回其后一个单元格的文本
func textAfter(doc *html.Node, label string) (string, bool) {
	var (
		out   string
		found bool
	)
	walk(doc, func(n *html.Node) bool {
		if found {
			return false
		}
		if !isElement(n, "td") || hasNestedCell(n) {
			return true
		}
		text := textOf(n)
		match := strings.Contains(text, label)
		if label == labelReplacement {
			// 替代情况单元格可能带图片，只按文本前缀判断
			match = strings.HasPrefix(text, label)
		}
		if !match {
			return true
		}
		if next := nextElementSibling(n, "td"); next != nil {
			out, found = textOf(next), true
			return false
		}
		return true
	})
	return out, found
}

// hasDates 详情页至少包含一个日期字段
func hasDates(doc *html.Node) bool {
	for _, label := range []string{labelPublishDate, labelImplementDate, labelWithdrawDate} {
		if v, ok := textAfter(doc, label); ok && v != "" {
			return true
		}
	}
	return false
}

func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	var hit *html.Node
	walk(n, func(c *html.Node) bool {
		if hit != nil {
			return false
		}
		if pred(c) {
			hit = c
			return false
		}
		return true
	})
	return hit
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// hasNestedCell 外层布局单元格内嵌表格时不参与标签匹配
func hasNestedCell(td *html.Node) bool {
	for c := td.FirstChild; c != nil; c = c.NextSibling {
		if find(c, func(n *html.Node) bool { return isElement(n, "td") }) != nil {
			return true
		}
	}
	return false
}

func nextElementSibling(n *html.Node, tag string) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			if s.Data == tag {
				return s
			}
			return nil
		}
	}
	return nil
}

// textOf 拼接所有文本节点（逐段去首尾空白）
func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(c.Data))
		}
		return true
	})
	return sb.String()
}
