package parser

// Table 表格：行 → 单元格文本
type Table [][]string

// Document 文档解析结果（段落按顺序，表格按顺序）
type Document struct {
	Name       string   `json:"name,omitempty"`
	Paragraphs []string `json:"paragraphs"`
	Tables     []Table  `json:"tables"`
}

// MatchSource 引用的检出方式
type MatchSource int

const (
	SourceLine     MatchSource = iota // 单行匹配
	SourceLookback                    // 与上一行拼接后匹配
	SourceRowPair                     // 表格行内编号/名称配对
)

func (s MatchSource) String() string {
	switch s {
	case SourceLookback:
		return "lookback"
	case SourceRowPair:
		return "row_pair"
	default:
		return "line"
	}
}
