package parser

import (
	"regexp"
	"strings"
)

// codeExpr 标准编号语法：
// 主前缀字母 + 可选数字 + 可选子前缀(/T) + 可选空格 + 数字主体(5750.1)
// + 可选范围(~ - ～) + 可选年份(-2019) + 可选尾部字母(E) + 可选修改单(/XG1-2022)
const codeExpr = `(?P<code>` +
	`[A-Z]+(?:[0-9]+)?` +
	`(?:/[A-Z0-9]+)?` +
	space + `*` +
	`\d+(?:\.\d+)*` +
	`(?:[~\-～]\d+(?:\.\d+)*)?` +
	`(?:-\d{4})?` +
	`(?:[A-Z]+)?` +
	`(?:/XG\d+-\d{4})?` +
	`)`

const (
	leftParen  = `[（(]`
	rightParen = `[)）]`

	// space 空白，含不换行空格 U+00A0 和全角空格 U+3000
	space = `[\s\x{00A0}\p{Zs}]`
)

var (
	// patCode 单元格内容恰好是一个（可带括号的）编号
	patCode = regexp.MustCompile(`^(?:` + leftParen + space + `*)?` + codeExpr + `(?:` + space + `*` + rightParen + `)?$`)

	// patName 单元格内容恰好是《名称》
	patName = regexp.MustCompile(`^《(?P<name>[^》]+)》$`)

	// patCodeThenTitle 编号在前：GB/T 5750.1-2006《生活饮用水标准检验方法》
	patCodeThenTitle = regexp.MustCompile(leftParen + `?` + space + `*` + codeExpr + space + `*` + rightParen + `?` + space + `*《(?P<name>[^》]+)》`)

	// patTitleThenCode 名称在前：《生活饮用水标准检验方法》(GB/T 5750.1-2006)
	patTitleThenCode = regexp.MustCompile(`《(?P<name>[^》]+)》.*?` + space + `*` + leftParen + `?` + space + `*` + codeExpr + space + `*` + rightParen + `?`)

	linePatterns = []*regexp.Regexp{patCodeThenTitle, patTitleThenCode}
)

// 行政文件编号用语（主席令、国务院令、第X号、〔2024〕）
var (
	reCJK            = regexp.MustCompile(`[\p{Han}]`)
	reAdminNumber    = regexp.MustCompile(`第\d+号`)
	reAdminYear      = regexp.MustCompile(`〔\d+〕`)
	reLeadingLetters = regexp.MustCompile(`^[A-Z]+`)
	reDigit          = regexp.MustCompile(`\d`)
	adminKeywords    = []string{"主席令", "国务院令", "号"}
)

// IsValidStandardCode 过滤掉行政文件编号，只保留字母数字形式的标准编号
func IsValidStandardCode(raw string) bool {
	if reCJK.MatchString(raw) || ContainsAny(raw, adminKeywords) {
		return false
	}
	if reAdminNumber.MatchString(raw) || reAdminYear.MatchString(raw) {
		return false
	}

	clean := StripSpaces(raw)
	if !reLeadingLetters.MatchString(clean) {
		return false
	}
	return reDigit.MatchString(clean)
}

// MatchCode 整体匹配一个编号（允许括号包裹），返回去掉括号的原始编号
func MatchCode(text string) (string, bool) {
	m := patCode.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[patCode.SubexpIndex("code")], true
}

// MatchName 整体匹配《名称》，返回书名号内的文本
func MatchName(text string) (string, bool) {
	m := patName.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[patName.SubexpIndex("name")], true
}

// IsAmendment 编号是否为修改单（/XGn-yyyy）
func IsAmendment(code string) bool {
	return strings.Contains(code, "/XG")
}
