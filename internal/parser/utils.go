package parser

import (
	"strings"
	"unicode"
)

// 中文全角标点 → 英文半角标点
var zhPuncReplacer = strings.NewReplacer(
	"，", ",", "。", ".", "：", ":", "；", ";", "？", "?",
	"！", "!", "（", "(", "）", ")", "【", "[", "】", "]",
	"《", "<", "》", ">", "“", `"`, "”", `"`, "‘", "'", "’", "'",
	"、", ",", "－", "-", "～", "~", "＋", "+", "％", "%",
)

// NormalizeTitle 把标题中的全角标点替换为半角
func NormalizeTitle(text string) string {
	return zhPuncReplacer.Replace(text)
}

// StripSpaces 去除所有空白字符（含全角空格、换行）
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeName 比较前对名称统一处理：半角化 + 去空白
func NormalizeName(s string) string {
	return StripSpaces(NormalizeTitle(s))
}

// SameTitle 两个标题规范化后是否一致
func SameTitle(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// splitLines 按 \r、\n 切分，保留空行
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
