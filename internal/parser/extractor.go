package parser

import (
	"iter"
	"slices"
	"strings"

	"github.com/peterjiatong/csres-standard-review/internal/model"
)

// Extractor 标准引用抽取器，无状态，可并发复用
type Extractor struct{}

// NewExtractor 创建抽取器
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract 抽取文档中全部标准引用（段落在前，表格在后）
func (e *Extractor) Extract(doc Document) []model.Mention {
	return slices.Collect(e.Mentions(doc))
}

// Mentions 按文档顺序逐条产出引用
func (e *Extractor) Mentions(doc Document) iter.Seq[model.Mention] {
	return func(yield func(model.Mention) bool) {
		for m := range e.annotated(doc) {
			if !yield(m.Mention) {
				return
			}
		}
	}
}

// Annotated 带检出方式的引用
type Annotated struct {
	model.Mention
	Source MatchSource
}

// ExtractAnnotated 同 Extract，附带每条引用的检出方式
func (e *Extractor) ExtractAnnotated(doc Document) []Annotated {
	return slices.Collect(e.annotated(doc))
}

func (e *Extractor) annotated(doc Document) iter.Seq[Annotated] {
	return func(yield func(Annotated) bool) {
		// 段落：回看缓冲跨段落保持
		lb := &lookback{}
		for _, p := range doc.Paragraphs {
			for _, line := range splitLines(p) {
				for _, m := range lb.feed(line) {
					if !yield(m) {
						return
					}
				}
			}
		}

		for _, tbl := range doc.Tables {
			for _, row := range tbl {
				for _, m := range extractRow(row) {
					if !yield(m) {
						return
					}
				}
			}
		}
	}
}

// lookback 一行回看缓冲：某行无结果时，下一行与它拼接后再匹配（只回看一行）
type lookback struct {
	prev    string
	pending bool
}

func (l *lookback) feed(line string) []Annotated {
	if l.pending {
		l.pending = false
		return tag(matchLine(l.prev+line), SourceLookback)
	}
	found := matchLine(line)
	if len(found) == 0 {
		l.prev = line
		l.pending = true
	}
	return tag(found, SourceLine)
}

// extractRow 表格行：先尝试“一个编号单元格 + 一个《名称》单元格”的直接配对，否则逐格逐行匹配
func extractRow(row []string) []Annotated {
	cells := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return nil
	}

	if m, ok := pairRow(cells); ok {
		return []Annotated{{Mention: m, Source: SourceRowPair}}
	}

	var out []Annotated
	for _, cell := range cells {
		lb := &lookback{}
		for _, line := range splitLines(cell) {
			out = append(out, lb.feed(line)...)
		}
	}
	return out
}

func pairRow(cells []string) (model.Mention, bool) {
	var (
		codeCells []string
		codes     []string
		names     []string
	)
	for _, c := range cells {
		if code, ok := MatchCode(StripSpaces(c)); ok {
			codeCells = append(codeCells, c)
			codes = append(codes, code)
		}
		if name, ok := MatchName(c); ok {
			names = append(names, name)
		}
	}
	if len(codes) != 1 || len(names) != 1 {
		return model.Mention{}, false
	}
	return model.Mention{
		Original: codeCells[0],
		Code:     codes[0],
		Title:    NormalizeTitle(names[0]),
	}, true
}

// matchLine 对单行依次应用“编号在前”“名称在前”两种版式
func matchLine(text string) []model.Mention {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []model.Mention
	for _, pat := range linePatterns {
		codeIdx := pat.SubexpIndex("code")
		nameIdx := pat.SubexpIndex("name")
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			orig := m[codeIdx]
			if !IsValidStandardCode(orig) {
				continue
			}
			out = append(out, model.Mention{
				Original: orig,
				Code:     StripSpaces(orig),
				Title:    NormalizeTitle(strings.TrimSpace(m[nameIdx])),
			})
		}
	}
	return out
}

func tag(ms []model.Mention, src MatchSource) []Annotated {
	if len(ms) == 0 {
		return nil
	}
	out := make([]Annotated, len(ms))
	for i, m := range ms {
		out[i] = Annotated{Mention: m, Source: src}
	}
	return out
}

// UniqueCodes 按首次出现顺序去重编号
func UniqueCodes(mentions []model.Mention) []string {
	seen := make(map[string]struct{}, len(mentions))
	codes := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if _, ok := seen[m.Code]; ok {
			continue
		}
		seen[m.Code] = struct{}{}
		codes = append(codes, m.Code)
	}
	return codes
}
