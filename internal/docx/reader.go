// Package docx 读取 .docx 正文：正文段落和表格文本，供标准引用抽取使用。
package docx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterjiatong/csres-standard-review/internal/parser"
)

const documentPart = "word/document.xml"

// ErrNoDocumentPart 压缩包内没有 word/document.xml
var ErrNoDocumentPart = errors.New("docx: word/document.xml not found")

// WordprocessingML 命名空间（过渡版和严格版）
var wordNamespaces = map[string]bool{
	"http://schemas.openxmlformats.org/wordprocessingml/2006/main": true,
	"http://purl.oclc.org/ooxml/wordprocessingml/main":             true,
}

// ReadFile 读取 .docx 文件
func ReadFile(path string) (parser.Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return parser.Document{}, fmt.Errorf("failed to open docx %s: %w", path, err)
	}
	defer zr.Close()

	doc, err := readZip(&zr.Reader)
	if err != nil {
		return parser.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	doc.Name = filepath.Base(path)
	return doc, nil
}

// Read 从内存读取 .docx
func Read(r io.ReaderAt, size int64, name string) (parser.Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return parser.Document{}, fmt.Errorf("failed to open docx %s: %w", name, err)
	}
	doc, err := readZip(zr)
	if err != nil {
		return parser.Document{}, err
	}
	doc.Name = name
	return doc, nil
}

// List 目录下全部 .docx（不递归，按文件名排序，跳过 Word 锁文件 ~$*.docx）
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".docx") || strings.HasPrefix(name, "~$") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

func readZip(zr *zip.Reader) (parser.Document, error) {
	for _, f := range zr.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return parser.Document{}, fmt.Errorf("failed to open %s: %w", documentPart, err)
		}
		defer rc.Close()
		return parseBody(rc)
	}
	return parser.Document{}, ErrNoDocumentPart
}

// bodyParser 逐个 token 解析 w:body
type bodyParser struct {
	doc parser.Document

	inBody bool
	// 段落嵌套（文本框等）只取最外层段落的文字
	pDepth int
	para   strings.Builder
	inText bool

	tblDepth int
	table    parser.Table
	row      []string
	cell     []string // 当前单元格内的段落
	inCell   bool
}

func parseBody(r io.Reader) (parser.Document, error) {
	dec := xml.NewDecoder(r)
	p := &bodyParser{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return parser.Document{}, fmt.Errorf("failed to parse %s: %w", documentPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.start(t)
		case xml.EndElement:
			p.end(t)
		case xml.CharData:
			if p.inText && p.pDepth == 1 {
				p.para.Write(t)
			}
		}
	}
	return p.doc, nil
}

func (p *bodyParser) start(t xml.StartElement) {
	if !wordNamespaces[t.Name.Space] {
		return
	}
	name := t.Name.Local
	if name == "body" {
		p.inBody = true
		return
	}
	if !p.inBody {
		return
	}

	switch name {
	case "p":
		p.pDepth++
		if p.pDepth == 1 {
			p.para.Reset()
		}
	case "t":
		p.inText = true
	case "tab":
		if p.pDepth == 1 {
			p.para.WriteByte('\t')
		}
	case "br", "cr":
		if p.pDepth == 1 {
			p.para.WriteByte('\n')
		}
	case "tbl":
		p.tblDepth++
		if p.tblDepth == 1 {
			p.table = nil
		}
	case "tr":
		if p.tblDepth == 1 {
			p.row = nil
		}
	case "tc":
		if p.tblDepth == 1 {
			p.cell = nil
			p.inCell = true
		}
	}
}

func (p *bodyParser) end(t xml.EndElement) {
	if !wordNamespaces[t.Name.Space] || !p.inBody {
		return
	}

	switch t.Name.Local {
	case "body":
		p.inBody = false
	case "t":
		p.inText = false
	case "p":
		if p.pDepth == 1 {
			p.flushParagraph()
		}
		if p.pDepth > 0 {
			p.pDepth--
		}
	case "tc":
		if p.tblDepth == 1 && p.inCell {
			p.row = append(p.row, strings.Join(p.cell, "\n"))
			p.inCell = false
		}
	case "tr":
		if p.tblDepth == 1 {
			p.table = append(p.table, p.row)
		}
	case "tbl":
		if p.tblDepth == 1 {
			p.doc.Tables = append(p.doc.Tables, p.table)
		}
		if p.tblDepth > 0 {
			p.tblDepth--
		}
	}
}

func (p *bodyParser) flushParagraph() {
	text := p.para.String()
	p.para.Reset()
	if p.tblDepth > 0 {
		if p.inCell {
			p.cell = append(p.cell, text)
		}
		return
	}
	p.doc.Paragraphs = append(p.doc.Paragraphs, text)
}
