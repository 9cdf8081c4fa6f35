package docx

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterjiatong/csres-standard-review/internal/parser"
)

const bodyXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
  xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
<w:body>
  <w:p><w:r><w:t>（1）《地表水环境质量标准》</w:t></w:r><w:r><w:t xml:space="preserve"> GB 3838-2002</w:t></w:r></w:p>
  <w:p><w:r><w:t>第一行</w:t><w:br/><w:t>第二行</w:t><w:tab/><w:t>尾</w:t></w:r></w:p>
  <w:p><w:r><w:t>正文</w:t><w:drawing><a:p><a:r><a:t>图形文字</a:t></a:r></a:p></w:drawing></w:r></w:p>
  <w:tbl>
    <w:tr>
      <w:tc><w:p><w:r><w:t>GB 3096-2008</w:t></w:r></w:p></w:tc>
      <w:tc><w:p><w:r><w:t>《声环境质量标准》</w:t></w:r></w:p></w:tc>
    </w:tr>
    <w:tr>
      <w:tc><w:tbl><w:tr><w:tc><w:p><w:r><w:t>嵌套</w:t></w:r></w:p></w:tc></w:tr></w:tbl></w:tc>
      <w:tc><w:p><w:r><w:t>第一段</w:t></w:r></w:p><w:p/><w:p><w:r><w:t>第二段</w:t></w:r></w:p></w:tc>
    </w:tr>
  </w:tbl>
  <w:p><w:r><w:t>结尾</w:t></w:r></w:p>
  <w:sectPr/>
</w:body>
</w:document>`

func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRead_ParagraphsAndTables(t *testing.T) {
	t.Parallel()

	data := buildDocx(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		documentPart:          bodyXML,
	})
	doc, err := Read(bytes.NewReader(data), int64(len(data)), "报告.docx")
	require.NoError(t, err)

	want := parser.Document{
		Name: "报告.docx",
		Paragraphs: []string{
			"（1）《地表水环境质量标准》 GB 3838-2002",
			"第一行\n第二行\t尾",
			"正文",
			"结尾",
		},
		Tables: []parser.Table{{
			{"GB 3096-2008", "《声环境质量标准》"},
			{"嵌套", "第一段\n\n第二段"},
		}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_FeedsExtractor(t *testing.T) {
	t.Parallel()

	data := buildDocx(t, map[string]string{documentPart: bodyXML})
	doc, err := Read(bytes.NewReader(data), int64(len(data)), "a.docx")
	require.NoError(t, err)

	codes := parser.UniqueCodes(parser.NewExtractor().Extract(doc))
	assert.Equal(t, []string{"GB3838-2002", "GB3096-2008"}, codes)
}

func TestRead_MissingDocumentPart(t *testing.T) {
	t.Parallel()

	data := buildDocx(t, map[string]string{"word/styles.xml": "<w:styles/>"})
	_, err := Read(bytes.NewReader(data), int64(len(data)), "x.docx")
	assert.ErrorIs(t, err, ErrNoDocumentPart)
}

func TestRead_NotZip(t *testing.T) {
	t.Parallel()

	data := []byte("plain text")
	_, err := Read(bytes.NewReader(data), int64(len(data)), "x.docx")
	assert.Error(t, err)
}

func TestReadFileAndList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := buildDocx(t, map[string]string{documentPart: bodyXML})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.docx"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.DOCX"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$b.docx"), []byte("lock"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.docx"), 0o755))

	paths, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.DOCX"), filepath.Join(dir, "b.docx")}, paths)

	doc, err := ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "b.docx", doc.Name)
	assert.Len(t, doc.Paragraphs, 4)
	assert.Len(t, doc.Tables, 1)
}
