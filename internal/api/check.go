package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
	"github.com/peterjiatong/csres-standard-review/internal/resolver"
)

// DocumentRequest 待检查的文本：段落与表格，与 docx 解析结果同构
type DocumentRequest struct {
	Name       string         `json:"name"`
	Paragraphs []string       `json:"paragraphs"`
	Tables     []parser.Table `json:"tables"`
}

func (r DocumentRequest) document() parser.Document {
	return parser.Document{Name: r.Name, Paragraphs: r.Paragraphs, Tables: r.Tables}
}

// ExtractResponse 抽取结果
type ExtractResponse struct {
	Total    int             `json:"total"`
	Mentions []model.Mention `json:"mentions"`
	Codes    []string        `json:"codes"` // 去重后的编号
}

// CheckResponse 检查结果
type CheckResponse struct {
	Total    int                `json:"total"`
	Problems int                `json:"problems"`
	Verdicts []resolver.Verdict `json:"verdicts"`
}

// Extract 抽取标准引用，不查询标准库
// POST /api/extract
func (h *Handler) Extract(c *gin.Context) {
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	mentions := h.extractor.Extract(req.document())
	if mentions == nil {
		mentions = []model.Mention{}
	}
	codes := parser.UniqueCodes(mentions)
	c.JSON(http.StatusOK, ExtractResponse{
		Total:    len(mentions),
		Mentions: mentions,
		Codes:    codes,
	})
}

// Check 抽取并对照当前标准库检查每条引用
// POST /api/check
func (h *Handler) Check(c *gin.Context) {
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	ds, res, err := h.catalog.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	verdicts := res.CheckAll(h.extractor.Extract(req.document()))
	problems := 0
	for i, v := range verdicts {
		if v.Result.OK() {
			continue
		}
		problems++
		// 与检查报告一致，名称不符时给出工作簿中的原始名称
		if v.Result.Status == model.CheckNameWrong {
			if title, ok := ds.TitleOf(v.Mention.Code); ok {
				verdicts[i].CorrectTitle = title
			}
		}
	}

	h.log.Debug("api check", zap.Int("mentions", len(verdicts)), zap.Int("problems", problems))
	c.JSON(http.StatusOK, CheckResponse{
		Total:    len(verdicts),
		Problems: problems,
		Verdicts: verdicts,
	})
}
