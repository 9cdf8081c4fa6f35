package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peterjiatong/csres-standard-review/internal/model"
	"github.com/peterjiatong/csres-standard-review/internal/parser"
	"github.com/peterjiatong/csres-standard-review/internal/resolver"
)

// StandardResponse 单个标准的查询结果
type StandardResponse struct {
	Entry       model.RegistryEntry `json:"entry"`
	Title       string              `json:"title"` // 工作簿中的原始名称
	Warning     resolver.Warning    `json:"warning"`
	WarningText string              `json:"warningText,omitempty"`
}

// GetStandard 查询标准库中的一个编号（编号中的空白忽略）
// GET /api/standards/:code
func (h *Handler) GetStandard(c *gin.Context) {
	code := parser.StripSpaces(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少标准编号"})
		return
	}

	ds, res, err := h.catalog.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	reg := res.Registry()
	entry, ok := reg.Lookup(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "标准库未收录: " + code})
		return
	}

	title, _ := ds.TitleOf(code)
	warn := resolver.Relation(reg, code)
	c.JSON(http.StatusOK, StandardResponse{
		Entry:       entry,
		Title:       title,
		Warning:     warn,
		WarningText: warn.Text(),
	})
}
