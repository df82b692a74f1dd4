package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/resume"
)

// TemplateHandler 提供静态模板目录。
type TemplateHandler struct{}

func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

// GET /v1/templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, resume.Templates())
}

// GET /v1/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, ok := resume.LookupTemplate(c.Param("id"))
	if !ok {
		NotFound(c, "template not found")
		return
	}
	c.JSON(http.StatusOK, tpl)
}
