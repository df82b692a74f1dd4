package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/suggest"
)

// SuggestionHandler 返回按行业与分区给出的写作建议。
type SuggestionHandler struct {
	service *suggest.Service
}

func NewSuggestionHandler(service *suggest.Service) *SuggestionHandler {
	return &SuggestionHandler{service: service}
}

// GET /v1/suggestions?industry=&section=&category=
// industry 或 section 为空时返回空列表。
func (h *SuggestionHandler) GetSuggestions(c *gin.Context) {
	items, err := h.service.Suggest(c.Query("industry"), c.Query("section"), c.Query("category"))
	if err != nil {
		if errors.Is(err, suggest.ErrUnknownCategory) {
			BadRequest(c, "unknown category")
			return
		}
		Internal(c, "failed to load suggestions")
		return
	}
	if items == nil {
		items = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": items})
}
