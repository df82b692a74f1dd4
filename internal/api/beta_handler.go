package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/database"
)

// BetaHandler 收集内测申请邮箱。
type BetaHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewBetaHandler(db *gorm.DB, logger *slog.Logger) *BetaHandler {
	return &BetaHandler{db: db, logger: logger}
}

type betaRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// Join 记录申请；同一邮箱重复提交视为成功。
func (h *BetaHandler) Join(c *gin.Context) {
	var req betaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "a valid email is required")
		return
	}

	invite := database.BetaInvite{Email: normalizeEmail(req.Email)}
	if err := h.db.WithContext(c.Request.Context()).
		Where(database.BetaInvite{Email: invite.Email}).
		FirstOrCreate(&invite).Error; err != nil {
		middleware.RequestLogger(c, h.logger).Error("save beta invite failed", slog.Any("error", err))
		Internal(c, "failed to save invite")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
