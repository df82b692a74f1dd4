package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/guard"
	"cvbuilder/internal/resume"
	"cvbuilder/internal/store"
)

// exportPurger 清理简历关联的导出记录与对象，删除简历后尽力调用。
type exportPurger interface {
	Purge(ctx context.Context, ownerID uint, resumeID string) error
}

// ResumeHandler 负责处理与简历相关的 API 请求。
// 所有修改都经由 guard，版本号只在那里递增。
type ResumeHandler struct {
	docs    store.Store
	guard   *guard.Guard
	exports exportPurger
	logger  *slog.Logger
	now     func() time.Time
}

// NewResumeHandler 构造 ResumeHandler；exports 可为 nil。
func NewResumeHandler(docs store.Store, g *guard.Guard, exports exportPurger, logger *slog.Logger) *ResumeHandler {
	return &ResumeHandler{
		docs:    docs,
		guard:   g,
		exports: exports,
		logger:  logger,
		now:     time.Now,
	}
}

type createResumeRequest struct {
	Title      string          `json:"title" binding:"required"`
	TemplateID string          `json:"template_id"`
	Content    *resume.Content `json:"content"`
}

type updateResumeRequest struct {
	Title      *string         `json:"title"`
	TemplateID *string         `json:"template_id"`
	Content    *resume.Content `json:"content"`
}

type autosaveRequest struct {
	Title   *string         `json:"title"`
	Content *resume.Content `json:"content"`
	Version *int64          `json:"version"`
}

// CreateResume 新建一份简历，版本号从初始值开始。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		BadRequest(c, "title is required")
		return
	}

	templateID := strings.TrimSpace(req.TemplateID)
	if templateID == "" {
		templateID = resume.DefaultTemplateID
	}
	if _, ok := resume.LookupTemplate(templateID); !ok {
		BadRequest(c, "unknown template")
		return
	}

	content := resume.Empty()
	if req.Content != nil {
		content = resume.Normalize(*req.Content)
	}

	now := h.now().UTC().Truncate(time.Microsecond)
	doc := &resume.Document{
		ID:         uuid.NewString(),
		OwnerID:    userID,
		Title:      title,
		TemplateID: templateID,
		Content:    content,
		Version:    resume.InitialVersion,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.docs.Create(c.Request.Context(), doc); err != nil {
		h.log(c).Error("create resume failed", slog.Any("error", err))
		Internal(c, "failed to create resume")
		return
	}

	h.log(c).Info("resume created", slog.String("resume_id", doc.ID))
	c.JSON(http.StatusCreated, doc)
}

// ListResumes 列出用户全部简历，最近更新的在前。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	docs, err := h.docs.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		h.log(c).Error("list resumes failed", slog.Any("error", err))
		Internal(c, "failed to list resumes")
		return
	}
	if docs == nil {
		docs = []*resume.Document{}
	}

	c.JSON(http.StatusOK, docs)
}

// GetResume 返回指定 ID 的简历。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.docs.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		h.log(c).Error("get resume failed", slog.Any("error", err))
		Internal(c, "failed to query resume")
		return
	}

	c.JSON(http.StatusOK, doc)
}

// UpdateResume 无条件覆盖指定字段，版本号照常加一。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	var req updateResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	patch, msg := buildPatch(req.Title, req.TemplateID, req.Content)
	if msg != "" {
		BadRequest(c, msg)
		return
	}

	h.write(c, nil, patch)
}

// Autosave 条件写入：携带 version 时只有与服务端版本一致才会应用。
func (h *ResumeHandler) Autosave(c *gin.Context) {
	var req autosaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Version != nil && *req.Version < 0 {
		BadRequest(c, "version must not be negative")
		return
	}

	patch, msg := buildPatch(req.Title, nil, req.Content)
	if msg != "" {
		BadRequest(c, msg)
		return
	}

	h.write(c, req.Version, patch)
}

// DeleteResume 永久删除简历，并尽力清理其导出文件。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()
	if err := h.docs.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		h.log(c).Error("delete resume failed", slog.Any("error", err))
		Internal(c, "failed to delete resume")
		return
	}

	if h.exports != nil {
		if err := h.exports.Purge(context.WithoutCancel(ctx), userID, id); err != nil {
			h.log(c).Warn("purge resume exports failed",
				slog.String("resume_id", id),
				slog.Any("error", err),
			)
		}
	}

	h.log(c).Info("resume deleted", slog.String("resume_id", id))
	c.Status(http.StatusNoContent)
}

func (h *ResumeHandler) write(c *gin.Context, expected *int64, patch guard.Patch) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id := c.Param("id")
	res, err := h.guard.TryApply(c.Request.Context(), userID, id, expected, patch)
	if err != nil {
		if errors.Is(err, guard.ErrContention) {
			h.log(c).Warn("resume write contention", slog.String("resume_id", id))
			Unavailable(c, "resume is busy, please retry")
			return
		}
		h.log(c).Error("resume write failed", slog.String("resume_id", id), slog.Any("error", err))
		Internal(c, "failed to save resume")
		return
	}

	switch res.Outcome {
	case guard.Applied:
		c.JSON(http.StatusOK, res.Document)
	case guard.Conflict:
		h.log(c).Info("resume version conflict",
			slog.String("resume_id", id),
			slog.Int64("expected", *expected),
			slog.Int64("current", res.CurrentVersion),
		)
		VersionConflict(c, res.CurrentVersion)
	default:
		NotFound(c, "resume not found")
	}
}

// buildPatch 校验并组装补丁，返回非空消息表示请求无效。
func buildPatch(title, templateID *string, content *resume.Content) (guard.Patch, string) {
	var patch guard.Patch
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return patch, "title must not be empty"
		}
		patch.Title = &trimmed
	}
	if templateID != nil {
		if _, ok := resume.LookupTemplate(*templateID); !ok {
			return patch, "unknown template"
		}
		patch.TemplateID = templateID
	}
	patch.Content = content
	return patch, ""
}

func (h *ResumeHandler) log(c *gin.Context) *slog.Logger {
	return middleware.RequestLogger(c, h.logger)
}
