package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/database"
	"cvbuilder/internal/pdf"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/store"
	"cvbuilder/internal/tasks"
)

// TaskEnqueuer 是 asynq.Client 中处理器用到的部分。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportObjects 是导出文件所在对象存储的读取与清理操作。
type ExportObjects interface {
	Stat(ctx context.Context, objectKey string) (int64, error)
	PresignDownload(ctx context.Context, objectKey, filename string, ttl time.Duration) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// ExportOptions 控制导出任务的重试、超时与下载链接有效期。
type ExportOptions struct {
	MaxRetry int
	Timeout  time.Duration
	LinkTTL  time.Duration
}

// ExportHandler 负责 PDF 导出请求、状态查询与下载链接。
type ExportHandler struct {
	db      *gorm.DB
	docs    store.Store
	queue   TaskEnqueuer
	objects ExportObjects
	opts    ExportOptions
	logger  *slog.Logger
}

// NewExportHandler 构造 ExportHandler。
func NewExportHandler(db *gorm.DB, docs store.Store, queue TaskEnqueuer, objects ExportObjects, opts ExportOptions, logger *slog.Logger) *ExportHandler {
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 5 * time.Minute
	}
	return &ExportHandler{
		db:      db,
		docs:    docs,
		queue:   queue,
		objects: objects,
		opts:    opts,
		logger:  logger,
	}
}

type createExportRequest struct {
	Mode string `json:"mode"`
}

type exportResponse struct {
	ID            string    `json:"id"`
	ResumeID      string    `json:"resume_id"`
	Mode          string    `json:"mode"`
	Status        string    `json:"status"`
	ResumeVersion int64     `json:"resume_version"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newExportResponse(e database.Export) exportResponse {
	return exportResponse{
		ID:            e.ID,
		ResumeID:      e.ResumeID,
		Mode:          e.Mode,
		Status:        e.Status,
		ResumeVersion: e.ResumeVersion,
		Error:         e.Error,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// CreateExport 记录导出请求并入队，立即返回 202。
// 免费账号只能导出 ATS 版式。
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var req createExportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	if strings.TrimSpace(req.Mode) == "" {
		req.Mode = string(pdf.ModeATS)
	}

	mode, err := pdf.ParseMode(req.Mode)
	if err != nil {
		BadRequest(c, "mode must be one of ats, visual, both")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if mode.RequiresPro() && planFromContext(c) != database.PlanPro {
		Forbidden(c, "upgrade required")
		return
	}

	ctx := c.Request.Context()
	logger := h.log(c)

	doc, err := h.docs.Get(ctx, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		logger.Error("load resume for export failed", slog.Any("error", err))
		Internal(c, "failed to query resume")
		return
	}

	export := database.Export{
		ID:            uuid.NewString(),
		ResumeID:      doc.ID,
		UserID:        userID,
		Mode:          string(mode),
		Status:        database.ExportStatusPending,
		ResumeVersion: doc.Version,
	}
	if err := h.db.WithContext(ctx).Create(&export).Error; err != nil {
		logger.Error("create export failed", slog.Any("error", err))
		Internal(c, "failed to create export")
		return
	}

	task, err := tasks.NewResumeExportTask(export.ID, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	opts := []asynq.Option{asynq.MaxRetry(h.opts.MaxRetry), asynq.TaskID(export.ID)}
	if h.opts.Timeout > 0 {
		opts = append(opts, asynq.Timeout(h.opts.Timeout))
	}
	info, err := h.queue.EnqueueContext(ctx, task, opts...)
	if err != nil {
		logger.Error("enqueue export failed", slog.String("export_id", export.ID), slog.Any("error", err))
		_ = h.db.WithContext(context.WithoutCancel(ctx)).Model(&export).Updates(map[string]any{
			"status": database.ExportStatusFailed,
			"error":  "enqueue failed",
		}).Error
		Internal(c, "failed to enqueue export")
		return
	}

	logger.Info("export enqueued",
		slog.String("export_id", export.ID),
		slog.String("resume_id", doc.ID),
		slog.String("mode", string(mode)),
		slog.String("task_id", info.ID),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"export_id": export.ID,
		"task_id":   info.ID,
	})
}

// GetExport 返回导出任务状态。
func (h *ExportHandler) GetExport(c *gin.Context) {
	export, ok := h.loadExport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newExportResponse(*export))
}

// GetExportLink 为已完成的导出生成限时下载链接。
func (h *ExportHandler) GetExportLink(c *gin.Context) {
	export, ok := h.loadExport(c)
	if !ok {
		return
	}
	if export.Status != database.ExportStatusCompleted || export.ObjectKey == "" {
		Conflict(c, "export not ready")
		return
	}

	if _, err := h.objects.Stat(c.Request.Context(), export.ObjectKey); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			Error(c, http.StatusGone, "export file expired")
			return
		}
		h.log(c).Error("stat export object failed", slog.String("export_id", export.ID), slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	filename := fmt.Sprintf("resume-%s.pdf", export.Mode)
	url, err := h.objects.PresignDownload(c.Request.Context(), export.ObjectKey, filename, h.opts.LinkTTL)
	if err != nil {
		h.log(c).Error("presign export failed", slog.String("export_id", export.ID), slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(h.opts.LinkTTL.Seconds()),
	})
}

// Purge 删除某份简历的全部导出记录与文件。
func (h *ExportHandler) Purge(ctx context.Context, ownerID uint, resumeID string) error {
	if err := h.db.WithContext(ctx).
		Where("user_id = ? AND resume_id = ?", ownerID, resumeID).
		Delete(&database.Export{}).Error; err != nil {
		return fmt.Errorf("delete export rows: %w", err)
	}
	if h.objects == nil {
		return nil
	}
	if err := h.objects.DeletePrefix(ctx, storage.ResumePrefix(ownerID, resumeID)); err != nil {
		return fmt.Errorf("delete export objects: %w", err)
	}
	return nil
}

func (h *ExportHandler) loadExport(c *gin.Context) (*database.Export, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}

	var export database.Export
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		First(&export).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "export not found")
			return nil, false
		}
		h.log(c).Error("load export failed", slog.Any("error", err))
		Internal(c, "failed to query export")
		return nil, false
	}
	return &export, true
}

func (h *ExportHandler) log(c *gin.Context) *slog.Logger {
	return middleware.RequestLogger(c, h.logger)
}
