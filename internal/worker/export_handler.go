package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"cvbuilder/internal/database"
	"cvbuilder/internal/errcode"
	"cvbuilder/internal/notify"
	"cvbuilder/internal/pdf"
	"cvbuilder/internal/resume"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/store"
	"cvbuilder/internal/tasks"
)

// ObjectUploader 保存生成的 PDF。
type ObjectUploader interface {
	PutPDF(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}

// Notifier 向用户频道推送消息。
type Notifier interface {
	Publish(ctx context.Context, userID uint, msg any) error
}

// ExportHandler 负责消费简历导出任务。
type ExportHandler struct {
	db       *gorm.DB
	docs     store.Store
	renderer pdf.Renderer
	uploader ObjectUploader
	notifier Notifier
	logger   *slog.Logger

	finalAttempt func(context.Context) bool
}

// NewExportHandler 创建任务处理器。
func NewExportHandler(
	db *gorm.DB,
	docs store.Store,
	renderer pdf.Renderer,
	uploader ObjectUploader,
	notifier Notifier,
	logger *slog.Logger,
) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		db:           db,
		docs:         docs,
		renderer:     renderer,
		uploader:     uploader,
		notifier:     notifier,
		logger:       logger,
		finalAttempt: isFinalAsynqAttempt,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.ParseResumeExportPayload(t)
	if err != nil {
		log.Error("invalid export payload", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("export_id", payload.ExportID),
	)

	var export database.Export
	if err := h.db.WithContext(ctx).First(&export, "id = ?", payload.ExportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("export not found, skipping task")
			return nil
		}
		log.Error("query export failed", slog.Any("error", err))
		return err
	}
	if export.Status == database.ExportStatusCompleted {
		log.Info("export already completed, skipping task")
		return nil
	}

	log = log.With(
		slog.String("resume_id", export.ResumeID),
		slog.Uint64("user_id", uint64(export.UserID)),
		slog.String("mode", export.Mode),
	)
	log.Info("starting resume export")

	doc, err := h.docs.Get(ctx, export.UserID, export.ResumeID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("resume deleted before export ran")
		h.fail(ctx, log, &export, payload.CorrelationID, errcode.ResumeMissing, "resume no longer exists")
		return nil
	}
	if err != nil {
		log.Error("load resume failed", slog.Any("error", err))
		return err
	}

	failCode := errcode.SystemError
	defer func() {
		if retErr == nil || !h.finalAttempt(ctx) {
			return
		}
		h.fail(ctx, log, &export, payload.CorrelationID, failCode, strings.TrimSpace(retErr.Error()))
	}()

	mode, err := pdf.ParseMode(export.Mode)
	if err != nil {
		h.fail(ctx, log, &export, payload.CorrelationID, errcode.InvalidMode, err.Error())
		return nil
	}

	failCode = errcode.RenderFailed
	data, err := h.render(ctx, doc, mode)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	failCode = errcode.UploadFailed
	objectKey := storage.ExportObjectKey(export.UserID, export.ResumeID, export.ID)
	if err := h.uploader.PutPDF(ctx, objectKey, bytes.NewReader(data), int64(len(data))); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return err
	}
	failCode = errcode.SystemError

	update := map[string]any{
		"status":         database.ExportStatusCompleted,
		"object_key":     objectKey,
		"resume_version": doc.Version,
		"error":          "",
	}
	if err := h.db.WithContext(ctx).Model(&export).Updates(update).Error; err != nil {
		log.Error("update export failed", slog.Any("error", err))
		return err
	}

	msg := notify.ExportMessage{
		Type:          notify.TypeExport,
		Status:        database.ExportStatusCompleted,
		ExportID:      export.ID,
		ResumeID:      export.ResumeID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.notifier.Publish(ctx, export.UserID, msg); err != nil {
		// PDF 已可下载，通知失败不重试任务。
		log.Warn("publish export notification failed", slog.Any("error", err))
	}

	log.Info("resume export completed", slog.Int("bytes", len(data)), slog.Int64("resume_version", doc.Version))
	return nil
}

func (h *ExportHandler) render(ctx context.Context, doc *resume.Document, mode pdf.Mode) ([]byte, error) {
	html, err := pdf.RenderHTML(doc, mode)
	if err != nil {
		return nil, err
	}
	return h.renderer.Render(ctx, html)
}

func (h *ExportHandler) fail(ctx context.Context, log *slog.Logger, export *database.Export, correlationID string, code int, reason string) {
	ctx = context.WithoutCancel(ctx)
	if err := h.db.WithContext(ctx).Model(export).Updates(map[string]any{
		"status": database.ExportStatusFailed,
		"error":  reason,
	}).Error; err != nil {
		log.Error("mark export failed", slog.Any("error", err))
	}

	msg := notify.ExportMessage{
		Type:          notify.TypeExport,
		Status:        "error",
		ExportID:      export.ID,
		ResumeID:      export.ResumeID,
		CorrelationID: correlationID,
		ErrorCode:     code,
		ErrorMessage:  reason,
	}
	if err := h.notifier.Publish(ctx, export.UserID, msg); err != nil {
		log.Error("publish export error notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
