// Package notify 在按用户划分的 Redis 频道上发布事件，WebSocket 端点把频道消息转发给该用户打开的页面。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/resume"
)

// 消息类型，前端按 type 字段分发。
const (
	TypeExport        = "export"
	TypeResumeUpdated = "resume.updated"
)

// Channel 返回用户的通知频道名。
func Channel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// ExportMessage 描述导出任务的结果。
type ExportMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	ExportID      string `json:"export_id"`
	ResumeID      string `json:"resume_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// ResumeUpdatedMessage 告知其他标签页当前版本已前进。
type ResumeUpdatedMessage struct {
	Type          string    `json:"type"`
	ResumeID      string    `json:"resume_id"`
	Version       int64     `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Publisher 通过 Redis Pub/Sub 投递消息。
type Publisher struct {
	redis redis.UniversalClient
}

func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{redis: client}
}

// Publish 将 msg 序列化为 JSON 并发布到用户频道。
func (p *Publisher) Publish(ctx context.Context, userID uint, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := Channel(userID)
	if err := p.redis.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

// ResumeObserver 在每次写入被接受后广播新版本号，实现 guard.Observer。
type ResumeObserver struct {
	publisher *Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

const publishTimeout = 500 * time.Millisecond

func NewResumeObserver(p *Publisher, logger *slog.Logger) *ResumeObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResumeObserver{publisher: p, logger: logger, timeout: publishTimeout}
}

func (o *ResumeObserver) Applied(ctx context.Context, doc *resume.Document, _ bool) {
	msg := ResumeUpdatedMessage{
		Type:          TypeResumeUpdated,
		ResumeID:      doc.ID,
		Version:       doc.Version,
		UpdatedAt:     doc.UpdatedAt,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
	}
	// 写入已提交：通知不随请求取消，但最多等待 publishTimeout，失败只记日志。
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()
	if err := o.publisher.Publish(ctx, doc.OwnerID, msg); err != nil {
		o.logger.Warn("publish resume update failed",
			slog.String("resume_id", doc.ID),
			slog.Any("error", err),
		)
	}
}

func (o *ResumeObserver) Conflicted(context.Context, uint, string, int64, int64) {}
