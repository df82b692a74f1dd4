package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeExport = "resume:export"
)

// ResumeExportPayload 只携带导出记录 ID，其余信息由 Worker 从数据库读取。
type ResumeExportPayload struct {
	ExportID      string `json:"export_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeExportTask 构造一个简历导出任务。
func NewResumeExportTask(exportID, correlationID string, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeExportPayload{
		ExportID:      exportID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	return asynq.NewTask(TypeResumeExport, payload, opts...), nil
}

// ParseResumeExportPayload 解析任务负载。
func ParseResumeExportPayload(t *asynq.Task) (ResumeExportPayload, error) {
	var p ResumeExportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("unmarshal export payload: %w", err)
	}
	if p.ExportID == "" {
		return p, fmt.Errorf("export payload missing export_id")
	}
	return p, nil
}
