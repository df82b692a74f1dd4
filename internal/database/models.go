package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 账号套餐。
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// 导出任务状态。
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Email              string   `gorm:"uniqueIndex;size:255"`
	Name               string   `gorm:"size:128"`
	PasswordHash       string   `gorm:"size:255"`
	Plan               string   `gorm:"size:16;default:free"`
	MustChangePassword bool     `gorm:"default:false"`
	Resumes            []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示用户创建的简历内容。
// Version 是唯一的并发控制令牌，只能经由 guard 修改。
type Resume struct {
	ID         string         `gorm:"primaryKey;size:36"`
	UserID     uint           `gorm:"index"`
	Title      string         `gorm:"size:255"`
	TemplateID string         `gorm:"size:64"`
	Content    datatypes.JSON `gorm:"type:jsonb"`
	Version    int64          `gorm:"not null;default:1"`
	CreatedAt  time.Time      `gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time      `gorm:"index;autoUpdateTime:false"`
}

// Export 记录一次 PDF 导出请求及其结果。
type Export struct {
	ID            string `gorm:"primaryKey;size:36"`
	ResumeID      string `gorm:"index;size:36"`
	UserID        uint   `gorm:"index"`
	Mode          string `gorm:"size:16"`
	Status        string `gorm:"size:32"`
	ResumeVersion int64
	ObjectKey     string `gorm:"size:512"`
	Error         string `gorm:"size:1024"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BetaInvite 记录内测申请邮箱。
type BetaInvite struct {
	gorm.Model
	Email string `gorm:"uniqueIndex;size:255"`
}

// AutoMigrate 迁移全部模型。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Resume{}, &Export{}, &BetaInvite{})
}
