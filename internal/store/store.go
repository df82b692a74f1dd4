// Package store 持久化简历文档。所有读写都限定在所属用户内，他人的文档与不存在的文档表现一致。
package store

import (
	"context"
	"errors"

	"cvbuilder/internal/resume"
)

var (
	// 文档不存在或属于其他用户。
	ErrNotFound = errors.New("document not found")
	// Swap 时存储中的版本已不是预期值。
	ErrVersionMismatch = errors.New("document version mismatch")
)

// Store 是版本守卫与 API 使用的文档存储接口。
type Store interface {
	Create(ctx context.Context, doc *resume.Document) error
	Get(ctx context.Context, ownerID uint, id string) (*resume.Document, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]*resume.Document, error)
	// Swap 仅在存储版本仍等于 prevVersion 时用 next 替换文档，与其他 Swap 之间是原子的。
	Swap(ctx context.Context, next *resume.Document, prevVersion int64) error
	Delete(ctx context.Context, ownerID uint, id string) error
}
