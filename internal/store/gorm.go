package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvbuilder/internal/database"
	"cvbuilder/internal/resume"
)

// GormStore 把文档存放在 resumes 表；Swap 是一条带版本条件的 UPDATE，多个 API 副本不会基于同一版本同时成功。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, doc *resume.Document) error {
	row, err := toRow(doc)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, ownerID uint, id string) (*resume.Document, error) {
	var row database.Resume
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query resume: %w", err)
	}
	return fromRow(row)
}

func (s *GormStore) ListByOwner(ctx context.Context, ownerID uint) ([]*resume.Document, error) {
	var rows []database.Resume
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}

	out := make([]*resume.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *GormStore) Swap(ctx context.Context, next *resume.Document, prevVersion int64) error {
	content, err := json.Marshal(next.Content)
	if err != nil {
		return fmt.Errorf("encode resume content: %w", err)
	}

	res := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("id = ? AND user_id = ? AND version = ?", next.ID, next.OwnerID, prevVersion).
		Updates(map[string]any{
			"title":       next.Title,
			"template_id": next.TemplateID,
			"content":     datatypes.JSON(content),
			"version":     next.Version,
			"updated_at":  next.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update resume: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("id = ? AND user_id = ?", next.ID, next.OwnerID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("recheck resume: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrVersionMismatch
}

func (s *GormStore) Delete(ctx context.Context, ownerID uint, id string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&database.Resume{})
	if res.Error != nil {
		return fmt.Errorf("delete resume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toRow(doc *resume.Document) (database.Resume, error) {
	content, err := json.Marshal(doc.Content)
	if err != nil {
		return database.Resume{}, fmt.Errorf("encode resume content: %w", err)
	}
	return database.Resume{
		ID:         doc.ID,
		UserID:     doc.OwnerID,
		Title:      doc.Title,
		TemplateID: doc.TemplateID,
		Content:    datatypes.JSON(content),
		Version:    doc.Version,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func fromRow(row database.Resume) (*resume.Document, error) {
	var content resume.Content
	if len(row.Content) > 0 {
		if err := json.Unmarshal(row.Content, &content); err != nil {
			return nil, fmt.Errorf("decode resume %s: %w", row.ID, err)
		}
	}
	return &resume.Document{
		ID:         row.ID,
		OwnerID:    row.UserID,
		Title:      row.Title,
		TemplateID: row.TemplateID,
		Content:    resume.Normalize(content),
		Version:    row.Version,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}
